package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/transport"
)

var validate = validator.New()

const maxBodyBytes = 1 << 20

// decode reads and validates a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return false
	}
	return true
}
