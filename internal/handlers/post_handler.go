package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/dashboard"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/middleware"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/transport"
)

// PostHandler is the request/response write path for clients that do not
// keep a live dashboard open.
type PostHandler struct {
	store store.PostStore
}

func NewPostHandler(s store.PostStore) *PostHandler {
	return &PostHandler{store: s}
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req struct {
		Content string `json:"content" validate:"required,max=20000"`
		Type    string `json:"type" validate:"required,oneof=kun peng status diary"`
	}
	if !decode(w, r, &req) {
		return
	}
	kind, err := model.ParseKind(req.Type)
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	id, err := h.store.Create(r.Context(), model.NewPost{
		OwnerID:     p.AccountID,
		DisplayName: p.Handle,
		Content:     req.Content,
		Kind:        kind,
	})
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req struct {
		Content string `json:"content" validate:"required,max=20000"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := h.store.Update(r.Context(), p.AccountID, chi.URLParam(r, "id"), req.Content); err != nil {
		transport.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete is irreversible and insists on ?confirm=true.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !confirmed {
		transport.Error(w, r, dashboard.ErrNotConfirmed)
		return
	}

	if err := h.store.Delete(r.Context(), p.AccountID, chi.URLParam(r, "id")); err != nil {
		transport.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
