package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/authgate"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/dashboard"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/identity"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

type mapped struct {
	status  int
	code    string
	message string
}

// Classify maps a domain error to an HTTP status and a stable error code.
// Unknown errors come back as 500 internal_error.
func Classify(err error) (int, string, string) {
	m := classify(err)
	return m.status, m.code, m.message
}

func classify(err error) mapped {
	switch {
	case errors.Is(err, model.ErrEmptyContent):
		return mapped{http.StatusBadRequest, "empty_content", "content must not be empty"}
	case errors.Is(err, model.ErrInvalidKind):
		return mapped{http.StatusBadRequest, "invalid_kind", "type must be kun or peng"}
	case errors.Is(err, dashboard.ErrNotEditing):
		return mapped{http.StatusBadRequest, "not_editing", "no post is in edit mode"}
	case errors.Is(err, dashboard.ErrNotConfirmed):
		return mapped{http.StatusBadRequest, "confirmation_required", "delete must be confirmed"}
	case errors.Is(err, dashboard.ErrSubmitting):
		return mapped{http.StatusConflict, "submitting", "a post is already being submitted"}
	case errors.Is(err, identity.ErrDismissed):
		return mapped{http.StatusBadRequest, "sign_in_dismissed", "sign-in was cancelled"}
	case errors.Is(err, authgate.ErrSignInFailed),
		errors.Is(err, authgate.ErrInvalidSession),
		errors.Is(err, dashboard.ErrNoSession):
		return mapped{http.StatusUnauthorized, "unauthorized", "authentication failed"}
	case errors.Is(err, model.ErrNotOwner):
		return mapped{http.StatusForbidden, "forbidden", "access denied"}
	case errors.Is(err, model.ErrPostNotFound):
		return mapped{http.StatusNotFound, "not_found", "post not found"}
	case errors.Is(err, context.DeadlineExceeded):
		return mapped{http.StatusGatewayTimeout, "timeout", "request timed out"}
	}
	return mapped{http.StatusInternalServerError, "internal_error", "an unexpected error occurred"}
}

// Error writes err as a JSON error response. Server-side failures are logged
// with the real error; the client only sees the generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	m := classify(err)
	log := observability.GetLogger(r.Context())
	if m.status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("code", m.code), zap.Error(err))
	}
	WriteError(w, m.status, m.code, m.message)
}
