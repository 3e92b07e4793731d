package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/authgate"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/middleware"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/transport"
)

type Gate interface {
	SignIn(ctx context.Context, credential string) (authgate.Session, error)
	SignOut(ctx context.Context, p authgate.Principal) error
}

type AuthHandler struct {
	gate         Gate
	secureCookie bool
}

func NewAuthHandler(g Gate, secureCookie bool) *AuthHandler {
	return &AuthHandler{gate: g, secureCookie: secureCookie}
}

type signInResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Profile   model.Profile `json:"profile"`
	Dashboard string        `json:"dashboard"`
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential" validate:"max=8192"`
	}
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.gate.SignIn(r.Context(), req.Credential)
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.Principal.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	transport.WriteJSON(w, http.StatusOK, signInResponse{
		Token:     sess.Token,
		ExpiresAt: sess.Principal.ExpiresAt,
		Profile:   sess.Profile,
		Dashboard: "/dashboard",
	})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := h.gate.SignOut(r.Context(), p); err != nil {
		transport.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
