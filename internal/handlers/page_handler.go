package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/dashboard"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/grouping"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/middleware"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/profile"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/transport"
)

// ProfileLookup finds the profile stored for a handle at sign-in.
type ProfileLookup interface {
	Get(ctx context.Context, handle string) (*model.Profile, error)
}

type PageHandler struct {
	store    store.PostStore
	profiles ProfileLookup
}

func NewPageHandler(s store.PostStore, profiles ProfileLookup) *PageHandler {
	return &PageHandler{store: s, profiles: profiles}
}

func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{
		"name":      "逍遥记",
		"sign_in":   "/api/v1/auth/signin",
		"dashboard": "/dashboard",
	})
}

// Dashboard renders a one-shot dashboard. Query params: search, kind and
// any number of expand (month labels to flip).
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	q := r.URL.Query()
	kind, err := grouping.ParseKindFilter(q.Get("kind"))
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	ctrl := dashboard.New(h.store, dashboard.Owner{AccountID: p.AccountID, Handle: p.Handle})
	if err := ctrl.Load(r.Context()); err != nil {
		transport.Error(w, r, err)
		return
	}
	ctrl.SetKind(kind)
	ctrl.SetSearch(q.Get("search"))
	for _, label := range q["expand"] {
		ctrl.ToggleMonth(label)
	}
	if id := q.Get("open"); id != "" {
		ctrl.ToggleDiary(id)
	}

	transport.WriteJSON(w, http.StatusOK, ctrl.Snapshot())
}

// Profile renders the public page of a username. A failed lookup renders
// an empty profile rather than an error.
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username, err := usernameParam(r)
	if err != nil || username == "" {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", "invalid username")
		return
	}

	posts, err := h.store.QueryPublic(r.Context(), username)
	if err != nil {
		observability.GetLogger(r.Context()).Warn("public feed unavailable",
			zap.String("username", username), zap.Error(err))
		posts = nil
	}

	q := r.URL.Query()
	page := profile.NewRenderer(username, posts)
	page.SetProfile(h.lookupProfile(r.Context(), username))
	page.SetTab(profile.ParseTab(q.Get("tab")))
	for _, label := range q["expand"] {
		page.ToggleMonth(label)
	}
	if id := q.Get("open"); id != "" {
		page.ToggleDiary(id)
	}

	transport.WriteJSON(w, http.StatusOK, page.Page())
}

// lookupProfile returns nil when the handle never signed in or the lookup
// fails; the page then falls back to the generated avatar.
func (h *PageHandler) lookupProfile(ctx context.Context, username string) *model.Profile {
	if h.profiles == nil {
		return nil
	}
	p, err := h.profiles.Get(ctx, username)
	switch {
	case err == nil:
		return p
	case errors.Is(err, model.ErrProfileNotFound):
	default:
		observability.GetLogger(ctx).Warn("profile lookup failed",
			zap.String("username", username), zap.Error(err))
	}
	return nil
}

// usernameParam returns the decoded {username}. chi routes on RawPath when it
// is set, and only then is the captured segment still escaped.
func usernameParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "username")
	if r.URL.RawPath == "" {
		return raw, nil
	}
	return url.PathUnescape(raw)
}
