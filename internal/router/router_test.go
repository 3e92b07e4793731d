package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/authgate"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/dashboard"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/grouping"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/handlers"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/identity"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/profile"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store/storetest"
)

type fakeGate struct {
	signedOut []string
}

func (g *fakeGate) SignIn(_ context.Context, credential string) (authgate.Session, error) {
	switch credential {
	case "":
		return authgate.Session{}, identity.ErrDismissed
	case "good":
		p := authgate.Principal{AccountID: "acct-1", Handle: "lin", SessionID: "s1", ExpiresAt: time.Now().Add(time.Hour)}
		return authgate.Session{Token: "good", Principal: p, Profile: model.Profile{Handle: "lin", OwnerID: "acct-1"}}, nil
	}
	return authgate.Session{}, authgate.ErrSignInFailed
}

func (g *fakeGate) SignOut(_ context.Context, p authgate.Principal) error {
	g.signedOut = append(g.signedOut, p.SessionID)
	return nil
}

func (g *fakeGate) Authenticate(_ context.Context, token string) (authgate.Principal, error) {
	if token != "good" {
		return authgate.Principal{}, authgate.ErrInvalidSession
	}
	return authgate.Principal{AccountID: "acct-1", Handle: "lin", SessionID: "s1"}, nil
}

type fakeProfiles map[string]model.Profile

func (f fakeProfiles) Get(_ context.Context, handle string) (*model.Profile, error) {
	p, ok := f[handle]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return &p, nil
}

func at(month time.Month, day int) model.CreationTime {
	return model.FromTime(time.Date(2025, month, day, 12, 0, 0, 0, grouping.DisplayZone))
}

func newTestRouter(t *testing.T, signInLimit int) (http.Handler, *storetest.Memory, *fakeGate) {
	t.Helper()
	mem := storetest.New(
		model.Post{ID: "d1", OwnerID: "acct-1", DisplayName: "lin", Content: "北冥有鱼", Kind: model.KindDiary, CreatedAt: at(time.March, 3)},
		model.Post{ID: "s1", OwnerID: "acct-1", DisplayName: "lin", Content: "hello", Kind: model.KindStatus, CreatedAt: at(time.February, 1)},
	)
	gate := &fakeGate{}
	live := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := NewRouter(
		handlers.NewAuthHandler(gate, false),
		handlers.NewPostHandler(mem),
		handlers.NewPageHandler(mem, fakeProfiles{"lin": {Handle: "lin", DisplayName: "林"}}),
		live,
		gate,
		Options{ServiceName: "test", SignInPerMinute: signInLimit},
	)
	return h, mem, gate
}

func do(h http.Handler, method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.RemoteAddr = "192.168.1.100:5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDashboard_RedirectsWithoutSession(t *testing.T) {
	h, _, _ := newTestRouter(t, 10)

	rec := do(h, http.MethodGet, "/dashboard", nil, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestDashboard_RendersOwnPosts(t *testing.T) {
	h, _, _ := newTestRouter(t, 10)

	rec := do(h, http.MethodGet, "/dashboard?search=HELLO", nil, "good")
	require.Equal(t, http.StatusOK, rec.Code)

	var v dashboard.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, 1, v.Matched)
	require.Len(t, v.Months, 1)
	assert.True(t, v.Months[0].Expanded)
	assert.Equal(t, "/lin", v.ProfilePath)
}

func TestPosts_CreateUpdateDelete(t *testing.T) {
	h, mem, _ := newTestRouter(t, 10)

	rec := do(h, http.MethodPost, "/api/v1/posts", map[string]string{"content": "新的一天", "type": "status"}, "good")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	id := created["id"]

	rec = do(h, http.MethodPost, "/api/v1/posts", map[string]string{"content": "   ", "type": "kun"}, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/posts", map[string]string{"content": "x", "type": "poem"}, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPatch, "/api/v1/posts/"+id, map[string]string{"content": "改过了"}, "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(h, http.MethodDelete, "/api/v1/posts/"+id, nil, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, mem.Deletes)

	rec = do(h, http.MethodDelete, "/api/v1/posts/"+id+"?confirm=true", nil, "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(h, http.MethodDelete, "/api/v1/posts/"+id+"?confirm=true", nil, "good")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/posts", map[string]string{"content": "x", "type": "kun"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_PublicPage(t *testing.T) {
	h, _, _ := newTestRouter(t, 10)

	rec := do(h, http.MethodGet, "/lin", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page profile.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, "lin 的逍遥游", page.Title)
	assert.Equal(t, "林", page.DisplayName)
	assert.Equal(t, profile.AvatarURL("lin"), page.AvatarURL)
	assert.Equal(t, profile.TabDiary, page.Tab)
	require.NotNil(t, page.LatestStatus)
	assert.Equal(t, "hello", page.LatestStatus.Content)

	rec = do(h, http.MethodGet, "/lin?tab=status", nil, "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, profile.TabStatus, page.Tab)
	assert.Equal(t, "2025年2月", page.Months[0].Label)
}

func TestProfile_DecodesUsernameAndDegrades(t *testing.T) {
	h, mem, _ := newTestRouter(t, 10)

	rec := do(h, http.MethodGet, "/"+url.PathEscape("林 微"), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page profile.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, "林 微", page.Username)
	assert.True(t, page.Empty)

	page = profile.Page{}
	rec = do(h, http.MethodGet, "/100%25off", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, "100%off", page.Username)
	assert.Empty(t, page.DisplayName)
	assert.True(t, page.Empty)

	page = profile.Page{}
	rec = do(h, http.MethodGet, "/a%2Fb", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, "a/b", page.Username)

	mem.PublicErr = assert.AnError
	rec = do(h, http.MethodGet, "/lin", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.True(t, page.Empty)
}

func TestSignInAndOut(t *testing.T) {
	h, _, gate := newTestRouter(t, 10)

	rec := do(h, http.MethodPost, "/api/v1/auth/signin", map[string]string{"credential": "good"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec = do(h, http.MethodPost, "/api/v1/auth/signin", map[string]string{"credential": ""}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/auth/signin", map[string]string{"credential": "forged"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/auth/signout", nil, "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"s1"}, gate.signedOut)
}

func TestSignInRateLimiting(t *testing.T) {
	h, _, _ := newTestRouter(t, 3)

	for i := 0; i < 3; i++ {
		rec := do(h, http.MethodPost, "/api/v1/auth/signin", map[string]string{"credential": "forged"}, "")
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code, "request %d limited too early", i)
	}

	rec := do(h, http.MethodPost, "/api/v1/auth/signin", map[string]string{"credential": "forged"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLiveDashboardRequiresSession(t *testing.T) {
	h, _, _ := newTestRouter(t, 10)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/ws/dashboard", nil, "").Code)
	assert.Equal(t, http.StatusTeapot, do(h, http.MethodGet, "/ws/dashboard", nil, "good").Code)
}
