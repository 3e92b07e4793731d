package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/authgate"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/identity"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/middleware"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store/storetest"
)

type signOuts struct {
	ch chan *identity.Account
}

func (s *signOuts) ObserveSession(ctx context.Context, _ string) <-chan *identity.Account {
	out := make(chan *identity.Account)
	go func() {
		defer close(out)
		select {
		case a := <-s.ch:
			out <- a
		case <-ctx.Done():
		}
	}()
	return out
}

func withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := authgate.Principal{AccountID: "acct-1", Handle: "lin", SessionID: "auth-1"}
		next.ServeHTTP(w, r.WithContext(middleware.InjectPrincipal(r.Context(), p)))
	})
}

func dial(t *testing.T, h http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(withPrincipal(h))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

// waitFor reads frames until one satisfies ok.
func waitFor(t *testing.T, conn *websocket.Conn, ok func(frame) bool) frame {
	t.Helper()
	for i := 0; i < 20; i++ {
		if f := readFrame(t, conn); ok(f) {
			return f
		}
	}
	t.Fatal("expected frame never arrived")
	return frame{}
}

func send(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestHandler_LiveDashboard(t *testing.T) {
	mem := storetest.New()
	h := NewHandler(NewRegistry(), mem, &signOuts{ch: make(chan *identity.Account)}, "test")
	conn := dial(t, h)

	first := readFrame(t, conn)
	require.Equal(t, "view", first.Type)
	assert.True(t, first.View.Empty)
	assert.Equal(t, "lin", first.View.Owner)

	send(t, conn, Command{Type: "draft", Text: "逍遥游"})
	send(t, conn, Command{Type: "create"})

	f := waitFor(t, conn, func(f frame) bool {
		return f.View != nil && f.View.Total == 1 && f.View.Draft == ""
	})
	require.Len(t, f.View.Months, 1)
	assert.Equal(t, "逍遥游", f.View.Months[0].Cards[0].Content)
}

func TestHandler_RejectsBadCommands(t *testing.T) {
	h := NewHandler(NewRegistry(), storetest.New(), &signOuts{ch: make(chan *identity.Account)}, "test")
	conn := dial(t, h)
	readFrame(t, conn)

	send(t, conn, Command{Type: "explode"})
	f := waitFor(t, conn, func(f frame) bool { return f.Type == "error" })
	assert.Equal(t, "bad_command", f.Error)

	send(t, conn, Command{Type: "delete", ID: "post-1"})
	f = waitFor(t, conn, func(f frame) bool { return f.Type == "error" })
	assert.Equal(t, "confirmation_required", f.Error)

	send(t, conn, Command{Type: "create"})
	f = waitFor(t, conn, func(f frame) bool { return f.Type == "error" })
	assert.Equal(t, "empty_content", f.Error)
}

func TestHandler_SignOutClosesConnection(t *testing.T) {
	out := &signOuts{ch: make(chan *identity.Account, 1)}
	h := NewHandler(NewRegistry(), storetest.New(), out, "test")
	conn := dial(t, h)
	readFrame(t, conn)

	out.ch <- nil

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, CloseSignedOut), "got %v", err)
			return
		}
	}
}

func TestHandler_RequiresPrincipal(t *testing.T) {
	h := NewHandler(NewRegistry(), storetest.New(), &signOuts{}, "test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWatchSignOut_StopsWhenSessionCloses(t *testing.T) {
	h := NewHandler(NewRegistry(), storetest.New(), &signOuts{ch: make(chan *identity.Account)}, "test")
	s := NewSession("ws-1", "acct-1", "auth-1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		h.watchSignOut(ctx, s)
		close(stopped)
	}()

	s.Close()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("watcher outlived its session")
	}
}
