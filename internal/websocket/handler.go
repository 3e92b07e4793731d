package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/dashboard"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/identity"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/middleware"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/transport"
)

type SessionObserver interface {
	ObserveSession(ctx context.Context, accountID string) <-chan *identity.Account
}

// Handler serves the live dashboard. Each connection owns one
// dashboard.Controller for as long as it stays open.
type Handler struct {
	registry    *Registry
	store       store.PostStore
	sessions    SessionObserver
	serviceName string
}

func NewHandler(registry *Registry, s store.PostStore, sessions SessionObserver, serviceName string) *Handler {
	return &Handler{
		registry:    registry,
		store:       s,
		sessions:    sessions,
		serviceName: serviceName,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	log := observability.GetLogger(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade error", zap.Error(err))
		return
	}

	session := NewSession(uuid.NewString(), p.AccountID, p.SessionID, conn)
	h.registry.Add(session)

	// The connection outlives the upgrade request.
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := dashboard.New(h.store, dashboard.Owner{AccountID: p.AccountID, Handle: p.Handle})

	session.Start()
	log.Info("connected",
		zap.String("account_id", p.AccountID),
		zap.String("session_id", session.ID),
		zap.Int("account_dashboards", len(h.registry.AccountSessions(p.AccountID))))
	observability.WebSocketConnectionsTotal.WithLabelValues(h.serviceName).Inc()

	if err := ctrl.Start(ctx); err != nil {
		log.Warn("dashboard start failed", zap.String("account_id", p.AccountID), zap.Error(err))
	}

	go h.forward(session, ctrl)
	go h.watchSignOut(ctx, session)

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.readLoop(ctx, cancel, session, ctrl)
}

// forward pushes every view the controller produces until it stops.
func (h *Handler) forward(s *Session, ctrl *dashboard.Controller) {
	for v := range ctrl.Changes() {
		sendFrame(s, frame{Type: "view", View: &v})
	}
}

// watchSignOut ends the connection once the account signs out. It stops on
// its own when the session closes first.
func (h *Handler) watchSignOut(ctx context.Context, s *Session) {
	changes := h.sessions.ObserveSession(ctx, s.AccountID)
	for {
		select {
		case <-s.Done():
			return
		case acct, ok := <-changes:
			if !ok {
				return
			}
			if acct == nil {
				s.CloseWithReason(CloseSignedOut, "signed_out")
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, s *Session, ctrl *dashboard.Controller) {
	defer func() {
		h.registry.Remove(s)
		ctrl.Stop()
		cancel()
		s.Close()
		logger().Info("disconnected", zap.String("account_id", s.AccountID), zap.String("session_id", s.ID))
		observability.WebSocketConnectionsTotal.WithLabelValues(h.serviceName).Dec()
	}()

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger().Warn("read loop error", zap.String("account_id", s.AccountID), zap.Error(err))
			}
			return
		}

		cmd, err := decodeCommand(raw)
		if err != nil {
			sendFrame(s, frame{Type: "error", Error: "bad_command", Message: err.Error()})
			continue
		}

		if err := dispatch(ctx, ctrl, cmd); err != nil {
			_, code, message := transport.Classify(err)
			sendFrame(s, frame{Type: "error", Error: code, Message: message})
		}
	}
}

func sendFrame(s *Session, f frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		logger().Error("failed to marshal frame", zap.Error(err))
		return
	}
	s.TrySend(payload)
}
