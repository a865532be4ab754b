package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// StreamHandler upgrades clients onto the real-time notification channel.
// Each connection subscribes to exactly one room; the subscription is
// acquired on connect and released deterministically on disconnect.
type StreamHandler struct {
	deps     Dependencies
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies) *StreamHandler {
	return &StreamHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			// The gateway in front of this service enforces origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger.Named("stream"),
	}
}

// wireEvent is the frame written to subscribers.
type wireEvent struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// HandleSubscribe handles GET /ws?room=. Personal rooms are only open to
// their owner; team and activity rooms to any authenticated caller.
func (h *StreamHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	const op = "api.subscribe"
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", NewKind(op, ErrForbidden))
		return
	}
	room := r.URL.Query().Get("room")
	if !validRoom(room) {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if strings.HasPrefix(room, "user:") && room != model.UserRoom(caller.UserID) {
		writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Err(WrapKind(op, ErrUpgrade, err)))
		return
	}

	sub := h.deps.Subscribe(room)
	go h.readPump(conn, sub)
	h.writePump(r.Context(), conn, sub)
}

// readPump drains inbound frames so close/ping control messages are
// processed, and releases the subscription when the peer goes away.
func (h *StreamHandler) readPump(conn *websocket.Conn, sub interface{ Close() }) {
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards room notifications to the peer until the
// subscription's channel closes.
func (h *StreamHandler) writePump(ctx context.Context, conn *websocket.Conn, sub subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case n, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			frame, err := json.Marshal(wireEvent{Type: string(n.Type), Payload: n.Payload})
			if err != nil {
				h.log.Warn(ctx, "dropping unmarshalable notification", logger.Err(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscription is the slice of fanout.Subscription the pumps need.
type subscription interface {
	Events() <-chan model.Notification
	Close()
}

func validRoom(room string) bool {
	for _, prefix := range []string{"user:", "team:", "activity:"} {
		if strings.HasPrefix(room, prefix) && len(room) > len(prefix) {
			return true
		}
	}
	return false
}
