package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"votify/internal/events"
)

const (
	pushWriteWait  = 10 * time.Second
	pushPongWait   = 60 * time.Second
	pushPingPeriod = pushPongWait * 9 / 10
	pushBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// @Summary     Push notifications
// @Description Upgrades to a websocket carrying JSON events. The token may be passed as ?token=.
// @Tags        events
// @Security    BearerAuth
// @Param       token  query  string  false  "JWT when headers cannot be set"
// @Success     101
// @Failure     401  {object}  apperr.AppError  "unauthorized"
// @Router      /api/v1/events [get]
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slogLogger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe(pushBuffer)
	defer cancel()

	userID := userIDFromCtx(r)
	slogLogger.Debug("push client connected", "user_id", userID)

	// clients never publish; the read loop only services pings and detects close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pushPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pushPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			slogLogger.Debug("push client disconnected", "user_id", userID)
			return
		case ev, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(pushWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(pushWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) publish(ev events.Event) {
	if h.hub != nil {
		h.hub.Publish(ev)
	}
}

func (h *Handler) publishPollsChanged() {
	h.publish(events.NewPollsChanged())
	h.publish(events.NewDashboardChanged())
}
