package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered lost.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request to a websocket and streams the session's
// events to it until the session channel closes or the connection is
// lost. A lost connection only detaches this subscriber; the session
// and its other subscribers are unaffected.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	sub, err := h.Subscribe(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Unsubscribe(sub.ID)
		h.log.Warn().Err(err).Str("sessionId", sessionID).Msg("websocket upgrade failed")
		return
	}

	log := h.log.With().
		Str("sessionId", sessionID).
		Str("connectionId", sub.ID).
		Logger()
	log.Info().Msg("websocket subscriber connected")

	// Reader detects client-side close and pong replies.
	lost := make(chan struct{})
	go func() {
		defer close(lost)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Unsubscribe(sub.ID)
		conn.Close()
		log.Info().Int64("dropped", sub.Dropped()).Msg("websocket subscriber detached")
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Session channel closed; say goodbye cleanly.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Warn().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-lost:
			return
		}
	}
}
