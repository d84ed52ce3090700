package hub

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voyageflow/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Viewers are anonymous; the dashboard page may be served from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a websocket viewer connection and
// registers it with the hub. The connection only ever receives events; a newly
// connected viewer bootstraps current state through the query endpoints first.
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request) {
	log := h.log.WithComponent("hub_ws")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	v := NewViewer(uuid.New().String(), sendBufferSize)
	h.Subscribe(v)

	go writePump(h, v, conn)
	go readPump(h, v, conn)
}

// writePump drains the viewer's outbound channel onto the socket in order.
// Any write or ping failure counts as a disconnect, and a hub-side drop
// (signalled through Done) ends the connection with a close frame.
func writePump(h *Hub, v *Viewer, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Unsubscribe(v.ID)
		conn.Close()
	}()

	log := h.log.WithComponent("hub_ws").WithFields(logger.Fields{"viewer_id": v.ID})

	for {
		select {
		case msg := <-v.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("viewer write failed")
				return
			}
		case <-v.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "send buffer full"))
			log.Debug("viewer dropped by hub, closing connection")
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Debug("viewer ping failed")
				return
			}
		}
	}
}

// readPump discards inbound frames and detects peer closure. The protocol is
// server-to-viewer only, but reading is required to process control frames.
func readPump(h *Hub, v *Viewer, conn *websocket.Conn) {
	defer func() {
		h.Unsubscribe(v.ID)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
