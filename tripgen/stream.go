package tripgen

import (
	"log"
	"net/http"
	"time"

	"voyago/middleware"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // lock down in production
}

const writeWait = 10 * time.Second

// GET /ws/trips/:id/generate?token=...
// Streams generation snapshots to the client until the session ends or
// the client disconnects. Observers are read-only; a slow connection
// drops intermediate snapshots rather than stalling the pipeline.
func (h *Handlers) StreamGeneration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	claims, err := middleware.ValidateRawToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tripID := ps.ByName("id")
	session := h.Orc.Session(tripID)
	if session == nil {
		http.Error(w, "No generation session for this trip", http.StatusNotFound)
		return
	}
	if session.UserID != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("tripgen: ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshots, unsubscribe := session.Subscribe()
	defer unsubscribe()

	// Drain client frames so pings/close are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for snap := range snapshots {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
		if snap.IsComplete || snap.HasFailed {
			// Terminal snapshot delivered; leave the socket to the client.
			return
		}
	}
}
