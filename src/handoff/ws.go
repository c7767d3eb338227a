package handoff

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleWS pushes the state document to the client whenever it changes.
// Clients only listen; anything they send is discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("HANDOFF: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	s.metrics.ViewerConnected()
	defer s.metrics.ViewerDisconnected()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var sent uint64
	first := true
	for {
		if v := s.state.Version(); first || v != sent {
			data, err := json.Marshal(s.state.Snapshot())
			if err != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			sent, first = v, false
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
