package websocket

import (
	"log"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients. The household_id query parameter
// selects which household's events the client receives.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID, err := strconv.ParseInt(r.URL.Query().Get("household_id"), 10, 64)
		if err != nil || householdID <= 0 {
			http.Error(w, "household_id required", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Allow connections from any origin (household LAN)
		})
		if err != nil {
			log.Printf("websocket: accept: %v", err)
			return
		}

		client := NewClient(hub, conn, householdID)
		client.Run(r.Context())
	}
}
