package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/impostorapp/impostor-backend/internal/hub"
	"github.com/impostorapp/impostor-backend/internal/protocol"
)

// ListRooms is the REST mirror of the getRooms socket event: a point-in-time
// list of joinable room summaries.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []protocol.RoomSummary, 1)
		select {
		case h.Inbox() <- hub.ListRooms{Reply: reply}:
		case <-r.Context().Done():
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		select {
		case rooms := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(rooms)
		case <-r.Context().Done():
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
