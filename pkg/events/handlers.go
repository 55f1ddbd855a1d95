package events

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the event read API.
func Router(store Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ListEventsHandler(store))
	return r
}

// ListEventsHandler handles GET /events. With a service query parameter it
// returns only that service's history; otherwise the full log.
func ListEventsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			list []ActionEvent
			err  error
		)

		if service := r.URL.Query().Get("service"); service != "" {
			list, err = store.ListForService(r.Context(), service)
		} else {
			list, err = store.ListAll(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list events: %v", err))
			return
		}

		if list == nil {
			list = []ActionEvent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":    list,
			"totalSize": len(list),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
