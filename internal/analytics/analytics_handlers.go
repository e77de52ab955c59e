package analytics

import (
	"encoding/json"
	"net/http"
)

// client-side events the app may report; everything else is rejected
var clientEvents = map[string]bool{
	"app_opened":           true,
	"plant_viewed":         true,
	"upload_session_shown": true,
}

// TrackHandler accepts one client-side event.
func TrackHandler(sink Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Event      string         `json:"event"`
			Properties map[string]any `json:"properties"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if !clientEvents[body.Event] {
			http.Error(w, "unknown event", http.StatusBadRequest)
			return
		}
		if body.Properties == nil {
			body.Properties = map[string]any{}
		}

		env := FromRequest(r)
		env.UserID = uid

		_ = Log(r.Context(), sink, env, body.Event, body.Properties, SourceEventKeyFromRequest(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
