package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// MaxImageBytes bounds the upload body; photos arrive as base64 data URLs.
const MaxImageBytes = 10 << 20

func PutImageHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.PathValue("id"))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "session id is required"})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes)
		var body struct {
			DataURL string `json:"dataUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "image too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(body.DataURL) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "dataUrl is required"})
			return
		}

		if err := store.Put(id, body.DataURL); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func GetImageHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataURL, ok := store.Get(r.PathValue("id"))
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"found": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"found": true, "dataUrl": dataURL})
	}
}

func DeleteHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Delete(r.PathValue("id"))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
