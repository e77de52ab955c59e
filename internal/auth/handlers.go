package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// DevTokenHandler mints HS256 tokens for local testing of the non-Firebase
// path. Only mounted when a dev secret is configured.
func DevTokenHandler(secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.UserID = strings.TrimSpace(body.UserID)
		if body.UserID == "" {
			http.Error(w, "userId required", http.StatusBadRequest)
			return
		}

		token, err := GenerateToken(secret, body.UserID)
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"userId": body.UserID,
			"token":  token,
		})
	}
}

func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"userId": uid,
			"local":  uid == LocalUserID,
		})
	}
}
