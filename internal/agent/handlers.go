package agent

import (
	"encoding/json"
	"errors"
	"net/http"

	"plantpal-backend/internal/analytics"
	"plantpal-backend/internal/auth"
	"plantpal-backend/internal/plants"
)

// PlantAgentHandler serves POST /api/vertex/plant-agent.
func PlantAgentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid JSON", err.Error())
			return
		}

		ctx := WithEnvelope(r.Context(), analytics.FromRequest(r), analytics.SourceEventKeyFromRequest(r))
		resp, err := svc.Handle(ctx, uid, req)
		if err != nil {
			if StatusFor(err) == http.StatusInternalServerError {
				svc.logger().Error("plant agent failed", "plant", req.PlantID, "action", req.Action, "err", err)
			}
			WriteServiceError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, plants.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, plants.ErrAlreadyCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func WriteServiceError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	switch code {
	case http.StatusBadRequest:
		WriteError(w, code, "Bad request", err.Error())
	case http.StatusNotFound:
		WriteError(w, code, "Not found", err.Error())
	case http.StatusForbidden:
		WriteError(w, code, "Forbidden", err.Error())
	case http.StatusConflict:
		WriteError(w, code, "Conflict", err.Error())
	default:
		WriteError(w, code, "Internal server error", err.Error())
	}
}

func WriteError(w http.ResponseWriter, code int, msg, detail string) {
	body := map[string]any{"error": msg}
	if detail != "" {
		body["message"] = detail
	}
	WriteJSON(w, code, body)
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
