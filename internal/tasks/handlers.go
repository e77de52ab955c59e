package tasks

import (
	"net/http"
	"strings"

	"plantpal-backend/internal/agent"
	"plantpal-backend/internal/analytics"
	"plantpal-backend/internal/auth"
	"plantpal-backend/internal/plants"
)

// ListTasksHandler serves GET /api/tasks, optionally filtered by ?plantId=.
func ListTasksHandler(store plants.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			agent.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}

		plantID := strings.TrimSpace(r.URL.Query().Get("plantId"))
		if plantID != "" {
			p, err := store.GetPlant(r.Context(), plantID)
			if err != nil {
				agent.WriteServiceError(w, err)
				return
			}
			if p.UserID != uid {
				agent.WriteServiceError(w, agent.ErrForbidden)
				return
			}
		}

		list, err := store.ListTasks(r.Context(), uid, plantID)
		if err != nil {
			agent.WriteServiceError(w, err)
			return
		}
		agent.WriteJSON(w, http.StatusOK, list)
	}
}

// CompleteTaskHandler serves POST /api/tasks/{id}/complete. Completion runs
// a status update for the task's care kind; a task completes only once.
func CompleteTaskHandler(svc *agent.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			agent.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}

		ctx := agent.WithEnvelope(r.Context(), analytics.FromRequest(r), analytics.SourceEventKeyFromRequest(r))
		task, resp, err := svc.CompleteTask(ctx, uid, r.PathValue("id"))
		if err != nil {
			agent.WriteServiceError(w, err)
			return
		}

		agent.WriteJSON(w, http.StatusOK, map[string]any{
			"task":  task,
			"plant": resp,
		})
	}
}
