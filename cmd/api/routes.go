package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"

	"plantpal-backend/internal/agent"
	"plantpal-backend/internal/analytics"
	"plantpal-backend/internal/auth"
	"plantpal-backend/internal/plants"
	"plantpal-backend/internal/session"
	"plantpal-backend/internal/tasks"
)

type deps struct {
	Store       plants.Store
	Events      analytics.Sink
	Agent       *agent.Service
	Sessions    *session.Store
	Auth        auth.Middleware
	DevSecret   []byte // mounts POST /api/dev/token when set
	CORSOrigins []string
	Now         func() time.Time
}

func routes(d deps) http.Handler {
	mux := http.NewServeMux()
	now := d.Now
	if now == nil {
		now = time.Now
	}

	// Health endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	})

	// ----- AGENT -----
	mux.HandleFunc("POST /api/vertex/plant-agent", d.Auth.Wrap(agent.PlantAgentHandler(d.Agent)))

	// ----- PLANTS / TASKS -----
	mux.HandleFunc("POST /api/plants", d.Auth.Wrap(plants.CreatePlantHandler(d.Store, d.Events)))
	mux.HandleFunc("GET /api/plants", d.Auth.Wrap(plants.ListPlantsHandler(d.Store)))
	mux.HandleFunc("GET /api/plants/{id}", d.Auth.Wrap(plants.GetPlantHandler(d.Store)))
	mux.HandleFunc("GET /api/tasks", d.Auth.Wrap(tasks.ListTasksHandler(d.Store)))
	mux.HandleFunc("POST /api/tasks/{id}/complete", d.Auth.Wrap(tasks.CompleteTaskHandler(d.Agent)))

	// ----- UPLOAD SESSIONS (phone -> desktop, keyed by the QR session id) -----
	mux.HandleFunc("POST /api/session/{id}/image", session.PutImageHandler(d.Sessions))
	mux.HandleFunc("GET /api/session/{id}/image", session.GetImageHandler(d.Sessions))
	mux.HandleFunc("DELETE /api/session/{id}", session.DeleteHandler(d.Sessions))

	// ----- ACCOUNT / ANALYTICS -----
	mux.HandleFunc("GET /api/me", d.Auth.Wrap(auth.MeHandler()))
	mux.HandleFunc("POST /api/events", d.Auth.Wrap(analytics.TrackHandler(d.Events)))
	if len(d.DevSecret) > 0 {
		mux.HandleFunc("POST /api/dev/token", auth.DevTokenHandler(d.DevSecret))
	}

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type", "Authorization",
			"X-Platform", "X-App-Version", "X-Session-Id", "X-Device-Locale",
			"Idempotency-Key", "X-Source-Event-Key",
		},
		AllowCredentials: true,
	})

	return c.Handler(mux)
}
