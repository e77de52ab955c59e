package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"plantpal-backend/internal/agent"
	"plantpal-backend/internal/ai"
	"plantpal-backend/internal/analytics"
	"plantpal-backend/internal/auth"
	"plantpal-backend/internal/config"
	"plantpal-backend/internal/db"
	"plantpal-backend/internal/logger"
	"plantpal-backend/internal/photos"
	"plantpal-backend/internal/plants"
	"plantpal-backend/internal/server"
	"plantpal-backend/internal/session"
)

func main() {
	cfg := config.Load()

	l, logCloser, err := logger.New(logger.Config{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  cfg.Env == "production",
	})
	if err != nil {
		log.Fatal("failed to init logger", "err", err)
	}
	defer logCloser.Close()

	loc, err := cfg.Location()
	if err != nil {
		l.Fatal("invalid TIMEZONE", "tz", cfg.Timezone, "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ----- STORAGE -----
	var (
		store  plants.Store
		events analytics.Sink
	)
	if cfg.UsePostgres() {
		database, err := db.Connect(ctx, cfg.ConnString())
		if err != nil {
			l.Fatal("failed to connect DB", "host", cfg.DBHost, "err", err)
		}
		if err := db.EnsureSchema(ctx, database); err != nil {
			l.Fatal("failed to prepare schema", "err", err)
		}
		store = plants.NewPostgresStore(database)
		events = analytics.PostgresSink{DB: database}
		l.Info("connected to PostgreSQL", "host", cfg.DBHost, "db", cfg.DBName)
	} else {
		store = plants.NewMemoryStore()
		events = analytics.NewMemorySink()
		l.Warn("DB_HOST not set, keeping plants in memory")
	}
	defer store.Close()

	// ----- AI -----
	aiClient := &ai.Client{Timeout: cfg.AITimeout, Logger: l}
	if cfg.GCPProjectID != "" {
		vertex, err := ai.NewVertexBackend(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.VertexModel)
		if err != nil {
			l.Warn("Vertex AI unavailable", "err", err)
		} else {
			aiClient.Primary = vertex
		}
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			l.Warn("Gemini API unavailable", "err", err)
		} else {
			aiClient.Fallback = gemini
			defer gemini.Close()
		}
	}
	if aiClient.Primary == nil && aiClient.Fallback == nil {
		l.Warn("no AI backend configured: set GCP_PROJECT_ID or GEMINI_API_KEY; agent actions will fail")
	}

	svc := &agent.Service{
		Store:    store,
		AI:       aiClient,
		Events:   events,
		Logger:   l,
		Location: loc,
	}
	if cfg.Photos.Enabled() {
		s3, err := photos.NewS3Store(photos.S3Config{
			Endpoint:      cfg.Photos.Endpoint,
			Region:        cfg.Photos.Region,
			AccessKey:     cfg.Photos.AccessKey,
			SecretKey:     cfg.Photos.SecretKey,
			Bucket:        cfg.Photos.Bucket,
			UseSSL:        cfg.Photos.UseSSL,
			PublicBaseURL: cfg.Photos.PublicBaseURL,
		})
		if err != nil {
			l.Fatal("failed to init photo storage", "err", err)
		}
		svc.Photos = s3
	}

	// ----- AUTH -----
	var verifiers []auth.Verifier
	if cfg.FirebaseProjectID != "" {
		verifiers = append(verifiers, auth.NewFirebaseVerifier(cfg.FirebaseProjectID, time.Hour))
	}
	var devSecret []byte
	if cfg.AuthJWTSecret != "" {
		verifiers = append(verifiers, auth.HMACVerifier{Secret: []byte(cfg.AuthJWTSecret)})
	}
	if cfg.DevTokensEnabled() {
		devSecret = []byte(cfg.AuthJWTSecret)
		l.Warn("POST /api/dev/token is mounted: anyone can mint tokens for any user")
	}
	if cfg.AuthDevFallback {
		l.Warn("AUTH_DEV_FALLBACK is on: unauthenticated requests act as " + auth.LocalUserID + ". Do not use in production")
	}

	sessions := session.NewStore(cfg.SessionMaxEntries, cfg.SessionTTL)
	defer sessions.Close()

	handler := routes(deps{
		Store:       store,
		Events:      events,
		Agent:       svc,
		Sessions:    sessions,
		Auth:        auth.New(cfg.AuthDevFallback, l, verifiers...),
		DevSecret:   devSecret,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	srv := server.New(cfg.Addr(), handler, l)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			l.Error("server stopped", "err", err)
		}
	case <-ctx.Done():
		l.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error("shutdown failed", "err", err)
		}
	}
}
