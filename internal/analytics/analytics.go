package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

type CtxKey string

const (
	ctxUserIDKey CtxKey = "analytics_user_id"
)

// Envelope is what we store with every event.
type Envelope struct {
	UserID       string
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
}

type Event struct {
	Name           string
	Time           time.Time
	Envelope       Envelope
	SourceEventKey string
	Properties     json.RawMessage
}

// Sink persists events. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// FromRequest extracts event envelope fields from request.
// Backend-trustable fields only.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	switch platform {
	case "ios", "android", "web":
	default:
		platform = "unknown"
	}

	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	return Envelope{
		SessionID:    strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:     platform,
		AppVersion:   strings.TrimSpace(r.Header.Get("X-App-Version")),
		DeviceLocale: locale,
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxUserIDKey)
	if v == nil {
		return "", false
	}
	uid, ok := v.(string)
	return uid, ok && uid != ""
}

// Client-provided idempotency key (optional)
// If present and duplicates, insert is ignored.
func SourceEventKeyFromRequest(r *http.Request) string {
	k := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

// Log records one care event. It never fails the caller: events without a
// user, unmarshalable props and sink errors are dropped.
// Callers pass sanitized props, never raw image data.
func Log(ctx context.Context, sink Sink, env Envelope, eventName string, props any, sourceEventKey string) error {
	if sink == nil || eventName == "" {
		return nil
	}

	if env.UserID == "" {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			return nil
		}
		env.UserID = uid
	}

	b, err := json.Marshal(props)
	if err != nil {
		return nil
	}

	_ = sink.Record(ctx, Event{
		Name:           eventName,
		Time:           time.Now().UTC(),
		Envelope:       env,
		SourceEventKey: sourceEventKey,
		Properties:     b,
	})
	return nil
}

// PostgresSink writes into care_events.
type PostgresSink struct {
	DB *sql.DB
}

func (s PostgresSink) Record(ctx context.Context, e Event) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO care_events (
			event_name, event_time,
			user_id, session_id,
			platform, app_version, device_locale,
			source_event_key,
			properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (user_id, source_event_key) DO NOTHING
	`, e.Name, e.Time,
		e.Envelope.UserID, nullIfEmpty(e.Envelope.SessionID),
		e.Envelope.Platform, e.Envelope.AppVersion, nullIfEmpty(e.Envelope.DeviceLocale),
		nullIfEmpty(e.SourceEventKey),
		string(e.Properties),
	)
	return err
}

// MemorySink keeps events in memory, deduplicating on the user's source
// event key.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	seen   map[string]struct{}
}

func NewMemorySink() *MemorySink {
	return &MemorySink{seen: map[string]struct{}{}}
}

func (s *MemorySink) Record(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.SourceEventKey != "" {
		k := e.Envelope.UserID + "\x00" + e.SourceEventKey
		if _, dup := s.seen[k]; dup {
			return nil
		}
		s.seen[k] = struct{}{}
	}
	s.events = append(s.events, e)
	return nil
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
