package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS plants (
	id                        TEXT PRIMARY KEY,
	name                      TEXT NOT NULL,
	species                   TEXT NOT NULL DEFAULT '',
	happiness                 INTEGER NOT NULL DEFAULT 50 CHECK (happiness BETWEEN 0 AND 100),
	watering_interval_days    INTEGER NOT NULL DEFAULT 7,
	fertilizing_interval_days INTEGER NOT NULL DEFAULT 14,
	last_watered              TIMESTAMPTZ,
	next_watering             TIMESTAMPTZ,
	last_fertilized           TIMESTAMPTZ,
	next_fertilizing          TIMESTAMPTZ,
	photo_urls                TEXT[] NOT NULL DEFAULT '{}',
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
	user_id                   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS plants_user_id_idx ON plants (user_id);

CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	plant_id       TEXT NOT NULL REFERENCES plants (id),
	plant_name     TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL CHECK (type IN ('watering', 'fertilizing')),
	scheduled_date TIMESTAMPTZ NOT NULL,
	completed      BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at   TIMESTAMPTZ,
	user_id        TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS tasks_user_plant_idx ON tasks (user_id, plant_id);

CREATE TABLE IF NOT EXISTS care_events (
	id               BIGSERIAL PRIMARY KEY,
	event_name       TEXT NOT NULL,
	event_time       TIMESTAMPTZ NOT NULL,
	user_id          TEXT NOT NULL,
	session_id       TEXT,
	platform         TEXT NOT NULL DEFAULT 'unknown',
	app_version      TEXT NOT NULL DEFAULT '',
	device_locale    TEXT,
	source_event_key TEXT,
	properties       JSONB NOT NULL DEFAULT '{}'::jsonb
);
ALTER TABLE care_events DROP CONSTRAINT IF EXISTS care_events_source_event_key_key;
CREATE UNIQUE INDEX IF NOT EXISTS care_events_user_source_key_idx ON care_events (user_id, source_event_key);
`

// EnsureSchema creates the tables on first start. Statements are idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
