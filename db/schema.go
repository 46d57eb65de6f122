package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS event_schedule (
		id           UUID PRIMARY KEY,
		event_id     TEXT NOT NULL,
		sports_name  TEXT NOT NULL,
		match_number INTEGER NOT NULL CHECK (match_number > 0),
		match_type   TEXT NOT NULL CHECK (match_type IN ('league', 'knockout', 'final')),
		match_date   DATE NOT NULL,
		status       TEXT NOT NULL DEFAULT 'scheduled'
		             CHECK (status IN ('scheduled', 'completed', 'draw', 'cancelled')),
		teams        TEXT[] NOT NULL DEFAULT '{}',
		players      TEXT[] NOT NULL DEFAULT '{}',
		winner       TEXT,
		qualifiers   JSONB NOT NULL DEFAULT '[]',
		created_by   TEXT NOT NULL,
		updated_by   TEXT,
		version      INTEGER NOT NULL DEFAULT 1,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT event_schedule_match_number_key UNIQUE (event_id, sports_name, match_number),
		CONSTRAINT event_schedule_one_side CHECK (cardinality(teams) = 0 OR cardinality(players) = 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_schedule_sport ON event_schedule (event_id, sports_name, match_type, status)`,

	`CREATE TABLE IF NOT EXISTS points_table (
		id                BIGSERIAL PRIMARY KEY,
		event_id          TEXT NOT NULL,
		sports_name       TEXT NOT NULL,
		participant       TEXT NOT NULL,
		participant_type  TEXT NOT NULL CHECK (participant_type IN ('team', 'player')),
		points            INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
		matches_played    INTEGER NOT NULL DEFAULT 0 CHECK (matches_played >= 0),
		matches_won       INTEGER NOT NULL DEFAULT 0 CHECK (matches_won >= 0),
		matches_lost      INTEGER NOT NULL DEFAULT 0 CHECK (matches_lost >= 0),
		matches_draw      INTEGER NOT NULL DEFAULT 0 CHECK (matches_draw >= 0),
		matches_cancelled INTEGER NOT NULL DEFAULT 0 CHECK (matches_cancelled >= 0),
		created_by        TEXT,
		updated_by        TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT points_table_participant_key UNIQUE (event_id, sports_name, participant)
	)`,

	`CREATE TABLE IF NOT EXISTS points_table_updates (
		update_id   TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL,
		sports_name TEXT NOT NULL,
		match_id    TEXT NOT NULL,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables both services rely on if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
