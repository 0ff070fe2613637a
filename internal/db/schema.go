package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent. Timestamps are timestamptz except notifications.created_at,
// which keeps whatever the writer put there (write skew included).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS nurses (
		id          uuid PRIMARY KEY,
		name        text NOT NULL,
		email       text,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS consultations (
		id              uuid PRIMARY KEY,
		nurse_id        uuid NOT NULL REFERENCES nurses(id),
		patient_id      uuid NOT NULL,
		patient_name    text NOT NULL DEFAULT '',
		scheduled_time  timestamptz NOT NULL,
		end_time        timestamptz NOT NULL,
		status          text NOT NULL CHECK (status IN ('pending', 'approved', 'completed', 'cancelled')),
		notes           text NOT NULL DEFAULT '',
		created_at      timestamptz NOT NULL DEFAULT now(),
		updated_at      timestamptz NOT NULL DEFAULT now(),
		CHECK (end_time > scheduled_time)
	)`,
	`CREATE INDEX IF NOT EXISTS consultations_nurse_idx ON consultations (nurse_id, scheduled_time)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id          uuid PRIMARY KEY,
		message_id  uuid NOT NULL UNIQUE,
		audience    text NOT NULL,
		title       text NOT NULL,
		message     text NOT NULL DEFAULT '',
		type        text NOT NULL DEFAULT '',
		is_read     boolean NOT NULL DEFAULT false,
		created_at  timestamp NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_audience_idx ON notifications (audience, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id               bigserial PRIMARY KEY,
		event_type       text NOT NULL,
		consultation_id  uuid,
		payload          jsonb,
		created_at       timestamptz NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the tables the consultation API uses.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
