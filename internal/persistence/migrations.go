package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// migrations are applied in order on startup. Statements are idempotent so
// re-running on every boot is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS experts (
        id             TEXT PRIMARY KEY,
        name           TEXT NOT NULL,
        expertise_tags TEXT[] NOT NULL DEFAULT '{}',
        skill_ratings  JSONB NOT NULL DEFAULT '{}',
        available      BOOLEAN NOT NULL DEFAULT TRUE,
        current_load   INT NOT NULL DEFAULT 0 CHECK (current_load >= 0),
        max_concurrent INT NOT NULL DEFAULT 3 CHECK (max_concurrent > 0)
    )`,
	`CREATE TABLE IF NOT EXISTS user_priorities (
        user_id TEXT PRIMARY KEY,
        level   TEXT NOT NULL DEFAULT 'REGULAR',
        tags    TEXT[] NOT NULL DEFAULT '{}'
    )`,
	`CREATE TABLE IF NOT EXISTS tickets (
        id                  TEXT PRIMARY KEY,
        requester_id        TEXT NOT NULL,
        channel_id          TEXT NOT NULL DEFAULT '',
        thread_ref          TEXT NOT NULL DEFAULT '',
        description         TEXT NOT NULL DEFAULT '',
        category            TEXT NOT NULL DEFAULT 'OTHER',
        expertise_tags      TEXT[] NOT NULL DEFAULT '{}',
        urgency_score       INT NOT NULL DEFAULT 0,
        user_priority       TEXT NOT NULL DEFAULT 'REGULAR',
        priority            TEXT NOT NULL DEFAULT 'LOW',
        status              TEXT NOT NULL DEFAULT 'OPEN',
        claimed_by          TEXT,
        hunt_wave           INT NOT NULL DEFAULT 0,
        wave_deadline       TIMESTAMPTZ,
        notified_expert_ids TEXT[] NOT NULL DEFAULT '{}',
        created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        last_activity_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_requester ON tickets (requester_id)`,
}

// RunMigrations applies the embedded schema statements.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(migrations)))
	return nil
}
