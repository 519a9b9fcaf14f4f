package database

import (
	"context"
	"fmt"

	"complaint_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements are idempotent and applied in order inside one transaction.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS complaints (
		id          BIGSERIAL PRIMARY KEY,
		text        TEXT        NOT NULL,
		status      VARCHAR(16) NOT NULL DEFAULT 'open',
		sentiment   VARCHAR(16) NOT NULL DEFAULT 'unknown',
		category    VARCHAR(16) NOT NULL DEFAULT 'Other',
		"timestamp" TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT ck_complaints_text CHECK (length(btrim(text)) > 0),
		CONSTRAINT ck_complaints_status CHECK (status IN ('open', 'closed')),
		CONSTRAINT ck_complaints_sentiment CHECK (sentiment IN ('positive', 'negative', 'neutral', 'unknown')),
		CONSTRAINT ck_complaints_category CHECK (category IN ('Technical', 'Payment', 'Other'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_status_timestamp
		ON complaints (status, "timestamp")`,
}

// Migrate creates the complaints schema if it does not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	logger.Info("Database schema is up to date (%d statements)", len(schemaStatements))
	return nil
}
