// Package archive provides the retention sweeper's cold-storage sink
// (TOKEN_REGISTRY_ARCHIVE). Rows the sweeper purges from the live
// store.Gateway land here first; a relational table is a natural home for
// records that no longer need the live store's secondary indexes.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
)

// Archiver persists a Transaction to cold storage before the retention
// sweeper deletes it from the live store.
type Archiver interface {
	Archive(ctx context.Context, t *domain.Transaction) error
}

// PostgresArchiver writes archived rows into a single append-only table.
type PostgresArchiver struct {
	pool *pgxpool.Pool
}

// NewPostgresArchiver wraps an already-connected pool.
func NewPostgresArchiver(pool *pgxpool.Pool) *PostgresArchiver {
	return &PostgresArchiver{pool: pool}
}

// EnsureSchema creates the archive table if it does not already exist. It is
// safe to call on every process start.
func (a *PostgresArchiver) EnsureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS token_registry_archive (
			id                        TEXT PRIMARY KEY,
			user_id                   TEXT NOT NULL,
			beneficiary_id            TEXT NOT NULL,
			transaction_type          TEXT NOT NULL,
			amount                    BIGINT NOT NULL,
			purpose                   TEXT NOT NULL,
			ref_id                    TEXT NOT NULL,
			expires_at                TIMESTAMPTZ NOT NULL,
			created_at                TIMESTAMPTZ NOT NULL,
			metadata                  JSONB NOT NULL,
			version                   BIGINT NOT NULL,
			state                     TEXT,
			free_beneficiary_consumed BIGINT NOT NULL,
			free_system_consumed      BIGINT NOT NULL,
			archived_at               TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("archive: ensure schema: %w", err)
	}
	return nil
}

// Archive inserts t into the archive table, or no-ops if it was archived
// already (the retention sweeper may retry a record after a later failure).
func (a *PostgresArchiver) Archive(ctx context.Context, t *domain.Transaction) error {
	var metadata json.RawMessage
	if t.Metadata == "" {
		metadata = json.RawMessage("{}")
	} else {
		metadata = json.RawMessage(t.Metadata)
	}

	var state *string
	if t.State != nil {
		s := string(*t.State)
		state = &s
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO token_registry_archive (
			id, user_id, beneficiary_id, transaction_type, amount, purpose,
			ref_id, expires_at, created_at, metadata, version, state,
			free_beneficiary_consumed, free_system_consumed
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING
	`,
		t.ID, t.UserID, t.BeneficiaryID, string(t.TransactionType), t.Amount, t.Purpose,
		t.RefID, t.ExpiresAt, t.CreatedAt, metadata, t.Version, state,
		t.FreeBeneficiaryConsumed, t.FreeSystemConsumed,
	)
	if err != nil {
		return fmt.Errorf("archive: insert: %w", err)
	}
	return nil
}

// NoOpArchiver discards every record; used when the sweeper runs with
// archive=false.
type NoOpArchiver struct{}

// Archive does nothing and never fails.
func (NoOpArchiver) Archive(ctx context.Context, t *domain.Transaction) error { return nil }

var _ Archiver = (*PostgresArchiver)(nil)
var _ Archiver = NoOpArchiver{}
