package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the ledger schema. Statements are idempotent so startup
// can run this unconditionally. The balance check constraint and the unique
// report key back the engine's invariants at the storage layer.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id         UUID PRIMARY KEY,
            name       TEXT NOT NULL UNIQUE,
            holder_id  TEXT NOT NULL,
            balance    NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_holder ON accounts (holder_id)`,
		`CREATE TABLE IF NOT EXISTS movements (
            id             UUID PRIMARY KEY,
            account_id     UUID NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
            sender_id      UUID REFERENCES accounts (id) ON DELETE CASCADE,
            recipient_id   UUID NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
            amount         NUMERIC(12,2) NOT NULL CHECK (amount > 0),
            kind           TEXT NOT NULL CHECK (kind IN ('CREDIT', 'DEBIT')),
            balance_before NUMERIC(12,2) NOT NULL,
            balance_after  NUMERIC(12,2) NOT NULL,
            ts             TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_movements_account_ts ON movements (account_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_kind_ts ON movements (kind, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_ts ON movements (ts)`,
		`CREATE TABLE IF NOT EXISTS reports (
            id         UUID PRIMARY KEY,
            account_id UUID NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
            period     DATE NOT NULL,
            credit_sum NUMERIC(12,2) NOT NULL DEFAULT 0,
            debit_sum  NUMERIC(12,2) NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            UNIQUE (account_id, period)
        )`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
