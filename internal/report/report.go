package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Report is a derived, rebuildable per-account per-day aggregate of credit
// and debit totals. Rows are written only by the Aggregator and never
// updated in place.
type Report struct {
	ID        string
	AccountID string
	Period    time.Time // UTC midnight of the aggregated day
	CreditSum decimal.Decimal
	DebitSum  decimal.Decimal
	CreatedAt time.Time
}

// AccountSums holds one account's movement totals for a period.
type AccountSums struct {
	AccountID string
	CreditSum decimal.Decimal
	DebitSum  decimal.Decimal
}

// Store is the aggregator's storage contract. SaveReports must skip rows
// whose account+period already exists, so reruns and concurrent runs are
// idempotent; the whole batch fails or commits together.
type Store interface {
	SumMovements(ctx context.Context, from, to time.Time) ([]AccountSums, error)
	SaveReports(ctx context.Context, reports []Report) error
	List(ctx context.Context, limit, offset int) ([]Report, error)
}
