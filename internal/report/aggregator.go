package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Aggregator builds daily per-account movement summaries. It only reads
// movements and writes report rows; account balances are never touched, so
// it is safe to run concurrently with ledger operations and with itself.
type Aggregator struct {
	store  Store
	logger *slog.Logger
}

// NewAggregator constructs a report aggregator.
func NewAggregator(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// CalculateReport aggregates the calendar day (UTC) containing the given
// instant: one row per account with activity, summing CREDIT amounts into
// credit_sum and DEBIT amounts into debit_sum. An account active on one side
// only reports exactly 0.00 for the other. Accounts without movements get no
// row. Reruns skip account+period rows that already exist. Returns the
// number of accounts aggregated.
func (a *Aggregator) CalculateReport(ctx context.Context, at time.Time) (int, error) {
	from := at.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	sums, err := a.store.SumMovements(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if len(sums) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	reports := make([]Report, 0, len(sums))
	for _, s := range sums {
		reports = append(reports, Report{
			ID:        uuid.NewString(),
			AccountID: s.AccountID,
			Period:    from,
			CreditSum: s.CreditSum,
			DebitSum:  s.DebitSum,
			CreatedAt: now,
		})
	}

	if err := a.store.SaveReports(ctx, reports); err != nil {
		return 0, err
	}

	a.logger.Info("report calculated", "period", from.Format("2006-01-02"), "accounts", len(reports))
	return len(reports), nil
}

// Run aggregates the current day. It is the job body handed to the
// scheduling harness.
func (a *Aggregator) Run(ctx context.Context) error {
	_, err := a.CalculateReport(ctx, time.Now())
	return err
}
