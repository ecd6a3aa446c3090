package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// PostgresStore persists reports in PostgreSQL. Movement sums are computed
// under read-committed isolation, which is sufficient: the aggregator never
// needs to see in-flight transfers.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed report store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ledger.ErrStorage, op, err)
}

// SumMovements groups committed movements in [from, to) by account and sums
// each side, with a missing side reported as zero.
func (s *PostgresStore) SumMovements(ctx context.Context, from, to time.Time) ([]AccountSums, error) {
	const query = `
        SELECT account_id,
               COALESCE(SUM(amount) FILTER (WHERE kind = 'CREDIT'), 0),
               COALESCE(SUM(amount) FILTER (WHERE kind = 'DEBIT'), 0)
        FROM movements
        WHERE ts >= $1 AND ts < $2
        GROUP BY account_id
        ORDER BY account_id`

	rows, err := s.db.Query(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, storeErr("sum movements", err)
	}
	defer rows.Close()

	var sums []AccountSums
	for rows.Next() {
		var row AccountSums
		if err := rows.Scan(&row.AccountID, &row.CreditSum, &row.DebitSum); err != nil {
			return nil, storeErr("scan sums", err)
		}
		sums = append(sums, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("sum movements", err)
	}
	return sums, nil
}

// SaveReports inserts the batch in one transaction. The unique key on
// account+period makes repeat runs skip rows that already exist.
func (s *PostgresStore) SaveReports(ctx context.Context, reports []Report) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr("begin reports", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, r := range reports {
		_, err := tx.Exec(ctx, `INSERT INTO reports (id, account_id, period, credit_sum, debit_sum, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (account_id, period) DO NOTHING`,
			r.ID, r.AccountID, r.Period.UTC(), r.CreditSum, r.DebitSum, r.CreatedAt.UTC())
		if err != nil {
			return storeErr("insert report", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit reports", err)
	}
	return nil
}

// List returns stored reports, newest period first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT id, account_id, period, credit_sum, debit_sum, created_at
        FROM reports ORDER BY period DESC, account_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, storeErr("list reports", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Period, &r.CreditSum, &r.DebitSum, &r.CreatedAt); err != nil {
			return nil, storeErr("scan report", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list reports", err)
	}
	return reports, nil
}

var _ Store = (*PostgresStore)(nil)
