package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// PostgresStore persists the ledger in PostgreSQL. The conditional decrement
// is a single `UPDATE ... WHERE balance >= amount` statement, so the
// sufficiency check and the write are one atomic operation; row locks
// serialize conflicting updates per account while disjoint accounts proceed
// in parallel.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, acct Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, name, holder_id, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		acct.ID, acct.Name, acct.HolderID, acct.Balance, acct.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAccountExists
		}
		return storeErr("create account", err)
	}
	return nil
}

// AccountByName fetches an account by its unique name.
func (s *PostgresStore) AccountByName(ctx context.Context, name string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT id, name, holder_id, balance, created_at
        FROM accounts WHERE name = $1`, name)
	return scanAccount(row)
}

// AccountsByHolder lists the holder's accounts, newest first.
func (s *PostgresStore) AccountsByHolder(ctx context.Context, holderID string) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, holder_id, balance, created_at
        FROM accounts WHERE holder_id = $1 ORDER BY created_at DESC`, holderID)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list accounts", err)
	}
	return accounts, nil
}

// Balance returns the committed balance for accountID.
func (s *PostgresStore) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, storeErr("read balance", err)
	}
	return balance, nil
}

// ApplyDeposit increments the balance and appends the CREDIT movement in one
// transaction.
func (s *PostgresStore) ApplyDeposit(ctx context.Context, accountID string, amount decimal.Decimal) (DepositReceipt, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DepositReceipt{}, storeErr("begin deposit", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var after decimal.Decimal
	err = tx.QueryRow(ctx, `UPDATE accounts SET balance = balance + $1
        WHERE id = $2 RETURNING balance`, amount, accountID).Scan(&after)
	if errors.Is(err, pgx.ErrNoRows) {
		return DepositReceipt{}, ErrAccountNotFound
	}
	if err != nil {
		return DepositReceipt{}, storeErr("credit account", err)
	}

	movement := Movement{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		RecipientID:   accountID,
		Amount:        amount,
		Kind:          KindCredit,
		BalanceBefore: after.Sub(amount),
		BalanceAfter:  after,
	}
	if err := insertMovement(ctx, tx, &movement); err != nil {
		return DepositReceipt{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DepositReceipt{}, storeErr("commit deposit", err)
	}
	return DepositReceipt{Movement: movement, Balance: after}, nil
}

// ApplyTransfer runs the conditional decrement, the recipient increment, and
// the two movement inserts inside one transaction. The sender row is updated
// first; an opposite-direction transfer racing on the same pair can deadlock
// in Postgres, which aborts one of the two as a retryable storage failure.
func (s *PostgresStore) ApplyTransfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (TransferReceipt, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferReceipt{}, storeErr("begin transfer", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var senderAfter decimal.Decimal
	err = tx.QueryRow(ctx, `UPDATE accounts SET balance = balance - $1
        WHERE id = $2 AND balance >= $1 RETURNING balance`, amount, senderID).Scan(&senderAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the sender does not exist or the balance check failed.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, senderID).Scan(&exists); err != nil {
			return TransferReceipt{}, storeErr("check sender", err)
		}
		if !exists {
			return TransferReceipt{}, ErrAccountNotFound
		}
		return TransferReceipt{}, ErrInsufficientFunds
	}
	if err != nil {
		return TransferReceipt{}, storeErr("debit sender", err)
	}

	var recipientAfter decimal.Decimal
	err = tx.QueryRow(ctx, `UPDATE accounts SET balance = balance + $1
        WHERE id = $2 RETURNING balance`, amount, recipientID).Scan(&recipientAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		return TransferReceipt{}, ErrRecipientNotFound
	}
	if err != nil {
		return TransferReceipt{}, storeErr("credit recipient", err)
	}

	debit := Movement{
		ID:            uuid.NewString(),
		AccountID:     senderID,
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		Kind:          KindDebit,
		BalanceBefore: senderAfter.Add(amount),
		BalanceAfter:  senderAfter,
	}
	credit := Movement{
		ID:            uuid.NewString(),
		AccountID:     recipientID,
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		Kind:          KindCredit,
		BalanceBefore: recipientAfter.Sub(amount),
		BalanceAfter:  recipientAfter,
	}
	if err := insertMovement(ctx, tx, &debit); err != nil {
		return TransferReceipt{}, err
	}
	if err := insertMovement(ctx, tx, &credit); err != nil {
		return TransferReceipt{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferReceipt{}, storeErr("commit transfer", err)
	}

	return TransferReceipt{
		Debit:            debit,
		Credit:           credit,
		SenderBalance:    senderAfter,
		RecipientBalance: recipientAfter,
	}, nil
}

// Movements returns committed movements matching filter, for the read-only
// history path.
func (s *PostgresStore) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, account_id, COALESCE(sender_id::text, ''), recipient_id, amount, kind,
        balance_before, balance_after, ts FROM movements`)

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AccountID != "" {
		conds = append(conds, "account_id = "+arg(filter.AccountID))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "ts >= "+arg(filter.From.UTC()))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "ts < "+arg(filter.To.UTC()))
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = "+arg(string(filter.Kind)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	// Sort column comes from a fixed whitelist, never from caller input.
	orderCol := "ts"
	if filter.OrderBy == "amount" {
		orderCol = "amount"
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s", orderCol, direction))

	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(filter.Offset))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, storeErr("query movements", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.AccountID, &m.SenderID, &m.RecipientID,
			&m.Amount, &m.Kind, &m.BalanceBefore, &m.BalanceAfter, &m.Timestamp); err != nil {
			return nil, storeErr("scan movement", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query movements", err)
	}
	return movements, nil
}

// insertMovement appends one movement row. The timestamp must come from
// clock_timestamp(), which is evaluated at the insert while the account row
// lock is held; now() is fixed at transaction start and can move backwards
// relative to the lock order, breaking per-account timestamp ordering.
func insertMovement(ctx context.Context, tx pgx.Tx, m *Movement) error {
	var sender any
	if m.SenderID != "" {
		sender = m.SenderID
	}
	err := tx.QueryRow(ctx, `INSERT INTO movements
        (id, account_id, sender_id, recipient_id, amount, kind, balance_before, balance_after, ts)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, clock_timestamp()) RETURNING ts`,
		m.ID, m.AccountID, sender, m.RecipientID, m.Amount, m.Kind, m.BalanceBefore, m.BalanceAfter,
	).Scan(&m.Timestamp)
	if err != nil {
		return storeErr("append movement", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var acct Account
	err := row.Scan(&acct.ID, &acct.Name, &acct.HolderID, &acct.Balance, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, storeErr("scan account", err)
	}
	return acct, nil
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*MemoryStore)(nil)
