package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount occurs when an operation is requested with a zero or
	// negative amount. Validation errors are never retried.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound occurs when the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrRecipientNotFound occurs when a transfer names a recipient that does
	// not exist.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrRecipientIsSender occurs when a transfer names the sender as its own
	// recipient.
	ErrRecipientIsSender = errors.New("recipient is sender")

	// ErrInsufficientFunds occurs when the sender lacks available balance to
	// cover a requested transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountExists occurs when creating an account whose name is taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrStorage wraps transient storage failures. Callers may retry; no
	// partial ledger state is ever visible after it is returned.
	ErrStorage = errors.New("storage failure")
)

// Kind tags a movement with the direction of the balance change.
type Kind string

const (
	// KindCredit marks a movement that increased the account balance.
	KindCredit Kind = "CREDIT"
	// KindDebit marks a movement that decreased the account balance.
	KindDebit Kind = "DEBIT"
)

// Account is a fund-bearing wallet. Balance is kept at two decimal places and
// is never negative once committed; it always equals the signed sum of the
// account's movements.
type Account struct {
	ID        string
	Name      string
	HolderID  string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Movement is one directional, immutable record of a balance change. A
// transfer produces two movements, one per side; a deposit produces a single
// credit with no sender.
type Movement struct {
	ID            string
	AccountID     string
	SenderID      string // empty for deposits
	RecipientID   string
	Amount        decimal.Decimal
	Kind          Kind
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Timestamp     time.Time
}

// DepositReceipt captures the outcome of a committed deposit.
type DepositReceipt struct {
	Movement Movement
	Balance  decimal.Decimal
}

// TransferReceipt captures the outcome of a committed transfer.
type TransferReceipt struct {
	Debit            Movement
	Credit           Movement
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// MovementFilter narrows movement history queries. Zero times mean
// unbounded; an empty Kind matches both directions.
type MovementFilter struct {
	AccountID string
	From      time.Time
	To        time.Time
	Kind      Kind
	OrderBy   string // "timestamp" (default) or "amount"
	Desc      bool
	Limit     int
	Offset    int
}

// Store is the durable ledger storage contract.
//
// ApplyDeposit and ApplyTransfer are all-or-nothing units: the balance
// mutation and the movement append commit together or not at all, and the
// sufficiency check inside ApplyTransfer is the same atomic operation as the
// decrement, so two racing transfers can never both pass it against a stale
// balance. Implementations must serialize conflicting updates to the same
// account while leaving operations on disjoint accounts unblocked.
type Store interface {
	CreateAccount(ctx context.Context, acct Account) error
	AccountByName(ctx context.Context, name string) (Account, error)
	AccountsByHolder(ctx context.Context, holderID string) ([]Account, error)
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	ApplyDeposit(ctx context.Context, accountID string, amount decimal.Decimal) (DepositReceipt, error)
	ApplyTransfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (TransferReceipt, error)
	Movements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}
