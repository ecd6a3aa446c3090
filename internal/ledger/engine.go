package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/events"
)

// Engine executes deposits and transfers against a Store. It owns the
// business preconditions; atomicity and the conditional balance decrement
// belong to the Store. Safe for concurrent use.
type Engine struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
}

// NewEngine builds a ledger engine. The publisher may be nil, in which case
// no movement events are emitted.
func NewEngine(store Store, publisher events.Publisher, logger *slog.Logger) *Engine {
	return &Engine{store: store, publisher: publisher, logger: logger}
}

// Deposit credits amount to the named account and appends a single CREDIT
// movement with no sender. Returns the new balance. Either the full effect
// commits or none of it does.
func (e *Engine) Deposit(ctx context.Context, accountName string, amount decimal.Decimal) (DepositReceipt, error) {
	if amount.Sign() <= 0 {
		return DepositReceipt{}, ErrInvalidAmount
	}

	acct, err := e.store.AccountByName(ctx, accountName)
	if err != nil {
		return DepositReceipt{}, err
	}

	receipt, err := e.store.ApplyDeposit(ctx, acct.ID, amount)
	if err != nil {
		return DepositReceipt{}, err
	}

	e.publish(ctx, receipt.Movement)
	return receipt, nil
}

// Transfer moves amount from sender to recipient, appending a DEBIT movement
// on the sender and a CREDIT movement on the recipient in one atomic unit.
// Returns the sender's post-transfer balance in the receipt. The sufficiency
// check and the decrement are a single storage operation, so concurrent
// transfers from the same account cannot jointly overdraw it.
func (e *Engine) Transfer(ctx context.Context, senderName, recipientName string, amount decimal.Decimal) (TransferReceipt, error) {
	if amount.Sign() <= 0 {
		return TransferReceipt{}, ErrInvalidAmount
	}

	sender, err := e.store.AccountByName(ctx, senderName)
	if err != nil {
		return TransferReceipt{}, err
	}

	recipient, err := e.store.AccountByName(ctx, recipientName)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TransferReceipt{}, ErrRecipientNotFound
		}
		return TransferReceipt{}, err
	}

	if recipient.ID == sender.ID {
		return TransferReceipt{}, ErrRecipientIsSender
	}

	receipt, err := e.store.ApplyTransfer(ctx, sender.ID, recipient.ID, amount)
	if err != nil {
		return TransferReceipt{}, err
	}

	e.publish(ctx, receipt.Debit)
	e.publish(ctx, receipt.Credit)
	return receipt, nil
}

// publish emits a movement event after commit. Delivery is best effort and
// never changes the ledger outcome.
func (e *Engine) publish(ctx context.Context, m Movement) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.Publish(ctx, events.MovementRecorded{
		MovementID:  m.ID,
		AccountID:   m.AccountID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Kind:        string(m.Kind),
		Amount:      m.Amount,
		OccurredAt:  m.Timestamp,
	})
	if err != nil && e.logger != nil {
		e.logger.Warn("publish movement event", "movement_id", m.ID, "error", err)
	}
}
