package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MovementRecorded is published once per committed ledger movement.
type MovementRecorded struct {
	MovementID  string          `json:"movement_id"`
	AccountID   string          `json:"account_id"`
	SenderID    string          `json:"sender_id,omitempty"`
	RecipientID string          `json:"recipient_id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Publisher delivers ledger events to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, event MovementRecorded) error
}
