package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

const DefaultCurrency = "INR"

type Payment struct {
	ID            int             `json:"id"`
	TeamID        int             `json:"team_id"`
	EventID       EventID         `json:"event_id"`
	TransactionID *string         `json:"transaction_id"`
	OrderID       *string         `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	VerifiedAt    *time.Time      `json:"verified_at"`

	ReceiptKey *string `json:"-"`
	ReceiptURL *string `json:"receipt_url,omitempty"`
}

// ToggleVerification flips between verified and pending. Any status other
// than verified (pending or rejected) moves to verified. It reports whether
// the payment ended up verified.
func (p *Payment) ToggleVerification(now time.Time) bool {
	if p.Status == PaymentVerified {
		p.Status = PaymentPending
		p.VerifiedAt = nil
		return false
	}
	p.Status = PaymentVerified
	at := now
	p.VerifiedAt = &at
	return true
}

func (p *Payment) Reject() {
	p.Status = PaymentRejected
	p.VerifiedAt = nil
}

// ResetToPending is applied whenever new evidence arrives, whatever the
// previous status was.
func (p *Payment) ResetToPending() {
	p.Status = PaymentPending
	p.VerifiedAt = nil
}

// PaymentEvent is published to the admin live feed on status changes.
type PaymentEvent struct {
	TeamID        int           `json:"team_id"`
	TeamName      string        `json:"team_name"`
	EventID       EventID       `json:"event_id"`
	Status        PaymentStatus `json:"status"`
	TransactionID *string       `json:"transaction_id,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
