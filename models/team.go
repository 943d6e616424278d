package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TeamMember is one of the optional member slots beside the leader.
type TeamMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Counted reports whether the slot contributes to the member total. A slot
// with only one of name/email filled in is ignored.
func (m TeamMember) Counted() bool {
	return strings.TrimSpace(m.Name) != "" && strings.TrimSpace(m.Email) != ""
}

type Team struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	EventID      EventID   `json:"event_id"`
	TeamName     string    `json:"team_name"`
	Department   string    `json:"department"`
	Year         string    `json:"year"`
	LeaderName   string    `json:"leader_name"`
	LeaderEmail  string    `json:"leader_email"`
	LeaderPhone  string    `json:"leader_phone"`
	Member2Name  string    `json:"member2_name"`
	Member2Email string    `json:"member2_email"`
	Member3Name  string    `json:"member3_name"`
	Member3Email string    `json:"member3_email"`
	Member4Name  string    `json:"member4_name"`
	Member4Email string    `json:"member4_email"`
	Verified     bool      `json:"verified"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MemberSlots returns the three optional slots in display order.
func (t *Team) MemberSlots() []TeamMember {
	return []TeamMember{
		{Name: t.Member2Name, Email: t.Member2Email},
		{Name: t.Member3Name, Email: t.Member3Email},
		{Name: t.Member4Name, Email: t.Member4Email},
	}
}

// MemberCount counts the leader plus every fully populated slot.
func (t *Team) MemberCount() int {
	count := 1
	for _, m := range t.MemberSlots() {
		if m.Counted() {
			count++
		}
	}
	return count
}

// RecipientEmails lists the leader and every slot that carries an email.
func (t *Team) RecipientEmails() []string {
	emails := []string{t.LeaderEmail}
	for _, m := range t.MemberSlots() {
		if e := strings.TrimSpace(m.Email); e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}

type TeamWithPayment struct {
	Team
	Payment *Payment `json:"payment"`
}

// TeamAdminView is the row shape of the admin team listing and exports.
type TeamAdminView struct {
	Team
	PaymentStatus *PaymentStatus   `json:"payment_status"`
	PaymentAmount *decimal.Decimal `json:"payment_amount"`
	TransactionID *string          `json:"transaction_id"`
	OrderID       *string          `json:"order_id"`
}

type TeamListResponse struct {
	Teams      []TeamAdminView `json:"teams"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}
