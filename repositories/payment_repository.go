package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/texperia/registration/models"
)

var (
	ErrPaymentNotFound            = errors.New("payment not found")
	ErrPaymentExists              = errors.New("payment already exists for team")
	ErrPaymentTransactionConflict = errors.New("transaction id already used")
	ErrPaymentOrderConflict       = errors.New("order id already used")
)

type PaymentRepository interface {
	GetByTeamID(ctx context.Context, exec SQLExecutor, teamID int) (*models.Payment, error)
	// GetByTeamIDForUpdate locks the row until the surrounding transaction ends.
	GetByTeamIDForUpdate(ctx context.Context, exec SQLExecutor, teamID int) (*models.Payment, error)
	Create(ctx context.Context, exec SQLExecutor, payment *models.Payment) error
	Update(ctx context.Context, exec SQLExecutor, payment *models.Payment) error
	DeleteByTeamID(ctx context.Context, exec SQLExecutor, teamID int) error
}

type postgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

const paymentColumns = `id, team_id, event_id, transaction_id, order_id, amount, currency,
		status, created_at, verified_at, receipt_key, receipt_url`

func (r *postgresPaymentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func mapPaymentConflict(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case "payments_team_id_key":
		return ErrPaymentExists
	case "payments_transaction_id_key":
		return ErrPaymentTransactionConflict
	case "payments_order_id_key":
		return ErrPaymentOrderConflict
	}
	return nil
}

func (r *postgresPaymentRepository) GetByTeamID(ctx context.Context, exec SQLExecutor, teamID int) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE team_id = $1`
	return scanPayment(r.getExecutor(exec).QueryRowContext(ctx, query, teamID))
}

func (r *postgresPaymentRepository) GetByTeamIDForUpdate(ctx context.Context, exec SQLExecutor, teamID int) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE team_id = $1 FOR UPDATE`
	return scanPayment(r.getExecutor(exec).QueryRowContext(ctx, query, teamID))
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p             models.Payment
		transactionID sql.NullString
		orderID       sql.NullString
		verifiedAt    sql.NullTime
		receiptKey    sql.NullString
		receiptURL    sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.TeamID, &p.EventID, &transactionID, &orderID, &p.Amount, &p.Currency,
		&p.Status, &p.CreatedAt, &verifiedAt, &receiptKey, &receiptURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	p.TransactionID = stringPtr(transactionID)
	p.OrderID = stringPtr(orderID)
	p.VerifiedAt = timePtr(verifiedAt)
	p.ReceiptKey = stringPtr(receiptKey)
	p.ReceiptURL = stringPtr(receiptURL)
	return &p, nil
}

func (r *postgresPaymentRepository) Create(ctx context.Context, exec SQLExecutor, payment *models.Payment) error {
	if payment.Currency == "" {
		payment.Currency = models.DefaultCurrency
	}
	query := `
		INSERT INTO payments (team_id, event_id, transaction_id, order_id, amount, currency,
			status, verified_at, receipt_key, receipt_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		payment.TeamID, payment.EventID,
		nullString(payment.TransactionID), nullString(payment.OrderID),
		payment.Amount, payment.Currency, payment.Status, payment.VerifiedAt,
		nullString(payment.ReceiptKey), nullString(payment.ReceiptURL),
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		if conflict := mapPaymentConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *postgresPaymentRepository) Update(ctx context.Context, exec SQLExecutor, payment *models.Payment) error {
	query := `
		UPDATE payments SET
			transaction_id = $1, order_id = $2, amount = $3, status = $4,
			verified_at = $5, receipt_key = $6, receipt_url = $7
		WHERE id = $8`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		nullString(payment.TransactionID), nullString(payment.OrderID),
		payment.Amount, payment.Status, payment.VerifiedAt,
		nullString(payment.ReceiptKey), nullString(payment.ReceiptURL),
		payment.ID,
	)
	if err != nil {
		if conflict := mapPaymentConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update payment %d: %w", payment.ID, err)
	}
	return checkAffectedRows(result, ErrPaymentNotFound)
}

// DeleteByTeamID is a no-op when the team never submitted a payment.
func (r *postgresPaymentRepository) DeleteByTeamID(ctx context.Context, exec SQLExecutor, teamID int) error {
	if _, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM payments WHERE team_id = $1`, teamID); err != nil {
		return fmt.Errorf("failed to delete payment for team %d: %w", teamID, err)
	}
	return nil
}
