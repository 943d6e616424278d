package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/texperia/registration/models"
)

var ErrContactNotFound = errors.New("contact not found")

type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	List(ctx context.Context, unreadOnly bool) ([]models.Contact, error)
	MarkRead(ctx context.Context, id int) error
}

type postgresContactRepository struct {
	db *sql.DB
}

func NewPostgresContactRepository(db *sql.DB) ContactRepository {
	return &postgresContactRepository{db: db}
}

func (r *postgresContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	query := `
		INSERT INTO contacts (name, email, message)
		VALUES ($1, $2, $3)
		RETURNING id, is_read, created_at`
	err := r.db.QueryRowContext(ctx, query, contact.Name, contact.Email, contact.Message).
		Scan(&contact.ID, &contact.IsRead, &contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *postgresContactRepository) List(ctx context.Context, unreadOnly bool) ([]models.Contact, error) {
	query := `SELECT id, name, email, message, is_read, created_at FROM contacts`
	if unreadOnly {
		query += ` WHERE is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &c.IsRead, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *postgresContactRepository) MarkRead(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE contacts SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark contact %d as read: %w", id, err)
	}
	return checkAffectedRows(result, ErrContactNotFound)
}
