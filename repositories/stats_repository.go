package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/texperia/registration/models"
)

// StatsRepository runs the read-only dashboard aggregations. A nil event
// means every event.
type StatsRepository interface {
	TeamTotals(ctx context.Context, event *models.EventID) (total, verified int, err error)
	PaymentTotals(ctx context.Context, event *models.EventID) (revenue decimal.Decimal, pending int, err error)
	Departments(ctx context.Context, event *models.EventID) ([]models.DepartmentCount, error)
	Years(ctx context.Context, event *models.EventID) ([]models.YearCount, error)
	RevenueByDay(ctx context.Context, event *models.EventID) ([]models.RevenuePoint, error)
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

func eventWhere(column string, event *models.EventID) *whereBuilder {
	w := &whereBuilder{}
	if event != nil {
		w.add(column + " = " + w.arg(*event))
	}
	return w
}

func (r *postgresStatsRepository) TeamTotals(ctx context.Context, event *models.EventID) (int, int, error) {
	w := eventWhere("event_id", event)
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE verified) FROM teams` + w.String()

	var total, verified int
	if err := r.db.QueryRowContext(ctx, query, w.args...).Scan(&total, &verified); err != nil {
		return 0, 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return total, verified, nil
}

func (r *postgresStatsRepository) PaymentTotals(ctx context.Context, event *models.EventID) (decimal.Decimal, int, error) {
	w := eventWhere("event_id", event)
	query := `SELECT COALESCE(SUM(amount) FILTER (WHERE status = 'verified'), 0),
		COUNT(*) FILTER (WHERE status = 'pending')
		FROM payments` + w.String()

	var (
		revenue decimal.Decimal
		pending int
	)
	if err := r.db.QueryRowContext(ctx, query, w.args...).Scan(&revenue, &pending); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	return revenue, pending, nil
}

func (r *postgresStatsRepository) Departments(ctx context.Context, event *models.EventID) ([]models.DepartmentCount, error) {
	w := eventWhere("event_id", event)
	query := `SELECT department, COUNT(*) FROM teams` + w.String() + ` GROUP BY department ORDER BY department`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group teams by department: %w", err)
	}
	defer rows.Close()

	out := make([]models.DepartmentCount, 0)
	for rows.Next() {
		var d models.DepartmentCount
		if err := rows.Scan(&d.Department, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan department count: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *postgresStatsRepository) Years(ctx context.Context, event *models.EventID) ([]models.YearCount, error) {
	w := eventWhere("event_id", event)
	query := `SELECT year, COUNT(*) FROM teams` + w.String() + ` GROUP BY year ORDER BY year`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group teams by year: %w", err)
	}
	defer rows.Close()

	out := make([]models.YearCount, 0)
	for rows.Next() {
		var y models.YearCount
		if err := rows.Scan(&y.Year, &y.Count); err != nil {
			return nil, fmt.Errorf("failed to scan year count: %w", err)
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

func (r *postgresStatsRepository) RevenueByDay(ctx context.Context, event *models.EventID) ([]models.RevenuePoint, error) {
	w := eventWhere("event_id", event)
	w.add("status = 'verified'")
	w.add("verified_at IS NOT NULL")
	query := `SELECT TO_CHAR(DATE(verified_at), 'YYYY-MM-DD'), SUM(amount), COUNT(*)
		FROM payments` + w.String() + `
		GROUP BY DATE(verified_at)
		ORDER BY DATE(verified_at)`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue by day: %w", err)
	}
	defer rows.Close()

	out := make([]models.RevenuePoint, 0)
	for rows.Next() {
		var p models.RevenuePoint
		if err := rows.Scan(&p.Date, &p.Amount, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan revenue point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
