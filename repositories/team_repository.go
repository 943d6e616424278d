package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/texperia/registration/models"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name conflict")
	ErrTeamUserConflict = errors.New("user already has a team")
	ErrTeamVerified     = errors.New("team is verified")
)

// TeamFilter narrows admin listings. Zero values mean "no filter"; Limit 0
// returns every row.
type TeamFilter struct {
	EventID    *models.EventID
	Search     string
	Department string
	Verified   *bool
	Limit      int
	Offset     int
}

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetByUserID(ctx context.Context, userID int) (*models.Team, error)
	NameTaken(ctx context.Context, name string, excludeID int) (bool, error)
	Update(ctx context.Context, team *models.Team) error
	SetVerified(ctx context.Context, exec SQLExecutor, id int, verified bool) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	List(ctx context.Context, filter TeamFilter) ([]models.TeamAdminView, error)
	Count(ctx context.Context, filter TeamFilter) (int, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `t.id, t.user_id, t.event_id, t.team_name, t.department, t.year,
		t.leader_name, t.leader_email, t.leader_phone,
		t.member2_name, t.member2_email, t.member3_name, t.member3_email,
		t.member4_name, t.member4_email, t.verified, t.registered_at, t.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func teamDest(t *models.Team) []interface{} {
	return []interface{}{
		&t.ID, &t.UserID, &t.EventID, &t.TeamName, &t.Department, &t.Year,
		&t.LeaderName, &t.LeaderEmail, &t.LeaderPhone,
		&t.Member2Name, &t.Member2Email, &t.Member3Name, &t.Member3Email,
		&t.Member4Name, &t.Member4Email, &t.Verified, &t.RegisteredAt, &t.UpdatedAt,
	}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func mapTeamConflict(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case "teams_team_name_lower_key":
		return ErrTeamNameConflict
	case "teams_user_id_key":
		return ErrTeamUserConflict
	}
	return nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (user_id, event_id, team_name, department, year,
			leader_name, leader_email, leader_phone,
			member2_name, member2_email, member3_name, member3_email,
			member4_name, member4_email, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, registered_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		team.UserID, team.EventID, team.TeamName, team.Department, team.Year,
		team.LeaderName, team.LeaderEmail, team.LeaderPhone,
		team.Member2Name, team.Member2Email, team.Member3Name, team.Member3Email,
		team.Member4Name, team.Member4Email, team.Verified,
	).Scan(&team.ID, &team.RegisteredAt, &team.UpdatedAt)
	if err != nil {
		if conflict := mapTeamConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`
	return scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) GetByUserID(ctx context.Context, userID int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.user_id = $1`
	return scanTeam(r.db.QueryRowContext(ctx, query, userID))
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var team models.Team
	if err := row.Scan(teamDest(&team)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}
	return &team, nil
}

// NameTaken compares names case-insensitively, ignoring the team excludeID.
func (r *postgresTeamRepository) NameTaken(ctx context.Context, name string, excludeID int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM teams WHERE LOWER(team_name) = LOWER($1) AND id <> $2)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, name, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check team name: %w", err)
	}
	return taken, nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, team *models.Team) error {
	query := `
		UPDATE teams SET
			team_name = $1, department = $2, year = $3,
			leader_name = $4, leader_email = $5, leader_phone = $6,
			member2_name = $7, member2_email = $8,
			member3_name = $9, member3_email = $10,
			member4_name = $11, member4_email = $12,
			updated_at = NOW()
		WHERE id = $13 AND verified = FALSE
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		team.TeamName, team.Department, team.Year,
		team.LeaderName, team.LeaderEmail, team.LeaderPhone,
		team.Member2Name, team.Member2Email,
		team.Member3Name, team.Member3Email,
		team.Member4Name, team.Member4Email,
		team.ID,
	).Scan(&team.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.updateMissReason(ctx, team.ID)
		}
		if conflict := mapTeamConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update team %d: %w", team.ID, err)
	}
	return nil
}

// updateMissReason отличает удалённую команду от подтверждённой.
func (r *postgresTeamRepository) updateMissReason(ctx context.Context, id int) error {
	var verified bool
	err := r.db.QueryRowContext(ctx, `SELECT verified FROM teams WHERE id = $1`, id).Scan(&verified)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrTeamNotFound
	case err != nil:
		return fmt.Errorf("failed to check team %d: %w", id, err)
	case verified:
		return ErrTeamVerified
	default:
		// Строка есть и не подтверждена, значит её поменяли между запросами.
		return fmt.Errorf("team %d changed concurrently", id)
	}
}

func (r *postgresTeamRepository) SetVerified(ctx context.Context, exec SQLExecutor, id int, verified bool) error {
	query := `UPDATE teams SET verified = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, verified, id)
	if err != nil {
		return fmt.Errorf("failed to set verified on team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func buildTeamWhere(filter TeamFilter) *whereBuilder {
	w := &whereBuilder{}
	if filter.EventID != nil {
		w.add("t.event_id = " + w.arg(*filter.EventID))
	}
	if filter.Search != "" {
		p := w.arg("%" + filter.Search + "%")
		w.add("(t.team_name ILIKE " + p + " OR t.leader_name ILIKE " + p + " OR t.leader_email ILIKE " + p + ")")
	}
	if filter.Department != "" {
		w.add("t.department = " + w.arg(filter.Department))
	}
	if filter.Verified != nil {
		w.add("t.verified = " + w.arg(*filter.Verified))
	}
	return w
}

func (r *postgresTeamRepository) List(ctx context.Context, filter TeamFilter) ([]models.TeamAdminView, error) {
	w := buildTeamWhere(filter)
	query := `SELECT ` + teamColumns + `, p.status, p.amount, p.transaction_id, p.order_id
		FROM teams t
		LEFT JOIN payments p ON p.team_id = t.id` + w.String() + `
		ORDER BY t.registered_at DESC, t.id DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + w.arg(filter.Limit) + " OFFSET " + w.arg(filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.TeamAdminView, 0)
	for rows.Next() {
		var (
			view          models.TeamAdminView
			status        sql.NullString
			amount        decimal.NullDecimal
			transactionID sql.NullString
			orderID       sql.NullString
		)
		dest := append(teamDest(&view.Team), &status, &amount, &transactionID, &orderID)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		if status.Valid {
			s := models.PaymentStatus(status.String)
			view.PaymentStatus = &s
		}
		if amount.Valid {
			a := amount.Decimal
			view.PaymentAmount = &a
		}
		view.TransactionID = stringPtr(transactionID)
		view.OrderID = stringPtr(orderID)
		teams = append(teams, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) Count(ctx context.Context, filter TeamFilter) (int, error) {
	w := buildTeamWhere(filter)
	query := `SELECT COUNT(*) FROM teams t` + w.String()
	var total int
	if err := r.db.QueryRowContext(ctx, query, w.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return total, nil
}
