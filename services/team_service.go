package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/utils"
	"github.com/texperia/registration/validation"
)

type TeamService interface {
	RegisterTeam(ctx context.Context, email string, input CreateTeamInput) (*models.Team, error)
	UpdateTeam(ctx context.Context, email string, input UpdateTeamInput) (*models.Team, error)
	GetMyTeam(ctx context.Context, email string) (*models.TeamWithPayment, error)
	RegistrationStatus() RegistrationStatus
}

// TeamDetails are the editable team fields with their validation rules.
type TeamDetails struct {
	TeamName     string `json:"team_name" validate:"required,min=2,max=100"`
	Department   string `json:"department" validate:"required,min=2,max=100"`
	Year         string `json:"year" validate:"required,study_year"`
	LeaderName   string `json:"leader_name" validate:"required,min=2,max=100"`
	LeaderEmail  string `json:"leader_email" validate:"required,email,max=255"`
	LeaderPhone  string `json:"leader_phone" validate:"required,indian_mobile"`
	Member2Name  string `json:"member2_name" validate:"max=100"`
	Member2Email string `json:"member2_email" validate:"omitempty,email,max=255"`
	Member3Name  string `json:"member3_name" validate:"max=100"`
	Member3Email string `json:"member3_email" validate:"omitempty,email,max=255"`
	Member4Name  string `json:"member4_name" validate:"max=100"`
	Member4Email string `json:"member4_email" validate:"omitempty,email,max=255"`
}

type CreateTeamInput struct {
	EventID models.EventID `json:"event_id" validate:"required"`
	TeamDetails
}

// UpdateTeamInput is a partial update: nil fields are left untouched. The
// event and the leader email cannot be changed.
type UpdateTeamInput struct {
	TeamName     *string `json:"team_name"`
	Department   *string `json:"department"`
	Year         *string `json:"year"`
	LeaderName   *string `json:"leader_name"`
	LeaderPhone  *string `json:"leader_phone"`
	Member2Name  *string `json:"member2_name"`
	Member2Email *string `json:"member2_email"`
	Member3Name  *string `json:"member3_name"`
	Member3Email *string `json:"member3_email"`
	Member4Name  *string `json:"member4_name"`
	Member4Email *string `json:"member4_email"`
}

type RegistrationStatus struct {
	IsOpen   bool           `json:"is_open"`
	Deadline string         `json:"deadline"`
	Fee      int64          `json:"fee"`
	Events   []models.Event `json:"events"`
}

type teamService struct {
	userRepo    repositories.UserRepository
	teamRepo    repositories.TeamRepository
	paymentRepo repositories.PaymentRepository
	catalog     models.EventCatalog
	deadline    Deadline
	validator   *validation.Validator
	logger      *slog.Logger
	now         func() time.Time
}

func NewTeamService(
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	paymentRepo repositories.PaymentRepository,
	catalog models.EventCatalog,
	deadline Deadline,
	validator *validation.Validator,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		userRepo:    userRepo,
		teamRepo:    teamRepo,
		paymentRepo: paymentRepo,
		catalog:     catalog,
		deadline:    deadline,
		validator:   validator,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *teamService) RegisterTeam(ctx context.Context, email string, input CreateTeamInput) (*models.Team, error) {
	if !s.deadline.Open(s.now()) {
		return nil, ErrDeadlinePassed
	}

	input.EventID = models.EventID(strings.TrimSpace(string(input.EventID)))
	input.TeamDetails = input.TeamDetails.normalized()
	if err := validateInput(s.validator, input); err != nil {
		return nil, err
	}
	if _, ok := s.catalog.Get(input.EventID); !ok {
		return nil, fieldError("event_id", "must be one of: comic_strip, prompt_idol, ai_blitz")
	}

	user, err := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	if _, err := s.teamRepo.GetByUserID(ctx, user.ID); err == nil {
		return nil, ErrTeamAlreadyRegistered
	} else if !errors.Is(err, repositories.ErrTeamNotFound) {
		return nil, fmt.Errorf("failed to check existing team: %w", err)
	}

	// The unique index is the real guard; this only gives a friendlier error.
	taken, err := s.teamRepo.NameTaken(ctx, input.TeamName, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrTeamNameTaken
	}

	team := &models.Team{
		UserID:  user.ID,
		EventID: input.EventID,
	}
	input.TeamDetails.applyTo(team)

	if err := checkTeamSize(s.catalog, team); err != nil {
		return nil, err
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, mapRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Team registered",
		slog.Int("team_id", team.ID),
		slog.String("event_id", string(team.EventID)),
		slog.Int("members", team.MemberCount()))
	return team, nil
}

func (s *teamService) UpdateTeam(ctx context.Context, email string, input UpdateTeamInput) (*models.Team, error) {
	if !s.deadline.Open(s.now()) {
		return nil, ErrDeadlinePassed
	}

	_, team, err := loadOwnTeam(ctx, s.userRepo, s.teamRepo, email)
	if err != nil {
		return nil, err
	}
	if team.Verified {
		return nil, ErrTeamLocked
	}

	details := detailsFromTeam(team)
	input.mergeInto(&details)
	details = details.normalized()
	if err := validateInput(s.validator, details); err != nil {
		return nil, err
	}

	updated := *team
	details.applyTo(&updated)

	if err := checkTeamSize(s.catalog, &updated); err != nil {
		return nil, err
	}

	if !strings.EqualFold(updated.TeamName, team.TeamName) {
		taken, err := s.teamRepo.NameTaken(ctx, updated.TeamName, team.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrTeamNameTaken
		}
	}

	if err := s.teamRepo.Update(ctx, &updated); err != nil {
		return nil, mapRepositoryError(err)
	}
	return &updated, nil
}

func (s *teamService) GetMyTeam(ctx context.Context, email string) (*models.TeamWithPayment, error) {
	_, team, err := loadOwnTeam(ctx, s.userRepo, s.teamRepo, email)
	if err != nil {
		return nil, err
	}

	result := &models.TeamWithPayment{Team: *team}
	payment, err := s.paymentRepo.GetByTeamID(ctx, nil, team.ID)
	switch {
	case err == nil:
		result.Payment = payment
	case errors.Is(err, repositories.ErrPaymentNotFound):
	default:
		return nil, fmt.Errorf("failed to load payment for team %d: %w", team.ID, err)
	}
	return result, nil
}

func (s *teamService) RegistrationStatus() RegistrationStatus {
	return RegistrationStatus{
		IsOpen:   s.deadline.Open(s.now()),
		Deadline: s.deadline.Raw(),
		Fee:      models.DefaultFeePerHead,
		Events:   s.catalog.All(),
	}
}

// checkTeamSize applies the per-event member bounds to the counted members.
func checkTeamSize(catalog models.EventCatalog, team *models.Team) error {
	event, ok := catalog.Get(team.EventID)
	if !ok {
		return fieldError("event_id", fmt.Sprintf("unknown event %q", team.EventID))
	}
	count := team.MemberCount()
	if count < event.MinMembers {
		return fieldError("members", fmt.Sprintf("This event requires at least %d team members. You have %d.", event.MinMembers, count))
	}
	if count > event.MaxMembers {
		return fieldError("members", fmt.Sprintf("This event allows at most %d team members. You have %d.", event.MaxMembers, count))
	}
	return nil
}

func (d TeamDetails) normalized() TeamDetails {
	d.TeamName = strings.TrimSpace(d.TeamName)
	d.Department = strings.TrimSpace(d.Department)
	d.Year = strings.TrimSpace(d.Year)
	d.LeaderName = strings.TrimSpace(d.LeaderName)
	d.LeaderEmail = utils.NormalizeEmail(d.LeaderEmail)
	d.LeaderPhone = strings.TrimSpace(d.LeaderPhone)
	d.Member2Name = strings.TrimSpace(d.Member2Name)
	d.Member2Email = utils.NormalizeEmail(d.Member2Email)
	d.Member3Name = strings.TrimSpace(d.Member3Name)
	d.Member3Email = utils.NormalizeEmail(d.Member3Email)
	d.Member4Name = strings.TrimSpace(d.Member4Name)
	d.Member4Email = utils.NormalizeEmail(d.Member4Email)
	return d
}

func (d TeamDetails) applyTo(t *models.Team) {
	t.TeamName = d.TeamName
	t.Department = d.Department
	t.Year = d.Year
	t.LeaderName = d.LeaderName
	t.LeaderEmail = d.LeaderEmail
	t.LeaderPhone = d.LeaderPhone
	t.Member2Name = d.Member2Name
	t.Member2Email = d.Member2Email
	t.Member3Name = d.Member3Name
	t.Member3Email = d.Member3Email
	t.Member4Name = d.Member4Name
	t.Member4Email = d.Member4Email
}

func detailsFromTeam(t *models.Team) TeamDetails {
	return TeamDetails{
		TeamName:     t.TeamName,
		Department:   t.Department,
		Year:         t.Year,
		LeaderName:   t.LeaderName,
		LeaderEmail:  t.LeaderEmail,
		LeaderPhone:  t.LeaderPhone,
		Member2Name:  t.Member2Name,
		Member2Email: t.Member2Email,
		Member3Name:  t.Member3Name,
		Member3Email: t.Member3Email,
		Member4Name:  t.Member4Name,
		Member4Email: t.Member4Email,
	}
}

func (in UpdateTeamInput) mergeInto(d *TeamDetails) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&d.TeamName, in.TeamName)
	set(&d.Department, in.Department)
	set(&d.Year, in.Year)
	set(&d.LeaderName, in.LeaderName)
	set(&d.LeaderPhone, in.LeaderPhone)
	set(&d.Member2Name, in.Member2Name)
	set(&d.Member2Email, in.Member2Email)
	set(&d.Member3Name, in.Member3Name)
	set(&d.Member3Email, in.Member3Email)
	set(&d.Member4Name, in.Member4Name)
	set(&d.Member4Email, in.Member4Email)
}
