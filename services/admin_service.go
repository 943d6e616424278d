package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/storage"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// TeamQuery is the admin team listing request. EventID is only honoured for
// global admins.
type TeamQuery struct {
	EventID    *models.EventID
	Search     string
	Department string
	Verified   *bool
	Page       int
	Limit      int
}

type AdminTeamService interface {
	ListTeams(ctx context.Context, scope models.AdminScope, query TeamQuery) (models.TeamListResponse, error)
	ToggleTeamVerification(ctx context.Context, scope models.AdminScope, teamID int) (*models.Team, error)
	DeleteTeam(ctx context.Context, scope models.AdminScope, teamID int) (*models.Team, error)
}

type adminTeamService struct {
	userRepo    repositories.UserRepository
	teamRepo    repositories.TeamRepository
	paymentRepo repositories.PaymentRepository
	tx          repositories.Transactor
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewAdminTeamService(
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	paymentRepo repositories.PaymentRepository,
	tx repositories.Transactor,
	uploader storage.FileUploader,
	logger *slog.Logger,
) AdminTeamService {
	return &adminTeamService{
		userRepo:    userRepo,
		teamRepo:    teamRepo,
		paymentRepo: paymentRepo,
		tx:          tx,
		uploader:    uploader,
		logger:      logger,
	}
}

func (s *adminTeamService) ListTeams(ctx context.Context, scope models.AdminScope, query TeamQuery) (models.TeamListResponse, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = DefaultPageLimit
	}
	if query.Limit > MaxPageLimit {
		query.Limit = MaxPageLimit
	}

	filter := repositories.TeamFilter{
		EventID:    scope.EventFilter(query.EventID),
		Search:     strings.TrimSpace(query.Search),
		Department: strings.TrimSpace(query.Department),
		Verified:   query.Verified,
	}

	total, err := s.teamRepo.Count(ctx, filter)
	if err != nil {
		return models.TeamListResponse{}, err
	}

	filter.Limit = query.Limit
	filter.Offset = (query.Page - 1) * query.Limit
	teams, err := s.teamRepo.List(ctx, filter)
	if err != nil {
		return models.TeamListResponse{}, err
	}

	return models.TeamListResponse{
		Teams:      teams,
		Total:      total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: (total + query.Limit - 1) / query.Limit,
	}, nil
}

// ToggleTeamVerification is the explicit admin override of Team.verified. The
// payment is not touched.
func (s *adminTeamService) ToggleTeamVerification(ctx context.Context, scope models.AdminScope, teamID int) (*models.Team, error) {
	team, err := scopedTeam(ctx, s.teamRepo, nil, scope, teamID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	team.Verified = !team.Verified
	if err := s.teamRepo.SetVerified(ctx, nil, team.ID, team.Verified); err != nil {
		return nil, mapRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Team verification overridden",
		slog.Int("team_id", team.ID),
		slog.Bool("verified", team.Verified),
		slog.String("scope", string(scope)))
	return team, nil
}

// DeleteTeam removes the payment, the team and the owning account in that
// order within one transaction.
func (s *adminTeamService) DeleteTeam(ctx context.Context, scope models.AdminScope, teamID int) (*models.Team, error) {
	var (
		team       *models.Team
		receiptKey *string
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := scopedTeam(ctx, s.teamRepo, exec, scope, teamID)
		if err != nil {
			return err
		}

		payment, err := s.paymentRepo.GetByTeamID(ctx, exec, teamID)
		switch {
		case err == nil:
			receiptKey = payment.ReceiptKey
		case !errors.Is(err, repositories.ErrPaymentNotFound):
			return err
		}

		if err := s.paymentRepo.DeleteByTeamID(ctx, exec, teamID); err != nil {
			return err
		}
		if err := s.teamRepo.Delete(ctx, exec, teamID); err != nil {
			return err
		}
		if err := s.userRepo.Delete(ctx, exec, t.UserID); err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return err
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	if receiptKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *receiptKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete receipt of removed team",
				slog.Int("team_id", teamID), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "Team deleted",
		slog.Int("team_id", team.ID),
		slog.Int("user_id", team.UserID),
		slog.String("scope", string(scope)))
	return team, nil
}
