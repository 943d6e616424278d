package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/utils"
	"github.com/texperia/registration/validation"
)

// mapRepositoryError translates repository sentinels into the service
// taxonomy. Unknown errors are returned unchanged.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamVerified):
		return ErrTeamLocked
	case errors.Is(err, repositories.ErrPaymentNotFound):
		return ErrPaymentNotFound
	case errors.Is(err, repositories.ErrContactNotFound):
		return ErrContactNotFound
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrEmailTaken
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameTaken
	case errors.Is(err, repositories.ErrTeamUserConflict):
		return ErrTeamAlreadyRegistered
	case errors.Is(err, repositories.ErrPaymentTransactionConflict):
		return ErrTransactionIDTaken
	case errors.Is(err, repositories.ErrPaymentOrderConflict):
		return ErrOrderIDTaken
	default:
		return err
	}
}

func validateInput(v *validation.Validator, input interface{}) error {
	fields, err := v.Struct(input)
	if err != nil {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	if fields != nil {
		return newValidationError(fields)
	}
	return nil
}

// loadOwnTeam resolves the caller's account and the team it owns.
func loadOwnTeam(ctx context.Context, users repositories.UserRepository, teams repositories.TeamRepository, email string) (*models.User, *models.Team, error) {
	user, err := users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, nil, mapRepositoryError(err)
	}
	team, err := teams.GetByUserID(ctx, user.ID)
	if err != nil {
		return user, nil, mapRepositoryError(err)
	}
	return user, team, nil
}

// scopedTeam загружает команду и проверяет, что она в зоне администратора.
// Проверка идёт до любых других запросов, чтобы 404 не раскрывал чужие события.
func scopedTeam(ctx context.Context, teams repositories.TeamRepository, exec repositories.SQLExecutor, scope models.AdminScope, teamID int) (*models.Team, error) {
	team, err := teams.GetByID(ctx, exec, teamID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(team.EventID) {
		return nil, ErrForbidden
	}
	return team, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
