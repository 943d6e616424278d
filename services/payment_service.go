package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/storage"
	"github.com/texperia/registration/validation"
)

// PaymentEventPublisher pushes status changes to the admin live feed.
type PaymentEventPublisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
}

type PaymentService interface {
	Info(ctx context.Context, email string) (*PaymentInfo, error)
	Initiate(ctx context.Context, email string) (*models.Payment, error)
	SubmitEvidence(ctx context.Context, email string, input SubmitPaymentInput) (*models.Payment, error)
	Status(ctx context.Context, email string) (*models.Payment, error)
	UploadReceipt(ctx context.Context, email string, input ReceiptUpload) (*models.Payment, error)

	Verify(ctx context.Context, scope models.AdminScope, teamID int) (*models.Payment, error)
	Reject(ctx context.Context, scope models.AdminScope, teamID int) (*models.Payment, error)
}

type SubmitPaymentInput struct {
	TransactionID string  `json:"transaction_id" validate:"required,min=8,max=50"`
	OrderID       *string `json:"order_id" validate:"omitempty,min=5,max=100"`
}

type ReceiptUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

type PaymentInfo struct {
	Amount           decimal.Decimal       `json:"amount"`
	FeePerMember     int64                 `json:"fee_per_member"`
	MemberCount      int                   `json:"member_count"`
	TeamName         string                `json:"team_name"`
	EventID          models.EventID        `json:"event_id"`
	PaymentSubmitted bool                  `json:"payment_submitted"`
	PaymentStatus    *models.PaymentStatus `json:"payment_status"`
	TransactionID    *string               `json:"transaction_id"`
	OrderID          *string               `json:"order_id"`
}

type paymentService struct {
	userRepo    repositories.UserRepository
	teamRepo    repositories.TeamRepository
	paymentRepo repositories.PaymentRepository
	tx          repositories.Transactor
	catalog     models.EventCatalog
	validator   *validation.Validator
	uploader    storage.FileUploader
	notifier    Notifier
	publisher   PaymentEventPublisher
	metrics     MetricsRecorder
	logger      *slog.Logger
	now         func() time.Time
}

type PaymentServiceDeps struct {
	UserRepo    repositories.UserRepository
	TeamRepo    repositories.TeamRepository
	PaymentRepo repositories.PaymentRepository
	Transactor  repositories.Transactor
	Catalog     models.EventCatalog
	Validator   *validation.Validator
	// Uploader is optional; receipt uploads fail with ErrStorageUnavailable without it.
	Uploader  storage.FileUploader
	Notifier  Notifier
	Publisher PaymentEventPublisher
	Metrics   MetricsRecorder
	Logger    *slog.Logger
}

func NewPaymentService(deps PaymentServiceDeps) PaymentService {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &paymentService{
		userRepo:    deps.UserRepo,
		teamRepo:    deps.TeamRepo,
		paymentRepo: deps.PaymentRepo,
		tx:          deps.Transactor,
		catalog:     deps.Catalog,
		validator:   deps.Validator,
		uploader:    deps.Uploader,
		notifier:    deps.Notifier,
		publisher:   deps.Publisher,
		metrics:     metrics,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

func (s *paymentService) Info(ctx context.Context, email string) (*PaymentInfo, error) {
	_, team, err := loadOwnTeam(ctx, s.userRepo, s.teamRepo, email)
	if err != nil {
		return nil, err
	}

	info := &PaymentInfo{
		Amount:       s.catalog.Fee(team),
		FeePerMember: s.catalog.FeePerHead(team.EventID),
		MemberCount:  team.MemberCount(),
		TeamName:     team.TeamName,
		EventID:      team.EventID,
	}

	payment, err := s.paymentRepo.GetByTeamID(ctx, nil, team.ID)
	switch {
	case err == nil:
		status := payment.Status
		info.PaymentSubmitted = true
		info.PaymentStatus = &status
		info.TransactionID = payment.TransactionID
		info.OrderID = payment.OrderID
	case errors.Is(err, repositories.ErrPaymentNotFound):
	default:
		return nil, fmt.Errorf("failed to load payment for team %d: %w", team.ID, err)
	}
	return info, nil
}

// Initiate records a pending gateway order for the caller's team.
func (s *paymentService) Initiate(ctx context.Context, email string) (*models.Payment, error) {
	_, team, err := loadOwnTeam(ctx, s.userRepo, s.teamRepo, email)
	if err != nil {
		return nil, err
	}

	orderID := fmt.Sprintf("ORDER_%d_%d", team.ID, s.now().Unix())
	return s.upsertPending(ctx, team, func(p *models.Payment) {
		p.OrderID = &orderID
	})
}

// SubmitEvidence records the caller's transaction reference. Whatever the
// previous status, the payment goes back to pending for re-verification.
func (s *paymentService) SubmitEvidence(ctx context.Context, email string, input SubmitPaymentInput) (*models.Payment, error) {
	input.TransactionID = *trimPtr(&input.TransactionID)
	input.OrderID = trimPtr(input.OrderID)
	if input.OrderID != nil && *input.OrderID == "" {
		input.OrderID = nil
	}
	if err := validateInput(s.validator, input); err != nil {
		return nil, err
	}

	_, team, err := loadOwnTeam(ctx, s.userRepo, s.teamRepo, email)
	if err != nil {
		return nil, err
	}

	orderID := fmt.Sprintf("UPI_%s_%d_%d", team.EventID, team.ID, s.now().Unix())
	if input.OrderID != nil {
		orderID = *input.OrderID
	}
	transactionID := input.TransactionID

	return s.upsertPending(ctx, team, func(p *models.Payment) {
		p.TransactionID = &transactionID
		p.OrderID = &orderID
	})
}

func (s *paymentService) Status(ctx context.Context, email string) (*models.Payment, error) {
	_, team, err := loadOwnTeam(ctx, s.userRepo, s.teamRepo, email)
	if err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.GetByTeamID(ctx, nil, team.ID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return payment, nil
}

// UploadReceipt stores a receipt image or PDF and attaches it to the team's
// payment, resetting it to pending.
func (s *paymentService) UploadReceipt(ctx context.Context, email string, input ReceiptUpload) (*models.Payment, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	if input.Size > storage.MaxReceiptSize {
		return nil, fieldError("receipt", fmt.Sprintf("must not exceed %d bytes", storage.MaxReceiptSize))
	}
	ext, err := storage.ReceiptExtension(input.ContentType)
	if err != nil {
		return nil, fieldError("receipt", "must be a JPEG, PNG, WEBP image or a PDF")
	}

	_, team, err := loadOwnTeam(ctx, s.userRepo, s.teamRepo, email)
	if err != nil {
		return nil, err
	}

	key := storage.ReceiptKey(team.ID, ext)
	uploaded, err := s.uploader.Upload(ctx, key, input.ContentType, input.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	var previousKey *string
	payment, err := s.upsertPending(ctx, team, func(p *models.Payment) {
		previousKey = p.ReceiptKey
		p.ReceiptKey = &uploaded.Key
		p.ReceiptURL = &uploaded.Location
	})
	if err != nil {
		s.removeReceipt(ctx, uploaded.Key)
		return nil, err
	}
	if previousKey != nil && *previousKey != uploaded.Key {
		s.removeReceipt(ctx, *previousKey)
	}
	return payment, nil
}

func (s *paymentService) removeReceipt(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete receipt object", slog.String("key", key), slog.Any("error", err))
	}
}

// upsertPending creates the team's payment or overwrites the existing one,
// always recomputing the amount and forcing status back to pending. A
// concurrent first submission surfaces as ErrPaymentExists and is retried
// once as an update.
func (s *paymentService) upsertPending(ctx context.Context, team *models.Team, apply func(p *models.Payment)) (*models.Payment, error) {
	var (
		payment  *models.Payment
		previous models.PaymentStatus
	)
	attempt := func() error {
		return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			existing, err := s.paymentRepo.GetByTeamIDForUpdate(ctx, exec, team.ID)
			switch {
			case errors.Is(err, repositories.ErrPaymentNotFound):
				payment = &models.Payment{
					TeamID:   team.ID,
					EventID:  team.EventID,
					Currency: models.DefaultCurrency,
				}
				previous = ""
				apply(payment)
				payment.Amount = s.catalog.Fee(team)
				payment.ResetToPending()
				return s.paymentRepo.Create(ctx, exec, payment)
			case err != nil:
				return err
			}

			payment = existing
			previous = existing.Status
			apply(payment)
			payment.Amount = s.catalog.Fee(team)
			payment.ResetToPending()
			return s.paymentRepo.Update(ctx, exec, payment)
		})
	}

	err := attempt()
	if errors.Is(err, repositories.ErrPaymentExists) {
		err = attempt()
	}
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	if previous != models.PaymentPending {
		s.metrics.PaymentTransition(previous, models.PaymentPending)
	}
	s.publish(ctx, team, payment)
	return payment, nil
}

// Verify toggles verification. On the verifying edge the owning team is
// marked verified in the same transaction and members are notified; on the
// revert edge the team keeps its verified flag.
func (s *paymentService) Verify(ctx context.Context, scope models.AdminScope, teamID int) (*models.Payment, error) {
	var (
		payment  *models.Payment
		team     *models.Team
		previous models.PaymentStatus
		verified bool
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := scopedTeam(ctx, s.teamRepo, exec, scope, teamID)
		if err != nil {
			return err
		}
		p, err := s.paymentRepo.GetByTeamIDForUpdate(ctx, exec, teamID)
		if err != nil {
			return err
		}

		previous = p.Status
		verified = p.ToggleVerification(s.now().UTC())
		if err := s.paymentRepo.Update(ctx, exec, p); err != nil {
			return err
		}
		if verified {
			if err := s.teamRepo.SetVerified(ctx, exec, teamID, true); err != nil {
				return err
			}
			t.Verified = true
		}
		payment, team = p, t
		return nil
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	s.metrics.PaymentTransition(previous, payment.Status)
	if verified {
		s.notifier.PaymentApproved(ctx, *team, *payment)
	}
	s.logger.InfoContext(ctx, "Payment verification toggled",
		slog.Int("team_id", teamID),
		slog.String("status", string(payment.Status)),
		slog.String("scope", string(scope)))
	s.publish(ctx, team, payment)
	return payment, nil
}

// Reject marks the payment rejected. Team.verified is left as is.
func (s *paymentService) Reject(ctx context.Context, scope models.AdminScope, teamID int) (*models.Payment, error) {
	var (
		payment  *models.Payment
		team     *models.Team
		previous models.PaymentStatus
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := scopedTeam(ctx, s.teamRepo, exec, scope, teamID)
		if err != nil {
			return err
		}
		p, err := s.paymentRepo.GetByTeamIDForUpdate(ctx, exec, teamID)
		if err != nil {
			return err
		}

		previous = p.Status
		p.Reject()
		if err := s.paymentRepo.Update(ctx, exec, p); err != nil {
			return err
		}
		payment, team = p, t
		return nil
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	if previous != models.PaymentRejected {
		s.metrics.PaymentTransition(previous, models.PaymentRejected)
	}
	s.notifier.PaymentRejected(ctx, *team, *payment)
	s.logger.InfoContext(ctx, "Payment rejected",
		slog.Int("team_id", teamID),
		slog.String("scope", string(scope)))
	s.publish(ctx, team, payment)
	return payment, nil
}

func (s *paymentService) publish(ctx context.Context, team *models.Team, payment *models.Payment) {
	if s.publisher == nil {
		return
	}
	event := models.PaymentEvent{
		TeamID:        team.ID,
		TeamName:      team.TeamName,
		EventID:       payment.EventID,
		Status:        payment.Status,
		TransactionID: payment.TransactionID,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish payment event",
			slog.Int("team_id", team.ID), slog.Any("error", err))
	}
}
