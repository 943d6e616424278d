package handlers

import (
	"context"
	"io"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/services"
)

type fakeAuthService struct {
	user *models.User
	err  error
	got  services.RegisterInput
}

func (f *fakeAuthService) Register(_ context.Context, input services.RegisterInput) (*models.User, error) {
	f.got = input
	return f.user, f.err
}

func (f *fakeAuthService) Login(_ context.Context, input services.LoginInput) (*models.User, error) {
	return f.user, f.err
}

type fakeIssuer struct{ err error }

func (f fakeIssuer) Issue(email string, role models.UserRole) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + email + "-" + string(role), nil
}

type fakeTeamService struct {
	team      *models.Team
	err       error
	email     string
	createIn  services.CreateTeamInput
	updateIn  services.UpdateTeamInput
	regStatus services.RegistrationStatus
}

func (f *fakeTeamService) RegisterTeam(_ context.Context, email string, input services.CreateTeamInput) (*models.Team, error) {
	f.email, f.createIn = email, input
	return f.team, f.err
}

func (f *fakeTeamService) UpdateTeam(_ context.Context, email string, input services.UpdateTeamInput) (*models.Team, error) {
	f.email, f.updateIn = email, input
	return f.team, f.err
}

func (f *fakeTeamService) GetMyTeam(_ context.Context, email string) (*models.TeamWithPayment, error) {
	f.email = email
	if f.err != nil {
		return nil, f.err
	}
	return &models.TeamWithPayment{Team: *f.team}, nil
}

func (f *fakeTeamService) RegistrationStatus() services.RegistrationStatus {
	return f.regStatus
}

type fakePaymentService struct {
	payment *models.Payment
	info    *services.PaymentInfo
	err     error

	email     string
	scope     models.AdminScope
	teamID    int
	submitted services.SubmitPaymentInput
	receipt   services.ReceiptUpload
	body      []byte
}

func (f *fakePaymentService) Info(_ context.Context, email string) (*services.PaymentInfo, error) {
	f.email = email
	return f.info, f.err
}

func (f *fakePaymentService) Initiate(_ context.Context, email string) (*models.Payment, error) {
	f.email = email
	return f.payment, f.err
}

func (f *fakePaymentService) SubmitEvidence(_ context.Context, email string, input services.SubmitPaymentInput) (*models.Payment, error) {
	f.email, f.submitted = email, input
	return f.payment, f.err
}

func (f *fakePaymentService) Status(_ context.Context, email string) (*models.Payment, error) {
	f.email = email
	return f.payment, f.err
}

func (f *fakePaymentService) UploadReceipt(_ context.Context, email string, input services.ReceiptUpload) (*models.Payment, error) {
	f.email, f.receipt = email, input
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return f.payment, f.err
}

func (f *fakePaymentService) Verify(_ context.Context, scope models.AdminScope, teamID int) (*models.Payment, error) {
	f.scope, f.teamID = scope, teamID
	return f.payment, f.err
}

func (f *fakePaymentService) Reject(_ context.Context, scope models.AdminScope, teamID int) (*models.Payment, error) {
	f.scope, f.teamID = scope, teamID
	return f.payment, f.err
}

type fakeAdminTeamService struct {
	list   models.TeamListResponse
	team   *models.Team
	err    error
	scope  models.AdminScope
	query  services.TeamQuery
	teamID int
}

func (f *fakeAdminTeamService) ListTeams(_ context.Context, scope models.AdminScope, query services.TeamQuery) (models.TeamListResponse, error) {
	f.scope, f.query = scope, query
	return f.list, f.err
}

func (f *fakeAdminTeamService) ToggleTeamVerification(_ context.Context, scope models.AdminScope, teamID int) (*models.Team, error) {
	f.scope, f.teamID = scope, teamID
	return f.team, f.err
}

func (f *fakeAdminTeamService) DeleteTeam(_ context.Context, scope models.AdminScope, teamID int) (*models.Team, error) {
	f.scope, f.teamID = scope, teamID
	return f.team, f.err
}

type fakeDashboardService struct {
	stats models.DashboardStats
	err   error
	scope models.AdminScope
	event *models.EventID
}

func (f *fakeDashboardService) GetStats(_ context.Context, scope models.AdminScope) (models.DashboardStats, error) {
	f.scope = scope
	return f.stats, f.err
}

func (f *fakeDashboardService) Departments(_ context.Context, scope models.AdminScope) ([]models.DepartmentCount, error) {
	f.scope = scope
	return []models.DepartmentCount{{Department: "CSE", Count: 3}}, f.err
}

func (f *fakeDashboardService) RevenueChart(_ context.Context, scope models.AdminScope, event *models.EventID) ([]models.RevenuePoint, error) {
	f.scope, f.event = scope, event
	return []models.RevenuePoint{}, f.err
}

func (f *fakeDashboardService) YearStats(_ context.Context, scope models.AdminScope, event *models.EventID) ([]models.YearCount, error) {
	f.scope, f.event = scope, event
	return []models.YearCount{}, f.err
}

func (f *fakeDashboardService) EventStats(_ context.Context, scope models.AdminScope) ([]models.EventStats, error) {
	f.scope = scope
	return []models.EventStats{}, f.err
}

type fakeContactService struct {
	contact    *models.Contact
	contacts   []models.Contact
	err        error
	unreadOnly bool
	readID     int
}

func (f *fakeContactService) Submit(_ context.Context, input services.ContactInput) (*models.Contact, error) {
	return f.contact, f.err
}

func (f *fakeContactService) List(_ context.Context, unreadOnly bool) ([]models.Contact, error) {
	f.unreadOnly = unreadOnly
	return f.contacts, f.err
}

func (f *fakeContactService) MarkRead(_ context.Context, id int) error {
	f.readID = id
	return f.err
}

type fakeExportService struct {
	file  *services.ExportFile
	err   error
	scope models.AdminScope
	event *models.EventID
}

func (f *fakeExportService) TeamsCSV(_ context.Context, scope models.AdminScope, event *models.EventID) (*services.ExportFile, error) {
	f.scope, f.event = scope, event
	return f.file, f.err
}

func (f *fakeExportService) AllEventsZIP(_ context.Context, scope models.AdminScope) (*services.ExportFile, error) {
	f.scope = scope
	return f.file, f.err
}
