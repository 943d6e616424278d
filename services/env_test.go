package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/utils"
	"github.com/texperia/registration/validation"
)

func TestMain(m *testing.M) {
	utils.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store     *memStore
	catalog   models.EventCatalog
	notifier  *recordingNotifier
	publisher *recordingPublisher
	metrics   *recordingMetrics
	uploader  *memUploader

	auth     AuthService
	teams    TeamService
	payments PaymentService
	admin    AdminTeamService
	contacts ContactService
	export   ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog, err := models.NewEventCatalog(models.DefaultEvents())
	require.NoError(t, err)

	env := &testEnv{
		store:     newMemStore(),
		catalog:   catalog,
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		metrics:   &recordingMetrics{},
		uploader:  newMemUploader(),
	}
	users, teams, payments := memUsers{env.store}, memTeams{env.store}, memPayments{env.store}
	tx := memTransactor{env.store}
	v := validation.New()
	logger := discardLogger()

	env.auth = NewAuthService(users, v)

	env.teams = NewTeamService(users, teams, payments, catalog, ParseDeadline("2026-03-15T23:59:59"), v, logger)
	env.teams.(*teamService).now = func() time.Time { return fixedNow }

	env.payments = NewPaymentService(PaymentServiceDeps{
		UserRepo:    users,
		TeamRepo:    teams,
		PaymentRepo: payments,
		Transactor:  tx,
		Catalog:     catalog,
		Validator:   v,
		Uploader:    env.uploader,
		Notifier:    env.notifier,
		Publisher:   env.publisher,
		Metrics:     env.metrics,
		Logger:      logger,
	})
	env.payments.(*paymentService).now = func() time.Time { return fixedNow }

	env.admin = NewAdminTeamService(users, teams, payments, tx, env.uploader, logger)
	env.contacts = NewContactService(memContacts{env.store}, env.notifier, v, logger)

	env.export = NewExportService(teams, catalog)
	env.export.(*exportService).now = func() time.Time { return fixedNow }

	return env
}

// student registers an account and returns its email.
func (e *testEnv) student(t *testing.T, email string) string {
	t.Helper()
	_, err := e.auth.Register(context.Background(), RegisterInput{Email: email, Password: "secret123"})
	require.NoError(t, err)
	return email
}

func teamInput(event models.EventID, name string, extra ...models.TeamMember) CreateTeamInput {
	in := CreateTeamInput{
		EventID: event,
		TeamDetails: TeamDetails{
			TeamName:    name,
			Department:  "CSE",
			Year:        "2nd Year",
			LeaderName:  "Asha Rao",
			LeaderEmail: "asha@example.com",
			LeaderPhone: "9876543210",
		},
	}
	slots := [][2]*string{
		{&in.Member2Name, &in.Member2Email},
		{&in.Member3Name, &in.Member3Email},
		{&in.Member4Name, &in.Member4Email},
	}
	for i, m := range extra {
		*slots[i][0] = m.Name
		*slots[i][1] = m.Email
	}
	return in
}

func members(n int) []models.TeamMember {
	all := []models.TeamMember{
		{Name: "Ravi Kumar", Email: "ravi@example.com"},
		{Name: "Meena Iyer", Email: "meena@example.com"},
		{Name: "Arjun Das", Email: "arjun@example.com"},
	}
	return all[:n]
}

// registered creates an account and a team for it.
func (e *testEnv) registered(t *testing.T, email string, in CreateTeamInput) *models.Team {
	t.Helper()
	e.student(t, email)
	team, err := e.teams.RegisterTeam(context.Background(), email, in)
	require.NoError(t, err)
	return team
}

func strPtr(s string) *string { return &s }
