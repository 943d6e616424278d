package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/storage"
)

// memStore is a tiny in-memory stand-in for the database. The transactor
// snapshots it before fn and restores the snapshot when fn fails.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	users    map[int]models.User
	teams    map[int]models.Team
	payments map[int]models.Payment // by team id
	contacts map[int]models.Contact

	failUserDelete error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int]models.User{},
		teams:    map[int]models.Team{},
		payments: map[int]models.Payment{},
		contacts: map[int]models.Contact{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

type memSnapshot struct {
	users    map[int]models.User
	teams    map[int]models.Team
	payments map[int]models.Payment
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		users:    make(map[int]models.User, len(s.users)),
		teams:    make(map[int]models.Team, len(s.teams)),
		payments: make(map[int]models.Payment, len(s.payments)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.teams {
		snap.teams[k] = v
	}
	for k, v := range s.payments {
		snap.payments[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users, s.teams, s.payments = snap.users, snap.teams, snap.payments
}

type memTransactor struct {
	store *memStore
}

func (t memTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	snap := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.s.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r memUsers) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failUserDelete != nil {
		return r.s.failUserDelete
	}
	if _, ok := r.s.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r memUsers) DeleteByRole(ctx context.Context, exec repositories.SQLExecutor, role models.UserRole) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, u := range r.s.users {
		if u.Role == role {
			delete(r.s.users, id)
			n++
		}
	}
	return n, nil
}

// --- teams ---

type memTeams struct{ s *memStore }

func (r memTeams) nameTakenLocked(name string, excludeID int) bool {
	for _, t := range r.s.teams {
		if t.ID != excludeID && strings.EqualFold(t.TeamName, name) {
			return true
		}
	}
	return false
}

func (r memTeams) Create(ctx context.Context, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.teams {
		if t.UserID == team.UserID {
			return repositories.ErrTeamUserConflict
		}
	}
	if r.nameTakenLocked(team.TeamName, 0) {
		return repositories.ErrTeamNameConflict
	}
	team.ID = r.s.id()
	team.RegisteredAt = time.Now()
	team.UpdatedAt = team.RegisteredAt
	r.s.teams[team.ID] = *team
	return nil
}

func (r memTeams) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return &t, nil
}

func (r memTeams) GetByUserID(ctx context.Context, userID int) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.teams {
		if t.UserID == userID {
			return &t, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r memTeams) NameTaken(ctx context.Context, name string, excludeID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.nameTakenLocked(name, excludeID), nil
}

func (r memTeams) Update(ctx context.Context, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.teams[team.ID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	if current.Verified {
		return repositories.ErrTeamVerified
	}
	if r.nameTakenLocked(team.TeamName, team.ID) {
		return repositories.ErrTeamNameConflict
	}
	team.UpdatedAt = time.Now()
	r.s.teams[team.ID] = *team
	return nil
}

func (r memTeams) SetVerified(ctx context.Context, exec repositories.SQLExecutor, id int, verified bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.Verified = verified
	r.s.teams[id] = t
	return nil
}

func (r memTeams) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.s.teams, id)
	return nil
}

func (r memTeams) matching(filter repositories.TeamFilter) []models.TeamAdminView {
	var out []models.TeamAdminView
	for _, t := range r.s.teams {
		if filter.EventID != nil && t.EventID != *filter.EventID {
			continue
		}
		if filter.Verified != nil && t.Verified != *filter.Verified {
			continue
		}
		if filter.Department != "" && t.Department != filter.Department {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.TeamName), strings.ToLower(filter.Search)) {
			continue
		}
		view := models.TeamAdminView{Team: t}
		if p, ok := r.s.payments[t.ID]; ok {
			status := p.Status
			amount := p.Amount
			view.PaymentStatus = &status
			view.PaymentAmount = &amount
			view.TransactionID = p.TransactionID
			view.OrderID = p.OrderID
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memTeams) List(ctx context.Context, filter repositories.TeamFilter) ([]models.TeamAdminView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.matching(filter)
	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[filter.Offset:end]
	}
	return out, nil
}

func (r memTeams) Count(ctx context.Context, filter repositories.TeamFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.matching(filter)), nil
}

// --- payments ---

type memPayments struct{ s *memStore }

func (r memPayments) GetByTeamID(ctx context.Context, exec repositories.SQLExecutor, teamID int) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[teamID]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	return &p, nil
}

func (r memPayments) GetByTeamIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, teamID int) (*models.Payment, error) {
	return r.GetByTeamID(ctx, exec, teamID)
}

func (r memPayments) conflictLocked(p *models.Payment) error {
	for _, other := range r.s.payments {
		if other.TeamID == p.TeamID {
			continue
		}
		if p.TransactionID != nil && other.TransactionID != nil && *p.TransactionID == *other.TransactionID {
			return repositories.ErrPaymentTransactionConflict
		}
		if p.OrderID != nil && other.OrderID != nil && *p.OrderID == *other.OrderID {
			return repositories.ErrPaymentOrderConflict
		}
	}
	return nil
}

func (r memPayments) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[p.TeamID]; ok {
		return repositories.ErrPaymentExists
	}
	if err := r.conflictLocked(p); err != nil {
		return err
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	r.s.payments[p.TeamID] = *p
	return nil
}

func (r memPayments) Update(ctx context.Context, exec repositories.SQLExecutor, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[p.TeamID]; !ok {
		return repositories.ErrPaymentNotFound
	}
	if err := r.conflictLocked(p); err != nil {
		return err
	}
	r.s.payments[p.TeamID] = *p
	return nil
}

func (r memPayments) DeleteByTeamID(ctx context.Context, exec repositories.SQLExecutor, teamID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.payments, teamID)
	return nil
}

// --- contacts ---

type memContacts struct{ s *memStore }

func (r memContacts) Create(ctx context.Context, c *models.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.contacts[c.ID] = *c
	return nil
}

func (r memContacts) List(ctx context.Context, unreadOnly bool) ([]models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Contact
	for _, c := range r.s.contacts {
		if unreadOnly && c.IsRead {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memContacts) MarkRead(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return repositories.ErrContactNotFound
	}
	c.IsRead = true
	r.s.contacts[id] = c
	return nil
}

// --- collaborators ---

type notification struct {
	kind    string
	teamID  int
	status  models.PaymentStatus
	contact string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) PaymentApproved(ctx context.Context, team models.Team, payment models.Payment) {
	n.record(notification{kind: "approved", teamID: team.ID, status: payment.Status})
}

func (n *recordingNotifier) PaymentRejected(ctx context.Context, team models.Team, payment models.Payment) {
	n.record(notification{kind: "rejected", teamID: team.ID, status: payment.Status})
}

func (n *recordingNotifier) ContactReceived(ctx context.Context, contact models.Contact) {
	n.record(notification{kind: "contact", contact: contact.Email})
}

func (n *recordingNotifier) record(c notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.kind)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PaymentEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type transition struct{ from, to models.PaymentStatus }

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []transition
	results     map[string]int
}

func (m *recordingMetrics) NotificationResult(kind, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = map[string]int{}
	}
	m.results[kind+"/"+result]++
}

func (m *recordingMetrics) PaymentTransition(from, to models.PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, transition{from, to})
}

type memUploader struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	failErr error
}

func newMemUploader() *memUploader {
	return &memUploader{objects: map[string]string{}}
}

func (u *memUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.failErr != nil {
		return nil, u.failErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = string(data)
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memUploader) GetPublicURL(key string) string {
	return "https://files.example.com/" + key
}

type fakeStats struct {
	mu     sync.Mutex
	events []*models.EventID
}

func (f *fakeStats) seen(event *models.EventID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeStats) TeamTotals(ctx context.Context, event *models.EventID) (int, int, error) {
	f.seen(event)
	if event == nil {
		return 10, 4, nil
	}
	return 3, 1, nil
}

func (f *fakeStats) PaymentTotals(ctx context.Context, event *models.EventID) (decimal.Decimal, int, error) {
	f.seen(event)
	if event == nil {
		return decimal.NewFromInt(2500), 5, nil
	}
	return decimal.NewFromInt(600), 2, nil
}

func (f *fakeStats) Departments(ctx context.Context, event *models.EventID) ([]models.DepartmentCount, error) {
	f.seen(event)
	return []models.DepartmentCount{{Department: "CSE", Count: 3}, {Department: "ECE", Count: 1}}, nil
}

func (f *fakeStats) Years(ctx context.Context, event *models.EventID) ([]models.YearCount, error) {
	f.seen(event)
	return []models.YearCount{{Year: "2nd Year", Count: 2}}, nil
}

func (f *fakeStats) RevenueByDay(ctx context.Context, event *models.EventID) ([]models.RevenuePoint, error) {
	f.seen(event)
	return nil, errors.New("boom")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
