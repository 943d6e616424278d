package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/templates"
)

// Notifier sends emails on workflow transitions. Calls never block the
// caller and never report delivery errors.
type Notifier interface {
	PaymentApproved(ctx context.Context, team models.Team, payment models.Payment)
	PaymentRejected(ctx context.Context, team models.Team, payment models.Payment)
	ContactReceived(ctx context.Context, contact models.Contact)
}

const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationDropped = "dropped"
)

// MetricsRecorder receives workflow counters. Implemented by the metrics
// package; nil-safe via nopRecorder.
type MetricsRecorder interface {
	NotificationResult(kind, result string)
	PaymentTransition(from, to models.PaymentStatus)
}

type nopRecorder struct{}

func (nopRecorder) NotificationResult(string, string) {}
func (nopRecorder) PaymentTransition(models.PaymentStatus, models.PaymentStatus) {}

type DispatcherConfig struct {
	FestName   string
	AdminEmail string
	QueueSize  int
	Workers    int
	// SendTimeout bounds a single SMTP delivery.
	SendTimeout time.Duration
	// Parallelism bounds concurrent deliveries of one job.
	Parallelism int
}

type emailJob struct {
	kind       string
	recipients []string
	subject    string
	html       string
	text       string
}

// EmailDispatcher renders messages on the caller's goroutine and delivers
// them from a bounded queue drained by a fixed worker pool.
type EmailDispatcher struct {
	cfg      DispatcherConfig
	mailer   Mailer
	renderer *templates.Renderer
	catalog  models.EventCatalog
	metrics  MetricsRecorder
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan emailJob
	wg     sync.WaitGroup
}

func NewEmailDispatcher(
	cfg DispatcherConfig,
	mailer Mailer,
	renderer *templates.Renderer,
	catalog models.EventCatalog,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *EmailDispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &EmailDispatcher{
		cfg:      cfg,
		mailer:   mailer,
		renderer: renderer,
		catalog:  catalog,
		metrics:  metrics,
		logger:   logger,
		queue:    make(chan emailJob, cfg.QueueSize),
	}
}

// Start launches the workers. They exit once Shutdown closes the queue and
// the backlog is drained.
func (d *EmailDispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for job := range d.queue {
				d.deliver(job)
			}
		}()
	}
}

// Shutdown stops accepting jobs and waits for queued ones until ctx expires.
func (d *EmailDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email dispatcher shutdown: %w", ctx.Err())
	}
}

type paymentEmailData struct {
	FestName      string
	EventName     string
	TeamName      string
	Department    string
	Year          string
	TransactionID string
	OrderID       string
	FeePerHead    int64
	MemberCount   int
	Amount        string
	Members       []models.TeamMember
}

func (d *EmailDispatcher) paymentData(team models.Team, payment models.Payment) paymentEmailData {
	members := []models.TeamMember{{Name: team.LeaderName, Email: team.LeaderEmail}}
	for _, m := range team.MemberSlots() {
		if strings.TrimSpace(m.Name) != "" || strings.TrimSpace(m.Email) != "" {
			members = append(members, m)
		}
	}
	return paymentEmailData{
		FestName:      d.cfg.FestName,
		EventName:     d.catalog.Name(team.EventID),
		TeamName:      team.TeamName,
		Department:    team.Department,
		Year:          team.Year,
		TransactionID: valueOr(payment.TransactionID, "N/A"),
		OrderID:       valueOr(payment.OrderID, "N/A"),
		FeePerHead:    d.catalog.FeePerHead(team.EventID),
		MemberCount:   team.MemberCount(),
		Amount:        payment.Amount.StringFixed(2),
		Members:       members,
	}
}

func (d *EmailDispatcher) PaymentApproved(ctx context.Context, team models.Team, payment models.Payment) {
	data := d.paymentData(team, payment)
	subject := fmt.Sprintf("✅ Payment Approved - %s | %s", data.EventName, d.cfg.FestName)
	d.enqueue(ctx, templates.PaymentApproved, uniqueEmails(team.RecipientEmails()), subject, data)
}

func (d *EmailDispatcher) PaymentRejected(ctx context.Context, team models.Team, payment models.Payment) {
	data := d.paymentData(team, payment)
	subject := fmt.Sprintf("❌ Payment Rejected - %s | %s", data.EventName, d.cfg.FestName)
	d.enqueue(ctx, templates.PaymentRejected, uniqueEmails(team.RecipientEmails()), subject, data)
}

func (d *EmailDispatcher) ContactReceived(ctx context.Context, contact models.Contact) {
	if d.cfg.AdminEmail == "" {
		d.logger.WarnContext(ctx, "ADMIN_EMAIL not set, contact notification skipped", slog.Int("contact_id", contact.ID))
		return
	}
	subject := fmt.Sprintf("📬 New Contact Form Submission - %s", contact.Name)
	d.enqueue(ctx, templates.ContactNotification, []string{d.cfg.AdminEmail}, subject, contact)
}

func (d *EmailDispatcher) enqueue(ctx context.Context, kind string, recipients []string, subject string, data interface{}) {
	html, text, err := d.renderer.Render(kind, data)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to render email", slog.String("kind", kind), slog.Any("error", err))
		d.metrics.NotificationResult(kind, NotificationFailed)
		return
	}
	job := emailJob{kind: kind, recipients: recipients, subject: subject, html: html, text: text}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WarnContext(ctx, "Email dispatcher closed, notification dropped", slog.String("kind", kind))
		d.metrics.NotificationResult(kind, NotificationDropped)
		return
	}
	select {
	case d.queue <- job:
	default:
		d.logger.WarnContext(ctx, "Email queue full, notification dropped",
			slog.String("kind", kind), slog.Int("recipients", len(recipients)))
		d.metrics.NotificationResult(kind, NotificationDropped)
	}
}

// deliver fans a job out to its recipients. One failed recipient does not
// stop the others.
func (d *EmailDispatcher) deliver(job emailJob) {
	var g errgroup.Group
	g.SetLimit(d.cfg.Parallelism)

	for _, to := range job.recipients {
		to := to
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
			defer cancel()

			err := d.mailer.Send(ctx, EmailMessage{To: to, Subject: job.subject, HTMLBody: job.html, PlainBody: job.text})
			if err != nil {
				d.logger.Error("Failed to send email",
					slog.String("kind", job.kind), slog.String("to", to), slog.Any("error", err))
				d.metrics.NotificationResult(job.kind, NotificationFailed)
				return nil
			}
			d.metrics.NotificationResult(job.kind, NotificationSent)
			return nil
		})
	}
	_ = g.Wait()
}

func uniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
