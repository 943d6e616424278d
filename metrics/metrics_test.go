package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texperia/registration/models"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Put("/api/admin/payments/{teamID}/verify", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/admin/payments/"+id+"/verify", nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `texperia_http_requests_total{method="PUT",route="/api/admin/payments/{teamID}/verify",status="404"} 3`)
	assert.NotContains(t, body, `/api/admin/payments/1/verify`)
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PaymentTransition("", models.PaymentPending)
	m.PaymentTransition(models.PaymentPending, models.PaymentVerified)
	m.NotificationResult("payment_approved", "sent")
	m.NotificationResult("payment_approved", "sent")
	m.SubscriberConnected()

	body := scrape(t, m)
	assert.Contains(t, body, `texperia_payment_transitions_total{from="none",to="pending"} 1`)
	assert.Contains(t, body, `texperia_payment_transitions_total{from="pending",to="verified"} 1`)
	assert.Contains(t, body, `texperia_notifications_total{kind="payment_approved",result="sent"} 2`)
	assert.Contains(t, body, `texperia_live_feed_subscribers 1`)
}
