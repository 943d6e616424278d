package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texperia/registration/auth"
	"github.com/texperia/registration/live"
	"github.com/texperia/registration/models"
)

type staticTokens map[string]auth.Identity

func (s staticTokens) Validate(token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

func startLiveFeed(t *testing.T) (*live.Hub, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := live.NewHub(nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	resolver, err := auth.NewResolver(
		[]string{"chief@texperia.in"},
		map[models.EventID][]string{models.EventAIBlitz: {"blitz@texperia.in"}},
	)
	require.NoError(t, err)

	tokens := staticTokens{
		"chief":   {Email: "chief@texperia.in", Role: models.RoleAdmin},
		"blitz":   {Email: "blitz@texperia.in", Role: models.RoleAdmin},
		"student": {Email: "asha@college.edu", Role: models.RoleStudent},
	}
	h := NewWebSocketHandler(hub, tokens, resolver, []string{"http://localhost:5173"})

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWs))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketHandler_Rejects(t *testing.T) {
	_, url := startLiveFeed(t)

	tests := []struct {
		name   string
		query  string
		origin string
		status int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"bad token", "?token=forged", "", http.StatusUnauthorized},
		{"student", "?token=student", "", http.StatusForbidden},
		{"foreign origin", "?token=chief", "http://evil.example", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url+tt.query, header)
			if conn != nil {
				conn.Close()
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestWebSocketHandler_ScopedAdminJoinsEventRoom(t *testing.T) {
	hub, url := startLiveFeed(t)

	header := http.Header{}
	header.Set("Origin", "http://localhost:5173")
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=blitz", header)
	require.NoError(t, err)
	defer conn.Close()

	global, _, err := websocket.DefaultDialer.Dial(url+"?token=chief", nil)
	require.NoError(t, err)
	defer global.Close()

	require.Eventually(t, func() bool {
		return hub.RoomSize("event:ai_blitz") == 1 && hub.RoomSize(live.RoomAll) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), models.PaymentEvent{
		TeamID:  3,
		EventID: models.EventAIBlitz,
		Status:  models.PaymentRejected,
	}))

	for _, c := range []*websocket.Conn{conn, global} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg struct {
			Type    string              `json:"type"`
			Payload models.PaymentEvent `json:"payload"`
		}
		require.NoError(t, c.ReadJSON(&msg))
		assert.Equal(t, live.MessagePaymentUpdated, msg.Type)
		assert.Equal(t, 3, msg.Payload.TeamID)
	}
}
