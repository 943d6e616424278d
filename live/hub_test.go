package live

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texperia/registration/models"
)

type countingObserver struct{ n atomic.Int64 }

func (o *countingObserver) SubscriberConnected()    { o.n.Add(1) }
func (o *countingObserver) SubscriberDisconnected() { o.n.Add(-1) }

type received struct {
	Type    string              `json:"type"`
	RoomID  string              `json:"room_id"`
	Payload models.PaymentEvent `json:"payload"`
}

func startHub(t *testing.T, observer Observer) (*Hub, context.CancelFunc, func(room string) *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(observer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, r.URL.Query().Get("room"))
	}))
	t.Cleanup(srv.Close)

	dial := func(room string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=" + room
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	return hub, cancel, dial
}

func TestHub_DeliversToGlobalAndEventRoom(t *testing.T) {
	hub, _, dial := startHub(t, nil)

	global := dial(RoomAll)
	blitz := dial(RoomFor(models.ScopeFor(models.EventAIBlitz)))
	comic := dial(RoomFor(models.ScopeFor(models.EventComicStrip)))

	require.Eventually(t, func() bool {
		return hub.RoomSize(RoomAll) == 1 && hub.RoomSize("event:ai_blitz") == 1 && hub.RoomSize("event:comic_strip") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), models.PaymentEvent{
		TeamID:  7,
		EventID: models.EventAIBlitz,
		Status:  models.PaymentVerified,
	}))

	for _, conn := range []*websocket.Conn{global, blitz} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, MessagePaymentUpdated, msg.Type)
		assert.Equal(t, 7, msg.Payload.TeamID)
		assert.Equal(t, models.PaymentVerified, msg.Payload.Status)
	}

	require.NoError(t, comic.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := comic.ReadMessage()
	assert.Error(t, err, "comic_strip room must not see ai_blitz events")
}

func TestHub_TracksSubscribers(t *testing.T) {
	observer := &countingObserver{}
	hub, cancel, dial := startHub(t, observer)

	first := dial(RoomAll)
	dial(RoomAll)
	require.Eventually(t, func() bool { return observer.n.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	first.Close()
	require.Eventually(t, func() bool { return hub.RoomSize(RoomAll) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, observer.n.Load())

	cancel()
	require.Eventually(t, func() bool { return hub.RoomSize(RoomAll) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 0, observer.n.Load())
}

func TestRoomFor(t *testing.T) {
	assert.Equal(t, RoomAll, RoomFor(models.ScopeAll))
	assert.Equal(t, "event:prompt_idol", RoomFor(models.ScopeFor(models.EventPromptIdol)))
}
