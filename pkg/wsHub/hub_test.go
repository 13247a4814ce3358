package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Temutjin2k/ispeed/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer upgrades every request and registers the connection under topic.
func startServer(t *testing.T, hub *ConnectionHub, topic uuid.UUID, registered chan<- *Conn) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConn(context.Background(), topic, raw)
		if err := hub.Add(c); err != nil {
			c.Close()
			return
		}
		registered <- c
		// drain control frames until the peer leaves
		_ = c.Listen(func(map[string]any) error { return nil })
		_ = hub.Remove(c)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	hub := NewConnHub(logger.NewNop())
	var changes atomic.Int32
	hub.OnChange = func(int) { changes.Add(1) }

	topic := uuid.New()
	registered := make(chan *Conn, 2)
	url := startServer(t, hub, topic, registered)

	a := dial(t, url)
	b := dial(t, url)
	<-registered
	<-registered

	assert.Equal(t, 2, hub.Len())
	assert.Len(t, hub.Subscribers(topic), 2)
	assert.Empty(t, hub.Subscribers(uuid.New()))

	sent := hub.Broadcast(topic, map[string]any{"type": "session_snapshot", "elapsed": "00:00:01"})
	assert.Equal(t, 2, sent)

	for _, c := range []*websocket.Conn{a, b} {
		var got map[string]any
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, "00:00:01", got["elapsed"])
	}
	assert.GreaterOrEqual(t, changes.Load(), int32(2))
}

func TestCloseTopicSendsFinalMessage(t *testing.T) {
	hub := NewConnHub(logger.NewNop())
	topic := uuid.New()
	registered := make(chan *Conn, 1)
	url := startServer(t, hub, topic, registered)

	client := dial(t, url)
	conn := <-registered

	hub.CloseTopic(topic, map[string]string{"type": "session_stopped"})

	var got map[string]string
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "session_stopped", got["type"])

	_, _, err := client.ReadMessage()
	assert.Error(t, err, "connection must be closed after the final message")

	assert.Equal(t, 0, hub.Len())
	assert.ErrorIs(t, conn.Send("late"), ErrConnClosed)
	assert.NoError(t, conn.Close(), "close is idempotent")
}

func TestHubClose(t *testing.T) {
	hub := NewConnHub(logger.NewNop())
	topic := uuid.New()
	registered := make(chan *Conn, 1)
	url := startServer(t, hub, topic, registered)

	dial(t, url)
	conn := <-registered

	hub.Close()

	assert.Equal(t, 0, hub.Len())
	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("connection not closed")
	}
	assert.ErrorIs(t, hub.Add(NewConn(context.Background(), topic, nil)), ErrHubClosed)
}

func TestRemoveUnknown(t *testing.T) {
	hub := NewConnHub(logger.NewNop())

	assert.ErrorIs(t, hub.Add(nil), ErrEmptyConn)
	assert.ErrorIs(t, hub.Remove(nil), ErrEmptyConn)
	assert.ErrorIs(t, hub.Remove(NewConn(context.Background(), uuid.New(), nil)), ErrConnIsNotFound)
}

func TestBroadcastDoesNotWaitForSlowReader(t *testing.T) {
	hub := NewConnHub(logger.NewNop())
	topic := uuid.New()
	registered := make(chan *Conn, 1)
	url := startServer(t, hub, topic, registered)

	dial(t, url) // never reads
	conn := <-registered

	payload := map[string]string{"type": "session_snapshot", "pad": strings.Repeat("x", 256<<10)}

	start := time.Now()
	for i := 0; i < 4*sendQueue; i++ {
		hub.Broadcast(topic, payload)
	}
	assert.Less(t, time.Since(start), time.Second, "broadcast must not block on the socket")

	assert.Equal(t, 0, hub.Len(), "the stalled connection is dropped once its queue is full")
	select {
	case <-conn.Done():
	default:
		t.Fatal("stalled connection not closed")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	c := NewConn(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, c.Send("x"), ErrConnClosed)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
}
