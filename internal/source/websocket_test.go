package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacehub/solace-sense/internal/telemetry"
)

type captureIngester struct {
	mu      sync.Mutex
	samples []telemetry.RawSample
}

func (c *captureIngester) Ingest(s telemetry.RawSample) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
	return true
}

func (c *captureIngester) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func (c *captureIngester) all() []telemetry.RawSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]telemetry.RawSample(nil), c.samples...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// fastSource shortens the reconnect backoff so tests stay quick.
func fastSource(url string, ing Ingester) *WebSocketSource {
	s := NewWebSocketSource(url, ing)
	s.initialBackoff = 10 * time.Millisecond
	s.maxBackoff = 50 * time.Millisecond
	return s
}

func TestWebSocketSourceIngestsSamples(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		messages := []string{
			`{"kind":"heart_rate","values":[72],"observed_at":"2026-03-14T09:00:00Z"}`,
			`not json at all`,
			`{"kind":"light","values":[340],"observed_at":"2026-03-14T09:00:01Z"}`,
		}
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// Hold the connection so the client drains everything.
		conn.ReadMessage()
	}))
	defer srv.Close()

	ing := &captureIngester{}
	src := fastSource(wsURL(srv), ing)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	require.Eventually(t, func() bool { return ing.count() == 2 },
		2*time.Second, 5*time.Millisecond, "expected the two decodable samples")
	cancel()
	require.NoError(t, <-done)

	samples := ing.all()
	assert.Equal(t, telemetry.KindHeartRate, samples[0].Kind)
	assert.Equal(t, []float64{72}, samples[0].Values)
	assert.Equal(t, telemetry.KindLight, samples[1].Kind)
}

func TestWebSocketSourceStampsMissingTimestamp(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"battery","values":[55]}`))
		conn.ReadMessage()
	}))
	defer srv.Close()

	ing := &captureIngester{}
	src := fastSource(wsURL(srv), ing)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	require.Eventually(t, func() bool { return ing.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.False(t, ing.all()[0].ObservedAt.IsZero())
}

func TestWebSocketSourceReconnects(t *testing.T) {
	up := websocket.Upgrader{}
	var mu sync.Mutex
	connections := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"steps","values":[100]}`))
		if n == 1 {
			return // drop the first connection immediately
		}
		conn.ReadMessage()
	}))
	defer srv.Close()

	ing := &captureIngester{}
	src := fastSource(wsURL(srv), ing)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	require.Eventually(t, func() bool { return ing.count() >= 2 },
		3*time.Second, 5*time.Millisecond, "source should redial after the drop")
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, connections, 2)
}

func TestWebSocketSourceReturnsOnCancelWhileConnected(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage() // idle until the client goes away
	}))
	defer srv.Close()

	src := fastSource(wsURL(srv), &captureIngester{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop on context cancellation")
	}
}
