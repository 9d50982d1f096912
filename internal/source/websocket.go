package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/telemetry"
)

const (
	initialBackoff = 3 * time.Second
	maxBackoff     = 60 * time.Second
)

// WebSocketSource attaches to a device telemetry stream emitting one JSON
// RawSample per message and keeps the connection alive with exponential
// reconnect backoff.
type WebSocketSource struct {
	url string
	ing Ingester
	log zerolog.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewWebSocketSource(url string, ing Ingester) *WebSocketSource {
	return &WebSocketSource{
		url:            url,
		ing:            ing,
		log:            logging.WithComponent("source.websocket"),
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

func (s *WebSocketSource) Name() string { return "websocket" }

// Run dials, reads until the connection drops, and redials with backoff.
// It returns once ctx ends.
func (s *WebSocketSource) Run(ctx context.Context) error {
	backoff := s.initialBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := s.attach(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("telemetry stream lost, reconnecting")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if err != nil {
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
		} else {
			backoff = s.initialBackoff
		}
	}
}

// attach holds one connection for its lifetime, forwarding every decodable
// sample. Undecodable messages are discarded; the normalizer deals with
// merely implausible ones.
func (s *WebSocketSource) attach(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()
	s.log.Info().Str("url", s.url).Msg("telemetry stream connected")

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var raw telemetry.RawSample
		if err := json.Unmarshal(payload, &raw); err != nil {
			s.log.Debug().Err(err).Msg("undecodable sample discarded")
			continue
		}
		// Producers that omit observed_at get the receive time.
		if raw.ObservedAt.IsZero() {
			raw.ObservedAt = time.Now()
		}
		s.ing.Ingest(raw)
	}
}
