// Package bridge publishes fired persona actions onto Redis streams so
// sibling services (analytics, the companion's memory backend) can consume
// them. It is an optional dispatch collaborator: when Redis is unreachable
// the delivery fails like any other collaborator outcome and the engine
// moves on.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/rules"
)

const (
	streamPrefix = "solace:actions:"

	// maxStreamLen bounds each stream; XADD trims approximately.
	maxStreamLen = 10000

	pingTimeout = 5 * time.Second
)

// StreamFor maps an action priority to its stream key.
func StreamFor(p rules.Priority) string {
	switch p {
	case rules.PriorityCritical:
		return streamPrefix + "critical"
	case rules.PriorityHigh:
		return streamPrefix + "high"
	case rules.PriorityLow:
		return streamPrefix + "low"
	default:
		return streamPrefix + "normal"
	}
}

// Config holds the Redis connection settings for the bridge.
type Config struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// Collaborator implements dispatch.Collaborator over Redis streams.
type Collaborator struct {
	cfg Config
	rdb *redis.Client
	log zerolog.Logger
}

func New(cfg Config) *Collaborator {
	return &Collaborator{cfg: cfg, log: logging.WithComponent("bridge")}
}

// Start connects and verifies the Redis endpoint. A failed ping is
// returned but not fatal to the dispatcher; go-redis reconnects on its
// own once the server appears.
func (c *Collaborator) Start(ctx context.Context) error {
	c.rdb = redis.NewClient(&redis.Options{
		Addr:     c.cfg.Addr,
		Password: c.cfg.Password,
		DB:       c.cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	c.log.Info().Str("addr", c.cfg.Addr).Msg("action bridge connected")
	return nil
}

func (c *Collaborator) Stop() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Collaborator) Name() string { return "bridge" }

func (c *Collaborator) IsEnabled() bool { return c.cfg.Enabled }

// Deliver appends the event to its priority stream via XADD.
func (c *Collaborator) Deliver(ctx context.Context, e dispatch.Event) error {
	if c.rdb == nil {
		return fmt.Errorf("bridge not started")
	}

	stream := StreamFor(e.Priority)
	_, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: eventValues(e),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

// eventValues flattens an event for stream consumers; the snapshot rides
// along as a JSON document.
func eventValues(e dispatch.Event) map[string]interface{} {
	snapshotJSON, _ := json.Marshal(e.Snapshot)

	return map[string]interface{}{
		"id":        e.ID,
		"persona":   e.Persona,
		"action":    string(e.Action),
		"priority":  string(e.Priority),
		"metric":    e.Metric.String(),
		"rule":      e.Rule,
		"value":     strconv.FormatFloat(e.Value, 'g', -1, 64),
		"threshold": strconv.FormatFloat(e.Threshold, 'g', -1, 64),
		"fired_at":  e.FiredAt.Format(time.RFC3339Nano),
		"snapshot":  string(snapshotJSON),
	}
}
