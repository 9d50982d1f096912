package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/rules"
	"github.com/solacehub/solace-sense/internal/telemetry"
	"github.com/solacehub/solace-sense/internal/window"
)

func testEvent() dispatch.Event {
	rule := rules.Rule{
		Metric:     telemetry.KindHeartRate,
		Comparator: rules.Above,
		Threshold:  120,
		Action:     rules.ActionConcernedCare,
		Cooldown:   time.Minute,
	}
	return dispatch.NewEvent("aurora", rule, 131, window.Snapshot{Seq: 7}, time.Date(2026, 3, 14, 9, 0, 4, 0, time.UTC))
}

func TestStreamFor(t *testing.T) {
	tests := []struct {
		priority rules.Priority
		want     string
	}{
		{rules.PriorityCritical, "solace:actions:critical"},
		{rules.PriorityHigh, "solace:actions:high"},
		{rules.PriorityNormal, "solace:actions:normal"},
		{rules.PriorityLow, "solace:actions:low"},
		{rules.Priority("made-up"), "solace:actions:normal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StreamFor(tt.priority))
	}
}

func TestEventValues(t *testing.T) {
	values := eventValues(testEvent())

	assert.Equal(t, "aurora", values["persona"])
	assert.Equal(t, "concerned_care", values["action"])
	assert.Equal(t, "critical", values["priority"])
	assert.Equal(t, "heart_rate", values["metric"])
	assert.Equal(t, "131", values["value"])
	assert.Equal(t, "120", values["threshold"])

	snapshot, ok := values["snapshot"].(string)
	require.True(t, ok)
	assert.Contains(t, snapshot, `"seq":7`)
}

func TestDeliverRequiresStart(t *testing.T) {
	c := New(Config{Addr: "127.0.0.1:6379", Enabled: true})
	err := c.Deliver(context.Background(), testEvent())
	assert.Error(t, err)
}

// setupTestBridge connects to a local Redis, skipping when none is
// reachable.
func setupTestBridge(t *testing.T) *Collaborator {
	t.Helper()
	c := New(Config{Addr: "127.0.0.1:6379", Enabled: true})
	if err := c.Start(context.Background()); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return c
}

func TestDeliverPublishesToPriorityStream(t *testing.T) {
	c := setupTestBridge(t)
	defer c.Stop()

	ctx := context.Background()
	e := testEvent()
	stream := StreamFor(e.Priority)
	defer c.rdb.Del(ctx, stream)

	require.NoError(t, c.Deliver(ctx, e))

	msgs, err := c.rdb.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.NotEmpty(t, msgs)

	last := msgs[len(msgs)-1]
	assert.Equal(t, e.ID, last.Values["id"])
	assert.Equal(t, "concerned_care", last.Values["action"])
	assert.Equal(t, "131", last.Values["value"])
}
