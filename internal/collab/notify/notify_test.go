package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/rules"
	"github.com/solacehub/solace-sense/internal/telemetry"
	"github.com/solacehub/solace-sense/internal/window"
)

func eventFor(persona string, action rules.ActionID) dispatch.Event {
	rule := rules.Rule{
		Metric:     telemetry.KindMoodStress,
		Comparator: rules.Above,
		Threshold:  75,
		Action:     action,
		Cooldown:   time.Hour,
	}
	return dispatch.NewEvent(persona, rule, 82, window.Snapshot{}, time.Now())
}

func capturingCollaborator(available bool) (*Collaborator, *[][]string) {
	var calls [][]string
	c := New(true)
	c.available = func() bool { return available }
	c.run = func(ctx context.Context, args ...string) error {
		calls = append(calls, args)
		return nil
	}
	return c, &calls
}

func TestDeliverSendsToast(t *testing.T) {
	c, calls := capturingCollaborator(true)

	err := c.Deliver(context.Background(), eventFor("aurora", rules.ActionConcernedCare))
	require.NoError(t, err)
	require.Len(t, *calls, 1)

	args := (*calls)[0]
	assert.Contains(t, args, "--app-name=Solace")
	assert.Contains(t, args, "--urgency=critical")
	assert.Contains(t, args, "--icon=dialog-warning")
	assert.Contains(t, args, "Aurora is worried about you")
}

func TestDeliverLowPriorityUrgency(t *testing.T) {
	c, calls := capturingCollaborator(true)

	require.NoError(t, c.Deliver(context.Background(), eventFor("iris", rules.ActionCelebrate)))
	args := (*calls)[0]
	assert.Contains(t, args, "--urgency=low")
	assert.Contains(t, args, "--icon=dialog-information")
	assert.Contains(t, args, "Iris is celebrating")
}

func TestDeliverFailsWhenUnavailable(t *testing.T) {
	c, calls := capturingCollaborator(false)

	err := c.Deliver(context.Background(), eventFor("willow", rules.ActionCalmPresence))
	assert.Error(t, err)
	assert.Empty(t, *calls)
}

func TestDeliverWrapsRunErrors(t *testing.T) {
	c, _ := capturingCollaborator(true)
	c.run = func(ctx context.Context, args ...string) error {
		return errors.New("dbus timeout")
	}
	err := c.Deliver(context.Background(), eventFor("willow", rules.ActionCalmPresence))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dbus timeout")
}

func TestTextForUnknownAction(t *testing.T) {
	title, message := TextFor("ember", rules.ActionID("custom_from_config"))
	assert.Contains(t, title, "Ember")
	assert.NotEmpty(t, message)
}
