// Package notify surfaces persona actions as user-facing toasts via
// notify-send. Missing notify-send counts as a delivery failure: the user
// sees nothing, the outcome log tells the truth.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/rules"
)

// Urgency levels for desktop notifications.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

func urgencyFor(p rules.Priority) Urgency {
	switch p {
	case rules.PriorityCritical:
		return UrgencyCritical
	case rules.PriorityLow:
		return UrgencyLow
	default:
		return UrgencyNormal
	}
}

// toast is the user-facing text for one action. Titles carry a %s for the
// persona's display name.
type toast struct {
	title   string
	message string
}

var toasts = map[rules.ActionID]toast{
	rules.ActionConcernedCare:  {"%s is worried about you", "Your heart rate looks elevated. Take a slow breath; I'm right here."},
	rules.ActionMotivation:     {"%s has an idea", "The day still has room for a walk. Shall we?"},
	rules.ActionCalmPresence:   {"%s is with you", "Things feel tense. Let's take a quiet minute together."},
	rules.ActionCelebrate:      {"%s is celebrating", "That was a great effort. Well done!"},
	rules.ActionRestReminder:   {"%s suggests rest", "Last night ran short. An earlier night could help."},
	rules.ActionCheckIn:        {"%s checks in", "Something shifted just now. How are you feeling?"},
	rules.ActionGentleAlert:    {"%s noticed something", "That was sudden. Everything alright?"},
	rules.ActionEnergize:       {"%s sends a spark", "Energy looks low. A stretch might wake things up."},
	rules.ActionWindDown:       {"%s dims the lights", "The evening is settling in. Time to wind down."},
	rules.ActionProximityGreet: {"%s says hi", "Hello again. I missed you."},
}

var fallbackToast = toast{"%s has something for you", "A moment of attention, when you have one."}

// Collaborator sends desktop toasts for fired actions.
type Collaborator struct {
	appName string
	enabled bool
	log     zerolog.Logger

	// run is swappable so tests can capture the command line.
	run func(ctx context.Context, args ...string) error
	// available is swappable for the same reason.
	available func() bool
}

func New(enabled bool) *Collaborator {
	return &Collaborator{
		appName: "Solace",
		enabled: enabled,
		log:     logging.WithComponent("collab.notify"),
		run: func(ctx context.Context, args ...string) error {
			return exec.CommandContext(ctx, "notify-send", args...).Run()
		},
		available: func() bool {
			_, err := exec.LookPath("notify-send")
			return err == nil
		},
	}
}

func (c *Collaborator) Start(ctx context.Context) error {
	if !c.available() {
		c.log.Warn().Msg("notify-send not found; toasts will fail until it appears")
	}
	return nil
}

func (c *Collaborator) Stop() error { return nil }

func (c *Collaborator) Name() string { return "notify" }

func (c *Collaborator) IsEnabled() bool { return c.enabled }

func (c *Collaborator) Deliver(ctx context.Context, e dispatch.Event) error {
	if !c.available() {
		return fmt.Errorf("notify-send not available")
	}

	title, message := TextFor(e.Persona, e.Action)
	args := []string{
		"--app-name=" + c.appName,
		"--urgency=" + string(urgencyFor(e.Priority)),
	}
	if e.Priority == rules.PriorityCritical {
		args = append(args, "--icon=dialog-warning")
	} else {
		args = append(args, "--icon=dialog-information")
	}
	args = append(args, title, message)

	if err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("notify-send failed: %w", err)
	}
	return nil
}

// TextFor renders the toast title and message for a persona and action.
func TextFor(persona string, action rules.ActionID) (string, string) {
	t, ok := toasts[action]
	if !ok {
		t = fallbackToast
	}
	return fmt.Sprintf(t.title, displayName(persona)), t.message
}

func displayName(persona string) string {
	if persona == "" {
		return "Solace"
	}
	r := []rune(persona)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
