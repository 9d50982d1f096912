package engine

import (
	"time"

	"github.com/solacehub/solace-sense/internal/rules"
)

// Phase is the lifecycle position of one rule instance.
type Phase string

const (
	// PhaseIdle: condition not met, no pending cooldown.
	PhaseIdle Phase = "idle"
	// PhaseArmed: condition met on the latest snapshot, one more
	// qualifying snapshot away from firing.
	PhaseArmed Phase = "armed"
	// PhaseFired: the action was emitted on the latest snapshot.
	PhaseFired Phase = "fired"
	// PhaseCooldown: fired recently; the rule stays quiet until the
	// cooldown elapses, whether or not the condition still holds.
	PhaseCooldown Phase = "cooldown"
)

// TriggerState tracks one rule's debounce and cooldown progress. One
// instance exists per rule of the active persona; all instances are
// discarded on persona switch.
type TriggerState struct {
	Rule        rules.Rule
	Phase       Phase
	LastFiredAt time.Time
	Fires       uint64
}

// Observe advances the state machine by one snapshot and reports whether
// the rule fires on this observation. holds is the comparator verdict for
// the new snapshot; a statistic without enough samples counts as not
// holding, so such rules never arm.
//
// Firing requires the condition to hold on two consecutive snapshots: the
// first qualifying snapshot arms the rule, the second fires it. After a
// fire the rule sits in cooldown; once the cooldown elapses it returns to
// idle, or directly to armed when the condition still holds.
func (s *TriggerState) Observe(holds bool, now time.Time) bool {
	switch s.Phase {
	case PhaseFired:
		s.Phase = PhaseCooldown
		fallthrough
	case PhaseCooldown:
		if now.Sub(s.LastFiredAt) < s.Rule.Cooldown {
			return false
		}
		if holds {
			s.Phase = PhaseArmed
		} else {
			s.Phase = PhaseIdle
		}
		return false
	case PhaseArmed:
		if !holds {
			s.Phase = PhaseIdle
			return false
		}
		s.Phase = PhaseFired
		s.LastFiredAt = now
		s.Fires++
		return true
	default:
		if holds {
			s.Phase = PhaseArmed
		}
		return false
	}
}
