package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/rules"
	"github.com/solacehub/solace-sense/internal/window"
)

// Evaluator runs one persona's rule set against incoming snapshots. It is
// a pure state machine over in-memory state: evaluation cannot fail, it
// only emits zero or more events per new snapshot. Not safe for concurrent
// use; the engine serializes all calls.
type Evaluator struct {
	persona string
	states  []TriggerState
	lastSeq uint64
	log     zerolog.Logger
}

// NewEvaluator builds fresh trigger states for a persona's rules, all
// idle. Rules evaluate in declaration order, so emission order is
// deterministic when several fire off the same snapshot.
func NewEvaluator(persona string, ruleSet []rules.Rule) *Evaluator {
	e := &Evaluator{
		persona: persona,
		states:  make([]TriggerState, len(ruleSet)),
		log:     logging.WithComponent("evaluator"),
	}
	for i, r := range ruleSet {
		e.states[i] = TriggerState{Rule: r, Phase: PhaseIdle}
	}
	return e
}

// Persona names the rule set this evaluator runs.
func (e *Evaluator) Persona() string { return e.persona }

// Evaluate advances every rule against the snapshot and returns the events
// fired by it, in rule declaration order. A snapshot already seen (same
// sequence number) produces nothing: the machine reacts to new samples
// only.
func (e *Evaluator) Evaluate(snap window.Snapshot, now time.Time) []dispatch.Event {
	if snap.Seq == e.lastSeq {
		return nil
	}
	e.lastSeq = snap.Seq

	var events []dispatch.Event
	for i := range e.states {
		st := &e.states[i]
		value, ok := snap.Stat(st.Rule.Metric, st.Rule.Stat)
		holds := ok && st.Rule.Comparator.Holds(value, st.Rule.Threshold)
		if !st.Observe(holds, now) {
			continue
		}
		ev := dispatch.NewEvent(e.persona, st.Rule, value, snap, now)
		events = append(events, ev)
		e.log.Info().
			Str("persona", e.persona).
			Str("rule", st.Rule.Label()).
			Float64("value", value).
			Msg("rule fired")
	}
	return events
}

// RuleStatus is the observable slice of one trigger state.
type RuleStatus struct {
	Rule      string         `json:"rule"`
	Action    rules.ActionID `json:"action"`
	Phase     Phase          `json:"phase"`
	LastFired time.Time      `json:"last_fired"`
	Fires     uint64         `json:"fires"`
}

// Statuses copies the per-rule states for observers.
func (e *Evaluator) Statuses() []RuleStatus {
	out := make([]RuleStatus, len(e.states))
	for i, st := range e.states {
		out[i] = RuleStatus{
			Rule:      st.Rule.Label(),
			Action:    st.Rule.Action,
			Phase:     st.Phase,
			LastFired: st.LastFiredAt,
			Fires:     st.Fires,
		}
	}
	return out
}
