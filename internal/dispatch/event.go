// Package dispatch fans persona-action events out to the external
// collaborators. The evaluator enqueues and returns immediately; a single
// worker drains the queue, delivers each event to every enabled
// collaborator, and reports the aggregated outcome. Delivery is
// fire-and-forget: failures are logged and counted, never retried.
package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/solacehub/solace-sense/internal/rules"
	"github.com/solacehub/solace-sense/internal/telemetry"
	"github.com/solacehub/solace-sense/internal/window"
)

// Event is one persona action, emitted once per rule firing.
type Event struct {
	ID        string               `json:"id"`
	Action    rules.ActionID       `json:"action"`
	Priority  rules.Priority       `json:"priority"`
	Persona   string               `json:"persona"`
	Metric    telemetry.MetricKind `json:"metric"`
	Rule      string               `json:"rule"`
	Value     float64              `json:"value"`
	Threshold float64              `json:"threshold"`
	Snapshot  window.Snapshot      `json:"snapshot"`
	FiredAt   time.Time            `json:"fired_at"`
}

// NewEvent stamps a fired rule into an immutable event.
func NewEvent(persona string, rule rules.Rule, value float64, snap window.Snapshot, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Action:    rule.Action,
		Priority:  rule.Action.Priority(),
		Persona:   persona,
		Metric:    rule.Metric,
		Rule:      rule.Label(),
		Value:     value,
		Threshold: rule.Threshold,
		Snapshot:  snap,
		FiredAt:   at,
	}
}

// Status is the delivery result for one collaborator.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Outcome records one collaborator's handling of one event.
type Outcome struct {
	Collaborator string        `json:"collaborator"`
	Status       Status        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Result aggregates the per-collaborator outcomes for one event.
type Result struct {
	Event    Event     `json:"event"`
	Outcomes []Outcome `json:"outcomes"`
}

// Failures counts collaborators that did not accept the event.
func (r Result) Failures() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status != StatusDelivered {
			n++
		}
	}
	return n
}
