// Package rules holds the declarative persona rule tables: which metric
// facet each persona watches, the comparator and threshold, and the action
// fired when the condition holds. Rules are data, not code; personas never
// get their own code paths.
package rules

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/solacehub/solace-sense/internal/telemetry"
	"github.com/solacehub/solace-sense/internal/window"
)

// Comparator relates a metric facet to a rule threshold.
type Comparator string

const (
	Above Comparator = ">"
	Below Comparator = "<"
	Near  Comparator = "~"
)

// Near tolerance: within 2% of the threshold, or half a canonical unit
// for thresholds close to zero.
const (
	nearRelTol = 0.02
	nearAbsTol = 0.5
)

// Holds reports whether value satisfies the comparator against threshold.
func (c Comparator) Holds(value, threshold float64) bool {
	switch c {
	case Above:
		return value > threshold
	case Below:
		return value < threshold
	case Near:
		tol := math.Max(nearRelTol*math.Abs(threshold), nearAbsTol)
		return math.Abs(value-threshold) <= tol
	}
	return false
}

// ParseComparator accepts the config spellings of the three comparators.
func ParseComparator(s string) (Comparator, error) {
	switch strings.TrimSpace(s) {
	case ">", "above":
		return Above, nil
	case "<", "below":
		return Below, nil
	case "~", "≈", "near":
		return Near, nil
	}
	return "", fmt.Errorf("unknown comparator %q", s)
}

// ActionID names a persona action understood by the collaborators.
type ActionID string

const (
	ActionConcernedCare  ActionID = "concerned_care"
	ActionMotivation     ActionID = "motivation"
	ActionCalmPresence   ActionID = "calm_presence"
	ActionCelebrate      ActionID = "celebrate"
	ActionRestReminder   ActionID = "rest_reminder"
	ActionCheckIn        ActionID = "check_in"
	ActionGentleAlert    ActionID = "gentle_alert"
	ActionEnergize       ActionID = "energize"
	ActionWindDown       ActionID = "wind_down"
	ActionProximityGreet ActionID = "proximity_greet"
)

// Priority classes an action for downstream routing: the redis stream an
// event lands on and the urgency of the user-facing notification.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

var actionPriorities = map[ActionID]Priority{
	ActionConcernedCare:  PriorityCritical,
	ActionGentleAlert:    PriorityHigh,
	ActionCalmPresence:   PriorityHigh,
	ActionCheckIn:        PriorityNormal,
	ActionRestReminder:   PriorityNormal,
	ActionMotivation:     PriorityNormal,
	ActionEnergize:       PriorityNormal,
	ActionWindDown:       PriorityLow,
	ActionCelebrate:      PriorityLow,
	ActionProximityGreet: PriorityLow,
}

// Priority returns the routing class for the action, defaulting to normal
// for actions introduced via config.
func (a ActionID) Priority() Priority {
	if p, ok := actionPriorities[a]; ok {
		return p
	}
	return PriorityNormal
}

// Rule is one declarative condition-action binding. Rules are immutable
// once loaded; per-rule runtime state lives in the engine, not here.
type Rule struct {
	Metric     telemetry.MetricKind
	Stat       window.StatKind
	Comparator Comparator
	Threshold  float64
	Action     ActionID
	Cooldown   time.Duration
}

// Label names the rule for logs and journal rows.
func (r Rule) Label() string {
	ref := r.Metric.String()
	if r.Stat != window.StatCurrent {
		ref += "." + r.Stat.String()
	}
	return fmt.Sprintf("%s%s%g→%s", ref, r.Comparator, r.Threshold, r.Action)
}

// Validate rejects rules that could never fire or would misbehave.
func (r Rule) Validate() error {
	if !r.Metric.Valid() {
		return fmt.Errorf("rule %s: invalid metric", r.Label())
	}
	switch r.Comparator {
	case Above, Below, Near:
	default:
		return fmt.Errorf("rule %s: invalid comparator %q", r.Label(), string(r.Comparator))
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return fmt.Errorf("rule %s: threshold must be finite", r.Label())
	}
	if r.Action == "" {
		return fmt.Errorf("rule %s: action is required", r.Label())
	}
	if r.Cooldown <= 0 {
		return fmt.Errorf("rule %s: cooldown must be positive", r.Label())
	}
	return nil
}

// ParseMetricRef resolves a config reference like "heart_rate" or
// "heart_rate.variance_10" into a metric kind and statistic.
func ParseMetricRef(ref string) (telemetry.MetricKind, window.StatKind, error) {
	name, statName, hasStat := strings.Cut(ref, ".")
	kind, err := telemetry.ParseKind(name)
	if err != nil {
		return kind, window.StatCurrent, err
	}
	if !hasStat {
		return kind, window.StatCurrent, nil
	}
	stat, err := window.ParseStat(statName)
	if err != nil {
		return kind, window.StatCurrent, err
	}
	return kind, stat, nil
}
