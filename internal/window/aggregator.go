package window

import (
	"math"
	"time"

	"github.com/solacehub/solace-sense/internal/telemetry"
)

// Per-kind window capacities, sized for the cadence of each producer:
// motion arrives at up to 10 Hz, heart rate keeps exactly the ten readings
// variance_10 needs, sleep holds two weeks of nightly records.
var windowCapacity = [telemetry.KindCount]int{
	telemetry.KindMotion:        100,
	telemetry.KindOrientation:   50,
	telemetry.KindProximity:     20,
	telemetry.KindLight:         50,
	telemetry.KindBattery:       20,
	telemetry.KindNetwork:       20,
	telemetry.KindGeolocation:   50,
	telemetry.KindHeartRate:     10,
	telemetry.KindSteps:         60,
	telemetry.KindSleep:         14,
	telemetry.KindMoodEnergy:    30,
	telemetry.KindMoodStress:    30,
	telemetry.KindMoodHappiness: 30,
	telemetry.KindBiometrics:    30,
}

const (
	// varianceSpan is the number of samples behind variance_10.
	varianceSpan = 10
	// activityDays is the number of closed daily step totals behind
	// regularity_7.
	activityDays = 7
)

// MetricState is one metric's slice of a snapshot: the canonical current
// value plus every derived statistic, recomputed together on ingest.
type MetricState struct {
	Current     float64   `json:"current"`
	Magnitude   float64   `json:"magnitude"`
	Seen        bool      `json:"seen"`
	UpdatedAt   time.Time `json:"updated_at"`
	Variance10  Stat      `json:"variance_10"`
	Rate        Stat      `json:"rate"`
	Regularity7 Stat      `json:"regularity_7"`
}

// Snapshot is the complete canonical metric state at one ingestion
// instant. The Aggregator owns the live copy; everyone else receives
// value copies and cannot mutate windows through them.
type Snapshot struct {
	Seq     uint64                           `json:"seq"`
	Kind    telemetry.MetricKind             `json:"kind"`
	TakenAt time.Time                        `json:"taken_at"`
	Metrics [telemetry.KindCount]MetricState `json:"metrics"`
}

// Stat reads one facet of one metric. ok=false means the metric has not
// been observed yet or the statistic lacks samples.
func (s *Snapshot) Stat(kind telemetry.MetricKind, stat StatKind) (float64, bool) {
	if !kind.Valid() {
		return 0, false
	}
	m := s.Metrics[kind]
	switch stat {
	case StatCurrent:
		return m.Current, m.Seen
	case StatMagnitude:
		return m.Magnitude, m.Seen
	case StatVariance10:
		return m.Variance10.Value, m.Variance10.OK
	case StatRate:
		return m.Rate.Value, m.Rate.OK
	case StatRegularity7:
		return m.Regularity7.Value, m.Regularity7.OK
	}
	return 0, false
}

// MetricsByName keys the per-metric states by wire name for JSON views.
func (s *Snapshot) MetricsByName() map[string]MetricState {
	out := make(map[string]MetricState, telemetry.KindCount)
	for k := telemetry.MetricKind(0); k < telemetry.KindCount; k++ {
		if s.Metrics[k].Seen || s.Metrics[k].Regularity7.OK {
			out[k.String()] = s.Metrics[k]
		}
	}
	return out
}

// Aggregator owns every MetricWindow plus the activity-day history. Not
// safe for concurrent use; the engine serializes all access.
type Aggregator struct {
	windows  [telemetry.KindCount]*Ring
	activity *Ring
	snapshot Snapshot
}

func NewAggregator() *Aggregator {
	a := &Aggregator{activity: NewRing(activityDays)}
	for k := range a.windows {
		a.windows[k] = NewRing(windowCapacity[k])
	}
	return a
}

// Ingest appends a canonical sample to its metric's window, evicting the
// oldest entry on overflow, and returns the freshly recomputed snapshot.
func (a *Aggregator) Ingest(s telemetry.Sample) Snapshot {
	w := a.windows[s.Kind]
	w.Push(Entry{Value: s.Value, At: s.ObservedAt})

	m := &a.snapshot.Metrics[s.Kind]
	m.Current = s.Value
	m.Magnitude = math.Abs(s.Value)
	m.Seen = true
	m.UpdatedAt = s.ObservedAt
	m.Variance10 = varianceOver(w, varianceSpan)
	m.Rate = rateOf(w)

	a.snapshot.Seq++
	a.snapshot.Kind = s.Kind
	a.snapshot.TakenAt = s.ObservedAt
	return a.snapshot
}

// CloseActivityDay records a finished day's step total and refreshes
// regularity_7. Called by the day-boundary job, never by sample ingestion.
func (a *Aggregator) CloseActivityDay(total float64, at time.Time) Snapshot {
	a.activity.Push(Entry{Value: total, At: at})
	a.snapshot.Metrics[telemetry.KindSteps].Regularity7 = regularityOf(a.activity)
	a.snapshot.Seq++
	a.snapshot.Kind = telemetry.KindSteps
	a.snapshot.TakenAt = at
	return a.snapshot
}

// Snapshot returns a copy of the latest snapshot without ingesting.
func (a *Aggregator) Snapshot() Snapshot {
	return a.snapshot
}

// Window exposes a metric's ring for inspection.
func (a *Aggregator) Window(kind telemetry.MetricKind) *Ring {
	return a.windows[kind]
}

// ActivityDays reports how many closed daily totals are held.
func (a *Aggregator) ActivityDays() int {
	return a.activity.Len()
}
