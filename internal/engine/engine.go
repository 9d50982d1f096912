// Package engine hosts the trigger pipeline: samples enter a bounded
// queue, a single run loop normalizes and aggregates them, the active
// persona's evaluator advances its trigger states, and fired events are
// handed to the dispatch sink. The loop is the only writer to the windows
// and trigger states, which gives the exactly-once-per-cooldown guarantee
// its required total ordering of snapshots.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/metrics"
	"github.com/solacehub/solace-sense/internal/rules"
	"github.com/solacehub/solace-sense/internal/telemetry"
	"github.com/solacehub/solace-sense/internal/window"
)

const defaultQueueSize = 256

// Sink receives fired events. *dispatch.Dispatcher satisfies it; its
// Enqueue never blocks, so evaluation never waits on delivery I/O.
type Sink interface {
	Enqueue(dispatch.Event) bool
}

// Engine owns the ingestion pipeline end to end.
type Engine struct {
	registry *rules.Registry
	sink     Sink
	norm     *telemetry.Normalizer
	agg      *window.Aggregator
	log      zerolog.Logger

	mu        sync.RWMutex
	evaluator *Evaluator

	samples chan telemetry.RawSample
	evicted atomic.Uint64
	fired   atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires an engine over a rule registry and an event sink, activating
// the given persona. queueSize <= 0 selects the default ingest queue
// capacity.
func New(registry *rules.Registry, sink Sink, persona string, queueSize int) (*Engine, error) {
	ruleSet, err := registry.RulesFor(persona)
	if err != nil {
		return nil, err
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	e := &Engine{
		registry:  registry,
		sink:      sink,
		norm:      telemetry.NewNormalizer(),
		agg:       window.NewAggregator(),
		log:       logging.WithComponent("engine"),
		evaluator: NewEvaluator(persona, ruleSet),
		samples:   make(chan telemetry.RawSample, queueSize),
	}
	metrics.SetActivePersona("", persona)
	return e, nil
}

// Start launches the run loop.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.run()
	e.log.Info().Str("persona", e.Persona()).Int("queue", cap(e.samples)).Msg("engine started")
	return nil
}

// Stop halts the run loop. Queued samples are discarded.
func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	return nil
}

// Ingest hands a raw sample to the pipeline without blocking. When the
// queue is full the oldest queued sample is evicted so the freshest data
// wins; evictions are counted, never surfaced as errors.
func (e *Engine) Ingest(raw telemetry.RawSample) bool {
	select {
	case e.samples <- raw:
		return true
	default:
	}
	select {
	case <-e.samples:
		e.evicted.Add(1)
		metrics.QueueEvictions.Inc()
	default:
	}
	select {
	case e.samples <- raw:
		return true
	default:
		e.evicted.Add(1)
		metrics.QueueEvictions.Inc()
		return false
	}
}

// SwitchPersona atomically installs the named persona's rule set with all
// trigger states reset to idle. Nothing from the previous set can fire
// after the switch returns; samples already queued evaluate under the new
// rules. Switching to the active persona resets its states.
func (e *Engine) SwitchPersona(name string) error {
	ruleSet, err := e.registry.RulesFor(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	previous := e.evaluator.Persona()
	e.evaluator = NewEvaluator(name, ruleSet)
	e.mu.Unlock()

	metrics.SetActivePersona(previous, name)
	e.log.Info().Str("from", previous).Str("to", name).Int("rules", len(ruleSet)).Msg("persona switched")
	return nil
}

// Persona names the active rule set.
func (e *Engine) Persona() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.evaluator.Persona()
}

// CloseActivityDay folds the day's final step total into the activity
// history behind regularity_7 and evaluates the resulting snapshot.
// Called by the day-boundary job. A day without a single step sample is
// skipped rather than recorded as zero.
func (e *Engine) CloseActivityDay(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.agg.Snapshot()
	steps := current.Metrics[telemetry.KindSteps]
	if !steps.Seen {
		return
	}
	snap := e.agg.CloseActivityDay(steps.Current, at)
	e.log.Info().Float64("total", steps.Current).Int("days", e.agg.ActivityDays()).Msg("activity day closed")
	e.emitLocked(snap, at)
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case raw := <-e.samples:
			e.process(raw)
			metrics.IngestQueueDepth.Set(float64(len(e.samples)))
		}
	}
}

// process runs one sample through normalize, aggregate, evaluate, enqueue.
// The whole step holds the engine lock, so a persona switch can never
// interleave with a half-evaluated snapshot, and Status always sees
// matching counters and windows.
func (e *Engine) process(raw telemetry.RawSample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sample, err := e.norm.Normalize(raw)
	if err != nil {
		var inv *telemetry.InvalidSampleError
		if errors.As(err, &inv) {
			metrics.SamplesDropped.WithLabelValues(inv.Reason).Inc()
		} else {
			metrics.SamplesDropped.WithLabelValues("other").Inc()
		}
		e.log.Debug().Err(err).Msg("sample dropped")
		return
	}
	metrics.SamplesIngested.WithLabelValues(sample.Kind.String()).Inc()

	snap := e.agg.Ingest(sample)
	e.emitLocked(snap, sample.ObservedAt)
}

// emitLocked evaluates a fresh snapshot and enqueues whatever fires.
// Caller holds e.mu. Cooldowns advance on sample time, not wall time, so
// replayed and simulated streams behave exactly like live ones.
func (e *Engine) emitLocked(snap window.Snapshot, at time.Time) {
	for _, ev := range e.evaluator.Evaluate(snap, at) {
		e.fired.Add(1)
		metrics.EventsFired.WithLabelValues(ev.Persona, string(ev.Action)).Inc()
		e.sink.Enqueue(ev)
	}
}

// Status is a read-only view of the pipeline for the HTTP server and CLI.
type Status struct {
	Persona         string                        `json:"persona"`
	Rules           []RuleStatus                  `json:"rules"`
	Metrics         map[string]window.MetricState `json:"metrics"`
	Seq             uint64                        `json:"seq"`
	LastSampleAt    time.Time                     `json:"last_sample_at"`
	SamplesAccepted uint64                        `json:"samples_accepted"`
	SamplesDropped  uint64                        `json:"samples_dropped"`
	QueueDepth      int                           `json:"queue_depth"`
	QueueEvicted    uint64                        `json:"queue_evicted"`
	EventsFired     uint64                        `json:"events_fired"`
	ActivityDays    int                           `json:"activity_days"`
}

// Status snapshots the engine's observable state.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := e.agg.Snapshot()
	return Status{
		Persona:         e.evaluator.Persona(),
		Rules:           e.evaluator.Statuses(),
		Metrics:         snap.MetricsByName(),
		Seq:             snap.Seq,
		LastSampleAt:    snap.TakenAt,
		SamplesAccepted: e.norm.Accepted(),
		SamplesDropped:  e.norm.Dropped(),
		QueueDepth:      len(e.samples),
		QueueEvicted:    e.evicted.Load(),
		EventsFired:     e.fired.Load(),
		ActivityDays:    e.agg.ActivityDays(),
	}
}

// Personas lists the rule sets the registry can activate.
func (e *Engine) Personas() []string {
	return e.registry.Personas()
}
