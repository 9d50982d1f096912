package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/logging"
)

const defaultDeliveryTimeout = 5 * time.Second

// Dispatcher drains the event queue with a single worker, so the deliveries
// for one firing always finish before the next firing's begin. Fan-out to
// collaborators within one event runs in parallel; one slow or failing
// collaborator never blocks the others.
type Dispatcher struct {
	collaborators []Collaborator
	queue         chan Event
	timeout       time.Duration
	onResult      func(Result)
	log           zerolog.Logger

	dropped atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher builds a dispatcher over the given collaborators. onResult,
// when non-nil, runs on the worker goroutine after each event's outcomes
// are collected; journaling and metrics hang off it.
func NewDispatcher(collaborators []Collaborator, queueSize int, onResult func(Result)) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		collaborators: collaborators,
		queue:         make(chan Event, queueSize),
		timeout:       defaultDeliveryTimeout,
		onResult:      onResult,
		log:           logging.WithComponent("dispatch"),
	}
}

// Start brings up the enabled collaborators and launches the worker.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)
	for _, c := range d.collaborators {
		if !c.IsEnabled() {
			continue
		}
		if err := c.Start(d.ctx); err != nil {
			d.log.Warn().Err(err).Str("collaborator", c.Name()).Msg("collaborator failed to start")
		}
	}
	d.wg.Add(1)
	go d.run()
	return nil
}

// Stop drains nothing: the current event finishes, queued events are
// dropped, collaborators shut down.
func (d *Dispatcher) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	for _, c := range d.collaborators {
		if !c.IsEnabled() {
			continue
		}
		if err := c.Stop(); err != nil {
			d.log.Warn().Err(err).Str("collaborator", c.Name()).Msg("collaborator failed to stop")
		}
	}
	return nil
}

// Enqueue hands an event to the worker without blocking. A full queue
// drops the event; the firing still counts for cooldown purposes.
func (d *Dispatcher) Enqueue(e Event) bool {
	select {
	case d.queue <- e:
		return true
	default:
		d.dropped.Add(1)
		d.log.Error().Str("event_id", e.ID).Str("action", string(e.Action)).Msg("dispatch queue full, event dropped")
		return false
	}
}

// Pending reports how many events await dispatch.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Dropped reports how many events were lost to a full queue.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Collaborators lists the enabled collaborator names.
func (d *Dispatcher) Collaborators() []string {
	names := make([]string, 0, len(d.collaborators))
	for _, c := range d.collaborators {
		if c.IsEnabled() {
			names = append(names, c.Name())
		}
	}
	return names
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-d.queue:
			res := d.deliver(e)
			if d.onResult != nil {
				d.onResult(res)
			}
		}
	}
}

// deliver fans one event out to every enabled collaborator and waits for
// all outcomes.
func (d *Dispatcher) deliver(e Event) Result {
	var active []Collaborator
	for _, c := range d.collaborators {
		if c.IsEnabled() {
			active = append(active, c)
		}
	}

	outcomes := make([]Outcome, len(active))
	var wg sync.WaitGroup
	for i, c := range active {
		wg.Add(1)
		go func(i int, c Collaborator) {
			defer wg.Done()
			start := time.Now()
			ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
			defer cancel()

			err := c.Deliver(ctx, e)
			o := Outcome{Collaborator: c.Name(), Elapsed: time.Since(start)}
			if err != nil {
				o.Status = StatusFailed
				o.Error = err.Error()
				d.log.Warn().Err(err).
					Str("collaborator", c.Name()).
					Str("event_id", e.ID).
					Str("action", string(e.Action)).
					Msg("delivery failed")
			} else {
				o.Status = StatusDelivered
			}
			outcomes[i] = o
		}(i, c)
	}
	wg.Wait()

	d.log.Info().
		Str("event_id", e.ID).
		Str("action", string(e.Action)).
		Str("persona", e.Persona).
		Str("rule", e.Rule).
		Int("collaborators", len(outcomes)).
		Int("failures", Result{Outcomes: outcomes}.Failures()).
		Msg("event dispatched")

	return Result{Event: e, Outcomes: outcomes}
}
