package source

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/telemetry"
)

// Scenario names a scripted telemetry profile.
type Scenario string

const (
	ScenarioCalmMorning   Scenario = "calm_morning"
	ScenarioWorkout       Scenario = "workout"
	ScenarioRestlessNight Scenario = "restless_night"
)

// Scenarios lists the available profiles.
func Scenarios() []Scenario {
	return []Scenario{ScenarioCalmMorning, ScenarioWorkout, ScenarioRestlessNight}
}

// ParseScenario resolves a CLI/config name to a scenario.
func ParseScenario(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q", name)
}

// Simulator emits seeded, reproducible telemetry along a scenario curve.
// Same seed, same scenario, same batches.
type Simulator struct {
	scenario Scenario
	interval time.Duration
	rng      *rand.Rand
	ing      Ingester
	log      zerolog.Logger

	stepTotal float64
	lat, lon  float64
}

func NewSimulator(scenario Scenario, interval time.Duration, seed int64, ing Ingester) *Simulator {
	if interval <= 0 {
		interval = time.Second
	}
	return &Simulator{
		scenario: scenario,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		ing:      ingesterOrNop(ing),
		log:      logging.WithComponent("source.simulator"),
		lat:      52.5200,
		lon:      13.4050,
	}
}

type nopIngester struct{}

func (nopIngester) Ingest(telemetry.RawSample) bool { return true }

func ingesterOrNop(ing Ingester) Ingester {
	if ing == nil {
		return nopIngester{}
	}
	return ing
}

func (s *Simulator) Name() string { return "simulator" }

// Run emits one batch per interval until ctx ends.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info().Str("scenario", string(s.scenario)).Dur("interval", s.interval).Msg("simulator started")

	for tick := 0; ; tick++ {
		for _, raw := range s.Batch(tick, time.Now()) {
			s.ing.Ingest(raw)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Batch produces the samples for one tick. Exposed so tests and the
// simulate command can drive virtual time themselves.
func (s *Simulator) Batch(tick int, at time.Time) []telemetry.RawSample {
	var out []telemetry.RawSample
	add := func(kind telemetry.MetricKind, values ...float64) {
		out = append(out, telemetry.RawSample{Kind: kind, Values: values, ObservedAt: at})
	}

	switch s.scenario {
	case ScenarioWorkout:
		ramp := math.Min(float64(tick), 120)
		add(telemetry.KindHeartRate, 75+ramp*0.7+s.noise(3))
		add(telemetry.KindMotion, 6+s.noise(2), 5+s.noise(2), 9+s.noise(3))
		s.stepTotal += 90 + s.rng.Float64()*30
		add(telemetry.KindSteps, math.Floor(s.stepTotal))
		add(telemetry.KindLight, 5000+s.noise(500))
		s.lon += 0.00012
		add(telemetry.KindGeolocation, s.lat, s.lon)
		if tick%20 == 0 {
			add(telemetry.KindMoodEnergy, 72+s.noise(6))
		}
		if tick%30 == 0 {
			add(telemetry.KindBattery, math.Max(5, 90-float64(tick)*0.05))
		}

	case ScenarioRestlessNight:
		if tick == 0 {
			add(telemetry.KindSleep, 4.2)
		}
		add(telemetry.KindHeartRate, 64+s.noise(6))
		add(telemetry.KindLight, math.Max(0, 1+s.noise(1)))
		add(telemetry.KindProximity, math.Max(0, 0.3+s.noise(0.2)))
		add(telemetry.KindMotion, s.noise(0.8), s.noise(0.8), 9.8+s.noise(0.5))
		if tick%5 == 0 {
			add(telemetry.KindOrientation, 20+s.noise(15), s.noise(10))
		}
		if tick%20 == 0 {
			add(telemetry.KindMoodStress, 55+s.noise(10))
		}

	default: // calm morning
		if tick == 0 {
			add(telemetry.KindSleep, 7.8)
		}
		add(telemetry.KindHeartRate, 62+4*math.Sin(float64(tick)/30)+s.noise(2))
		add(telemetry.KindMotion, s.noise(0.3), s.noise(0.3), 9.8+s.noise(0.2))
		s.stepTotal += 5 + s.rng.Float64()*7
		add(telemetry.KindSteps, math.Floor(s.stepTotal))
		add(telemetry.KindLight, math.Min(1000, 80+float64(tick)*2)+s.noise(10))
		if tick%15 == 0 {
			s.lon += 0.00005
			add(telemetry.KindGeolocation, s.lat, s.lon)
		}
		if tick%20 == 0 {
			add(telemetry.KindMoodStress, 20+s.noise(4))
			add(telemetry.KindMoodHappiness, 70+s.noise(5))
		}
		if tick%30 == 0 {
			add(telemetry.KindBattery, math.Max(5, 95-float64(tick)*0.01))
			add(telemetry.KindNetwork, 80+s.noise(10))
		}
	}
	return out
}

// noise is a uniform jitter in [-amp, amp].
func (s *Simulator) noise(amp float64) float64 {
	return (s.rng.Float64()*2 - 1) * amp
}
