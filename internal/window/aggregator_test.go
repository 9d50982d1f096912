package window

import (
	"math"
	"testing"
	"time"

	"github.com/solacehub/solace-sense/internal/telemetry"
)

func sampleAt(kind telemetry.MetricKind, value float64, at time.Time) telemetry.Sample {
	return telemetry.Sample{Kind: kind, Value: value, ObservedAt: at}
}

func TestWindowBoundedness(t *testing.T) {
	a := NewAggregator()
	base := time.Now()

	// Heart rate capacity is 10; push 17 and expect the newest 10.
	for i := 1; i <= 17; i++ {
		a.Ingest(sampleAt(telemetry.KindHeartRate, float64(i), base.Add(time.Duration(i)*time.Second)))
	}

	w := a.Window(telemetry.KindHeartRate)
	if w.Len() != w.Cap() {
		t.Fatalf("window len = %d, want cap %d", w.Len(), w.Cap())
	}
	got := w.Values()
	for i := 0; i < 10; i++ {
		want := float64(8 + i)
		if got[i] != want {
			t.Errorf("window[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestVarianceNeedsTenSamples(t *testing.T) {
	a := NewAggregator()
	base := time.Now()

	var snap Snapshot
	for i := 0; i < 9; i++ {
		snap = a.Ingest(sampleAt(telemetry.KindHeartRate, 60, base.Add(time.Duration(i)*time.Second)))
	}
	if snap.Metrics[telemetry.KindHeartRate].Variance10.OK {
		t.Error("variance_10 reported ok with 9 samples")
	}
	if _, ok := snap.Stat(telemetry.KindHeartRate, StatVariance10); ok {
		t.Error("Stat() reported ok with 9 samples")
	}

	snap = a.Ingest(sampleAt(telemetry.KindHeartRate, 60, base.Add(9*time.Second)))
	v := snap.Metrics[telemetry.KindHeartRate].Variance10
	if !v.OK || v.Value != 0 {
		t.Errorf("variance of ten steady readings = %v/%v, want 0/true", v.Value, v.OK)
	}

	snap = a.Ingest(sampleAt(telemetry.KindHeartRate, 120, base.Add(10*time.Second)))
	v = snap.Metrics[telemetry.KindHeartRate].Variance10
	if !v.OK || v.Value <= 0 {
		t.Errorf("variance after spike = %v/%v, want >0/true", v.Value, v.OK)
	}
}

func TestRateOfChange(t *testing.T) {
	a := NewAggregator()
	base := time.Now()

	snap := a.Ingest(sampleAt(telemetry.KindLight, 100, base))
	if snap.Metrics[telemetry.KindLight].Rate.OK {
		t.Error("rate reported ok with a single sample")
	}

	snap = a.Ingest(sampleAt(telemetry.KindLight, 160, base.Add(2*time.Second)))
	r := snap.Metrics[telemetry.KindLight].Rate
	if !r.OK || r.Value != 30 {
		t.Errorf("rate = %v/%v, want 30/true", r.Value, r.OK)
	}

	// A duplicate timestamp cannot produce a rate.
	snap = a.Ingest(sampleAt(telemetry.KindLight, 200, base.Add(2*time.Second)))
	if snap.Metrics[telemetry.KindLight].Rate.OK {
		t.Error("rate reported ok across a zero time delta")
	}
}

func TestRegularityNeedsSevenDays(t *testing.T) {
	a := NewAggregator()
	base := time.Now()

	var snap Snapshot
	for day := 0; day < 6; day++ {
		snap = a.CloseActivityDay(8000, base.AddDate(0, 0, day))
	}
	if snap.Metrics[telemetry.KindSteps].Regularity7.OK {
		t.Error("regularity_7 reported ok with 6 closed days")
	}

	snap = a.CloseActivityDay(8000, base.AddDate(0, 0, 6))
	reg := snap.Metrics[telemetry.KindSteps].Regularity7
	if !reg.OK {
		t.Fatal("regularity_7 not ok with 7 closed days")
	}
	if math.Abs(reg.Value-1) > 1e-9 {
		t.Errorf("uniform week regularity = %v, want 1", reg.Value)
	}

	// An erratic week scores lower.
	for day, total := range []float64{200, 16000, 50, 12000, 300, 9000, 100} {
		snap = a.CloseActivityDay(total, base.AddDate(0, 0, 7+day))
	}
	erratic := snap.Metrics[telemetry.KindSteps].Regularity7
	if !erratic.OK || erratic.Value >= reg.Value {
		t.Errorf("erratic week regularity = %v, want below %v", erratic.Value, reg.Value)
	}
}

func TestSnapshotIsValueCopy(t *testing.T) {
	a := NewAggregator()
	snap := a.Ingest(sampleAt(telemetry.KindBattery, 80, time.Now()))

	snap.Metrics[telemetry.KindBattery].Current = 5
	if got := a.Snapshot().Metrics[telemetry.KindBattery].Current; got != 80 {
		t.Errorf("aggregator state mutated through a snapshot copy: %v", got)
	}
}

func TestSnapshotSequencing(t *testing.T) {
	a := NewAggregator()
	base := time.Now()

	s1 := a.Ingest(sampleAt(telemetry.KindMoodEnergy, 40, base))
	s2 := a.Ingest(sampleAt(telemetry.KindMoodStress, 70, base.Add(time.Second)))
	if s2.Seq != s1.Seq+1 {
		t.Errorf("seq advanced %d -> %d, want +1", s1.Seq, s2.Seq)
	}
	if s2.Kind != telemetry.KindMoodStress {
		t.Errorf("snapshot kind = %v, want mood_stress", s2.Kind)
	}

	// The earlier metric's state is retained in the newer snapshot.
	if v, ok := s2.Stat(telemetry.KindMoodEnergy, StatCurrent); !ok || v != 40 {
		t.Errorf("mood_energy in later snapshot = %v/%v, want 40/true", v, ok)
	}

	byName := s2.MetricsByName()
	if _, ok := byName["mood_stress"]; !ok {
		t.Error("MetricsByName missing mood_stress")
	}
	if _, ok := byName["heart_rate"]; ok {
		t.Error("MetricsByName includes a never-seen metric")
	}
}
