package telemetry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSample marks readings the normalizer refuses to ingest.
var ErrInvalidSample = errors.New("invalid sample")

// Drop reasons, used as counter labels and carried by InvalidSampleError.
const (
	DropUnknownKind = "unknown_kind"
	DropTimestamp   = "timestamp"
	DropArity       = "arity"
	DropNonFinite   = "nonfinite"
	DropImplausible = "implausible"
)

// InvalidSampleError reports why a raw sample was dropped. It matches
// ErrInvalidSample under errors.Is.
type InvalidSampleError struct {
	Reason string
	Detail string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid sample (%s): %s", e.Reason, e.Detail)
}

func (e *InvalidSampleError) Is(target error) bool { return target == ErrInvalidSample }

func invalid(reason, format string, args ...interface{}) error {
	return &InvalidSampleError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// valueRange describes the canonical range for one kind. Values inside the
// plausible bounds are clamped into the canonical range; values outside are
// producer bugs and dropped.
type valueRange struct {
	clampLo, clampHi float64
	plausLo, plausHi float64
}

// Canonical units per kind: motion = acceleration magnitude in m/s²,
// orientation = tilt angle in degrees (max of |pitch| and |roll|),
// proximity = distance in cm, light = lux, battery = percent, network =
// link quality score 0-100, geolocation = displacement in meters since the
// previous fix, heart_rate = BPM, steps = cumulative count for the current
// day, sleep = hours, mood sliders and biometrics = score 0-100.
var scalarRanges = map[MetricKind]valueRange{
	KindProximity:     {0, 10, 0, 1000},
	KindLight:         {0, 120000, 0, 500000},
	KindBattery:       {0, 100, 0, 100},
	KindNetwork:       {0, 100, 0, 1000},
	KindHeartRate:     {30, 220, 0, 400},
	KindSteps:         {0, 200000, 0, 1000000},
	KindSleep:         {0, 16, 0, 48},
	KindMoodEnergy:    {0, 100, -50, 150},
	KindMoodStress:    {0, 100, -50, 150},
	KindMoodHappiness: {0, 100, -50, 150},
	KindBiometrics:    {0, 100, -50, 150},
}

const (
	motionClampMax = 80.0
	motionPlausMax = 1000.0
	anglePlausMax  = 360.0
	tiltClampMax   = 180.0
	displaceMax    = 50000.0
	earthRadiusM   = 6371000.0
)

// Normalizer converts producer-unit readings into canonical samples. It
// remembers the previous geolocation fix so position reports become
// displacement values. Not safe for concurrent use; the engine run loop is
// its only caller.
type Normalizer struct {
	lastLat float64
	lastLon float64
	hasFix  bool

	accepted uint64
	dropped  uint64
}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts a raw reading into a canonical sample, or returns an
// InvalidSampleError and bumps the drop counter. Dropped samples never
// partially ingest.
func (n *Normalizer) Normalize(raw RawSample) (Sample, error) {
	value, err := n.convert(raw)
	if err != nil {
		n.dropped++
		return Sample{}, err
	}
	n.accepted++
	return Sample{Kind: raw.Kind, Value: value, ObservedAt: raw.ObservedAt}, nil
}

// Accepted returns how many samples normalized successfully.
func (n *Normalizer) Accepted() uint64 { return n.accepted }

// Dropped returns how many samples were rejected.
func (n *Normalizer) Dropped() uint64 { return n.dropped }

func (n *Normalizer) convert(raw RawSample) (float64, error) {
	if !raw.Kind.Valid() {
		return 0, invalid(DropUnknownKind, "kind %d", int(raw.Kind))
	}
	if raw.ObservedAt.IsZero() {
		return 0, invalid(DropTimestamp, "%s sample without timestamp", raw.Kind)
	}
	if len(raw.Values) == 0 {
		return 0, invalid(DropArity, "%s sample without values", raw.Kind)
	}
	for _, v := range raw.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, invalid(DropNonFinite, "%s value %v", raw.Kind, v)
		}
	}

	switch raw.Kind {
	case KindMotion:
		if len(raw.Values) != 3 {
			return 0, invalid(DropArity, "motion needs 3 axes, got %d", len(raw.Values))
		}
		x, y, z := raw.Values[0], raw.Values[1], raw.Values[2]
		norm := math.Sqrt(x*x + y*y + z*z)
		if norm > motionPlausMax {
			return 0, invalid(DropImplausible, "motion magnitude %.1f m/s²", norm)
		}
		return clamp(norm, 0, motionClampMax), nil

	case KindOrientation:
		if len(raw.Values) < 2 || len(raw.Values) > 3 {
			return 0, invalid(DropArity, "orientation needs pitch and roll, got %d values", len(raw.Values))
		}
		pitch, roll := raw.Values[0], raw.Values[1]
		if math.Abs(pitch) > anglePlausMax || math.Abs(roll) > anglePlausMax {
			return 0, invalid(DropImplausible, "orientation angles %.1f/%.1f°", pitch, roll)
		}
		tilt := math.Max(math.Abs(pitch), math.Abs(roll))
		return clamp(tilt, 0, tiltClampMax), nil

	case KindGeolocation:
		if len(raw.Values) != 2 {
			return 0, invalid(DropArity, "geolocation needs lat/lon, got %d values", len(raw.Values))
		}
		lat, lon := raw.Values[0], raw.Values[1]
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return 0, invalid(DropImplausible, "coordinates %.4f,%.4f", lat, lon)
		}
		var displaced float64
		if n.hasFix {
			displaced = haversineMeters(n.lastLat, n.lastLon, lat, lon)
		}
		n.lastLat, n.lastLon, n.hasFix = lat, lon, true
		return clamp(displaced, 0, displaceMax), nil

	case KindBattery:
		if len(raw.Values) != 1 {
			return 0, invalid(DropArity, "battery needs 1 value, got %d", len(raw.Values))
		}
		// Browser-style producers report a 0..1 fraction, native ones a percent.
		v := raw.Values[0]
		if v >= 0 && v <= 1 {
			v *= 100
		}
		r := scalarRanges[KindBattery]
		if v < r.plausLo || v > r.plausHi {
			return 0, invalid(DropImplausible, "battery %.1f%%", v)
		}
		return clamp(v, r.clampLo, r.clampHi), nil

	default:
		if len(raw.Values) != 1 {
			return 0, invalid(DropArity, "%s needs 1 value, got %d", raw.Kind, len(raw.Values))
		}
		v := raw.Values[0]
		r := scalarRanges[raw.Kind]
		if v < r.plausLo || v > r.plausHi {
			return 0, invalid(DropImplausible, "%s value %.2f outside [%g, %g]", raw.Kind, v, r.plausLo, r.plausHi)
		}
		return clamp(v, r.clampLo, r.clampHi), nil
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// haversineMeters returns the great-circle distance between two fixes.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
