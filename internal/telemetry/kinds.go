// Package telemetry defines the canonical metric model for solace-sense:
// the closed set of metric kinds, raw and canonical sample types, and the
// normalizer that converts producer-specific readings into canonical units.
package telemetry

import "fmt"

// MetricKind identifies one canonical telemetry stream.
type MetricKind int

const (
	KindMotion MetricKind = iota
	KindOrientation
	KindProximity
	KindLight
	KindBattery
	KindNetwork
	KindGeolocation
	KindHeartRate
	KindSteps
	KindSleep
	KindMoodEnergy
	KindMoodStress
	KindMoodHappiness
	KindBiometrics

	// KindCount is kept last so per-kind state can live in fixed arrays.
	KindCount
)

var kindNames = [KindCount]string{
	KindMotion:        "motion",
	KindOrientation:   "orientation",
	KindProximity:     "proximity",
	KindLight:         "light",
	KindBattery:       "battery",
	KindNetwork:       "network",
	KindGeolocation:   "geolocation",
	KindHeartRate:     "heart_rate",
	KindSteps:         "steps",
	KindSleep:         "sleep",
	KindMoodEnergy:    "mood_energy",
	KindMoodStress:    "mood_stress",
	KindMoodHappiness: "mood_happiness",
	KindBiometrics:    "biometrics",
}

func (k MetricKind) String() string {
	if k < 0 || k >= KindCount {
		return fmt.Sprintf("metric(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a member of the closed enumeration.
func (k MetricKind) Valid() bool {
	return k >= 0 && k < KindCount
}

// ParseKind resolves a wire/config name like "heart_rate" to its kind.
func ParseKind(name string) (MetricKind, error) {
	for k, n := range kindNames {
		if n == name {
			return MetricKind(k), nil
		}
	}
	return KindCount, fmt.Errorf("unknown metric kind %q", name)
}

// MarshalText lets kinds serialize as their wire names in JSON payloads.
func (k MetricKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid metric kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText accepts wire names, so inbound JSON samples decode directly.
func (k *MetricKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
