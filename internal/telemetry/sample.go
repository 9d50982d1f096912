package telemetry

import "time"

// RawSample is a reading as produced by a device or health collaborator,
// still in producer units. Arity of Values depends on the kind: motion
// carries an x/y/z acceleration vector, orientation carries pitch/roll
// (optionally yaw) angles, geolocation carries latitude/longitude, and
// every other kind carries a single scalar.
type RawSample struct {
	Kind       MetricKind `json:"kind"`
	Values     []float64  `json:"values"`
	ObservedAt time.Time  `json:"observed_at"`
}

// Sample is a canonical reading: exactly one value, in the documented
// canonical unit for its kind, clamped to the kind's valid range.
type Sample struct {
	Kind       MetricKind `json:"kind"`
	Value      float64    `json:"value"`
	ObservedAt time.Time  `json:"observed_at"`
}
