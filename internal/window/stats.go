package window

import (
	"fmt"
	"math"
)

// Stat is a derived statistic plus a flag for whether enough samples
// exist to compute it. Rules referencing a statistic with OK=false never
// arm.
type Stat struct {
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
}

// StatKind selects which facet of a metric a rule compares against.
type StatKind int

const (
	StatCurrent StatKind = iota
	StatMagnitude
	StatVariance10
	StatRate
	StatRegularity7
)

var statNames = map[StatKind]string{
	StatCurrent:     "current",
	StatMagnitude:   "magnitude",
	StatVariance10:  "variance_10",
	StatRate:        "rate",
	StatRegularity7: "regularity_7",
}

func (s StatKind) String() string {
	if n, ok := statNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stat(%d)", int(s))
}

// ParseStat resolves a config name like "variance_10" to its StatKind.
func ParseStat(name string) (StatKind, error) {
	for k, n := range statNames {
		if n == name {
			return k, nil
		}
	}
	return StatCurrent, fmt.Errorf("unknown statistic %q", name)
}

func mean(xs []float64) float64 {
	total := 0.0
	for _, v := range xs {
		total += v
	}
	return total / float64(len(xs))
}

// sampleVariance is the unbiased (n-1) variance.
func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, v := range xs {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(xs)-1)
}

// varianceOver computes variance over the newest span entries of a ring,
// insufficient until the ring holds at least span samples.
func varianceOver(r *Ring, span int) Stat {
	if r.Len() < span {
		return Stat{}
	}
	return Stat{Value: sampleVariance(r.Tail(span)), OK: true}
}

// rateOf is the change rate between the two newest entries, in canonical
// units per second. Duplicate timestamps yield insufficient data rather
// than a division by zero.
func rateOf(r *Ring) Stat {
	if r.Len() < 2 {
		return Stat{}
	}
	last := r.At(r.Len() - 1)
	prev := r.At(r.Len() - 2)
	dt := last.At.Sub(prev.At).Seconds()
	if dt <= 0 {
		return Stat{}
	}
	return Stat{Value: (last.Value - prev.Value) / dt, OK: true}
}

// regularityOf folds a history of daily activity totals into a score in
// (0, 1]: the inverse coefficient of variation 1/(1+cv). Uniform days
// score near 1, erratic days near 0. Requires a full history and a
// positive mean.
func regularityOf(r *Ring) Stat {
	if r.Len() < r.Cap() {
		return Stat{}
	}
	vals := r.Values()
	m := mean(vals)
	if m <= 0 {
		return Stat{}
	}
	cv := math.Sqrt(sampleVariance(vals)) / m
	return Stat{Value: 1 / (1 + cv), OK: true}
}
