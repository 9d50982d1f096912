// Package window maintains bounded per-metric history and the derived
// statistics exposed through Snapshot. All state is owned by the
// Aggregator; memory stays proportional to the number of metrics times
// their window capacities regardless of session length.
package window

import "time"

// Entry is one canonical reading held in a window.
type Entry struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// Ring is a fixed-capacity FIFO buffer. Pushing onto a full ring evicts
// the oldest entry.
type Ring struct {
	buf   []Entry
	start int
	count int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]Entry, capacity)}
}

func (r *Ring) Push(e Entry) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *Ring) Len() int { return r.count }

func (r *Ring) Cap() int { return len(r.buf) }

// At returns the i-th entry, oldest first. i must be in [0, Len).
func (r *Ring) At(i int) Entry {
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last returns the newest entry, or false on an empty ring.
func (r *Ring) Last() (Entry, bool) {
	if r.count == 0 {
		return Entry{}, false
	}
	return r.At(r.count - 1), true
}

// Values copies all held values, oldest first.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.At(i).Value
	}
	return out
}

// Tail copies the newest n values, oldest first. Shorter rings return
// everything they hold.
func (r *Ring) Tail(n int) []float64 {
	if n > r.count {
		n = r.count
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.count - n + i).Value
	}
	return out
}

func (r *Ring) Clear() {
	r.start, r.count = 0, 0
}
