package bond

import (
	"math"
	"time"
)

// EnvelopePoint is one bond annotated with its country's running maximum yield.
type EnvelopePoint struct {
	Bond       *Bond
	Expiry     time.Time
	Yield      float64
	RunningMax float64
	OnEnvelope bool
}

// runningMax is the fold state kept per country.
type runningMax struct {
	value float64
	seen  bool
}

// observe folds y into the state and returns the maximum so far.
// NaN leaves the state untouched and reports NaN for that position.
func (m *runningMax) observe(y float64) float64 {
	if math.IsNaN(y) {
		return math.NaN()
	}
	if !m.seen || y > m.value {
		m.value = y
		m.seen = true
	}
	return m.value
}

// Envelope computes per-country running maxima of yieldColumn over bonds,
// which must already be in expiry order. A bond is on the envelope when its
// yield equals its country's running maximum at that position.
func Envelope(bonds []*Bond, expiryColumn, yieldColumn string) []EnvelopePoint {
	states := make(map[string]*runningMax)
	points := make([]EnvelopePoint, 0, len(bonds))
	for _, b := range bonds {
		state, ok := states[b.Country]
		if !ok {
			state = &runningMax{}
			states[b.Country] = state
		}
		y := b.Number(yieldColumn)
		m := state.observe(y)
		points = append(points, EnvelopePoint{
			Bond:       b,
			Expiry:     b.Date(expiryColumn),
			Yield:      y,
			RunningMax: m,
			OnEnvelope: !math.IsNaN(y) && y == m,
		})
	}
	return points
}

// OnEnvelope returns only the envelope points, preserving order.
func OnEnvelope(points []EnvelopePoint) []EnvelopePoint {
	out := make([]EnvelopePoint, 0, len(points))
	for _, p := range points {
		if p.OnEnvelope {
			out = append(out, p)
		}
	}
	return out
}

// CountEnvelope returns the number of envelope points per country.
func CountEnvelope(points []EnvelopePoint) map[string]int {
	counts := make(map[string]int)
	for _, p := range points {
		if p.OnEnvelope {
			counts[p.Bond.Country]++
		}
	}
	return counts
}
