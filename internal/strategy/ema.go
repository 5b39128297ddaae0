package strategy

import "math"

// DefaultAlpha weights the previous average; the new price gets 1-alpha.
const DefaultAlpha = 0.99

// EMA is an exponential moving average of the last trade price sampled once per interval.
// It is not safe for concurrent use.
type EMA struct {
	alpha float64
	value float64
}

// NewEMA builds an average with alpha clamped into [0, 1].
func NewEMA(alpha float64) *EMA {
	if math.IsNaN(alpha) {
		alpha = DefaultAlpha
	}
	return &EMA{alpha: min(max(alpha, 0), 1), value: math.NaN()}
}

// Alpha returns the smoothing weight.
func (e *EMA) Alpha() float64 { return e.alpha }

// Step folds px into the average and returns it. A NaN price leaves the average untouched;
// the first real price seeds it.
func (e *EMA) Step(px float64) float64 {
	switch {
	case math.IsNaN(px):
	case math.IsNaN(e.value):
		e.value = px
	default:
		e.value = e.value*e.alpha + px*(1-e.alpha)
	}
	return e.value
}

// Value is NaN until the first price has been seen.
func (e *EMA) Value() float64 { return e.value }
