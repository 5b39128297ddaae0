package book

import (
	"math"

	"mbostrength-go/internal/signal"
)

// DefaultSizeThreshold is the level size a level must exceed to count toward the window.
const DefaultSizeThreshold = 10

// WindowParams bounds one statistics scan.
type WindowParams struct {
	MaxTicks      int   // levels examined per side, also the window width in ticks
	TickSize      int   // price units per tick
	SizeThreshold int64 // qualifying levels have size > SizeThreshold
}

// WindowStats is the result of one best-first scan over a side.
type WindowStats struct {
	Scanned int
	Count   int
	Total   float64
	Mean    float64
	// Variance and StdDev are population statistics over qualifying sizes.
	Variance       float64
	StdDev         float64
	VolumeStrength float64
	DevStrength    float64
}

// Bounds returns the inclusive price window for a side around ref.
func (p WindowParams) Bounds(side signal.Side, ref float64) (lower, upper float64) {
	width := float64(p.MaxTicks) * float64(p.TickSize)
	if side == signal.Bid {
		return ref - width, ref
	}
	return ref, ref + width
}

// Window scans lv best-first on side. At most MaxTicks levels are examined whether or not
// they qualify; a level qualifies when its price is inside Bounds and its size exceeds
// SizeThreshold. Callers must hold the book's exclusive region (see Book.View).
func Window(lv *Levels, side signal.Side, ref float64, p WindowParams) WindowStats {
	var st WindowStats
	if p.MaxTicks <= 0 {
		return st
	}
	lower, upper := p.Bounds(side, ref)

	sizes := make([]float64, 0, min(p.MaxTicks, lv.Depth(side)))
	for price, size := range lv.Best(side) {
		if st.Scanned >= p.MaxTicks {
			break
		}
		st.Scanned++
		px := float64(price)
		if px < lower || px > upper || size <= p.SizeThreshold {
			continue
		}
		st.Total += float64(size)
		sizes = append(sizes, float64(size))
	}

	st.Count = len(sizes)
	if st.Count == 0 {
		st.Total = 0
		return st
	}

	n := float64(st.Count)
	st.Mean = st.Total / n
	var sq float64
	for _, s := range sizes {
		d := s - st.Mean
		sq += d * d
	}
	st.Variance = sq / n
	st.StdDev = math.Sqrt(st.Variance)

	slots := float64(p.MaxTicks)
	st.VolumeStrength = st.Total / slots
	st.DevStrength = (st.Total / slots) * (n / slots)
	return st
}
