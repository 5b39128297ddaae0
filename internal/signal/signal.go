// Package signal standardizes payloads shared between data ingestion, book and strategy layers.
package signal

import (
	"math"
	"strings"
	"time"
)

// Side identifies one half of the order book.
type Side int

const (
	// Bid is the buy side, best level is the highest price.
	Bid Side = iota
	// Ask is the sell side, best level is the lowest price.
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// ParseSide accepts bid/ask as well as buy/sell, case-insensitive.
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "bid", "buy", "b":
		return Bid, true
	case "ask", "sell", "offer", "a", "s":
		return Ask, true
	default:
		return Bid, false
	}
}

// EventType enumerates the market-by-order messages the strategy consumes.
type EventType string

const (
	OrderSend    EventType = "send"
	OrderReplace EventType = "replace"
	OrderCancel  EventType = "cancel"
	Trade        EventType = "trade"
)

// Event is a single market-by-order or trade message, prices already in tick units.
type Event struct {
	Type       EventType
	OrderID    string
	Side       Side
	Price      int
	Size       int
	TradePrice float64 // only for Trade, may be fractional ticks
	Ts         time.Time
}

// Indicators is the published strength/deviation pair. It is only ever replaced as a whole.
type Indicators struct {
	Strength  float64
	Deviation float64
	Ts        time.Time
}

// Undefined reports whether either scalar is NaN, meaning no signal.
func (i Indicators) Undefined() bool {
	return math.IsNaN(i.Strength) || math.IsNaN(i.Deviation)
}

// NoIndicators is the pair published before the first trade has been seen.
func NoIndicators() Indicators {
	return Indicators{Strength: math.NaN(), Deviation: math.NaN()}
}

// Level is one aggregated price level.
type Level struct {
	Price int   `json:"price"`
	Size  int64 `json:"size"`
}

// SideStats carries the per-side window outputs for display.
type SideStats struct {
	VolumeStrength float64 `json:"volumeStrength"`
	DevStrength    float64 `json:"devStrength"`
	Count          int     `json:"count"`
	Scanned        int     `json:"scanned"`
	StdDev         float64 `json:"stdDev"`
}

// Snapshot is everything captured by one recompute pass, read atomically by display consumers.
type Snapshot struct {
	Symbol     string     `json:"symbol"`
	RefPrice   float64    `json:"refPrice"`
	MaxTicks   int        `json:"maxTicks"`
	Bids       []Level    `json:"bids"`
	Asks       []Level    `json:"asks"`
	Bid        SideStats  `json:"bidStats"`
	Ask        SideStats  `json:"askStats"`
	Indicators Indicators `json:"-"`
	EMA        float64    `json:"-"` // trade price average, NaN until the first timer tick after a trade
	Ts         time.Time  `json:"ts"`
}
