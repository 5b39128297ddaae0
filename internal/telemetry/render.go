// Package telemetry exposes published snapshots to humans: a text rendering, a JSON API and a
// websocket stream.
package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"mbostrength-go/internal/signal"
)

// Render formats a snapshot as plain text: asks furthest first down to the best ask, then bids
// best first, followed by the scalars.
func Render(s signal.Snapshot) string {
	var b strings.Builder

	for i := len(s.Asks) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "ASK Distance: %d Price(int): %d Size: %d\n", i, s.Asks[i].Price, s.Asks[i].Size)
	}
	for i, lvl := range s.Bids {
		fmt.Fprintf(&b, "BID Distance: %d Price(int): %d Size: %d\n", i, lvl.Price, lvl.Size)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Last Price: %s\n", formatFloat(s.RefPrice))
	fmt.Fprintf(&b, "Bid Strength: %s\n", formatFloat(s.Bid.VolumeStrength))
	fmt.Fprintf(&b, "Ask Strength: %s\n", formatFloat(s.Ask.VolumeStrength))
	fmt.Fprintf(&b, "Strength: %s\n", formatFloat(s.Indicators.Strength))
	fmt.Fprintf(&b, "Deviation: %s\n", formatFloat(s.Indicators.Deviation))
	fmt.Fprintf(&b, "EMA: %s\n", formatFloat(s.EMA))
	return b.String()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
