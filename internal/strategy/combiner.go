package strategy

import (
	"time"

	"mbostrength-go/internal/book"
	"mbostrength-go/internal/signal"
)

// Combine turns per-side window stats into the published pair. Positive values mean more
// resting size on the ask side of the reference price than on the bid side.
func Combine(bid, ask book.WindowStats, ts time.Time) signal.Indicators {
	return signal.Indicators{
		Strength:  (ask.VolumeStrength - bid.VolumeStrength) * 100,
		Deviation: (ask.DevStrength - bid.DevStrength) * 100,
		Ts:        ts,
	}
}

func sideStats(st book.WindowStats) signal.SideStats {
	return signal.SideStats{
		VolumeStrength: st.VolumeStrength,
		DevStrength:    st.DevStrength,
		Count:          st.Count,
		Scanned:        st.Scanned,
		StdDev:         st.StdDev,
	}
}
