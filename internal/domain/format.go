package domain

import (
	"fmt"
	"math"
)

// FormatTimestamp renders seconds as mm:ss, or h:mm:ss from one hour on.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Span renders the chunk's time range, e.g. "04:30-04:44".
func (c Chunk) Span() string {
	return FormatTimestamp(c.Start) + "-" + FormatTimestamp(c.End)
}
