package format

import (
	"fmt"
	"time"

	"github.com/nvandessel/ternkit/internal/ternary"
)

// Confidence formats a confidence for table cells with enough precision to
// distinguish near-1.0 fused values.
func Confidence(c float64) string {
	return fmt.Sprintf("%.4f", c)
}

// Percent formats a [0,1] fraction as a percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// ValueMark returns a one-rune cell for a ternary value: ✓ TRUE, ✗ FALSE,
// ? UNKNOWN.
func ValueMark(v ternary.Value) string {
	switch v {
	case ternary.True:
		return "✓"
	case ternary.False:
		return "✗"
	default:
		return "?"
	}
}

// FmtDuration formats a duration as "Xm Ys", "Ys", or "Zms" below a second.
func FmtDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
// Used to keep controller UUIDs readable in tables.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
