package ui

import (
	"strings"
)

// sparkBlocks are the eight bar heights, lowest first.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the last width values as block characters scaled between
// their own min and max. It is red when alert is set, green otherwise.
func Sparkline(values []float64, width int, alert bool) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	top := len(sparkBlocks) - 1
	var sb strings.Builder
	for _, v := range values {
		level := top / 2
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(top))
			level = max(0, min(top, level))
		}
		sb.WriteRune(sparkBlocks[level])
	}

	if alert {
		return ErrorStyle.Render(sb.String())
	}
	return SuccessStyle.Render(sb.String())
}
