package exporter

import (
	"strconv"
)

// formatPercent formats a volatility percentage for CSV output with 4 decimal places
func formatPercent(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
