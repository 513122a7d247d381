// Package report ranks a volatility aggregate and renders the text summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"volscan/internal/volatility"
)

// Size is the number of entries shown in the maximum and minimum sections
const Size = 3

const (
	HeadingMaximum = "Maximum volatility:"
	HeadingMinimum = "Minimum volatility:"
	HeadingZero    = "Zero-volatility tickers:"
)

// Entry is one ranked instrument
type Entry struct {
	Rank       int     `json:"rank"`
	Instrument string  `json:"instrument"`
	Volatility float64 `json:"volatility"`
	// Worker is the id of the worker that computed the entry, -1 when unknown
	Worker int `json:"worker"`
}

// Report is the ranked view of an aggregate
type Report struct {
	// Top holds the highest volatilities, highest first
	Top []Entry `json:"top"`
	// Bottom holds the lowest volatilities, still in descending order
	Bottom []Entry `json:"bottom"`
	// Zero lists degenerate instruments in ascending order
	Zero []string `json:"zero"`
	// Ranked is every non-degenerate instrument, highest first
	Ranked []Entry `json:"ranked"`
}

// Build sorts the aggregate by volatility descending, breaking ties by name.
// With fewer than 2*Size instruments Top and Bottom overlap.
func Build(agg *volatility.Aggregate) Report {
	ranked := make([]Entry, 0, len(agg.Volatility))
	for name, vol := range agg.Volatility {
		worker, ok := agg.WorkerOf(name)
		if !ok {
			worker = -1
		}
		ranked = append(ranked, Entry{Instrument: name, Volatility: vol, Worker: worker})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Volatility != ranked[j].Volatility {
			return ranked[i].Volatility > ranked[j].Volatility
		}
		return ranked[i].Instrument < ranked[j].Instrument
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	n := min(Size, len(ranked))
	return Report{
		Top:    ranked[:n:n],
		Bottom: ranked[len(ranked)-n:],
		Zero:   agg.Zero.Sorted(),
		Ranked: ranked,
	}
}

// Write renders the three sections as plain text
func Write(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, HeadingMaximum)
	for _, e := range r.Top {
		fmt.Fprintln(bw, FormatEntry(e))
	}

	fmt.Fprintln(bw, HeadingMinimum)
	for _, e := range r.Bottom {
		fmt.Fprintln(bw, FormatEntry(e))
	}

	fmt.Fprintln(bw, HeadingZero)
	if len(r.Zero) > 0 {
		fmt.Fprintln(bw, strings.Join(r.Zero, ", "))
	}

	return bw.Flush()
}

// FormatEntry renders e as "<name> - <volatility> %" with two decimals
func FormatEntry(e Entry) string {
	return fmt.Sprintf("%s - %.2f %%", e.Instrument, e.Volatility)
}
