package report

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volscan/internal/volatility"
)

func aggregate(vols map[string]float64, zero ...string) *volatility.Aggregate {
	agg := volatility.NewAggregate()
	for name, v := range vols {
		agg.Volatility[name] = v
	}
	for _, name := range zero {
		agg.Zero.Add(name)
	}
	return agg
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Instrument
	}
	return out
}

func TestBuild(t *testing.T) {
	agg := aggregate(map[string]float64{
		"TICKER_AFH9": 12.5,
		"TICKER_BRH9": 3.1,
		"TICKER_CLH9": 44.0,
		"TICKER_GDH9": 0.7,
		"TICKER_SiH9": 8.25,
		"TICKER_EDH9": 20,
		"TICKER_RIH9": 1.9,
	}, "TICKER_PDH9", "TICKER_KZH9")

	r := Build(agg)

	assert.Equal(t, []string{"TICKER_CLH9", "TICKER_EDH9", "TICKER_AFH9"}, names(r.Top))
	assert.Equal(t, []string{"TICKER_BRH9", "TICKER_RIH9", "TICKER_GDH9"}, names(r.Bottom))
	assert.Equal(t, []string{"TICKER_KZH9", "TICKER_PDH9"}, r.Zero)
	require.Len(t, r.Ranked, 7)
	assert.Equal(t, 1, r.Ranked[0].Rank)
	assert.Equal(t, 7, r.Ranked[6].Rank)
}

func TestBuildTieBreakIsDeterministic(t *testing.T) {
	vols := map[string]float64{"D": 5, "B": 5, "C": 5, "A": 5, "E": 9}

	for i := 0; i < 20; i++ {
		r := Build(aggregate(vols))
		assert.Equal(t, []string{"E", "A", "B", "C", "D"}, names(r.Ranked))
		assert.Equal(t, []string{"B", "C", "D"}, names(r.Bottom))
	}
}

func TestBuildSmallDatasets(t *testing.T) {
	for n := 0; n <= 7; n++ {
		t.Run(fmt.Sprintf("%d instruments", n), func(t *testing.T) {
			vols := make(map[string]float64, n)
			for i := 0; i < n; i++ {
				vols[fmt.Sprintf("I%d", i)] = float64(i + 1)
			}

			var r Report
			require.NotPanics(t, func() { r = Build(aggregate(vols)) })

			want := min(Size, n)
			assert.Len(t, r.Top, want)
			assert.Len(t, r.Bottom, want)
		})
	}
}

func TestBuildExactlyThree(t *testing.T) {
	r := Build(aggregate(map[string]float64{"A": 1, "B": 2, "C": 3}))

	assert.Equal(t, []string{"C", "B", "A"}, names(r.Top))
	assert.Equal(t, []string{"C", "B", "A"}, names(r.Bottom))
}

func TestBuildTopIsNotAliasedWithBottom(t *testing.T) {
	r := Build(aggregate(map[string]float64{"A": 1, "B": 2}))

	r.Top = append(r.Top, Entry{Instrument: "X"})
	assert.Equal(t, []string{"B", "A"}, names(r.Ranked))
}

func TestWrite(t *testing.T) {
	r := Build(aggregate(map[string]float64{
		"TICKER_AFH9": 20,
		"TICKER_BRH9": 7.456,
		"TICKER_CLH9": 0.004,
		"TICKER_GDH9": 12.345678,
	}, "TICKER_PDH9", "TICKER_KZH9"))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r))

	want := "Maximum volatility:\n" +
		"TICKER_AFH9 - 20.00 %\n" +
		"TICKER_GDH9 - 12.35 %\n" +
		"TICKER_BRH9 - 7.46 %\n" +
		"Minimum volatility:\n" +
		"TICKER_GDH9 - 12.35 %\n" +
		"TICKER_BRH9 - 7.46 %\n" +
		"TICKER_CLH9 - 0.00 %\n" +
		"Zero-volatility tickers:\n" +
		"TICKER_KZH9, TICKER_PDH9\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(volatility.NewAggregate())))

	assert.Equal(t, "Maximum volatility:\nMinimum volatility:\nZero-volatility tickers:\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteReportsWriterError(t *testing.T) {
	err := Write(failingWriter{}, Build(aggregate(map[string]float64{"A": 1})))
	assert.Error(t, err)
}

func TestBuildKeepsWorker(t *testing.T) {
	agg := volatility.NewAggregate()
	require.NoError(t, agg.Merge(volatility.WorkerResult{
		WorkerID:   0,
		Volatility: volatility.Record{"A": 5},
		Zero:       volatility.ZeroSet{},
	}))
	require.NoError(t, agg.Merge(volatility.WorkerResult{
		WorkerID:   2,
		Volatility: volatility.Record{"B": 9},
		Zero:       volatility.ZeroSet{},
	}))

	r := Build(agg)
	require.Len(t, r.Ranked, 2)
	assert.Equal(t, "B", r.Ranked[0].Instrument)
	assert.Equal(t, 2, r.Ranked[0].Worker)
	assert.Equal(t, 0, r.Ranked[1].Worker)

	unknown := Build(aggregate(map[string]float64{"X": 1}))
	assert.Equal(t, -1, unknown.Ranked[0].Worker)
}
