package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// ytdFixture builds a small price history straddling a year boundary with one
// long position and the benchmark.
func ytdFixture() (prices, returns *timeseries.Frame, active []Position, yearStart time.Time) {
	prices = frameOf(
		[]time.Time{day(2023, 12, 28), day(2023, 12, 29), day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)},
		[]string{"AAA", "SPY"},
		[][]float64{
			{100, 400},
			{100, 400},
			{102, 404},
			{104, 404},
			{106, 408},
		},
	)
	returns = prices.PctChange().DropAllNaN()
	active = []Position{{Ticker: "AAA", Weight: 1.0, Side: Long}}
	yearStart = day(2024, 1, 1)
	return
}

func TestComputeYTDAnchorsToPriorYearEnd(t *testing.T) {
	prices, returns, active, yearStart := ytdFixture()

	res := computeYTD(prices, returns, active, "SPY", 0.04, yearStart, nil, "", nil, nil)

	assert.InDelta(t, 0.06, res.ytdReturn, 1e-12, "measured off the Dec 29 close")
	assert.InDelta(t, 0.02, res.benchmarkYTD, 1e-12, "compounded from the first January return")

	require.False(t, res.stream.IsEmpty())
	assert.InDelta(t, 1.0, res.stream.Values[0], 1e-12, "value curve starts at the anchor")
	assert.Equal(t, day(2023, 12, 29), res.stream.Dates[0])
}

func TestComputeYTDContributionsAreAdditive(t *testing.T) {
	prices := frameOf(
		[]time.Time{day(2023, 12, 29), day(2024, 1, 2), day(2024, 1, 3)},
		[]string{"AAA", "BBB", "SPY"},
		[][]float64{
			{100, 50, 400},
			{105, 48, 404},
			{110, 45, 408},
		},
	)
	returns := prices.PctChange().DropAllNaN()
	active := []Position{
		{Ticker: "AAA", Weight: 0.8, Side: Long},
		{Ticker: "BBB", Weight: 0.5, Side: Short},
	}

	res := computeYTD(prices, returns, active, "SPY", 0.04, day(2024, 1, 1), nil, "", nil, nil)

	assert.InDelta(t, res.ytdReturn, res.longsContrib+res.shortsContrib, 1e-9,
		"the rebased recomposition is linear in the legs")
	assert.InDelta(t, 0.8*0.10, res.longsContrib, 1e-12)
	assert.InDelta(t, -0.5*(-0.10), res.shortsContrib, 1e-12)
}

func TestComputeYTDThinWindow(t *testing.T) {
	prices := frameOf(
		[]time.Time{day(2023, 6, 1)},
		[]string{"AAA", "SPY"},
		[][]float64{{100, 400}},
	)
	returns := prices.PctChange().DropAllNaN()

	res := computeYTD(prices, returns, []Position{{Ticker: "AAA", Weight: 1, Side: Long}},
		"SPY", 0.04, day(2024, 1, 1), nil, "", nil, nil)

	assert.Zero(t, res.ytdReturn)
	assert.Zero(t, res.beta)
	assert.True(t, res.stream.IsEmpty())
}

func TestComputeYTDSecondaryBenchmarks(t *testing.T) {
	prices, returns, active, yearStart := ytdFixture()

	res := computeYTD(prices, returns, active, "SPY", 0.04, yearStart, nil, "",
		nil, map[string]string{"SPX": "SPY", "GONE": "ZZZ"})

	assert.InDelta(t, 0.02, res.secondary["SPX"], 1e-12)
	assert.Zero(t, res.secondary["GONE"], "missing column compounds to zero")
}

func TestReportingCurrencyYTD(t *testing.T) {
	fx := frameOf(
		[]time.Time{day(2023, 12, 29), day(2024, 1, 4)},
		[]string{"USDPLN=X"},
		[][]float64{{4.0}, {4.2}},
	)

	got := reportingCurrencyYTD(0.06, fx, "USDPLN=X", day(2023, 12, 29))
	assert.InDelta(t, 1.06*1.05-1, got, 1e-12)

	t.Run("no fx frame passes through", func(t *testing.T) {
		assert.InDelta(t, 0.06, reportingCurrencyYTD(0.06, nil, "USDPLN=X", day(2023, 12, 29)), 1e-12)
	})
	t.Run("unknown pair passes through", func(t *testing.T) {
		assert.InDelta(t, 0.06, reportingCurrencyYTD(0.06, fx, "EURPLN=X", day(2023, 12, 29)), 1e-12)
	})
}

func TestFXWatchlistYTD(t *testing.T) {
	fx := frameOf(
		[]time.Time{day(2023, 12, 29), day(2024, 1, 4)},
		[]string{"EURUSD=X"},
		[][]float64{{1.10}, {1.21}},
	)

	out := fxWatchlistYTD(fx, []string{"EURUSD=X", "JPYUSD=X"}, day(2024, 1, 1))
	require.Contains(t, out, "EURUSD=X")
	assert.InDelta(t, 0.10, out["EURUSD=X"], 1e-12)
	assert.NotContains(t, out, "JPYUSD=X", "pairs without data are omitted, not zeroed")

	assert.Empty(t, fxWatchlistYTD(nil, []string{"EURUSD=X"}, day(2024, 1, 1)))
}

func TestCompound(t *testing.T) {
	assert.InDelta(t, 1.1*0.9-1, compound([]float64{0.1, -0.1}), 1e-12)
	assert.Zero(t, compound(nil))
}
