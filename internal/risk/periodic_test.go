package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// periodicFixture builds ~30 weekday closes straddling the 2024 year boundary
// for one book ticker and the benchmark.
func periodicFixture() (*timeseries.Frame, []Position, time.Time) {
	var dates []time.Time
	cur := day(2023, 12, 1)
	for len(dates) < 30 {
		if wd := cur.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, cur)
		}
		cur = cur.AddDate(0, 0, 1)
	}

	prices := timeseries.NewFrame(dates, []string{"AAA", "SPY"})
	for i := range dates {
		prices.Data[i][0] = 100 + float64(i) // AAA climbs a point a day
		prices.Data[i][1] = 400 + 2*float64(i)
	}
	positions := []Position{{Ticker: "AAA", Weight: 0.5, Side: Long}}
	return prices, positions, day(2024, 1, 1)
}

func TestPeriodicReturns(t *testing.T) {
	prices, positions, yearStart := periodicFixture()

	out := periodicReturns(context.Background(), prices, positions, yearStart)
	require.Len(t, out, 2)
	assert.Equal(t, "AAA", out[0].Ticker, "frame column order preserved")
	assert.Equal(t, "SPY", out[1].Ticker)

	aaa := out[0]
	s := prices.SeriesOf("AAA")
	anchor, ok := s.AnchorValue(yearStart)
	require.True(t, ok)
	assert.InDelta(t, (s.Last()-anchor)/anchor, aaa.YTD, 1e-12)

	assert.InDelta(t, (s.Last()-s.Values[len(s.Values)-22])/s.Values[len(s.Values)-22], aaa.R1M, 1e-12)
	assert.True(t, math.IsNaN(aaa.R1Y), "30 observations cannot cover a year")
	assert.True(t, math.IsNaN(aaa.R5Y))

	assert.Equal(t, 0.5, aaa.Weight)
	assert.Equal(t, Long, aaa.Side)
	assert.InDelta(t, 0.5*aaa.YTD, aaa.YTDContribution, 1e-12)

	spy := out[1]
	assert.Zero(t, spy.Weight, "benchmark is not a book position")
	assert.True(t, math.IsNaN(spy.YTDContribution))
}

func TestPeriodicReturnsSkipsEmptyColumns(t *testing.T) {
	prices := timeseries.NewFrame(
		[]time.Time{day(2024, 1, 2), day(2024, 1, 3)},
		[]string{"AAA", "EMPTY"},
	)
	prices.Data[0][0] = 100
	prices.Data[1][0] = 101

	out := periodicReturns(context.Background(), prices,
		[]Position{{Ticker: "AAA", Weight: 1, Side: Long}}, day(2024, 1, 1))

	require.Len(t, out, 1)
	assert.Equal(t, "AAA", out[0].Ticker)
}
