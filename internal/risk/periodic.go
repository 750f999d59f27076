package risk

import (
	"context"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// Trailing horizons in trading-day offsets.
const (
	horizon1M = 21
	horizon1Y = 252
	horizon3Y = 756
	horizon5Y = 1260
)

// periodicReturns computes per-ticker trailing performance for every column
// of the price frame. YTD uses the shared anchor lookup against the prior
// year-end close; the fixed horizons all go through one trailing-return
// helper so the edge handling cannot diverge between them. Tickers are
// independent, so the scan fans out across a bounded worker group.
func periodicReturns(ctx context.Context, prices *timeseries.Frame, positions []Position, yearStart time.Time) []PeriodicReturn {
	book := make(map[string]Position, len(positions))
	for _, pos := range positions {
		book[pos.Ticker] = pos
	}

	out := make([]PeriodicReturn, len(prices.Tickers))
	keep := make([]bool, len(prices.Tickers))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for idx, ticker := range prices.Tickers {
		idx, ticker := idx, ticker
		g.Go(func() error {
			s := prices.SeriesOf(ticker)
			if s.IsEmpty() {
				return nil
			}
			pr := PeriodicReturn{
				Ticker:          ticker,
				YTD:             ytdOf(s, yearStart),
				R1M:             s.TrailingReturn(horizon1M),
				R1Y:             s.TrailingReturn(horizon1Y),
				R3Y:             s.TrailingReturn(horizon3Y),
				R5Y:             s.TrailingReturn(horizon5Y),
				YTDContribution: math.NaN(),
			}
			if pos, ok := book[ticker]; ok {
				pr.Weight = pos.Weight
				pr.Side = pos.Side
				if !math.IsNaN(pr.YTD) {
					pr.YTDContribution = pos.SignedWeight() * pr.YTD
				}
			}
			out[idx] = pr
			keep[idx] = true
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; the group bounds fan-out

	result := make([]PeriodicReturn, 0, len(out))
	for i, ok := range keep {
		if ok {
			result = append(result, out[i])
		}
	}
	return result
}

// ytdOf measures a single series against its prior year-end anchor.
func ytdOf(s timeseries.Series, yearStart time.Time) float64 {
	anchor, ok := s.AnchorValue(yearStart)
	if !ok || anchor == 0 {
		return math.NaN()
	}
	return (s.Last() - anchor) / anchor
}
