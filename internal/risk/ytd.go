package risk

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// ytdResult is the year-to-date block of the bundle. Every field defaults to
// zero/empty when the rebasing window has fewer than 2 usable rows.
type ytdResult struct {
	ytdReturn    float64
	benchmarkYTD float64
	beta         float64
	vol          float64
	sharpe       float64
	alpha        float64
	benchSharpe  float64

	maxDrawdown      float64
	benchMaxDrawdown float64

	longsContrib  float64
	shortsContrib float64

	reportingReturn float64

	stream      timeseries.Series
	benchStream timeseries.Series

	secondary map[string]float64
	fxWatch   map[string]float64
}

// computeYTD anchors the book to the last available close before yearStart and
// recomputes every YTD-scoped statistic from that same anchor.
//
// The rebased portfolio is a buy-and-hold recomposition,
// value(t) = 1 + sum(weight*sign*(relPrice(t)-1)), which is linear in the
// positions: the long and short contribution legs sum to the YTD return by
// construction. This is deliberately distinct from the daily-compounded gross
// stream.
func computeYTD(prices, returns *timeseries.Frame, active []Position, benchmark string,
	riskFree float64, yearStart time.Time, fx *timeseries.Frame, reportingFX string,
	watchlist []string, secondary map[string]string) *ytdResult {

	res := &ytdResult{
		secondary: map[string]float64{},
		fxWatch:   map[string]float64{},
	}

	// Benchmarks arrive as return streams, so compounding from the first
	// return on or after yearStart already equals the price-ratio YTD; no
	// anchor row is needed on that side.
	benchYTDSeries := benchmarkYTDReturns(returns, benchmark, yearStart)
	res.benchStream = benchYTDSeries
	res.benchmarkYTD = compound(benchYTDSeries.Values)

	for name, ticker := range secondary {
		res.secondary[name] = compound(benchmarkYTDReturns(returns, ticker, yearStart).Values)
	}

	// Forward-fill first so a holiday on the last trading day of the prior
	// year still yields a usable anchor close.
	filled := prices.ForwardFill()
	p := filled.SearchDate(yearStart)
	start := p
	if p > 0 {
		start = p - 1 // include the prior year-end close as the anchor row
	}
	window := filled.SliceRows(start, filled.NumRows())

	if window.NumRows() < 2 {
		log.Warn().Int("rows", window.NumRows()).Msg("ytd window too thin, zeroing ytd block")
		return res
	}

	rel := window.Rebase()

	// Recompose the portfolio value series over the window. Per-position
	// NaN (not yet listed at the anchor) contributes zero.
	val := make([]float64, rel.NumRows())
	for i := range val {
		val[i] = 1.0
	}
	last := rel.NumRows() - 1
	for _, pos := range active {
		col, ok := rel.Column(pos.Ticker)
		if !ok {
			continue
		}
		sw := pos.SignedWeight()
		for i, rp := range col {
			if math.IsNaN(rp) {
				continue
			}
			val[i] += sw * (rp - 1)
		}
		if fc := col[last]; !math.IsNaN(fc) {
			contrib := sw * (fc - 1)
			if pos.Side == Short {
				res.shortsContrib += contrib
			} else {
				res.longsContrib += contrib
			}
		}
	}

	res.stream = timeseries.Series{Dates: window.Dates, Values: val}
	res.ytdReturn = val[last] - 1

	// Derive daily returns off the recomposed value series (the anchor day
	// has no prior value and is dropped), then align to the benchmark's YTD
	// return dates before any joint statistic.
	ytdDaily := timeseries.Series{}
	for i := 1; i < len(val); i++ {
		if val[i-1] == 0 {
			continue
		}
		ytdDaily.Dates = append(ytdDaily.Dates, window.Dates[i])
		ytdDaily.Values = append(ytdDaily.Values, val[i]/val[i-1]-1)
	}

	benchByDate := make(map[time.Time]float64, benchYTDSeries.Len())
	for i, d := range benchYTDSeries.Dates {
		benchByDate[d] = benchYTDSeries.Values[i]
	}
	var alignedPort, alignedBench []float64
	for i, d := range ytdDaily.Dates {
		if b, ok := benchByDate[d]; ok {
			alignedPort = append(alignedPort, ytdDaily.Values[i])
			alignedBench = append(alignedBench, b)
		}
	}

	res.beta = Beta(alignedPort, alignedBench)
	res.vol = AnnualizedVol(alignedPort)
	ytdAnnRet := AnnualizedReturn(alignedPort)
	res.sharpe = SharpeRatio(ytdAnnRet, res.vol, riskFree)

	benchVol := AnnualizedVol(benchYTDSeries.Values)
	benchAnnRet := AnnualizedReturn(benchYTDSeries.Values)
	res.benchSharpe = SharpeRatio(benchAnnRet, benchVol, riskFree)
	res.alpha = JensensAlpha(ytdAnnRet, res.beta, benchAnnRet, riskFree)

	res.maxDrawdown = minOf(DrawdownSeries(val))
	res.benchMaxDrawdown = minOf(DrawdownSeries(CumulativeValue(benchYTDSeries.Values)))

	res.reportingReturn = reportingCurrencyYTD(res.ytdReturn, fx, reportingFX, window.Dates[0])
	res.fxWatch = fxWatchlistYTD(fx, watchlist, yearStart)

	log.Debug().
		Float64("ytd_return", res.ytdReturn).
		Float64("ytd_beta", res.beta).
		Float64("longs", res.longsContrib).
		Float64("shorts", res.shortsContrib).
		Msg("ytd block computed")

	return res
}

// benchmarkYTDReturns extracts the non-NaN returns of ticker on or after
// yearStart. Empty when the column is missing.
func benchmarkYTDReturns(returns *timeseries.Frame, ticker string, yearStart time.Time) timeseries.Series {
	s := returns.SeriesOf(ticker)
	idx := s.SearchDate(yearStart)
	return timeseries.Series{Dates: s.Dates[idx:], Values: s.Values[idx:]}
}

// compound folds daily returns into a cumulative return, 0 for an empty slice.
func compound(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	v := 1.0
	for _, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		v *= 1 + r
	}
	return v - 1
}

// reportingCurrencyYTD restates the base-currency YTD return in the reporting
// currency using the FX rate at the anchor date. A failed lookup falls back to
// the un-adjusted return rather than failing the computation.
func reportingCurrencyYTD(ytdReturn float64, fx *timeseries.Frame, pair string, anchorDate time.Time) float64 {
	if fx.IsEmpty() || pair == "" {
		return ytdReturn
	}
	s := fx.SeriesOf(pair)
	startVal, ok := s.AnchorValue(anchorDate)
	if !ok || startVal == 0 {
		log.Warn().Str("pair", pair).Msg("reporting fx anchor unavailable, using base-currency ytd")
		return ytdReturn
	}
	fxChange := (s.Last() - startVal) / startVal
	return (1+ytdReturn)*(1+fxChange) - 1
}

// fxWatchlistYTD computes the YTD move of each watchlist pair against its own
// prior-year-end anchor. Pairs without data are omitted, never zeroed.
func fxWatchlistYTD(fx *timeseries.Frame, watchlist []string, yearStart time.Time) map[string]float64 {
	out := map[string]float64{}
	if fx.IsEmpty() {
		return out
	}
	for _, pair := range watchlist {
		s := fx.SeriesOf(pair)
		if s.IsEmpty() {
			continue
		}
		startVal, ok := s.AnchorValue(yearStart)
		if !ok || startVal == 0 {
			continue
		}
		out[pair] = (s.Last() - startVal) / startVal
	}
	return out
}
