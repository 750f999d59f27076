package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// ErrInsufficientData is the single whole-invocation failure: the input
// matrices cannot support any metric at all. Individual metrics never raise;
// they degrade to zero per their own guards.
var ErrInsufficientData = errors.New("insufficient data to compute risk metrics")

// DefaultRiskFree is the fallback annualized risk-free rate when the caller
// could not supply one.
const DefaultRiskFree = 0.04

// Config describes one book: the static position table plus the knobs the
// engine needs. It is passed in explicitly so several books can be computed
// concurrently with no shared state.
type Config struct {
	Positions []Position
	Benchmark string

	RiskFree   float64 // annualized; <=0 falls back to DefaultRiskFree
	MarginRate float64 // annual margin interest on financed long exposure
	BorrowFee  float64 // annual hard-to-borrow fee on the short book

	// ReportingFX restates the YTD return in a reporting currency, e.g.
	// "USDPLN=X". Optional.
	ReportingFX string
	FXWatchlist []string
	// SecondaryBenchmarks maps an output label to a return-frame column
	// whose YTD is tracked alongside the primary benchmark.
	SecondaryBenchmarks map[string]string

	MonteCarloSims int   // default 1000
	MonteCarloDays int   // default 60
	Seed           int64 // 0 = time-based
}

func (c Config) withDefaults() Config {
	if c.RiskFree <= 0 {
		c.RiskFree = DefaultRiskFree
	}
	if c.MonteCarloSims <= 0 {
		c.MonteCarloSims = 1000
	}
	if c.MonteCarloDays <= 0 {
		c.MonteCarloDays = 60
	}
	return c
}

// Inputs are the matrices one invocation runs on. Prices are mandatory and
// already expressed in the base currency; volumes and FX rates are optional
// and only degrade their dependent outputs when absent. The engine never
// mutates any of them.
type Inputs struct {
	Prices  *timeseries.Frame
	Volumes *timeseries.Frame
	FX      *timeseries.Frame

	// AsOf pins the calendar year for YTD anchoring; zero means the last
	// price date, which keeps the engine deterministic for replays.
	AsOf time.Time
}

// Engine turns price/volume/FX matrices into a Bundle. It is stateless and
// purely computational: every call is a function of its inputs.
type Engine struct {
	cfg Config
}

// NewEngine builds an engine for one book configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Compute runs the full pipeline: compose, core statistics, YTD rebasing,
// attribution, correlation, forward scenarios and periodic returns. It
// returns ErrInsufficientData (and no bundle) only when the price matrix is
// empty, yields fewer than 2 return rows, or lacks the benchmark column.
func (e *Engine) Compute(ctx context.Context, in Inputs) (*Bundle, error) {
	started := time.Now()

	if in.Prices.IsEmpty() {
		return nil, fmt.Errorf("empty price matrix: %w", ErrInsufficientData)
	}

	returns := in.Prices.PctChange().DropAllNaN()
	if returns.NumRows() < 2 {
		return nil, fmt.Errorf("%d return rows: %w", returns.NumRows(), ErrInsufficientData)
	}
	if !returns.HasTicker(e.cfg.Benchmark) {
		return nil, fmt.Errorf("benchmark %q missing from price matrix: %w", e.cfg.Benchmark, ErrInsufficientData)
	}
	benchRet, _ := returns.Column(e.cfg.Benchmark)

	comp := compose(returns, e.cfg.Positions, e.cfg.MarginRate, e.cfg.BorrowFee)

	b := &Bundle{
		Leverage:         comp.leverage(),
		SkippedTickers:   comp.skipped,
		CurrencyExposure: currencyExposure(e.cfg.Positions),
	}

	rf := e.cfg.RiskFree
	b.Beta = Beta(comp.gross, benchRet)
	b.AnnualVol = AnnualizedVol(comp.gross)
	b.AnnualReturn = AnnualizedReturn(comp.gross)
	b.Sharpe = SharpeRatio(b.AnnualReturn, b.AnnualVol, rf)
	b.Sortino = SortinoRatio(comp.gross, b.AnnualReturn, rf)
	b.Rolling1MVol = RollingVol(comp.gross, rollingWindow)
	b.BenchmarkRolling1MVol = RollingVol(benchRet, rollingWindow)
	b.VaR95, b.CVaR95 = TailRisk(comp.gross)

	cum := CumulativeValue(comp.gross)
	dd := DrawdownSeries(cum)
	b.MaxDrawdown = minOf(dd)

	annualBenchReturn := AnnualizedReturn(benchRet)
	b.JensensAlpha = JensensAlpha(b.AnnualReturn, b.Beta, annualBenchReturn, rf)
	b.BenchmarkHistSharpe = SharpeRatio(annualBenchReturn, AnnualizedVol(benchRet), rf)

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = returns.Dates[returns.NumRows()-1]
	}
	yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	ytd := computeYTD(in.Prices, returns, comp.active, e.cfg.Benchmark, rf, yearStart,
		in.FX, e.cfg.ReportingFX, e.cfg.FXWatchlist, e.cfg.SecondaryBenchmarks)
	b.YTDReturn = ytd.ytdReturn
	b.BenchmarkYTD = ytd.benchmarkYTD
	b.YTDBeta = ytd.beta
	b.YTDVol = ytd.vol
	b.YTDSharpe = ytd.sharpe
	b.YTDAlpha = ytd.alpha
	b.BenchmarkYTDSharpe = ytd.benchSharpe
	b.YTDMaxDrawdown = ytd.maxDrawdown
	b.BenchmarkYTDMaxDrawdown = ytd.benchMaxDrawdown
	b.YTDLongsContrib = ytd.longsContrib
	b.YTDShortsContrib = ytd.shortsContrib
	b.YTDReportingReturn = ytd.reportingReturn
	b.YTDStream = ytd.stream
	b.YTDBenchmarkStream = ytd.benchStream
	b.SecondaryYTD = ytd.secondary
	b.FXWatchlistYTD = ytd.fxWatch

	b.RiskAttribution = attribute(returns, comp.gross, comp.active)
	b.CorrelationMatrix = correlationMatrix(returns)
	b.VolumeWeightedCorrelation = volumeWeightedCorrelation(returns, in.Prices, in.Volumes, comp.active)

	b.StressTests = runStressTests(b.Beta)
	b.MonteCarlo = MonteCarlo(b.AnnualVol, rf, e.cfg.MonteCarloSims, e.cfg.MonteCarloDays, e.cfg.Seed)

	b.PeriodicReturns = periodicReturns(ctx, in.Prices, e.cfg.Positions, yearStart)

	b.GrossStream = timeseries.Series{Dates: returns.Dates, Values: comp.gross}
	b.NetStream = timeseries.Series{Dates: returns.Dates, Values: comp.net}
	b.BenchmarkStream = returns.SeriesOf(e.cfg.Benchmark)
	b.DrawdownStream = timeseries.Series{Dates: returns.Dates, Values: dd}

	first, last := returns.Dates[0], returns.Dates[returns.NumRows()-1]
	b.Period = PeriodInfo{
		Start: first,
		End:   last,
		Years: last.Sub(first).Hours() / 24 / 365.25,
	}

	log.Info().
		Int("return_rows", returns.NumRows()).
		Int("active_positions", len(comp.active)).
		Dur("elapsed", time.Since(started)).
		Msg("risk bundle computed")

	return b, nil
}
