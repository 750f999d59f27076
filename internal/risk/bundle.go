package risk

import (
	"time"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// Matrix is a labeled square matrix, used for correlation outputs. Cells may
// hold NaN for pairs that could not be computed; the serialization layer is
// responsible for translating NaN to an explicit missing marker.
type Matrix struct {
	Tickers []string
	Cells   [][]float64
}

// IsEmpty reports whether the matrix carries no tickers.
func (m Matrix) IsEmpty() bool { return len(m.Tickers) == 0 }

// LeverageStats summarizes the book's exposure profile and the daily
// financing drag applied to the net return stream.
type LeverageStats struct {
	LongExposure  float64
	ShortExposure float64
	GrossExposure float64
	NetExposure   float64
	DailyDrag     float64
}

// PeriodInfo records the observation window the historical metrics cover.
type PeriodInfo struct {
	Start time.Time
	End   time.Time
	Years float64
}

// Attribution is one position's marginal contribution to portfolio risk.
type Attribution struct {
	Ticker  string
	Weight  float64 // signed exposure weight
	MCTR    float64 // marginal contribution to daily volatility
	PctRisk float64 // MCTR as a fraction of daily volatility
}

// StressResult is the first-order PnL estimate for one market scenario.
type StressResult struct {
	Scenario   string
	MarketMove float64
	Impact     float64
}

// PathMatrix holds simulated Monte Carlo value paths. Paths[i][t] is the value
// of path i after t trading days; every path starts at 1.0.
type PathMatrix struct {
	Days  int
	Paths [][]float64
}

// PeriodicReturn carries per-ticker trailing performance. Horizons without
// enough history are NaN, never zero.
type PeriodicReturn struct {
	Ticker          string
	YTD             float64
	R1M             float64
	R1Y             float64
	R3Y             float64
	R5Y             float64
	YTDContribution float64 // weight * sign * YTD; NaN for non-book tickers
	Weight          float64
	Side            Side
}

// Bundle is the engine's sole output: an immutable snapshot of every computed
// metric, stream and matrix, regenerated wholesale on each Compute call.
// Scalars degrade to 0 on thin data; NaN/Inf survive only inside streams,
// matrices and periodic returns, where 0 would be a lie.
type Bundle struct {
	// Full-period core statistics on the gross daily return stream.
	Beta                  float64
	AnnualReturn          float64
	AnnualVol             float64
	Sharpe                float64
	Sortino               float64
	Rolling1MVol          float64
	BenchmarkRolling1MVol float64
	VaR95                 float64
	CVaR95                float64
	MaxDrawdown           float64
	JensensAlpha          float64
	BenchmarkHistSharpe   float64

	// Year-to-date block, rebased to the prior year-end anchor.
	YTDReturn               float64
	BenchmarkYTD            float64
	YTDBeta                 float64
	YTDVol                  float64
	YTDSharpe               float64
	YTDAlpha                float64
	BenchmarkYTDSharpe      float64
	YTDMaxDrawdown          float64
	BenchmarkYTDMaxDrawdown float64
	YTDLongsContrib         float64
	YTDShortsContrib        float64
	// YTDReportingReturn is the YTD return restated in the reporting
	// currency; equal to YTDReturn when no FX series is available.
	YTDReportingReturn float64

	Period   PeriodInfo
	Leverage LeverageStats

	// Streams share the return-series date index; YTD streams share the
	// rebased window index.
	GrossStream        timeseries.Series
	NetStream          timeseries.Series
	BenchmarkStream    timeseries.Series
	DrawdownStream     timeseries.Series
	YTDStream          timeseries.Series
	YTDBenchmarkStream timeseries.Series

	CorrelationMatrix         Matrix
	VolumeWeightedCorrelation Matrix

	RiskAttribution  []Attribution
	StressTests      []StressResult
	MonteCarlo       *PathMatrix
	PeriodicReturns  []PeriodicReturn
	CurrencyExposure map[string]float64
	SecondaryYTD     map[string]float64
	FXWatchlistYTD   map[string]float64

	// SkippedTickers lists book positions that had no return data and
	// therefore contributed nothing to any aggregate.
	SkippedTickers []string
}
