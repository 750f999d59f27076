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

// engineFixture builds ~250 weekday closes through the 2024 year boundary for
// two book tickers and the benchmark, with deterministic oscillating moves.
func engineFixture() *timeseries.Frame {
	var dates []time.Time
	cur := day(2023, 3, 1)
	for len(dates) < 250 {
		if wd := cur.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, cur)
		}
		cur = cur.AddDate(0, 0, 1)
	}

	prices := timeseries.NewFrame(dates, []string{"AAA", "BBB", "SPY"})
	a, b, s := 100.0, 50.0, 400.0
	for i := range dates {
		switch i % 4 {
		case 0:
			a *= 1.012
			b *= 0.995
			s *= 1.006
		case 1:
			a *= 0.993
			b *= 1.008
			s *= 0.997
		case 2:
			a *= 1.008
			b *= 0.998
			s *= 1.004
		default:
			a *= 0.998
			b *= 1.002
			s *= 0.999
		}
		prices.Data[i][0] = a
		prices.Data[i][1] = b
		prices.Data[i][2] = s
	}
	return prices
}

func engineConfig() Config {
	return Config{
		Positions: []Position{
			{Ticker: "AAA", Weight: 0.8, Side: Long, Currency: "USD"},
			{Ticker: "BBB", Weight: 0.4, Side: Short, Currency: "EUR"},
		},
		Benchmark:      "SPY",
		RiskFree:       0.04,
		MarginRate:     0.055,
		BorrowFee:      0.01,
		MonteCarloSims: 8,
		MonteCarloDays: 5,
		Seed:           42,
	}
}

func TestComputeInsufficientData(t *testing.T) {
	e := NewEngine(engineConfig())
	ctx := context.Background()

	tests := []struct {
		name   string
		prices *timeseries.Frame
	}{
		{"nil prices", nil},
		{"no rows", timeseries.NewFrame(nil, []string{"SPY"})},
		{"single row", frameOf([]time.Time{day(2024, 1, 2)}, []string{"AAA", "SPY"}, [][]float64{{100, 400}})},
		{"two rows yield one return", frameOf(
			[]time.Time{day(2024, 1, 2), day(2024, 1, 3)},
			[]string{"AAA", "SPY"},
			[][]float64{{100, 400}, {101, 401}},
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compute(ctx, Inputs{Prices: tt.prices})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInsufficientData)
		})
	}

	t.Run("missing benchmark column", func(t *testing.T) {
		prices := engineFixture()
		cfg := engineConfig()
		cfg.Benchmark = "QQQ"
		_, err := NewEngine(cfg).Compute(ctx, Inputs{Prices: prices})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestComputeBundle(t *testing.T) {
	prices := engineFixture()
	e := NewEngine(engineConfig())

	b, err := e.Compute(context.Background(), Inputs{Prices: prices})
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.NotZero(t, b.Beta)
	assert.Greater(t, b.AnnualVol, 0.0)
	assert.LessOrEqual(t, b.MaxDrawdown, 0.0)
	assert.Less(t, b.VaR95, 0.0)
	assert.LessOrEqual(t, b.CVaR95, b.VaR95, "CVaR is at least as deep as VaR")

	lev := b.Leverage
	assert.InDelta(t, 1.2, lev.GrossExposure, 1e-12)
	assert.InDelta(t, 0.4, lev.NetExposure, 1e-12)
	assert.InDelta(t, 0.4*0.01/360, lev.DailyDrag, 1e-15, "no financed longs, borrow fee only")

	assert.Equal(t, 249, b.GrossStream.Len(), "one return per price gap")
	assert.Equal(t, b.GrossStream.Len(), b.NetStream.Len())
	assert.Equal(t, b.GrossStream.Len(), b.DrawdownStream.Len())
	for i := range b.GrossStream.Values {
		assert.InDelta(t, b.GrossStream.Values[i]-lev.DailyDrag, b.NetStream.Values[i], 1e-15)
	}

	require.Len(t, b.StressTests, 4)
	assert.InDelta(t, b.Beta*-0.10, b.StressTests[0].Impact, 1e-12)

	require.NotNil(t, b.MonteCarlo)
	assert.Len(t, b.MonteCarlo.Paths, 8)

	require.Len(t, b.RiskAttribution, 2)
	assert.NotEmpty(t, b.PeriodicReturns)

	sum := 0.0
	for _, share := range b.CurrencyExposure {
		sum += share
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 0.8/1.2, b.CurrencyExposure["USD"], 1e-12)

	assert.NotZero(t, b.YTDReturn)
	assert.InDelta(t, b.YTDReturn, b.YTDLongsContrib+b.YTDShortsContrib, 1e-9)
	assert.False(t, b.YTDStream.IsEmpty())
	assert.InDelta(t, 1.0, b.YTDStream.Values[0], 1e-12)

	assert.Equal(t, 3, len(b.CorrelationMatrix.Tickers))
	assert.True(t, b.VolumeWeightedCorrelation.IsEmpty(), "no volume inputs supplied")

	assert.Empty(t, b.SkippedTickers)
	assert.Greater(t, b.Period.Years, 0.5)
}

func TestComputeDeterministicWithSeed(t *testing.T) {
	prices := engineFixture()
	e := NewEngine(engineConfig())

	b1, err := e.Compute(context.Background(), Inputs{Prices: prices})
	require.NoError(t, err)
	b2, err := e.Compute(context.Background(), Inputs{Prices: prices})
	require.NoError(t, err)

	assert.Equal(t, b1.Beta, b2.Beta)
	assert.Equal(t, b1.YTDReturn, b2.YTDReturn)
	assert.Equal(t, b1.MonteCarlo.Paths, b2.MonteCarlo.Paths, "seeded simulation replays")
}

func TestComputeAsOfPinsYearStart(t *testing.T) {
	prices := engineFixture()
	e := NewEngine(engineConfig())

	// Pinning AsOf into the prior year moves the YTD anchor a full year back.
	b2024, err := e.Compute(context.Background(), Inputs{Prices: prices})
	require.NoError(t, err)
	b2023, err := e.Compute(context.Background(), Inputs{Prices: prices, AsOf: day(2023, 12, 15)})
	require.NoError(t, err)

	assert.NotEqual(t, b2024.YTDReturn, b2023.YTDReturn)
	assert.True(t, b2023.YTDStream.Dates[0].Before(b2024.YTDStream.Dates[0]))
}

func TestComputeSkipsBookTickersWithoutData(t *testing.T) {
	prices := engineFixture()
	cfg := engineConfig()
	cfg.Positions = append(cfg.Positions, Position{Ticker: "GONE", Weight: 0.1, Side: Long, Currency: "USD"})

	b, err := NewEngine(cfg).Compute(context.Background(), Inputs{Prices: prices})
	require.NoError(t, err)
	assert.Equal(t, []string{"GONE"}, b.SkippedTickers)
	assert.InDelta(t, 1.2, b.Leverage.GrossExposure, 1e-12, "skipped weight carries no exposure")

	// Currency exposure reflects the configured book, data or not.
	assert.InDelta(t, 0.9/1.3, b.CurrencyExposure["USD"], 1e-12)
}

func TestComputeNaNNeverLeaksIntoVitals(t *testing.T) {
	prices := engineFixture()
	// Punch holes in one column; aggregates must stay finite.
	if j, ok := prices.ColIndex("BBB"); ok {
		for i := 30; i < 60; i++ {
			prices.Data[i][j] = math.NaN()
		}
	}

	b, err := NewEngine(engineConfig()).Compute(context.Background(), Inputs{Prices: prices})
	require.NoError(t, err)

	for name, v := range map[string]float64{
		"beta": b.Beta, "annualVol": b.AnnualVol, "annualReturn": b.AnnualReturn,
		"sharpe": b.Sharpe, "sortino": b.Sortino, "maxDD": b.MaxDrawdown,
		"var95": b.VaR95, "cvar95": b.CVaR95, "ytd": b.YTDReturn,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "vital %s must be finite", name)
	}
}
