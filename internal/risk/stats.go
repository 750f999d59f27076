package risk

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// AnnualFactor is the trading-day annualization factor.
const AnnualFactor = 252

// rollingWindow is ~1 month of trading days.
const rollingWindow = 21

// validValues drops NaN observations.
func validValues(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// jointValid masks both slices down to indices where neither is NaN.
func jointValid(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	ca := make([]float64, 0, n)
	cb := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		ca = append(ca, a[i])
		cb = append(cb, b[i])
	}
	return ca, cb
}

// meanOf is the NaN-skipping arithmetic mean, 0 on empty input.
func meanOf(xs []float64) float64 {
	v := validValues(xs)
	m, err := stats.Mean(v)
	if err != nil {
		return 0
	}
	return m
}

// stdevOf is the NaN-skipping population standard deviation, 0 on empty input.
func stdevOf(xs []float64) float64 {
	v := validValues(xs)
	sd, err := stats.StandardDeviationPopulation(v)
	if err != nil {
		return 0
	}
	return sd
}

// sampleCov is the sample covariance over already-clean slices of equal
// length, 0 with fewer than 2 observations.
func sampleCov(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}
	c, err := stats.Covariance(a, b)
	if err != nil {
		return 0
	}
	return c
}

// Beta estimates the portfolio's sensitivity to the benchmark over jointly
// valid observations: sample covariance over population benchmark variance.
// Returns 0 when the benchmark variance is 0 or fewer than 2 joint
// observations exist.
func Beta(portfolio, benchmark []float64) float64 {
	p, b := jointValid(portfolio, benchmark)
	if len(b) < 2 {
		return 0
	}
	benchVar, err := stats.PopulationVariance(b)
	if err != nil || benchVar <= 0 {
		return 0
	}
	return sampleCov(p, b) / benchVar
}

// AnnualizedVol scales the daily population standard deviation by sqrt(252).
func AnnualizedVol(returns []float64) float64 {
	return stdevOf(returns) * math.Sqrt(AnnualFactor)
}

// AnnualizedReturn scales the mean daily return by 252.
func AnnualizedReturn(returns []float64) float64 {
	return meanOf(returns) * AnnualFactor
}

// SharpeRatio is the annualized excess return per unit of volatility, 0 when
// volatility is not positive.
func SharpeRatio(annualReturn, annualVol, riskFree float64) float64 {
	if annualVol <= 0 {
		return 0
	}
	return (annualReturn - riskFree) / annualVol
}

// SortinoRatio penalizes only downside volatility: the population standard
// deviation of negative daily returns, annualized. 0 when the downside
// deviation is not positive.
func SortinoRatio(returns []float64, annualReturn, riskFree float64) float64 {
	var downside []float64
	for _, r := range validValues(returns) {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	dd := stdevOf(downside) * math.Sqrt(AnnualFactor)
	if dd <= 0 {
		return 0
	}
	return (annualReturn - riskFree) / dd
}

// percentileLinear computes the p-th percentile (0..100) with linear
// interpolation between closest ranks, matching the convention the rest of
// the numerics were validated against. NaN on empty input.
func percentileLinear(xs []float64, p float64) float64 {
	v := validValues(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// TailRisk returns VaR(95) as the 5th percentile of the daily return
// distribution and CVaR(95) as the mean of returns at or below it. Both are 0
// when no valid observations exist.
func TailRisk(returns []float64) (var95, cvar95 float64) {
	v := validValues(returns)
	if len(v) == 0 {
		return 0, 0
	}
	var95 = percentileLinear(v, 5)
	var tail []float64
	for _, r := range v {
		if r <= var95 {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return var95, 0
	}
	return var95, meanOf(tail)
}

// CumulativeValue compounds daily returns into a value series starting at 1.0.
// NaN returns compound as zero change.
func CumulativeValue(returns []float64) []float64 {
	out := make([]float64, len(returns))
	v := 1.0
	for i, r := range returns {
		if !math.IsNaN(r) {
			v *= 1 + r
		}
		out[i] = v
	}
	return out
}

// DrawdownSeries maps a value series to its running drawdown:
// value/peak - 1, never positive.
func DrawdownSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	peak := math.Inf(-1)
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		if v > peak {
			peak = v
		}
		if peak == 0 {
			out[i] = 0
			continue
		}
		out[i] = v/peak - 1
	}
	return out
}

// MaxDrawdown is the deepest point of the drawdown series built from the
// compounded daily returns. 0 for an empty or monotonically rising stream.
func MaxDrawdown(returns []float64) float64 {
	return minOf(DrawdownSeries(CumulativeValue(returns)))
}

// minOf is the NaN-skipping minimum, 0 on empty input.
func minOf(xs []float64) float64 {
	m := math.Inf(1)
	found := false
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		if v < m {
			m = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return m
}

// JensensAlpha is the CAPM excess return of the portfolio over what its beta
// predicts.
func JensensAlpha(annualReturn, beta, annualBenchReturn, riskFree float64) float64 {
	expected := riskFree + beta*(annualBenchReturn-riskFree)
	return annualReturn - expected
}

// RollingVol annualizes the population standard deviation of the trailing
// window observations, falling back to the full-period annualized volatility
// when the stream is shorter than the window.
func RollingVol(returns []float64, window int) float64 {
	if len(returns) < window {
		return AnnualizedVol(returns)
	}
	return AnnualizedVol(returns[len(returns)-window:])
}
