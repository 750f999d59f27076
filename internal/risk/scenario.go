package risk

import (
	"math"
	"math/rand"
	"time"
)

// stressScenarios are the fixed market-move shocks applied to the book.
var stressScenarios = []struct {
	Name string
	Move float64
}{
	{"Market Crash (-10%)", -0.10},
	{"Market Correction (-5%)", -0.05},
	{"Market Rally (+5%)", 0.05},
	{"Market Surge (+10%)", 0.10},
}

// runStressTests estimates PnL for each scenario as beta * marketMove, a
// first-order linear approximation that assumes the correlation structure is
// preserved through the shock.
func runStressTests(beta float64) []StressResult {
	out := make([]StressResult, 0, len(stressScenarios))
	for _, sc := range stressScenarios {
		out = append(out, StressResult{
			Scenario:   sc.Name,
			MarketMove: sc.Move,
			Impact:     beta * sc.Move,
		})
	}
	return out
}

// MonteCarlo simulates sims independent portfolio value paths over days
// trading days under Geometric Brownian Motion:
//
//	step = exp((rf - sigma^2/2)*dt + sigma*sqrt(dt)*Z), dt = 1/252
//
// Every path starts at 1.0; the full N x (days+1) matrix is returned and
// percentile summarization is left to the caller. A seed of 0 draws a
// time-based seed.
func MonteCarlo(annualVol, riskFree float64, sims, days int, seed int64) *PathMatrix {
	if sims <= 0 || days <= 0 {
		return &PathMatrix{Days: 0, Paths: nil}
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	dt := 1.0 / AnnualFactor
	drift := riskFree - 0.5*annualVol*annualVol

	paths := make([][]float64, sims)
	for i := range paths {
		path := make([]float64, days+1)
		path[0] = 1.0
		for t := 1; t <= days; t++ {
			z := rng.NormFloat64()
			step := math.Exp(drift*dt + annualVol*math.Sqrt(dt)*z)
			path[t] = path[t-1] * step
		}
		paths[i] = path
	}
	return &PathMatrix{Days: days, Paths: paths}
}

// Percentile returns the per-step p-th percentile across all paths, a
// convenience for presentation layers drawing confidence cones.
func (pm *PathMatrix) Percentile(p float64) []float64 {
	if pm == nil || len(pm.Paths) == 0 {
		return nil
	}
	steps := pm.Days + 1
	out := make([]float64, steps)
	col := make([]float64, len(pm.Paths))
	for t := 0; t < steps; t++ {
		for i, path := range pm.Paths {
			col[i] = path[t]
		}
		out[t] = percentileLinear(col, p)
	}
	return out
}
