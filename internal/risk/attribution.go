package risk

import (
	"github.com/sawpanic/riskbook/internal/timeseries"
)

// attribute computes each active position's marginal contribution to total
// portfolio risk:
//
//	MCTR_i = Cov(asset_i, portfolio) * signedWeight_i / stdev(portfolio)
//	PctRisk_i = MCTR_i / stdev(portfolio)
//
// Covariance runs over jointly valid observations only. When the portfolio
// volatility is zero or an asset has fewer than 2 joint observations its
// contribution is zero; nothing errors here. The signed MCTRs only
// approximate the total volatility, so the additivity is diagnostic, not
// enforced.
func attribute(returns *timeseries.Frame, portfolio []float64, active []Position) []Attribution {
	out := make([]Attribution, 0, len(active))
	dailyVol := stdevOf(portfolio)
	for _, pos := range active {
		a := Attribution{Ticker: pos.Ticker, Weight: pos.SignedWeight()}
		if dailyVol > 0 {
			if col, ok := returns.Column(pos.Ticker); ok {
				asset, port := jointValid(col, portfolio)
				cov := sampleCov(asset, port)
				a.MCTR = cov * a.Weight / dailyVol
				a.PctRisk = a.MCTR / dailyVol
			}
		}
		out = append(out, a)
	}
	return out
}
