package marketdata

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/risk"
	"github.com/sawpanic/riskbook/internal/timeseries"
)

// NormalizeToBase converts each position column listed in a foreign currency
// into the base currency by multiplying through the forward-filled FX rate for
// that date. Columns with no conversion pair available are left as-is with a
// warning so a missing FX feed degrades to unconverted prices instead of a
// hole in the book.
func NormalizeToBase(prices *timeseries.Frame, fx *timeseries.Frame, positions []risk.Position, base string) *timeseries.Frame {
	if prices.IsEmpty() {
		return prices
	}

	var fxRates map[string]map[time.Time]float64
	if !fx.IsEmpty() {
		filled := fx.ForwardFill()
		fxRates = make(map[string]map[time.Time]float64, len(filled.Tickers))
		for _, pair := range filled.Tickers {
			col, _ := filled.Column(pair)
			byDate := make(map[time.Time]float64, len(filled.Dates))
			for i, d := range filled.Dates {
				byDate[d] = col[i]
			}
			fxRates[pair] = byDate
		}
	}

	out := prices.SliceRows(0, prices.NumRows())
	for _, pos := range positions {
		if pos.Currency == "" || pos.Currency == base {
			continue
		}
		j, ok := out.ColIndex(pos.Ticker)
		if !ok {
			continue
		}
		pair := pos.Currency + base + "=X"
		rates, ok := fxRates[pair]
		if !ok {
			log.Warn().Str("ticker", pos.Ticker).Str("pair", pair).
				Msg("no FX series for listing currency, keeping local prices")
			continue
		}
		for i, d := range out.Dates {
			rate, ok := rates[d]
			if !ok || math.IsNaN(rate) {
				continue
			}
			out.Data[i][j] *= rate
		}
	}
	return out
}
