package risk

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// composition is the output of the portfolio composer: the signed, weighted
// daily return streams plus the book's exposure profile.
type composition struct {
	gross []float64 // before financing drag, aligned to the return index
	net   []float64 // gross minus the constant daily drag

	longExposure  float64
	shortExposure float64
	dailyDrag     float64

	// active holds the book positions that actually had return data.
	active  []Position
	skipped []string
}

func (c *composition) leverage() LeverageStats {
	return LeverageStats{
		LongExposure:  c.longExposure,
		ShortExposure: c.shortExposure,
		GrossExposure: c.longExposure + c.shortExposure,
		NetExposure:   c.longExposure - c.shortExposure,
		DailyDrag:     c.dailyDrag,
	}
}

// compose builds the portfolio daily return series from per-asset returns.
// For every position with a matching return column it adds
// weight*sign*assetReturn to the running daily sum; a missing daily
// observation contributes zero for that day only, so one thin ticker never
// poisons the aggregate stream. Positions with no return column at all are
// skipped and reported, not treated as zero-weight cash.
func compose(returns *timeseries.Frame, positions []Position, marginRate, borrowFee float64) *composition {
	c := &composition{
		gross: make([]float64, returns.NumRows()),
		net:   make([]float64, returns.NumRows()),
	}

	for _, pos := range positions {
		col, ok := returns.Column(pos.Ticker)
		if !ok {
			c.skipped = append(c.skipped, pos.Ticker)
			log.Warn().Str("ticker", pos.Ticker).
				Msg("position has no return data, skipping")
			continue
		}
		if pos.Side == Short {
			c.shortExposure += pos.Weight
		} else {
			c.longExposure += pos.Weight
		}
		sw := pos.SignedWeight()
		for i, r := range col {
			if math.IsNaN(r) {
				continue
			}
			c.gross[i] += sw * r
		}
		c.active = append(c.active, pos)
	}

	// Financing drag: margin interest on the levered part of the long book
	// plus borrow fees on the whole short book, on a 360-day money-market
	// convention.
	financed := math.Max(0, c.longExposure-1.0)
	c.dailyDrag = financed*marginRate/360 + c.shortExposure*borrowFee/360

	for i, g := range c.gross {
		c.net[i] = g - c.dailyDrag
	}

	log.Debug().
		Float64("long", c.longExposure).
		Float64("short", c.shortExposure).
		Float64("daily_drag", c.dailyDrag).
		Int("active", len(c.active)).
		Int("skipped", len(c.skipped)).
		Msg("portfolio composed")

	return c
}

// currencyExposure splits gross exposure by listing currency across the whole
// configured book (including skipped tickers, since the exposure is a fact of
// the book, not the data).
func currencyExposure(positions []Position) map[string]float64 {
	out := map[string]float64{}
	gross := 0.0
	for _, pos := range positions {
		ccy := pos.Currency
		if ccy == "" {
			ccy = "USD"
		}
		out[ccy] += pos.Weight
		gross += pos.Weight
	}
	if gross > 0 {
		for ccy := range out {
			out[ccy] /= gross
		}
	}
	return out
}
