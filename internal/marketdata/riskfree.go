package marketdata

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/risk"
)

// RiskFreeRate resolves the annualized risk-free rate from a yield-index
// quote (e.g. ^TNX, quoted in percent). Any failure falls back to fallback,
// or the engine default when fallback is not positive.
func RiskFreeRate(ctx context.Context, p Provider, ticker string, fallback float64) float64 {
	if fallback <= 0 {
		fallback = risk.DefaultRiskFree
	}
	if ticker == "" || p == nil {
		return fallback
	}
	quote, err := p.LatestClose(ctx, ticker)
	if err != nil || math.IsNaN(quote) || quote <= 0 {
		log.Warn().Err(err).Str("ticker", ticker).Float64("fallback", fallback).
			Msg("risk-free quote unavailable, using fallback")
		return fallback
	}
	return quote / 100.0
}
