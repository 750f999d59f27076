// Package application wires the configured book, the market data provider and
// the risk engine into one runnable pipeline shared by the CLI and the API.
package application

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/config"
	"github.com/sawpanic/riskbook/internal/marketdata"
	"github.com/sawpanic/riskbook/internal/risk"
	"github.com/sawpanic/riskbook/internal/telemetry"
)

// Runner executes the full fetch-normalize-compute pipeline for one book.
type Runner struct {
	cfg      *config.PortfolioConfig
	provider marketdata.Provider
	seed     int64
}

// NewRunner pairs a validated book configuration with a data provider.
func NewRunner(cfg *config.PortfolioConfig, provider marketdata.Provider) *Runner {
	return &Runner{cfg: cfg, provider: provider}
}

// WithSeed pins the Monte Carlo seed for reproducible runs.
func (r *Runner) WithSeed(seed int64) *Runner {
	out := *r
	out.seed = seed
	return &out
}

// NewProvider builds the chart client described by the configuration,
// attaching the Redis frame cache when an address is configured and the
// server answers a ping.
func NewProvider(ctx context.Context, cfg *config.PortfolioConfig) marketdata.Provider {
	var cache *marketdata.FrameCache
	if cfg.Provider.RedisAddr != "" {
		candidate := marketdata.NewFrameCache(cfg.Provider.RedisAddr,
			time.Duration(cfg.Provider.CacheTTLSecs)*time.Second)
		if err := candidate.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Provider.RedisAddr).
				Msg("redis unreachable, frame cache disabled")
		} else {
			cache = candidate
		}
	}
	return marketdata.NewClient(marketdata.Options{
		BaseURL: cfg.Provider.BaseURL,
		RPS:     cfg.Provider.RPS,
		Burst:   cfg.Provider.Burst,
		Timeout: time.Duration(cfg.Provider.TimeoutMS) * time.Millisecond,
		Cache:   cache,
	})
}

// Run fetches history, converts foreign listings into the base currency and
// computes the risk bundle. FX fetch failures degrade to local-currency
// prices; only the equity fetch and the compute itself can fail the run.
func (r *Runner) Run(ctx context.Context) (*risk.Bundle, error) {
	start := time.Now().AddDate(-r.cfg.LookbackYears, 0, 0)

	prices, volumes, err := r.provider.DailyHistory(ctx, r.cfg.Tickers(), start)
	if err != nil {
		telemetry.ComputeErrors.WithLabelValues("fetch").Inc()
		return nil, err
	}
	marketdata.AuditHistory(prices, r.cfg.Tickers())

	fx, err := r.provider.FXHistory(ctx, r.cfg.FXPairs(), start)
	if err != nil {
		log.Warn().Err(err).Msg("FX history unavailable, keeping local-currency prices")
		fx = nil
	}

	positions := r.cfg.RiskPositions()
	prices = marketdata.NormalizeToBase(prices, fx, positions, r.cfg.BaseCurrency)

	rf := marketdata.RiskFreeRate(ctx, r.provider, r.cfg.RiskFreeTicker, r.cfg.RiskFreeDefault)

	engineCfg := r.cfg.EngineConfig(rf)
	engineCfg.Seed = r.seed
	engine := risk.NewEngine(engineCfg)
	computeStart := time.Now()
	bundle, err := engine.Compute(ctx, risk.Inputs{
		Prices:  prices,
		Volumes: volumes,
		FX:      fx,
	})
	telemetry.ComputeDuration.Observe(time.Since(computeStart).Seconds())
	if err != nil {
		reason := "compute"
		if errors.Is(err, risk.ErrInsufficientData) {
			reason = "insufficient_data"
		}
		telemetry.ComputeErrors.WithLabelValues(reason).Inc()
		return nil, err
	}
	return bundle, nil
}
