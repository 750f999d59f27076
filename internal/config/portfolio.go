package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/riskbook/internal/risk"
)

// PortfolioConfig is the complete book configuration loaded from YAML.
type PortfolioConfig struct {
	BaseCurrency        string            `yaml:"base_currency"`
	Benchmark           string            `yaml:"benchmark"`
	SecondaryBenchmarks map[string]string `yaml:"secondary_benchmarks"`
	ReportingFX         string            `yaml:"reporting_fx"`
	FXWatchlist         []string          `yaml:"fx_watchlist"`

	LookbackYears int `yaml:"lookback_years"`

	// Cost-of-carry assumptions.
	MarginRate float64 `yaml:"margin_rate"` // annual rate on borrowed cash
	BorrowFee  float64 `yaml:"borrow_fee"`  // annual hard-to-borrow estimate

	RiskFreeDefault float64 `yaml:"risk_free_default"`
	RiskFreeTicker  string  `yaml:"risk_free_ticker"`

	MonteCarlo MonteCarloConfig `yaml:"monte_carlo"`

	Positions []PositionConfig `yaml:"positions"`

	Provider ProviderConfig `yaml:"provider"`
}

// MonteCarloConfig sizes the forward simulation.
type MonteCarloConfig struct {
	Sims int `yaml:"sims"`
	Days int `yaml:"days"`
}

// PositionConfig is one book line as configured.
type PositionConfig struct {
	Ticker   string  `yaml:"ticker"`
	Weight   float64 `yaml:"weight"`
	Side     string  `yaml:"side"` // long | short
	Currency string  `yaml:"currency"`
}

// ProviderConfig tunes the market-data collaborator.
type ProviderConfig struct {
	BaseURL      string `yaml:"base_url"`
	RPS          int    `yaml:"rps"`
	Burst        int    `yaml:"burst"`
	TimeoutMS    int    `yaml:"timeout_ms"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs"`
	RedisAddr    string `yaml:"redis_addr"` // empty disables the frame cache
}

// Load reads and validates a portfolio configuration file.
func Load(path string) (*PortfolioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio config: %w", err)
	}

	var cfg PortfolioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portfolio config: %w", err)
	}
	return &cfg, nil
}

func (c *PortfolioConfig) applyDefaults() {
	if c.BaseCurrency == "" {
		c.BaseCurrency = "USD"
	}
	if c.LookbackYears <= 0 {
		c.LookbackYears = 6
	}
	if c.RiskFreeDefault <= 0 {
		c.RiskFreeDefault = risk.DefaultRiskFree
	}
	if c.MonteCarlo.Sims <= 0 {
		c.MonteCarlo.Sims = 1000
	}
	if c.MonteCarlo.Days <= 0 {
		c.MonteCarlo.Days = 60
	}
	if c.Provider.RPS <= 0 {
		c.Provider.RPS = 2
	}
	if c.Provider.Burst < c.Provider.RPS {
		c.Provider.Burst = c.Provider.RPS
	}
	if c.Provider.TimeoutMS <= 0 {
		c.Provider.TimeoutMS = 10000
	}
	if c.Provider.CacheTTLSecs <= 0 {
		c.Provider.CacheTTLSecs = 900
	}
}

// Validate ensures the configuration describes a computable book.
func (c *PortfolioConfig) Validate() error {
	if c.Benchmark == "" {
		return fmt.Errorf("benchmark cannot be empty")
	}
	if len(c.Positions) == 0 {
		return fmt.Errorf("at least one position is required")
	}
	if c.MarginRate < 0 {
		return fmt.Errorf("margin_rate cannot be negative, got %f", c.MarginRate)
	}
	if c.BorrowFee < 0 {
		return fmt.Errorf("borrow_fee cannot be negative, got %f", c.BorrowFee)
	}
	seen := map[string]bool{}
	for i, pos := range c.Positions {
		if err := pos.Validate(); err != nil {
			return fmt.Errorf("position %d (%s): %w", i, pos.Ticker, err)
		}
		if seen[pos.Ticker] {
			return fmt.Errorf("duplicate position ticker %s", pos.Ticker)
		}
		seen[pos.Ticker] = true
	}
	return nil
}

// Validate checks one book line.
func (p *PositionConfig) Validate() error {
	if p.Ticker == "" {
		return fmt.Errorf("ticker cannot be empty")
	}
	if p.Weight <= 0 || p.Weight > 1 {
		return fmt.Errorf("weight must be in (0, 1], got %f", p.Weight)
	}
	switch strings.ToLower(p.Side) {
	case "long", "short":
	default:
		return fmt.Errorf("side must be long or short, got %q", p.Side)
	}
	return nil
}

// RiskPositions maps the configured book into engine positions.
func (c *PortfolioConfig) RiskPositions() []risk.Position {
	out := make([]risk.Position, 0, len(c.Positions))
	for _, p := range c.Positions {
		side := risk.Long
		if strings.EqualFold(p.Side, "short") {
			side = risk.Short
		}
		ccy := p.Currency
		if ccy == "" {
			ccy = c.BaseCurrency
		}
		out = append(out, risk.Position{
			Ticker:   p.Ticker,
			Weight:   p.Weight,
			Side:     side,
			Currency: ccy,
		})
	}
	return out
}

// EngineConfig assembles the risk engine configuration for this book.
func (c *PortfolioConfig) EngineConfig(riskFree float64) risk.Config {
	if riskFree <= 0 {
		riskFree = c.RiskFreeDefault
	}
	return risk.Config{
		Positions:           c.RiskPositions(),
		Benchmark:           c.Benchmark,
		RiskFree:            riskFree,
		MarginRate:          c.MarginRate,
		BorrowFee:           c.BorrowFee,
		ReportingFX:         c.ReportingFX,
		FXWatchlist:         c.FXWatchlist,
		SecondaryBenchmarks: c.SecondaryBenchmarks,
		MonteCarloSims:      c.MonteCarlo.Sims,
		MonteCarloDays:      c.MonteCarlo.Days,
	}
}

// FXPairs lists every FX series the book needs: conversion pairs for each
// non-base listing currency plus the watchlist and reporting pairs.
func (c *PortfolioConfig) FXPairs() []string {
	seen := map[string]bool{}
	var out []string
	add := func(pair string) {
		if pair != "" && !seen[pair] {
			seen[pair] = true
			out = append(out, pair)
		}
	}
	for _, p := range c.Positions {
		if p.Currency != "" && p.Currency != c.BaseCurrency {
			add(p.Currency + c.BaseCurrency + "=X")
		}
	}
	for _, pair := range c.FXWatchlist {
		add(pair)
	}
	add(c.ReportingFX)
	return out
}

// Tickers lists every equity series the book needs, benchmarks included.
func (c *PortfolioConfig) Tickers() []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, p := range c.Positions {
		add(p.Ticker)
	}
	add(c.Benchmark)
	for _, t := range c.SecondaryBenchmarks {
		add(t)
	}
	return out
}
