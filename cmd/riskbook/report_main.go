package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/riskbook/internal/application"
	"github.com/sawpanic/riskbook/internal/config"
	"github.com/sawpanic/riskbook/internal/httpapi"
	"github.com/sawpanic/riskbook/internal/risk"
)

// runReport executes one full pipeline pass and renders the result.
func runReport(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	asJSON, _ := cmd.Flags().GetBool("json")
	seed, _ := cmd.Flags().GetInt64("seed")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	provider := application.NewProvider(ctx, cfg)
	runner := application.NewRunner(cfg, provider)
	if seed != 0 {
		runner = runner.WithSeed(seed)
	}

	bundle, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(httpapi.MetricsPayload(bundle))
	}

	printReport(bundle, cfg)
	return nil
}

func printReport(b *risk.Bundle, cfg *config.PortfolioConfig) {
	fmt.Printf("\n━━━ Portfolio Risk Report ━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Benchmark: %s   Period: %s → %s (%.1fy)\n\n",
		cfg.Benchmark,
		b.Period.Start.Format("2006-01-02"),
		b.Period.End.Format("2006-01-02"),
		b.Period.Years)

	fmt.Printf("Vitals\n")
	fmt.Printf("  Beta            %8.2f    Annual Return  %8.2f%%\n", b.Beta, b.AnnualReturn*100)
	fmt.Printf("  Annual Vol      %7.2f%%    Sharpe         %8.2f\n", b.AnnualVol*100, b.Sharpe)
	fmt.Printf("  Sortino         %8.2f    Jensen's Alpha %8.2f%%\n", b.Sortino, b.JensensAlpha*100)
	fmt.Printf("  Max Drawdown    %7.2f%%    Rolling 1M Vol %7.2f%%\n", b.MaxDrawdown*100, b.Rolling1MVol*100)
	fmt.Printf("  VaR 95 (daily)  %7.2f%%    CVaR 95        %7.2f%%\n\n", b.VaR95*100, b.CVaR95*100)

	fmt.Printf("Year to Date\n")
	fmt.Printf("  Portfolio       %7.2f%%    Benchmark      %7.2f%%\n", b.YTDReturn*100, b.BenchmarkYTD*100)
	fmt.Printf("  Alpha           %7.2f%%    Beta           %8.2f\n", b.YTDAlpha*100, b.YTDBeta)
	fmt.Printf("  Longs Contrib   %7.2f%%    Shorts Contrib %7.2f%%\n", b.YTDLongsContrib*100, b.YTDShortsContrib*100)
	if cfg.ReportingFX != "" {
		fmt.Printf("  In %-12s %7.2f%%\n", cfg.ReportingFX, b.YTDReportingReturn*100)
	}
	labels := make([]string, 0, len(b.SecondaryYTD))
	for label := range b.SecondaryYTD {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Printf("  %-14s %7.2f%%\n", label+" YTD", b.SecondaryYTD[label]*100)
	}
	fmt.Println()

	lv := b.Leverage
	fmt.Printf("Leverage\n")
	fmt.Printf("  Long %.2fx  Short %.2fx  Gross %.2fx  Net %.2fx  Drag -%.2f%%/yr\n\n",
		lv.LongExposure, lv.ShortExposure, lv.GrossExposure, lv.NetExposure, lv.DailyDrag*360*100)

	fmt.Printf("Stress Scenarios (beta-linear)\n")
	for _, st := range b.StressTests {
		fmt.Printf("  %-26s %+7.2f%%\n", st.Scenario, st.Impact*100)
	}
	fmt.Println()

	fmt.Printf("Top Risk Contributors\n")
	rows := append([]risk.Attribution(nil), b.RiskAttribution...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].PctRisk > rows[j].PctRisk })
	if len(rows) > 8 {
		rows = rows[:8]
	}
	for _, row := range rows {
		fmt.Printf("  %-10s weight %+6.2f%%  risk share %6.1f%%\n",
			row.Ticker, row.Weight*100, row.PctRisk*100)
	}
	fmt.Println()

	fmt.Printf("Periodic Returns\n")
	fmt.Printf("  %-10s %8s %8s %8s %8s %8s\n", "Ticker", "YTD", "1M", "1Y", "3Y", "5Y")
	for _, pr := range b.PeriodicReturns {
		fmt.Printf("  %-10s %s %s %s %s %s\n", pr.Ticker,
			pct(pr.YTD), pct(pr.R1M), pct(pr.R1Y), pct(pr.R3Y), pct(pr.R5Y))
	}

	if len(b.SkippedTickers) > 0 {
		fmt.Printf("\nSkipped (no data): %v\n", b.SkippedTickers)
	}
	fmt.Println()
}

// pct formats a fractional return, rendering missing horizons as a dash.
func pct(v float64) string {
	if v != v {
		return fmt.Sprintf("%8s", "-")
	}
	return fmt.Sprintf("%7.1f%%", v*100)
}
