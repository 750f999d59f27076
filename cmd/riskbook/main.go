package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "riskbook"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Long/short portfolio risk analytics",
		Version: version,
		Long: `riskbook computes the full risk profile of a long/short multi-currency
equity book: beta, volatility, drawdowns, YTD attribution, stress scenarios,
Monte Carlo projections and per-position periodic returns.

Prices are fetched from a chart API, converted to the base currency and fed
through a deterministic compute pipeline. Run 'riskbook report' for a console
report or 'riskbook serve' for the dashboard JSON API.`,
	}

	rootCmd.PersistentFlags().String("config", "config/portfolio.yaml", "Path to the portfolio configuration file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the risk bundle and print a console report",
		Long:  "Fetches history, computes every metric for the configured book and renders a console report",
		RunE:  runReport,
	}
	reportCmd.Flags().Bool("json", false, "Emit the dashboard JSON payload instead of the console report")
	reportCmd.Flags().Int64("seed", 0, "Monte Carlo seed (0 = time-based)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard JSON API",
		Long:  "Serves /api/metrics, /api/status, /health and the Prometheus /metrics endpoint",
		RunE:  runServe,
	}
	serveCmd.Flags().String("host", "127.0.0.1", "HTTP server host")
	serveCmd.Flags().Int("port", 8000, "HTTP server port")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)

	cobra.OnInitialize(func() {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	})

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
