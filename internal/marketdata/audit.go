package marketdata

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// minHealthyRows is roughly ten months of trading days; a shorter column
// cannot support the longer trailing horizons.
const minHealthyRows = 200

// QualityIssue flags one problematic column found during the pre-compute audit.
type QualityIssue struct {
	Ticker string
	Status string // missing | empty | thin
	Rows   int
}

// AuditHistory checks the fetched price matrix against the symbols the book
// expects and logs what it finds. The audit never blocks a run; the engine
// has its own degradation rules for thin columns.
func AuditHistory(prices *timeseries.Frame, expected []string) []QualityIssue {
	var issues []QualityIssue
	for _, ticker := range expected {
		if !prices.HasTicker(ticker) {
			issues = append(issues, QualityIssue{Ticker: ticker, Status: "missing"})
			continue
		}
		col, _ := prices.Column(ticker)
		rows := 0
		for _, v := range col {
			if !math.IsNaN(v) {
				rows++
			}
		}
		switch {
		case rows == 0:
			issues = append(issues, QualityIssue{Ticker: ticker, Status: "empty"})
		case rows < minHealthyRows:
			issues = append(issues, QualityIssue{Ticker: ticker, Status: "thin", Rows: rows})
		}
	}

	for _, issue := range issues {
		log.Warn().Str("ticker", issue.Ticker).Str("status", issue.Status).
			Int("rows", issue.Rows).Msg("price history quality issue")
	}
	if len(issues) == 0 {
		log.Debug().Int("symbols", len(expected)).Msg("price history audit clean")
	}
	return issues
}
