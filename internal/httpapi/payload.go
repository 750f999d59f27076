package httpapi

import (
	"math"
	"sort"

	"github.com/sawpanic/riskbook/internal/risk"
)

// Chart curves are scaled so the UI plots round account values.
const (
	historyBase = 1000
	ytdBase     = 100000
)

// fp sanitizes one value for JSON: NaN and Inf become null so the frontend
// never sees a bare "NaN" token.
func fp(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type vitalsDTO struct {
	Beta                  *float64 `json:"beta"`
	AnnualReturn          *float64 `json:"annualReturn"`
	AnnualVol             *float64 `json:"annualVol"`
	Sharpe                *float64 `json:"sharpe"`
	Sortino               *float64 `json:"sortino"`
	MaxDrawdown           *float64 `json:"maxDrawdown"`
	Rolling1MVol          *float64 `json:"rolling1mVol"`
	Rolling1MVolBenchmark *float64 `json:"rolling1mVolBenchmark"`
	VaR95                 *float64 `json:"var95"`
	CVaR95                *float64 `json:"cvar95"`
	JensensAlpha          *float64 `json:"jensensAlpha"`

	PeriodInfo periodDTO `json:"periodInfo"`

	YTDReturn               *float64 `json:"ytdReturn"`
	YTDAlpha                *float64 `json:"ytdAlpha"`
	BenchmarkYTD            *float64 `json:"benchmarkYtd"`
	YTDBeta                 *float64 `json:"ytdBeta"`
	YTDVol                  *float64 `json:"ytdVol"`
	YTDMaxDrawdown          *float64 `json:"ytdMaxDrawdown"`
	BenchmarkYTDMaxDrawdown *float64 `json:"benchmarkYtdMaxDrawdown"`
	YTDSharpe               *float64 `json:"ytdSharpe"`
	BenchmarkYTDSharpe      *float64 `json:"benchmarkYtdSharpe"`
	BenchmarkHistSharpe     *float64 `json:"benchmarkHistSharpe"`
	YTDReturnReporting      *float64 `json:"ytdReturnReporting"`
	YTDLongsContrib         *float64 `json:"ytdLongsContrib"`
	YTDShortsContrib        *float64 `json:"ytdShortsContrib"`

	SecondaryYTD     map[string]*float64 `json:"secondaryYtd"`
	FXWatchlist      map[string]*float64 `json:"fxWatchlist"`
	CurrencyExposure map[string]float64  `json:"currencyExposure"`
}

type periodDTO struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Years float64 `json:"years"`
}

type leverageDTO struct {
	LongExp   *float64 `json:"longExp"`
	ShortExp  *float64 `json:"shortExp"`
	GrossExp  *float64 `json:"grossExp"`
	NetExp    *float64 `json:"netExp"`
	DailyDrag *float64 `json:"dailyDrag"`
}

type attributionDTO struct {
	Ticker  string   `json:"ticker"`
	Weight  *float64 `json:"weight"`
	PctRisk *float64 `json:"pctRisk"`
	MCTR    *float64 `json:"mctr"`
}

type stressDTO struct {
	Scenario   string   `json:"scenario"`
	MarketMove *float64 `json:"marketMove"`
	Impact     *float64 `json:"impact"`
}

type matrixDTO struct {
	Tickers []string     `json:"tickers"`
	Matrix  [][]*float64 `json:"matrix"`
}

type periodicDTO struct {
	Ticker          string   `json:"ticker"`
	YTD             *float64 `json:"ytd"`
	R1M             *float64 `json:"r1m"`
	R1Y             *float64 `json:"r1y"`
	R3Y             *float64 `json:"r3y"`
	R5Y             *float64 `json:"r5y"`
	YTDContribution *float64 `json:"ytdContribution"`
	Weight          *float64 `json:"weight"`
	Direction       string   `json:"direction"`
}

type conePointDTO struct {
	Day int      `json:"day"`
	P05 *float64 `json:"p05"`
	P50 *float64 `json:"p50"`
	P95 *float64 `json:"p95"`
}

type historyPointDTO struct {
	Date      string   `json:"date"`
	Portfolio *float64 `json:"portfolio"`
	Benchmark *float64 `json:"benchmark"`
	Drawdown  *float64 `json:"drawdown,omitempty"`
}

type metricsResponse struct {
	Error                     string            `json:"error,omitempty"`
	Vitals                    vitalsDTO         `json:"vitals"`
	Leverage                  leverageDTO       `json:"leverage"`
	RiskAttribution           []attributionDTO  `json:"riskAttribution"`
	StressTests               []stressDTO       `json:"stressTests"`
	VolumeWeightedCorrelation matrixDTO         `json:"volumeWeightedCorrelation"`
	PeriodicReturns           []periodicDTO     `json:"periodicReturns"`
	MonteCarlo                []conePointDTO    `json:"monteCarlo"`
	History                   []historyPointDTO `json:"history"`
	YTDHistory                []historyPointDTO `json:"ytdHistory"`
	SkippedTickers            []string          `json:"skippedTickers,omitempty"`
}

// emptyMetricsResponse is what the API returns when the engine could not
// compute anything at all: zeroed vitals with the error attached, so the
// frontend renders a degraded dashboard instead of breaking.
func emptyMetricsResponse(err error) metricsResponse {
	zero := 0.0
	z := func() *float64 { v := zero; return &v }
	return metricsResponse{
		Error: err.Error(),
		Vitals: vitalsDTO{
			Beta: z(), AnnualReturn: z(), AnnualVol: z(), Sharpe: z(),
			Sortino: z(), MaxDrawdown: z(), CVaR95: z(), Rolling1MVol: z(),
		},
		RiskAttribution:           []attributionDTO{},
		StressTests:               []stressDTO{},
		VolumeWeightedCorrelation: matrixDTO{Tickers: []string{}, Matrix: [][]*float64{}},
		PeriodicReturns:           []periodicDTO{},
		MonteCarlo:                []conePointDTO{},
		History:                   []historyPointDTO{},
		YTDHistory:                []historyPointDTO{},
	}
}

// MetricsPayload exposes the wire payload for callers outside the server,
// e.g. the CLI's JSON report mode.
func MetricsPayload(b *risk.Bundle) interface{} {
	return buildMetricsResponse(b)
}

// buildMetricsResponse flattens a bundle into the wire payload.
func buildMetricsResponse(b *risk.Bundle) metricsResponse {
	resp := metricsResponse{
		Vitals: vitalsDTO{
			Beta:                  fp(b.Beta),
			AnnualReturn:          fp(b.AnnualReturn),
			AnnualVol:             fp(b.AnnualVol),
			Sharpe:                fp(b.Sharpe),
			Sortino:               fp(b.Sortino),
			MaxDrawdown:           fp(b.MaxDrawdown),
			Rolling1MVol:          fp(b.Rolling1MVol),
			Rolling1MVolBenchmark: fp(b.BenchmarkRolling1MVol),
			VaR95:                 fp(b.VaR95),
			CVaR95:                fp(b.CVaR95),
			JensensAlpha:          fp(b.JensensAlpha),
			PeriodInfo: periodDTO{
				Start: b.Period.Start.Format("2006-01-02"),
				End:   b.Period.End.Format("2006-01-02"),
				Years: b.Period.Years,
			},
			YTDReturn:               fp(b.YTDReturn),
			YTDAlpha:                fp(b.YTDAlpha),
			BenchmarkYTD:            fp(b.BenchmarkYTD),
			YTDBeta:                 fp(b.YTDBeta),
			YTDVol:                  fp(b.YTDVol),
			YTDMaxDrawdown:          fp(b.YTDMaxDrawdown),
			BenchmarkYTDMaxDrawdown: fp(b.BenchmarkYTDMaxDrawdown),
			YTDSharpe:               fp(b.YTDSharpe),
			BenchmarkYTDSharpe:      fp(b.BenchmarkYTDSharpe),
			BenchmarkHistSharpe:     fp(b.BenchmarkHistSharpe),
			YTDReturnReporting:      fp(b.YTDReportingReturn),
			YTDLongsContrib:         fp(b.YTDLongsContrib),
			YTDShortsContrib:        fp(b.YTDShortsContrib),
			SecondaryYTD:            sanitizeMap(b.SecondaryYTD),
			FXWatchlist:             sanitizeMap(b.FXWatchlistYTD),
			CurrencyExposure:        b.CurrencyExposure,
		},
		Leverage: leverageDTO{
			LongExp:   fp(b.Leverage.LongExposure),
			ShortExp:  fp(b.Leverage.ShortExposure),
			GrossExp:  fp(b.Leverage.GrossExposure),
			NetExp:    fp(b.Leverage.NetExposure),
			DailyDrag: fp(b.Leverage.DailyDrag),
		},
		RiskAttribution:           buildAttribution(b.RiskAttribution),
		StressTests:               buildStress(b.StressTests),
		VolumeWeightedCorrelation: buildMatrix(b.VolumeWeightedCorrelation),
		PeriodicReturns:           buildPeriodic(b.PeriodicReturns),
		MonteCarlo:                buildCone(b.MonteCarlo),
		History:                   buildHistory(b),
		YTDHistory:                buildYTDHistory(b),
		SkippedTickers:            b.SkippedTickers,
	}
	return resp
}

func sanitizeMap(in map[string]float64) map[string]*float64 {
	out := make(map[string]*float64, len(in))
	for k, v := range in {
		out[k] = fp(v)
	}
	return out
}

func buildAttribution(rows []risk.Attribution) []attributionDTO {
	out := make([]attributionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, attributionDTO{
			Ticker:  row.Ticker,
			Weight:  fp(row.Weight),
			PctRisk: fp(row.PctRisk),
			MCTR:    fp(row.MCTR),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return deref(out[i].PctRisk) > deref(out[j].PctRisk)
	})
	return out
}

func deref(p *float64) float64 {
	if p == nil {
		return math.Inf(-1)
	}
	return *p
}

func buildStress(rows []risk.StressResult) []stressDTO {
	out := make([]stressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, stressDTO{
			Scenario:   row.Scenario,
			MarketMove: fp(row.MarketMove),
			Impact:     fp(row.Impact),
		})
	}
	return out
}

func buildMatrix(m risk.Matrix) matrixDTO {
	dto := matrixDTO{Tickers: []string{}, Matrix: [][]*float64{}}
	if m.IsEmpty() {
		return dto
	}
	dto.Tickers = m.Tickers
	dto.Matrix = make([][]*float64, len(m.Cells))
	for i, row := range m.Cells {
		cells := make([]*float64, len(row))
		for j, v := range row {
			cells[j] = fp(v)
		}
		dto.Matrix[i] = cells
	}
	return dto
}

func buildPeriodic(rows []risk.PeriodicReturn) []periodicDTO {
	out := make([]periodicDTO, 0, len(rows))
	for _, row := range rows {
		dto := periodicDTO{
			Ticker:          row.Ticker,
			YTD:             fp(row.YTD),
			R1M:             fp(row.R1M),
			R1Y:             fp(row.R1Y),
			R3Y:             fp(row.R3Y),
			R5Y:             fp(row.R5Y),
			YTDContribution: fp(row.YTDContribution),
			Direction:       string(row.Side),
		}
		if row.Weight > 0 {
			dto.Weight = fp(row.Weight)
		}
		out = append(out, dto)
	}
	return out
}

func buildCone(pm *risk.PathMatrix) []conePointDTO {
	if pm == nil || len(pm.Paths) == 0 {
		return []conePointDTO{}
	}
	p05 := pm.Percentile(5)
	p50 := pm.Percentile(50)
	p95 := pm.Percentile(95)
	out := make([]conePointDTO, 0, pm.Days+1)
	for t := 0; t <= pm.Days; t++ {
		out = append(out, conePointDTO{
			Day: t,
			P05: fp(p05[t]),
			P50: fp(p50[t]),
			P95: fp(p95[t]),
		})
	}
	return out
}

// buildHistory compounds the gross and benchmark return streams into
// account-value curves from a round starting base.
func buildHistory(b *risk.Bundle) []historyPointDTO {
	gross := b.GrossStream
	if gross.IsEmpty() {
		return []historyPointDTO{}
	}
	portCum := risk.CumulativeValue(gross.Values)
	benchByDate := make(map[string]float64, b.BenchmarkStream.Len())
	if !b.BenchmarkStream.IsEmpty() {
		benchCum := risk.CumulativeValue(b.BenchmarkStream.Values)
		for i, d := range b.BenchmarkStream.Dates {
			benchByDate[d.Format("2006-01-02")] = benchCum[i]
		}
	}

	out := make([]historyPointDTO, 0, gross.Len())
	for i, d := range gross.Dates {
		date := d.Format("2006-01-02")
		point := historyPointDTO{
			Date:      date,
			Portfolio: fp(portCum[i] * historyBase),
		}
		if bench, ok := benchByDate[date]; ok {
			point.Benchmark = fp(bench * historyBase)
		}
		if i < len(b.DrawdownStream.Values) {
			point.Drawdown = fp(b.DrawdownStream.Values[i])
		}
		out = append(out, point)
	}
	return out
}

// buildYTDHistory scales the rebased YTD value curve and compounds the
// aligned benchmark YTD returns from the same base.
func buildYTDHistory(b *risk.Bundle) []historyPointDTO {
	port := b.YTDStream
	if port.IsEmpty() {
		return []historyPointDTO{}
	}

	benchRet := make(map[string]float64, b.YTDBenchmarkStream.Len())
	for i, d := range b.YTDBenchmarkStream.Dates {
		benchRet[d.Format("2006-01-02")] = b.YTDBenchmarkStream.Values[i]
	}

	out := make([]historyPointDTO, 0, port.Len())
	benchVal := 1.0
	for i, d := range port.Dates {
		date := d.Format("2006-01-02")
		if r, ok := benchRet[date]; ok && !math.IsNaN(r) {
			benchVal *= 1 + r
		}
		out = append(out, historyPointDTO{
			Date:      date,
			Portfolio: fp(port.Values[i] * ytdBase),
			Benchmark: fp(benchVal * ytdBase),
		})
	}
	return out
}
