package risk

import (
	"math"
	"time"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// correlationMatrix computes the plain pairwise Pearson correlation of every
// column in the return frame over jointly valid observations. Pairs with
// fewer than 2 joint observations or zero variance yield NaN cells, which the
// serialization layer reports as missing.
func correlationMatrix(returns *timeseries.Frame) Matrix {
	n := len(returns.Tickers)
	m := Matrix{Tickers: append([]string(nil), returns.Tickers...), Cells: make([][]float64, n)}
	cols := make([][]float64, n)
	for j, t := range returns.Tickers {
		cols[j], _ = returns.Column(t)
	}
	for i := 0; i < n; i++ {
		m.Cells[i] = make([]float64, n)
		for j := range m.Cells[i] {
			m.Cells[i][j] = math.NaN()
		}
		m.Cells[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := pearson(cols[i], cols[j])
			m.Cells[i][j], m.Cells[j][i] = c, c
		}
	}
	return m
}

func pearson(a, b []float64) float64 {
	ca, cb := jointValid(a, b)
	if len(ca) < 2 {
		return math.NaN()
	}
	ma, mb := meanOf(ca), meanOf(cb)
	var num, da, db float64
	for i := range ca {
		x, y := ca[i]-ma, cb[i]-mb
		num += x * y
		da += x * x
		db += y * y
	}
	den := math.Sqrt(da * db)
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// volumeWindow is the trailing window for liquidity-weighted correlation.
const volumeWindow = 365 * 24 * time.Hour

// volumeWeightedCorrelation builds the dollar-volume-weighted correlation
// matrix over the trailing year for the active book. Each day of a pair is
// weighted by sqrt(dollarVolume_i * dollarVolume_j), weights normalized to
// sum to 1 over the window. Days where either return or either dollar volume
// is unavailable are excluded from that pair. Missing volume data degrades to
// an empty matrix, never an error; an all-zero volume matrix yields the
// identity-diagonal matrix since every weight sum is 0.
func volumeWeightedCorrelation(returns, prices, volumes *timeseries.Frame, active []Position) Matrix {
	if volumes.IsEmpty() || returns.IsEmpty() {
		return Matrix{}
	}

	lastDate := prices.Dates[prices.NumRows()-1]
	cutoff := lastDate.Add(-volumeWindow)
	from := returns.SearchDate(cutoff)
	sub := returns.SliceRows(from, returns.NumRows())

	filled := prices.ForwardFill()
	priceRow := make(map[time.Time]int, filled.NumRows())
	for i, d := range filled.Dates {
		priceRow[d] = i
	}
	volRow := make(map[time.Time]int, volumes.NumRows())
	for i, d := range volumes.Dates {
		volRow[d] = i
	}

	var tickers []string
	for _, pos := range active {
		if sub.HasTicker(pos.Ticker) && volumes.HasTicker(pos.Ticker) {
			tickers = append(tickers, pos.Ticker)
		}
	}
	if len(tickers) == 0 {
		return Matrix{}
	}

	n := len(tickers)
	days := sub.NumRows()
	rets := make([][]float64, n)
	dollarVol := make([][]float64, n)
	for k, t := range tickers {
		rets[k], _ = sub.Column(t)
		dollarVol[k] = make([]float64, days)
		for i, d := range sub.Dates {
			price := math.NaN()
			if ri, ok := priceRow[d]; ok {
				price = filled.At(ri, t)
			}
			vol := 0.0 // zero-fill missing volume days
			if ri, ok := volRow[d]; ok {
				if v := volumes.At(ri, t); !math.IsNaN(v) {
					vol = v
				}
			}
			dollarVol[k][i] = price * vol
		}
	}

	m := Matrix{Tickers: tickers, Cells: make([][]float64, n)}
	for i := 0; i < n; i++ {
		m.Cells[i] = make([]float64, n)
		m.Cells[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := weightedCorr(rets[i], rets[j], dollarVol[i], dollarVol[j])
			m.Cells[i][j], m.Cells[j][i] = c, c
		}
	}
	return m
}

func weightedCorr(r1, r2, dv1, dv2 []float64) float64 {
	var xs, ys, ws []float64
	for i := range r1 {
		if math.IsNaN(r1[i]) || math.IsNaN(r2[i]) || math.IsNaN(dv1[i]) || math.IsNaN(dv2[i]) {
			continue
		}
		xs = append(xs, r1[i])
		ys = append(ys, r2[i])
		ws = append(ws, math.Sqrt(dv1[i]*dv2[i]))
	}
	wsum := 0.0
	for _, w := range ws {
		wsum += w
	}
	if wsum == 0 {
		return 0
	}
	var mu1, mu2 float64
	for i := range ws {
		ws[i] /= wsum
		mu1 += xs[i] * ws[i]
		mu2 += ys[i] * ws[i]
	}
	var cov, var1, var2 float64
	for i := range ws {
		d1, d2 := xs[i]-mu1, ys[i]-mu2
		cov += ws[i] * d1 * d2
		var1 += ws[i] * d1 * d1
		var2 += ws[i] * d2 * d2
	}
	if var1 <= 0 || var2 <= 0 {
		return 0
	}
	return cov / math.Sqrt(var1*var2)
}
