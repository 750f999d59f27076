package timeseries

import (
	"math"
	"sort"
	"time"
)

// Frame is a date-indexed matrix of float64 observations, one column per
// ticker. Dates are ascending and unique; missing observations are NaN. The
// engine treats frames as immutable snapshots: every transformation returns a
// new frame and never writes through to the input.
type Frame struct {
	Dates   []time.Time
	Tickers []string
	// Data is row-major: Data[i][j] is the value for Tickers[j] on Dates[i].
	Data [][]float64

	cols map[string]int
}

// NewFrame allocates a frame of NaNs for the given date index and tickers.
func NewFrame(dates []time.Time, tickers []string) *Frame {
	f := &Frame{
		Dates:   dates,
		Tickers: tickers,
		Data:    make([][]float64, len(dates)),
	}
	for i := range f.Data {
		row := make([]float64, len(tickers))
		for j := range row {
			row[j] = math.NaN()
		}
		f.Data[i] = row
	}
	f.reindex()
	return f
}

func (f *Frame) reindex() {
	f.cols = make(map[string]int, len(f.Tickers))
	for j, t := range f.Tickers {
		f.cols[t] = j
	}
}

// NumRows returns the number of dates in the frame.
func (f *Frame) NumRows() int { return len(f.Dates) }

// IsEmpty reports whether the frame is nil or has no rows.
func (f *Frame) IsEmpty() bool { return f == nil || len(f.Dates) == 0 }

// HasTicker reports whether the frame carries a column for ticker.
func (f *Frame) HasTicker(ticker string) bool {
	if f == nil {
		return false
	}
	_, ok := f.cols[ticker]
	return ok
}

// ColIndex returns the column position for ticker.
func (f *Frame) ColIndex(ticker string) (int, bool) {
	if f == nil {
		return 0, false
	}
	j, ok := f.cols[ticker]
	return j, ok
}

// Set stores a value for (row, ticker). Unknown tickers are ignored.
func (f *Frame) Set(row int, ticker string, v float64) {
	if j, ok := f.cols[ticker]; ok {
		f.Data[row][j] = v
	}
}

// At returns the value for (row, ticker), NaN when the column is unknown.
func (f *Frame) At(row int, ticker string) float64 {
	j, ok := f.cols[ticker]
	if !ok {
		return math.NaN()
	}
	return f.Data[row][j]
}

// Column returns the raw column for ticker, aligned to Dates. The returned
// slice may contain NaN.
func (f *Frame) Column(ticker string) ([]float64, bool) {
	j, ok := f.cols[ticker]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(f.Dates))
	for i := range f.Dates {
		out[i] = f.Data[i][j]
	}
	return out, true
}

// SeriesOf extracts the column for ticker as a clean Series with NaN
// observations dropped.
func (f *Frame) SeriesOf(ticker string) Series {
	j, ok := f.cols[ticker]
	if !ok {
		return Series{}
	}
	var s Series
	for i := range f.Dates {
		v := f.Data[i][j]
		if !math.IsNaN(v) {
			s.Dates = append(s.Dates, f.Dates[i])
			s.Values = append(s.Values, v)
		}
	}
	return s
}

// SearchDate returns the index of the first row whose date is >= target,
// or NumRows() when every row predates the target.
func (f *Frame) SearchDate(target time.Time) int {
	return sort.Search(len(f.Dates), func(i int) bool {
		return !f.Dates[i].Before(target)
	})
}

// SliceRows returns a copy of rows [from, to).
func (f *Frame) SliceRows(from, to int) *Frame {
	if from < 0 {
		from = 0
	}
	if to > len(f.Dates) {
		to = len(f.Dates)
	}
	if from > to {
		from = to
	}
	out := &Frame{
		Dates:   append([]time.Time(nil), f.Dates[from:to]...),
		Tickers: append([]string(nil), f.Tickers...),
		Data:    make([][]float64, to-from),
	}
	for i := from; i < to; i++ {
		out.Data[i-from] = append([]float64(nil), f.Data[i]...)
	}
	out.reindex()
	return out
}

// ForwardFill carries the last observed value of each column forward over NaN
// gaps (holidays, partial listings). Leading NaNs stay NaN.
func (f *Frame) ForwardFill() *Frame {
	out := f.SliceRows(0, len(f.Dates))
	for j := range out.Tickers {
		last := math.NaN()
		for i := range out.Dates {
			if math.IsNaN(out.Data[i][j]) {
				out.Data[i][j] = last
			} else {
				last = out.Data[i][j]
			}
		}
	}
	return out
}

// PctChange derives simple period-over-period returns: r[i] = p[i]/p[i-1] - 1.
// The first row is dropped. A return is NaN when either endpoint is missing or
// the base price is zero.
func (f *Frame) PctChange() *Frame {
	if len(f.Dates) < 2 {
		return NewFrame(nil, append([]string(nil), f.Tickers...))
	}
	out := NewFrame(append([]time.Time(nil), f.Dates[1:]...), append([]string(nil), f.Tickers...))
	for i := 1; i < len(f.Dates); i++ {
		for j := range f.Tickers {
			prev, cur := f.Data[i-1][j], f.Data[i][j]
			if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
				continue
			}
			out.Data[i-1][j] = cur/prev - 1
		}
	}
	return out
}

// DropAllNaN removes rows where every column is NaN. Rows where only some
// columns are missing are kept.
func (f *Frame) DropAllNaN() *Frame {
	out := &Frame{Tickers: append([]string(nil), f.Tickers...)}
	for i, row := range f.Data {
		allNaN := true
		for _, v := range row {
			if !math.IsNaN(v) {
				allNaN = false
				break
			}
		}
		if allNaN {
			continue
		}
		out.Dates = append(out.Dates, f.Dates[i])
		out.Data = append(out.Data, append([]float64(nil), row...))
	}
	out.reindex()
	return out
}

// Rebase divides every column by its value on the first row, so each column
// starts at 1.0. Columns whose base value is missing or zero become all-NaN.
func (f *Frame) Rebase() *Frame {
	out := f.SliceRows(0, len(f.Dates))
	if len(out.Dates) == 0 {
		return out
	}
	for j := range out.Tickers {
		base := out.Data[0][j]
		for i := range out.Dates {
			if math.IsNaN(base) || base == 0 {
				out.Data[i][j] = math.NaN()
				continue
			}
			out.Data[i][j] /= base
		}
	}
	return out
}
