package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(dates []time.Time, tickers []string, rows [][]float64) *Frame {
	f := NewFrame(dates, tickers)
	for i, row := range rows {
		for j, v := range row {
			f.Data[i][j] = v
		}
	}
	return f
}

func TestPctChange(t *testing.T) {
	nan := math.NaN()
	f := testFrame(
		[]time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3), d(2024, 1, 4)},
		[]string{"AAA", "BBB"},
		[][]float64{
			{100, 50},
			{110, nan},
			{99, 60},
			{99, 0},
		},
	)

	r := f.PctChange()
	require.Equal(t, 3, r.NumRows())
	assert.Equal(t, d(2024, 1, 2), r.Dates[0])

	assert.InDelta(t, 0.10, r.At(0, "AAA"), 1e-12)
	assert.InDelta(t, -0.10, r.At(1, "AAA"), 1e-12)
	assert.InDelta(t, 0.0, r.At(2, "AAA"), 1e-12)

	// Either endpoint missing yields NaN for that day only.
	assert.True(t, math.IsNaN(r.At(0, "BBB")))
	assert.True(t, math.IsNaN(r.At(1, "BBB")))
	assert.InDelta(t, -1.0, r.At(2, "BBB"), 1e-12)

	t.Run("zero base is NaN", func(t *testing.T) {
		z := testFrame(
			[]time.Time{d(2024, 1, 1), d(2024, 1, 2)},
			[]string{"AAA"},
			[][]float64{{0}, {10}},
		)
		assert.True(t, math.IsNaN(z.PctChange().At(0, "AAA")))
	})

	t.Run("single row yields empty frame", func(t *testing.T) {
		one := testFrame([]time.Time{d(2024, 1, 1)}, []string{"AAA"}, [][]float64{{1}})
		assert.Equal(t, 0, one.PctChange().NumRows())
	})
}

func TestForwardFill(t *testing.T) {
	nan := math.NaN()
	f := testFrame(
		[]time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3)},
		[]string{"AAA"},
		[][]float64{{nan}, {5}, {nan}},
	)

	filled := f.ForwardFill()
	assert.True(t, math.IsNaN(filled.At(0, "AAA")), "leading NaN stays")
	assert.Equal(t, 5.0, filled.At(1, "AAA"))
	assert.Equal(t, 5.0, filled.At(2, "AAA"))

	// Input untouched.
	assert.True(t, math.IsNaN(f.At(2, "AAA")))
}

func TestDropAllNaN(t *testing.T) {
	nan := math.NaN()
	f := testFrame(
		[]time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3)},
		[]string{"AAA", "BBB"},
		[][]float64{{nan, nan}, {1, nan}, {nan, nan}},
	)

	out := f.DropAllNaN()
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, d(2024, 1, 2), out.Dates[0])
	assert.Equal(t, 1.0, out.At(0, "AAA"))
}

func TestRebase(t *testing.T) {
	nan := math.NaN()
	f := testFrame(
		[]time.Time{d(2024, 1, 1), d(2024, 1, 2)},
		[]string{"AAA", "BBB", "CCC"},
		[][]float64{{100, nan, 0}, {110, 5, 3}},
	)

	r := f.Rebase()
	assert.InDelta(t, 1.0, r.At(0, "AAA"), 1e-12)
	assert.InDelta(t, 1.1, r.At(1, "AAA"), 1e-12)
	assert.True(t, math.IsNaN(r.At(1, "BBB")), "NaN base poisons the column")
	assert.True(t, math.IsNaN(r.At(1, "CCC")), "zero base poisons the column")
}

func TestSliceRowsCopies(t *testing.T) {
	f := testFrame(
		[]time.Time{d(2024, 1, 1), d(2024, 1, 2)},
		[]string{"AAA"},
		[][]float64{{1}, {2}},
	)
	s := f.SliceRows(0, 2)
	s.Data[0][0] = 99
	assert.Equal(t, 1.0, f.At(0, "AAA"))

	t.Run("out of range clamps", func(t *testing.T) {
		assert.Equal(t, 2, f.SliceRows(-5, 10).NumRows())
		assert.Equal(t, 0, f.SliceRows(3, 1).NumRows())
	})
}

func TestSeriesOfDropsNaN(t *testing.T) {
	nan := math.NaN()
	f := testFrame(
		[]time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3)},
		[]string{"AAA"},
		[][]float64{{1}, {nan}, {3}},
	)
	s := f.SeriesOf("AAA")
	require.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{1, 3}, s.Values)
	assert.Equal(t, d(2024, 1, 3), s.Dates[1])

	assert.True(t, f.SeriesOf("missing").IsEmpty())
}

func TestFrameNilSafety(t *testing.T) {
	var f *Frame
	assert.True(t, f.IsEmpty())
	assert.False(t, f.HasTicker("AAA"))
}
