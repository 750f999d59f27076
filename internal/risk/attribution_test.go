package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeSingleAsset(t *testing.T) {
	returns := frameOf(
		[]time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)},
		[]string{"AAA"},
		[][]float64{{0.01}, {-0.01}, {0.02}},
	)
	portfolio := []float64{0.01, -0.01, 0.02}
	active := []Position{{Ticker: "AAA", Weight: 1.0, Side: Long}}

	out := attribute(returns, portfolio, active)
	require.Len(t, out, 1)

	// A single fully-weighted asset carries the whole book; the sample/
	// population mismatch makes its risk share n/(n-1), not exactly 1.
	assert.InDelta(t, 1.5, out[0].PctRisk, 1e-9)
	assert.Equal(t, 1.0, out[0].Weight)

	vol := stdevOf(portfolio)
	assert.InDelta(t, out[0].MCTR, out[0].PctRisk*vol, 1e-12)
}

func TestAttributeShortSign(t *testing.T) {
	returns := frameOf(
		[]time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)},
		[]string{"AAA", "BBB"},
		[][]float64{{0.01, 0.01}, {-0.01, -0.01}, {0.02, 0.02}},
	)
	portfolio := []float64{0.005, -0.005, 0.01}
	active := []Position{
		{Ticker: "AAA", Weight: 1.0, Side: Long},
		{Ticker: "BBB", Weight: 0.5, Side: Short},
	}

	out := attribute(returns, portfolio, active)
	require.Len(t, out, 2)
	assert.Greater(t, out[0].MCTR, 0.0, "long leg adds risk against a long-tilted book")
	assert.Less(t, out[1].MCTR, 0.0, "short leg of a positively correlated pair hedges")
	assert.Equal(t, -0.5, out[1].Weight)
}

func TestAttributeZeroVolPortfolio(t *testing.T) {
	returns := frameOf(
		[]time.Time{day(2024, 1, 2), day(2024, 1, 3)},
		[]string{"AAA"},
		[][]float64{{0.01}, {-0.01}},
	)
	out := attribute(returns, []float64{0, 0}, []Position{{Ticker: "AAA", Weight: 1, Side: Long}})
	require.Len(t, out, 1)
	assert.Zero(t, out[0].MCTR)
	assert.Zero(t, out[0].PctRisk)
}
