package risk

// Side is the direction of a position in the book.
type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// Sign returns the multiplier applied to the asset's return: +1 for longs,
// -1 for shorts.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Position is one line of the static book: an exposure fraction of equity on a
// single ticker. Weights are not required to sum to 1 (leverage is allowed).
type Position struct {
	Ticker   string
	Weight   float64
	Side     Side
	Currency string
}

// SignedWeight returns weight with the side's direction applied.
func (p Position) SignedWeight() float64 {
	return p.Weight * p.Side.Sign()
}
