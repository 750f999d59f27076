package timeseries

import (
	"math"
	"sort"
	"time"
)

// Series is an ordered sequence of (date, value) observations with ascending,
// unique dates and no NaN values. Columns extracted from a Frame are cleaned
// before they become a Series.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Dates) }

// IsEmpty reports whether the series has no observations.
func (s Series) IsEmpty() bool { return len(s.Dates) == 0 }

// Last returns the most recent value, or NaN for an empty series.
func (s Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// SearchDate returns the index of the first observation whose date is >= target.
// Returns Len() when every observation predates the target.
func (s Series) SearchDate(target time.Time) int {
	return sort.Search(len(s.Dates), func(i int) bool {
		return !s.Dates[i].Before(target)
	})
}

// AnchorValue resolves the reference price for a cumulative return measured
// against target: the exact observation when the date is present, otherwise the
// latest observation strictly before the target, otherwise the earliest
// available observation. ok is false only for an empty series.
func (s Series) AnchorValue(target time.Time) (float64, bool) {
	if len(s.Dates) == 0 {
		return 0, false
	}
	idx := s.SearchDate(target)
	if idx < len(s.Dates) && s.Dates[idx].Equal(target) {
		return s.Values[idx], true
	}
	if idx > 0 {
		return s.Values[idx-1], true
	}
	return s.Values[0], true
}

// TrailingReturn computes the simple return over the trailing horizon trading
// observations: (last - v[n-1-horizon]) / v[n-1-horizon]. It is defined only
// when the series has more than horizon observations and the base value is
// non-zero; NaN otherwise.
func (s Series) TrailingReturn(horizon int) float64 {
	n := len(s.Values)
	if horizon <= 0 || n <= horizon {
		return math.NaN()
	}
	base := s.Values[n-1-horizon]
	if base == 0 {
		return math.NaN()
	}
	return (s.Values[n-1] - base) / base
}
