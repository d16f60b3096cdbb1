package derive

import (
	"strings"

	"github.com/matthewbaird/contractwizard/internal/types"
)

// Rent is the per-period breakdown of an annual rent.
type Rent struct {
	Frequency   types.Frequency `json:"frequency"`
	Periods     int             `json:"periods"`
	AnnualCents int64           `json:"annual_cents"`
	PeriodCents int64           `json:"period_cents"`
	// OK is false when the annual amount was missing or not a number; the
	// breakdown then reports zero amounts.
	OK bool `json:"ok"`
}

// ComputeRent divides the raw annual amount by the periods per year of the
// raw frequency code. Unknown codes count as monthly. The per-period amount
// is rounded half up to the cent.
func ComputeRent(annual, frequency string) Rent {
	freq := types.Frequency(strings.TrimSpace(frequency))
	r := Rent{Frequency: freq, Periods: freq.PeriodsPerYear()}
	cents, err := types.ParseCents(annual)
	if err != nil {
		return r
	}
	r.OK = true
	r.AnnualCents = cents
	r.PeriodCents = divRound(cents, int64(r.Periods))
	return r
}

// divRound divides n by a positive d, rounding halves away from zero.
func divRound(n, d int64) int64 {
	q, r := n/d, n%d
	if r < 0 {
		if -r >= d+r {
			q--
		}
		return q
	}
	if r >= d-r {
		q++
	}
	return q
}
