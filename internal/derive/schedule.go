package derive

import (
	"time"

	"github.com/matthewbaird/contractwizard/internal/types"
)

// MaxInstallments caps the schedule preview.
const MaxInstallments = 1000

// Installment is one due date of the payment schedule preview.
type Installment struct {
	Number      int       `json:"number"`
	DueDate     time.Time `json:"-"`
	Due         string    `json:"due"`
	AmountCents int64     `json:"amount_cents"`
}

// Schedule lists the due dates start + k·period months that fall strictly
// before end, each carrying the per-period amount. Offsets are computed from
// start rather than from the previous due date so clamped month ends do not
// drift (Jan 31, Feb 29, Mar 31 rather than Mar 29).
func Schedule(start, end time.Time, freq types.Frequency, periodCents int64, p MonthPolicy) []Installment {
	if !end.After(start) {
		return nil
	}
	step := freq.MonthsPerPeriod()
	var out []Installment
	for k := 0; k < MaxInstallments; k++ {
		due := AddMonths(start, k*step, p)
		if !due.Before(end) {
			break
		}
		out = append(out, Installment{
			Number:      k + 1,
			DueDate:     due,
			Due:         due.Format(types.DateLayout),
			AmountCents: periodCents,
		})
	}
	return out
}
