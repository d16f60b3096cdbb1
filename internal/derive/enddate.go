// Package derive computes the read-only fields of the contract form from
// their source fields: the end date of the term, the per-period rent
// breakdown and the payment schedule preview.
package derive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matthewbaird/contractwizard/internal/types"
)

// MonthPolicy decides what calendar month addition does when the start day
// does not exist in the target month (January 31 plus one month).
type MonthPolicy string

const (
	// PolicyClamp moves to the last day of the target month: 2024-01-31 + 1
	// month is 2024-02-29.
	PolicyClamp MonthPolicy = "clamp"
	// PolicyOverflow carries the surplus days into the following month the
	// way time.AddDate and browser Date.setMonth do: 2024-01-31 + 1 month is
	// 2024-03-02.
	PolicyOverflow MonthPolicy = "overflow"
)

// ParseMonthPolicy validates a policy name.
func ParseMonthPolicy(s string) (MonthPolicy, error) {
	switch p := MonthPolicy(strings.TrimSpace(s)); p {
	case PolicyClamp, PolicyOverflow:
		return p, nil
	case "":
		return PolicyClamp, nil
	default:
		return "", fmt.Errorf("unknown month policy %q", s)
	}
}

// AddMonths adds n calendar months to t under policy p.
func AddMonths(t time.Time, n int, p MonthPolicy) time.Time {
	if p == PolicyOverflow {
		return t.AddDate(0, n, 0)
	}
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// MaxDurationMonths bounds the contract term.
const MaxDurationMonths = 1200

// EndDate is the derived end of the contract term. When OK is false every
// display value is empty and the end-date field must be cleared.
type EndDate struct {
	OK             bool      `json:"ok"`
	Start          time.Time `json:"-"`
	End            time.Time `json:"-"`
	DurationMonths int       `json:"duration_months,omitempty"`
	Value          string    `json:"value"`
}

// ComputeEndDate derives the end date from the raw start-date and duration
// field values. A missing or malformed start date, or a duration that is not
// an integer in 1..MaxDurationMonths, yields a cleared result.
func ComputeEndDate(start, duration string, p MonthPolicy) EndDate {
	if strings.TrimSpace(start) == "" {
		return EndDate{}
	}
	s, err := types.ParseDate(start)
	if err != nil {
		return EndDate{}
	}
	months, err := strconv.Atoi(strings.TrimSpace(duration))
	if err != nil || months <= 0 || months > MaxDurationMonths {
		return EndDate{}
	}
	end := AddMonths(s, months, p)
	return EndDate{
		OK:             true,
		Start:          s,
		End:            end,
		DurationMonths: months,
		Value:          end.Format(types.DateLayout),
	}
}
