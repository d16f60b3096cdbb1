// Package types provides the small value types shared by the wizard packages:
// money in integer cents, calendar dates, payment frequencies and the
// value/label options a rendered form offers.
package types

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of every date field (HTML date inputs).
const DateLayout = "2006-01-02"

// Money represents a monetary amount using integer cents to eliminate
// floating-point errors in rent arithmetic.
type Money struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency,omitempty"` // ISO 4217, e.g. "SAR"
}

// ErrInvalidAmount is returned when a decimal amount cannot be parsed or
// does not fit in int64 cents.
var ErrInvalidAmount = errors.New("invalid amount")

// float64(math.MaxInt64) rounds up to 2^63, so any value at or above it
// does not convert.
const centsLimit = float64(math.MaxInt64)

// ParseCents parses a decimal amount such as "12000" or "833.5" into cents.
// Amounts are rounded half away from zero to the nearest cent.
func ParseCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	c := math.Round(f * 100)
	if math.Abs(c) >= centsLimit {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, raw)
	}
	return int64(c), nil
}

// Float returns the amount in major units, for display only.
func (m Money) Float() float64 {
	return float64(m.AmountCents) / 100
}

// DateRange represents a contract term with an optional end.
type DateRange struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// ParseDate parses a YYYY-MM-DD date in UTC. No timezone conversion is
// applied; the value is a calendar date.
func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
}

// Frequency is a payment frequency code as posted by the form.
type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiAnnual Frequency = "semi_annual"
	FrequencyAnnual     Frequency = "annual"
)

var periodsPerYear = map[Frequency]int{
	FrequencyMonthly:    12,
	FrequencyQuarterly:  4,
	FrequencySemiAnnual: 2,
	FrequencyAnnual:     1,
}

// PeriodsPerYear returns how many payments a year the frequency implies.
// Unknown codes fall back to monthly.
func (f Frequency) PeriodsPerYear() int {
	if n, ok := periodsPerYear[f]; ok {
		return n
	}
	return 12
}

// MonthsPerPeriod returns the number of months between two due dates.
func (f Frequency) MonthsPerPeriod() int {
	return 12 / f.PeriodsPerYear()
}

// Known reports whether f is one of the defined frequency codes.
func (f Frequency) Known() bool {
	_, ok := periodsPerYear[f]
	return ok
}

// Option is one selectable value of a select or checkbox group, paired with
// the label text the page shows for it.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DisplayLabel returns the label, falling back to the raw value when the
// page rendered no label for the option.
func (o Option) DisplayLabel() string {
	if l := strings.TrimSpace(o.Label); l != "" {
		return l
	}
	return o.Value
}

// FindOption returns the option with the given value.
func FindOption(opts []Option, value string) (Option, bool) {
	for _, o := range opts {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}
