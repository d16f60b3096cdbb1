// Package form checks field values against their declared constraints, the
// server-side counterpart of a browser's constraint validation.
package form

import (
	"math"
	"strconv"
	"strings"

	"github.com/matthewbaird/contractwizard/internal/definition"
	"github.com/matthewbaird/contractwizard/internal/types"
)

// Reason names the first constraint a field value failed.
type Reason string

const (
	Valid           Reason = ""
	ValueMissing    Reason = "value_missing"
	TypeMismatch    Reason = "type_mismatch"
	RangeUnderflow  Reason = "range_underflow"
	RangeOverflow   Reason = "range_overflow"
	PatternMismatch Reason = "pattern_mismatch"
	UnknownOption   Reason = "unknown_option"
	TooFewItems     Reason = "too_few_items"
	BeforeStart     Reason = "before_start"
)

// Check returns the validity of values for field f. opts holds the options
// offered for select and checkbox-group fields; when nil the field's static
// options apply.
func Check(f definition.Field, values []string, opts []types.Option) Reason {
	if opts == nil {
		opts = f.Options
	}
	nonEmpty := compact(values)

	if f.Kind == definition.KindCheckboxGroup {
		if len(nonEmpty) == 0 && (f.Required || f.MinItems > 0) {
			return ValueMissing
		}
		for _, v := range nonEmpty {
			if _, ok := types.FindOption(opts, v); !ok {
				return UnknownOption
			}
		}
		if len(nonEmpty) < f.MinItems {
			return TooFewItems
		}
		return Valid
	}

	var value string
	if len(nonEmpty) > 0 {
		value = nonEmpty[0]
	}
	if value == "" {
		if f.Required {
			return ValueMissing
		}
		return Valid
	}

	switch f.Kind {
	case definition.KindNumber, definition.KindInteger:
		n, ok := parseNumber(value, f.Kind == definition.KindInteger)
		if !ok {
			return TypeMismatch
		}
		if f.Min != nil && n < *f.Min {
			return RangeUnderflow
		}
		if f.Max != nil && n > *f.Max {
			return RangeOverflow
		}
	case definition.KindDate:
		if _, err := types.ParseDate(value); err != nil {
			return TypeMismatch
		}
	case definition.KindSelect:
		if _, ok := types.FindOption(opts, value); !ok {
			return UnknownOption
		}
	}

	if re := f.PatternRegexp(); re != nil && !re.MatchString(value) {
		return PatternMismatch
	}
	return Valid
}

func parseNumber(s string, integer bool) (float64, bool) {
	if integer {
		n, err := strconv.ParseInt(s, 10, 64)
		return float64(n), err == nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
