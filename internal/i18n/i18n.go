// Package i18n formats wizard output for the configured locale: grouped
// two-decimal amounts, counts, duration labels and summary headings.
// Message catalogs are embedded YAML files registered with x/text.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"
)

// Message keys used by the wizard.
const (
	KeyDurationMonth  = "duration.month"
	KeyDurationMonths = "duration.months"
	KeyCurrency       = "amount.currency"
	KeySummaryTenant  = "summary.tenant"
	KeySummaryUnits   = "summary.units"
	KeySummaryPeriod  = "summary.period"
	KeySummaryRent    = "summary.rent"
	KeySummaryFreq    = "summary.frequency"
)

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*.yaml
var localeFS embed.FS

var supported = mustRegister(localeFS)

func mustRegister(fsys fs.FS) []language.Tag {
	tags, err := Register(fsys)
	if err != nil {
		panic(err)
	}
	return tags
}

// Register loads locales/*.yaml from fsys into the default x/text catalog
// and returns the registered tags, English first.
func Register(fsys fs.FS) ([]language.Tag, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	tags := []language.Tag{language.English}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, err := language.Parse(file.Locale)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: locale %q: %w", path, file.Locale, err)
		}
		for key, msg := range file.Messages {
			if err := message.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("catalog %s: key %s: %w", path, key, err)
			}
		}
		if tag != language.English {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// Supported returns the locales with a registered catalog.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Normalize maps an arbitrary locale string onto the closest supported tag.
// Unknown or malformed values fall back to English.
func Normalize(locale string) language.Tag {
	matcher := language.NewMatcher(supported)
	_, idx, conf := matcher.Match(language.Make(locale))
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Formatter renders numbers and messages for one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a Formatter for the closest supported locale.
func NewFormatter(locale string) *Formatter {
	tag := Normalize(locale)
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Tag returns the resolved locale.
func (f *Formatter) Tag() language.Tag { return f.tag }

// Amount formats cents with locale grouping and exactly two decimals,
// e.g. 3000000 → "30,000.00" in English.
func (f *Formatter) Amount(cents int64) string {
	v := float64(cents) / 100
	return f.printer.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

// Count formats an integer with locale digits and grouping.
func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%v", number.Decimal(n))
}

// Currency appends the currency label to an already formatted amount.
func (f *Formatter) Currency(amount string) string {
	return f.printer.Sprintf(KeyCurrency, amount)
}

// DurationLabel renders a contract duration, e.g. "6 months".
func (f *Formatter) DurationLabel(months int) string {
	if months == 1 {
		return f.printer.Sprintf(KeyDurationMonth, months)
	}
	return f.printer.Sprintf(KeyDurationMonths, months)
}

// Text returns the translated message for key.
func (f *Formatter) Text(key string) string {
	return f.printer.Sprintf(key)
}
