// Package summary renders the read-only recap shown on the final step.
package summary

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"github.com/matthewbaird/contractwizard/internal/i18n"
)

// Summary holds the collected values exactly as the form displays them.
// Nothing here is validated.
type Summary struct {
	Tenant     string   `json:"tenant"`
	UnitLabels []string `json:"unit_labels"`
	Units      string   `json:"units"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Amount     string   `json:"amount"`
	Frequency  string   `json:"frequency"`
}

// New builds a Summary, joining the unit labels with ", ".
func New(tenant string, unitLabels []string, start, end, amount, frequency string) Summary {
	return Summary{
		Tenant:     tenant,
		UnitLabels: append([]string(nil), unitLabels...),
		Units:      strings.Join(unitLabels, ", "),
		StartDate:  start,
		EndDate:    end,
		Amount:     amount,
		Frequency:  frequency,
	}
}

// Period returns the "start - end" pair.
func (s Summary) Period() string {
	return s.StartDate + " - " + s.EndDate
}

var blockTemplate = template.Must(template.New("summary").Parse(`<div class="row g-3">
  <div class="col-md-6"><strong>{{.L.Tenant}}:</strong> {{.S.Tenant}}</div>
  <div class="col-md-6"><strong>{{.L.Units}}:</strong> {{.S.Units}}</div>
  <div class="col-md-6"><strong>{{.L.Period}}:</strong> {{.S.Period}}</div>
  <div class="col-md-6"><strong>{{.L.Rent}}:</strong> {{.Amount}}</div>
  <div class="col-md-6"><strong>{{.L.Frequency}}:</strong> {{.S.Frequency}}</div>
</div>
`))

type headings struct {
	Tenant, Units, Period, Rent, Frequency string
}

// Render writes the fixed-layout summary block as HTML.
func Render(w io.Writer, s Summary, f *i18n.Formatter) error {
	return blockTemplate.Execute(w, struct {
		S      Summary
		L      headings
		Amount string
	}{
		S: s,
		L: headings{
			Tenant:    f.Text(i18n.KeySummaryTenant),
			Units:     f.Text(i18n.KeySummaryUnits),
			Period:    f.Text(i18n.KeySummaryPeriod),
			Rent:      f.Text(i18n.KeySummaryRent),
			Frequency: f.Text(i18n.KeySummaryFreq),
		},
		Amount: f.Currency(s.Amount),
	})
}

// HTML renders the summary block to a string.
func HTML(s Summary, f *i18n.Formatter) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, s, f); err != nil {
		return "", err
	}
	return buf.String(), nil
}
