package wizard

import (
	"net/url"
	"sort"

	"github.com/matthewbaird/contractwizard/internal/derive"
	"github.com/matthewbaird/contractwizard/internal/roster"
	"github.com/matthewbaird/contractwizard/internal/summary"
)

// Indicator marks a progress entry.
type Indicator string

const (
	IndicatorNone      Indicator = ""
	IndicatorActive    Indicator = "active"
	IndicatorCompleted Indicator = "completed"
)

// StepView is one step section and its progress indicator.
type StepView struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Visible   bool      `json:"visible"`
	Indicator Indicator `json:"indicator"`
}

// Buttons is the visibility of the navigation controls.
type Buttons struct {
	Prev   bool `json:"prev"`
	Next   bool `json:"next"`
	Submit bool `json:"submit"`
}

// InstallmentView is one formatted row of the schedule preview.
type InstallmentView struct {
	Number int    `json:"number"`
	Due    string `json:"due"`
	Amount string `json:"amount"`
}

// DerivedView holds the read-only values computed from the form.
// PaymentCount is the number of payments a year; ScheduleCount is the
// number of installments falling inside the term.
type DerivedView struct {
	EndDate       string            `json:"end_date"`
	DurationLabel string            `json:"duration_label,omitempty"`
	AnnualRent    string            `json:"annual_rent,omitempty"`
	PaymentAmount string            `json:"payment_amount,omitempty"`
	PaymentCount  int               `json:"payment_count"`
	ScheduleCount int               `json:"schedule_count"`
	Schedule      []InstallmentView `json:"schedule,omitempty"`
}

// View is everything a page needs to render the wizard at one instant.
type View struct {
	State      State             `json:"state"`
	Steps      []StepView        `json:"steps"`
	Buttons    Buttons           `json:"buttons"`
	Values     url.Values        `json:"values"`
	Invalid    map[string]string `json:"invalid"`
	Units      []roster.Badge    `json:"units"`
	Derived    DerivedView       `json:"derived"`
	Summary    *summary.Summary  `json:"summary,omitempty"`
	Submitting bool              `json:"submitting"`
	Submitted  bool              `json:"submitted"`
}

// InvalidFields returns the names of fields currently marked invalid,
// sorted.
func (v View) InvalidFields() []string {
	out := make([]string, 0, len(v.Invalid))
	for name := range v.Invalid {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// View snapshots the rendered state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, total := c.state.CurrentStep, c.state.TotalSteps
	v := View{
		State: c.state,
		Buttons: Buttons{
			Prev:   cur != 1,
			Next:   cur != total,
			Submit: cur == total,
		},
		Values:     c.payload(),
		Invalid:    make(map[string]string, len(c.invalid)),
		Units:      c.roster.Badges(),
		Derived:    c.derivedView(),
		Submitting: c.inflight != nil,
		Submitted:  c.submitted,
	}
	for _, s := range c.def.Steps {
		sv := StepView{Number: s.Number, Title: s.Title, Visible: s.Number == cur}
		switch {
		case s.Number < cur:
			sv.Indicator = IndicatorCompleted
		case s.Number == cur:
			sv.Indicator = IndicatorActive
		}
		v.Steps = append(v.Steps, sv)
	}
	for name, reason := range c.invalid {
		v.Invalid[name] = string(reason)
	}
	if cur == total && c.summary != nil {
		s := *c.summary
		v.Summary = &s
	}
	return v
}

func (c *Controller) derivedView() DerivedView {
	d := DerivedView{EndDate: c.end.Value}
	if c.end.OK {
		d.DurationLabel = c.format.DurationLabel(c.end.DurationMonths)
	}
	if !c.rent.OK {
		return d
	}
	d.AnnualRent = c.format.Amount(c.rent.AnnualCents)
	d.PaymentAmount = c.format.Amount(c.rent.PeriodCents)
	d.PaymentCount = c.rent.Periods
	if c.end.OK {
		rows := derive.Schedule(c.end.Start, c.end.End, c.rent.Frequency, c.rent.PeriodCents, c.policy)
		d.ScheduleCount = len(rows)
		for _, r := range rows {
			d.Schedule = append(d.Schedule, InstallmentView{
				Number: r.Number,
				Due:    r.Due,
				Amount: c.format.Amount(r.AmountCents),
			})
		}
	}
	return d
}
