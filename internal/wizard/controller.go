// Package wizard implements the step wizard controller of the contract
// form: step navigation gated by validation, derived-field computation, the
// selected-unit roster, the final-step summary and single-flight submission.
//
// A Controller owns all wizard state for one page view. Its methods are safe
// for concurrent use; each call is applied atomically, which gives every
// session the single-threaded event model of a page.
package wizard

import (
	"context"
	"net/url"
	"sync"

	"github.com/matthewbaird/contractwizard/internal/definition"
	"github.com/matthewbaird/contractwizard/internal/derive"
	"github.com/matthewbaird/contractwizard/internal/form"
	"github.com/matthewbaird/contractwizard/internal/i18n"
	"github.com/matthewbaird/contractwizard/internal/roster"
	"github.com/matthewbaird/contractwizard/internal/submit"
	"github.com/matthewbaird/contractwizard/internal/summary"
	"github.com/matthewbaird/contractwizard/internal/types"
)

// Field names the controller binds to.
const (
	FieldTenant     = "tenant"
	FieldUnits      = "units"
	FieldStartDate  = "start_date"
	FieldDuration   = "contract_duration_months"
	FieldEndDate    = "end_date"
	FieldAnnualRent = "annual_rent"
	FieldFrequency  = "payment_frequency"
)

// InvalidMarker is the class a page applies to an invalid field.
const InvalidMarker = "is-invalid"

// Submitter delivers the completed form.
type Submitter interface {
	Submit(ctx context.Context, form url.Values) (submit.Receipt, error)
}

// State is the navigation state.
type State struct {
	CurrentStep int `json:"current_step"`
	TotalSteps  int `json:"total_steps"`
}

// Options configures a new Controller.
type Options struct {
	Tenants []types.Option
	Units   []types.Option
	// Values seeds the form, e.g. from a restored draft. Read-only fields
	// are ignored.
	Values    url.Values
	Policy    derive.MonthPolicy
	Formatter *i18n.Formatter
}

// bindings resolves the named fields the derivations and summary read.
// A nil handle means the definition does not declare that field.
type bindings struct {
	tenant     *definition.Field
	units      *definition.Field
	startDate  *definition.Field
	duration   *definition.Field
	endDate    *definition.Field
	annualRent *definition.Field
	frequency  *definition.Field
}

func bind(def *definition.Wizard) bindings {
	lookup := func(name string) *definition.Field {
		f, ok := def.Field(name)
		if !ok {
			return nil
		}
		return &f
	}
	return bindings{
		tenant:     lookup(FieldTenant),
		units:      lookup(FieldUnits),
		startDate:  lookup(FieldStartDate),
		duration:   lookup(FieldDuration),
		endDate:    lookup(FieldEndDate),
		annualRent: lookup(FieldAnnualRent),
		frequency:  lookup(FieldFrequency),
	}
}

type submitToken struct {
	cancel context.CancelFunc
}

// Controller is the state owner of one wizard instance.
type Controller struct {
	mu sync.Mutex

	def         *definition.Wizard
	fields      bindings
	transitions map[int][]int
	policy      derive.MonthPolicy
	format      *i18n.Formatter

	state   State
	values  url.Values
	tenants []types.Option
	roster  *roster.Roster
	invalid map[string]form.Reason

	end  derive.EndDate
	rent derive.Rent

	summary   *summary.Summary
	inflight  *submitToken
	submitted bool
}

// New binds a controller to def and enters step 1.
func New(def *definition.Wizard, opts Options) *Controller {
	if opts.Policy == "" {
		opts.Policy = derive.PolicyClamp
	}
	if opts.Formatter == nil {
		opts.Formatter = i18n.NewFormatter("en")
	}
	c := &Controller{
		def:         def,
		fields:      bind(def),
		transitions: transitionTable(def.TotalSteps()),
		policy:      opts.Policy,
		format:      opts.Formatter,
		state:       State{CurrentStep: 1, TotalSteps: def.TotalSteps()},
		values:      url.Values{},
		tenants:     append([]types.Option(nil), opts.Tenants...),
		roster:      roster.New(opts.Units),
		invalid:     make(map[string]form.Reason),
	}
	for _, f := range def.Fields() {
		if f.Default != "" && !f.ReadOnly {
			c.values.Set(f.Name, f.Default)
		}
	}
	for name, vals := range opts.Values {
		f, ok := def.Field(name)
		if !ok || f.ReadOnly {
			continue
		}
		c.assign(f, vals)
	}
	c.syncUnits()
	c.recompute()
	c.enter(1)
	return c
}

// State returns the navigation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetFields applies field input events. Every name must be declared;
// values for read-only (derived) fields are ignored. Derived fields are
// recomputed before returning.
func (c *Controller) SetFields(vals url.Values) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range vals {
		if _, ok := c.def.Field(name); !ok {
			return &FieldError{Name: name}
		}
	}
	for name, v := range vals {
		f, _ := c.def.Field(name)
		if f.ReadOnly {
			continue
		}
		c.assign(f, v)
	}
	c.syncUnits()
	c.recompute()
	return nil
}

// SetUnit applies one unit checkbox change. It reports false for a value
// that is not offered.
func (c *Controller) SetUnit(value string, checked bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.roster.SetChecked(value, checked)
	c.syncUnits()
	return ok
}

// ToggleUnit flips one unit checkbox.
func (c *Controller) ToggleUnit(value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.roster.Toggle(value)
	c.syncUnits()
	return ok
}

// RemoveUnit handles the remove affordance of a roster badge.
func (c *Controller) RemoveUnit(value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.roster.Remove(value)
	c.syncUnits()
	return ok
}

// ValidateStep checks the required fields of step s, updating the invalid
// markers, and reports whether all of them are valid.
func (c *Controller) ValidateStep(s int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateStep(s)
}

// Move is the outcome of a navigation action.
type Move struct {
	From    int      `json:"from"`
	To      int      `json:"to"`
	Moved   bool     `json:"moved"`
	Blocked bool     `json:"blocked"`
	Invalid []string `json:"invalid,omitempty"`
}

// Advance moves to the next step when the current one validates. It is a
// no-op on the final step.
func (c *Controller) Advance() Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.state.CurrentStep
	m := Move{From: from, To: from}
	if !c.validateStep(from) {
		m.Blocked = true
		m.Invalid = c.invalidIn(from)
		return m
	}
	if from == c.state.TotalSteps {
		return m
	}
	c.moveTo(from + 1)
	m.To, m.Moved = from+1, true
	return m
}

// Retreat moves to the previous step unconditionally. It is a no-op on
// step 1.
func (c *Controller) Retreat() Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.state.CurrentStep
	m := Move{From: from, To: from}
	if from == 1 {
		return m
	}
	c.moveTo(from - 1)
	m.To, m.Moved = from-1, true
	return m
}

// Values returns the form as it would be submitted: the entered values,
// the checked units and the recomputed end date.
func (c *Controller) Values() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload()
}

// Summary returns the summary rendered on the last arrival at the final
// step, or false when the wizard is not on the final step.
func (c *Controller) Summary() (summary.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil || c.state.CurrentStep != c.state.TotalSteps {
		return summary.Summary{}, false
	}
	return *c.summary, true
}

// Formatter returns the locale formatter used for display values.
func (c *Controller) Formatter() *i18n.Formatter { return c.format }

// Submit validates the whole form and hands it to s as one request. Only
// one submission runs at a time; a concurrent call fails with
// ErrSubmitInFlight. The submission is cancelled when ctx ends or when
// CancelSubmit is called.
func (c *Controller) Submit(ctx context.Context, s Submitter) (submit.Receipt, error) {
	c.mu.Lock()
	switch {
	case c.state.CurrentStep != c.state.TotalSteps:
		c.mu.Unlock()
		return submit.Receipt{}, ErrNotFinalStep
	case c.submitted:
		c.mu.Unlock()
		return submit.Receipt{}, ErrAlreadySubmitted
	case c.inflight != nil:
		c.mu.Unlock()
		return submit.Receipt{}, ErrSubmitInFlight
	}
	if verr := c.validateAll(); verr != nil {
		c.mu.Unlock()
		return submit.Receipt{}, verr
	}
	payload := c.payload()
	ctx, cancel := context.WithCancel(ctx)
	token := &submitToken{cancel: cancel}
	c.inflight = token
	c.mu.Unlock()

	receipt, err := s.Submit(ctx, payload)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == token {
		c.inflight = nil
	}
	if err != nil {
		return submit.Receipt{}, err
	}
	c.submitted = true
	return receipt, nil
}

// CancelSubmit aborts the in-flight submission, reporting whether one was
// running.
func (c *Controller) CancelSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		return false
	}
	c.inflight.cancel()
	return true
}

// Callers of the methods below hold c.mu.

func (c *Controller) assign(f definition.Field, vals []string) {
	if c.fields.units != nil && f.Name == c.fields.units.Name {
		c.roster.Replace(vals)
		return
	}
	c.values[f.Name] = append([]string(nil), vals...)
}

func (c *Controller) syncUnits() {
	if c.fields.units == nil {
		return
	}
	c.values[c.fields.units.Name] = c.roster.Values()
}

// recompute re-runs every derivation from the current source values.
func (c *Controller) recompute() {
	c.end = derive.EndDate{}
	if c.fields.startDate != nil && c.fields.duration != nil {
		c.end = derive.ComputeEndDate(
			c.values.Get(c.fields.startDate.Name),
			c.values.Get(c.fields.duration.Name),
			c.policy,
		)
	}
	c.rent = derive.Rent{}
	if c.fields.annualRent != nil {
		var freq string
		if c.fields.frequency != nil {
			freq = c.values.Get(c.fields.frequency.Name)
		}
		c.rent = derive.ComputeRent(c.values.Get(c.fields.annualRent.Name), freq)
	}
}

func (c *Controller) moveTo(step int) {
	if err := validateTransition(c.transitions, c.state.CurrentStep, step); err != nil {
		return
	}
	c.enter(step)
}

// enter makes step current. Arriving at the final step re-renders the
// summary from the current values.
func (c *Controller) enter(step int) {
	c.state.CurrentStep = step
	if step == c.state.TotalSteps {
		s := c.buildSummary()
		c.summary = &s
	}
}

func (c *Controller) optionsFor(f definition.Field) []types.Option {
	switch f.OptionsFrom {
	case definition.OptionsTenants:
		return c.tenants
	case definition.OptionsUnits:
		return c.roster.Options()
	}
	return f.Options
}

func (c *Controller) fieldValues(f definition.Field) []string {
	if c.fields.endDate != nil && f.Name == c.fields.endDate.Name {
		if c.end.Value == "" {
			return nil
		}
		return []string{c.end.Value}
	}
	return c.values[f.Name]
}

func (c *Controller) validateStep(s int) bool {
	step, ok := c.def.Step(s)
	if !ok {
		return false
	}
	valid := true
	for _, f := range step.RequiredFields() {
		if reason := form.Check(f, c.fieldValues(f), c.optionsFor(f)); reason != form.Valid {
			c.invalid[f.Name] = reason
			valid = false
		} else {
			delete(c.invalid, f.Name)
		}
	}
	return valid
}

// validateAll is the full-form check run before submission: every field's
// constraints, required or not, plus a computable end date after the start.
func (c *Controller) validateAll() *ValidationError {
	bad := make(map[string]form.Reason)
	for _, f := range c.def.Fields() {
		if c.fields.endDate != nil && f.Name == c.fields.endDate.Name {
			continue
		}
		if reason := form.Check(f, c.fieldValues(f), c.optionsFor(f)); reason != form.Valid {
			bad[f.Name] = reason
		}
	}
	if c.fields.endDate != nil {
		switch {
		case !c.end.OK:
			bad[c.fields.endDate.Name] = form.ValueMissing
		case !c.end.End.After(c.end.Start):
			bad[c.fields.endDate.Name] = form.BeforeStart
		}
	}
	for name := range c.invalid {
		if _, still := bad[name]; !still {
			delete(c.invalid, name)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	for name, reason := range bad {
		c.invalid[name] = reason
	}
	return &ValidationError{Fields: bad}
}

func (c *Controller) invalidIn(s int) []string {
	step, _ := c.def.Step(s)
	var out []string
	for _, f := range step.Fields {
		if _, bad := c.invalid[f.Name]; bad {
			out = append(out, f.Name)
		}
	}
	return out
}

func (c *Controller) payload() url.Values {
	out := make(url.Values, len(c.values)+1)
	for k, v := range c.values {
		out[k] = append([]string(nil), v...)
	}
	if c.fields.endDate != nil {
		out.Set(c.fields.endDate.Name, c.end.Value)
	}
	return out
}

func (c *Controller) buildSummary() summary.Summary {
	var tenant, start, amount, frequency string
	if f := c.fields.tenant; f != nil {
		if v := c.values.Get(f.Name); v != "" {
			tenant = v
			if o, ok := types.FindOption(c.optionsFor(*f), v); ok {
				tenant = o.DisplayLabel()
			}
		}
	}
	if f := c.fields.startDate; f != nil {
		start = c.values.Get(f.Name)
	}
	if f := c.fields.annualRent; f != nil {
		amount = c.values.Get(f.Name)
	}
	if f := c.fields.frequency; f != nil {
		if v := c.values.Get(f.Name); v != "" {
			frequency = v
			if o, ok := types.FindOption(f.Options, v); ok {
				frequency = o.DisplayLabel()
			}
		}
	}
	return summary.New(tenant, c.roster.Labels(), start, c.end.Value, amount, frequency)
}
