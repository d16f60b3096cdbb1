// Package roster keeps the live list of selected checkbox items. Every
// mutation recomputes the checked set and rebuilds the badge list from
// scratch; removing a badge is the same operation as unchecking its box.
package roster

import (
	"github.com/matthewbaird/contractwizard/internal/types"
)

// Badge is one rendered entry of the roster.
type Badge struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Roster tracks which of a fixed, ordered option list are checked.
type Roster struct {
	options []types.Option
	checked map[string]bool
	badges  []Badge
}

// New returns an empty roster over options, which keep their order.
func New(options []types.Option) *Roster {
	r := &Roster{
		options: append([]types.Option(nil), options...),
		checked: make(map[string]bool),
	}
	r.recompute()
	return r
}

// Options returns the option list in document order.
func (r *Roster) Options() []types.Option {
	return append([]types.Option(nil), r.options...)
}

// SetChecked applies one checkbox change event. It reports false when value
// is not one of the options.
func (r *Roster) SetChecked(value string, checked bool) bool {
	if !r.known(value) {
		return false
	}
	if checked {
		r.checked[value] = true
	} else {
		delete(r.checked, value)
	}
	r.recompute()
	return true
}

// Toggle flips the checkbox for value.
func (r *Roster) Toggle(value string) bool {
	return r.SetChecked(value, !r.checked[value])
}

// Remove handles a badge's remove affordance: uncheck, then recompute.
func (r *Roster) Remove(value string) bool {
	return r.SetChecked(value, false)
}

// Replace sets the checked set wholesale, as when a checkbox group is
// posted. Unknown values are dropped.
func (r *Roster) Replace(values []string) {
	r.checked = make(map[string]bool, len(values))
	for _, v := range values {
		if r.known(v) {
			r.checked[v] = true
		}
	}
	r.recompute()
}

// IsChecked reports whether value is selected.
func (r *Roster) IsChecked(value string) bool {
	return r.checked[value]
}

// Values returns the checked values in document order.
func (r *Roster) Values() []string {
	out := make([]string, 0, len(r.badges))
	for _, b := range r.badges {
		out = append(out, b.Value)
	}
	return out
}

// Labels returns the display labels of the checked items in document order.
func (r *Roster) Labels() []string {
	out := make([]string, 0, len(r.badges))
	for _, b := range r.badges {
		out = append(out, b.Label)
	}
	return out
}

// Badges returns the current badge list.
func (r *Roster) Badges() []Badge {
	return append([]Badge(nil), r.badges...)
}

// Len returns the number of checked items.
func (r *Roster) Len() int { return len(r.badges) }

func (r *Roster) known(value string) bool {
	_, ok := types.FindOption(r.options, value)
	return ok
}

func (r *Roster) recompute() {
	badges := make([]Badge, 0, len(r.checked))
	for _, o := range r.options {
		if r.checked[o.Value] {
			badges = append(badges, Badge{Value: o.Value, Label: o.DisplayLabel()})
		}
	}
	r.badges = badges
}
