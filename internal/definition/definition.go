// Package definition compiles the declarative wizard definition: the ordered
// steps, the fields each step owns and the constraints every field carries.
// The definition is the contract with the rendered template and is written
// in CUE so the schema and the contract wizard live in one document.
package definition

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/contractwizard/internal/types"
)

// Kind is the input type of a field.
type Kind string

const (
	KindText          Kind = "text"
	KindNumber        Kind = "number"
	KindInteger       Kind = "integer"
	KindDate          Kind = "date"
	KindSelect        Kind = "select"
	KindCheckbox      Kind = "checkbox"
	KindCheckboxGroup Kind = "checkbox_group"
	KindTextarea      Kind = "textarea"
)

// Dynamic option sources supplied by the host page per session.
const (
	OptionsTenants = "tenants"
	OptionsUnits   = "units"
)

// Field describes one form control.
type Field struct {
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Kind        Kind           `json:"kind"`
	Required    bool           `json:"required"`
	ReadOnly    bool           `json:"read_only"`
	Min         *float64       `json:"min,omitempty"`
	Max         *float64       `json:"max,omitempty"`
	MinItems    int            `json:"min_items,omitempty"`
	Pattern     string         `json:"pattern,omitempty"`
	Default     string         `json:"default,omitempty"`
	Options     []types.Option `json:"options,omitempty"`
	OptionsFrom string         `json:"options_from,omitempty"`

	pattern *regexp.Regexp
}

// PatternRegexp returns the compiled pattern, or nil when none is set.
func (f Field) PatternRegexp() *regexp.Regexp { return f.pattern }

// Step is one sequential section of the form.
type Step struct {
	Number int     `json:"number"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// RequiredFields returns the fields of the step that carry the required flag.
func (s Step) RequiredFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Wizard is a compiled wizard definition.
type Wizard struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`

	byName map[string]fieldRef
}

type fieldRef struct {
	step  int
	index int
}

//go:embed contract.cue
var contractSource []byte

// ErrInvalidDefinition wraps every structural problem found while compiling.
var ErrInvalidDefinition = errors.New("invalid wizard definition")

// Default compiles the embedded rental contract definition.
func Default() (*Wizard, error) {
	return Parse(contractSource)
}

// MustDefault is Default for program initialization and tests.
func MustDefault() *Wizard {
	w, err := Default()
	if err != nil {
		panic(err)
	}
	return w
}

// Parse compiles a CUE document exposing a top-level `wizard` value.
func Parse(src []byte) (*Wizard, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(src, cue.Filename("wizard.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("%w: compile: %v", ErrInvalidDefinition, err)
	}
	val := root.LookupPath(cue.ParsePath("wizard"))
	if !val.Exists() {
		return nil, fmt.Errorf("%w: no wizard value", ErrInvalidDefinition)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	var w Wizard
	if err := val.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidDefinition, err)
	}
	if err := w.index(); err != nil {
		return nil, err
	}
	return &w, nil
}

// index checks step numbering and field uniqueness and compiles patterns.
func (w *Wizard) index() error {
	if len(w.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidDefinition)
	}
	w.byName = make(map[string]fieldRef)
	for i := range w.Steps {
		s := &w.Steps[i]
		if s.Number != i+1 {
			return fmt.Errorf("%w: step %d has number %d", ErrInvalidDefinition, i+1, s.Number)
		}
		for j := range s.Fields {
			f := &s.Fields[j]
			if _, dup := w.byName[f.Name]; dup {
				return fmt.Errorf("%w: duplicate field %q", ErrInvalidDefinition, f.Name)
			}
			if f.Pattern != "" {
				re, err := regexp.Compile("^(?:" + f.Pattern + ")$")
				if err != nil {
					return fmt.Errorf("%w: field %q pattern: %v", ErrInvalidDefinition, f.Name, err)
				}
				f.pattern = re
			}
			w.byName[f.Name] = fieldRef{step: i, index: j}
		}
	}
	return nil
}

// TotalSteps returns the number of steps.
func (w *Wizard) TotalSteps() int { return len(w.Steps) }

// Step returns the step with the 1-based number n.
func (w *Wizard) Step(n int) (Step, bool) {
	if n < 1 || n > len(w.Steps) {
		return Step{}, false
	}
	return w.Steps[n-1], true
}

// Field looks up a field by name.
func (w *Wizard) Field(name string) (Field, bool) {
	ref, ok := w.byName[name]
	if !ok {
		return Field{}, false
	}
	return w.Steps[ref.step].Fields[ref.index], true
}

// StepOf returns the step number owning the named field.
func (w *Wizard) StepOf(name string) (int, bool) {
	ref, ok := w.byName[name]
	if !ok {
		return 0, false
	}
	return ref.step + 1, true
}

// Fields returns every field in document order.
func (w *Wizard) Fields() []Field {
	var out []Field
	for _, s := range w.Steps {
		out = append(out, s.Fields...)
	}
	return out
}
