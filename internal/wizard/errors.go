package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matthewbaird/contractwizard/internal/form"
)

var (
	// ErrNotFinalStep is returned when submit is attempted before the last step.
	ErrNotFinalStep = errors.New("submit is only available on the final step")
	// ErrSubmitInFlight is returned for a second submit while one is running.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	// ErrAlreadySubmitted is returned after the form was accepted once.
	ErrAlreadySubmitted = errors.New("contract already submitted")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownField is returned when a value is posted for a field the
	// definition does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError lists the fields that failed the full-form check run
// before submission.
type ValidationError struct {
	Fields map[string]form.Reason
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s: %s", n, e.Fields[n])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FieldError reports a value posted for an undeclared field.
type FieldError struct {
	Name string
}

func (e *FieldError) Error() string { return fmt.Sprintf("unknown field %q", e.Name) }

func (e *FieldError) Is(target error) bool { return target == ErrUnknownField }
