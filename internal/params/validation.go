package params

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameter matches every *ValidationError through errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")

// Violation names one field that failed validation.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// ValidationError carries every violation found in one validation pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("invalid parameters: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// Fields returns the names of the violated fields in report order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

// Has reports whether field is among the violations.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Collector accumulates violations for packages that validate their own parameter sets.
type Collector struct {
	violations []Violation
}

// Require records a violation for field when ok is false.
func (c *Collector) Require(ok bool, field, reason string, args ...any) {
	if ok {
		return
	}
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	c.violations = append(c.violations, Violation{Field: field, Reason: reason})
}

// RequireText records a violation when value is empty or whitespace only.
func (c *Collector) RequireText(value, field string) {
	c.Require(strings.TrimSpace(value) != "", field, "must not be empty")
}

func (c *Collector) Violations() []Violation {
	return c.violations
}

// Err returns nil when nothing was recorded, otherwise a *ValidationError.
func (c *Collector) Err() error {
	if len(c.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: append([]Violation(nil), c.violations...)}
}
