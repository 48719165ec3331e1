package vehicle

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// ErrIncompleteVehicle is returned when a record has neither make nor model.
// Nothing can be classified or repaired without them.
var ErrIncompleteVehicle = eris.New("vehicle: make and model are both missing")

// FieldError describes one field that failed a range or enum check.
type FieldError struct {
	Field   string  `json:"field"`
	Value   string  `json:"value,omitempty"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Missing bool    `json:"missing,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

func (e FieldError) String() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	case e.Missing:
		return fmt.Sprintf("%s: required value is missing (expected %g-%g)", e.Field, e.Min, e.Max)
	default:
		return fmt.Sprintf("%s: %s outside %g-%g", e.Field, e.Value, e.Min, e.Max)
	}
}

// ValidationError wraps every violation found in one record.
type ValidationError struct {
	Violations []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return "vehicle: validation failed: " + strings.Join(msgs, "; ")
}

// Fields returns the names of the violating fields.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Field)
	}
	return out
}

// segmentInput is checked with struct tags; segment codes are a closed set.
type segmentInput struct {
	Segment string `validate:"omitempty,oneof=A B C D E F PICKUP MOTO SUV VAN"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeSegment uppercases and trims a segment code.
func NormalizeSegment(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSegment reports whether s is empty or a known segment code.
func ValidSegment(s string) bool {
	return validate.Struct(segmentInput{Segment: NormalizeSegment(s)}) == nil
}
