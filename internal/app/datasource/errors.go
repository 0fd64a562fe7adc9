package datasource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/stratadata/internal/domain/models"
)

var (
	// ErrNotFound means the record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidState means the record's status does not allow the action,
	// e.g. verifying a record that is not preliminary.
	ErrInvalidState = errors.New("record status does not allow this action")
	// ErrDuplicate matches any *DuplicateError via errors.Is.
	ErrDuplicate = errors.New("data already exists for this indicator and period")
)

// DuplicateError reports a create that collides with an existing record
// for the same indicator and period. ExistingID lets the client offer to
// edit the existing record instead of retrying.
type DuplicateError struct {
	ExistingID  string
	IndicatorID string
	Period      models.Period
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("data for indicator %s and period %s already exists", e.IndicatorID, e.Period)
}

// Is makes errors.Is(err, ErrDuplicate) true.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// FieldError is a problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field problems found before or by the store.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field error was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// FieldMap returns field -> message, keeping the first message per field.
func (e *ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = f.Message
		}
	}
	return out
}

// NewValidationError builds a ValidationError with one field error.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Kind classifies an error for presentation.
type Kind string

const (
	KindNone         Kind = ""
	KindValidation   Kind = "validation"
	KindDuplicate    Kind = "duplicate"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindUnknown      Kind = "unknown"
)

// KindOf classifies err. nil is KindNone; anything unrecognized,
// including network and server failures, is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	}
	return KindUnknown
}
