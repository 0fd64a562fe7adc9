// Package inputval provides input validation using waffle/pantry/validate.
//
// This package wraps pantry/validate to provide a convenient interface for
// validating decoded request bodies with struct tags. Define an input struct
// with validate tags, populate it, and call Validate to get user-friendly
// error messages keyed by the JSON field name.
//
// Example:
//
//	type recordInput struct {
//	    IndicatorID string `json:"indicator_id" validate:"required" label:"Indicator"`
//	    Value       string `json:"value" validate:"required,decimal" label:"Value"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() {
//	    return res.First()
//	}
package inputval

import (
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// customValidator is a singleton validator with custom rules registered.
var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

// getValidator returns the singleton validator with custom rules.
func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New()

		// decimal: string parses as a decimal number
		customValidator.RegisterRuleFunc("decimal", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidDecimal(s)
			}
			return false
		}, "decimal")

		// inputstatus: a status a user may set directly (final needs verify)
		customValidator.RegisterRuleFunc("inputstatus", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsInputStatus(s)
			}
			return false
		}, "inputstatus")

		// category: one of the known categories
		customValidator.RegisterRuleFunc("category", func(value any) bool {
			if s, ok := value.(string); ok {
				return models.IsValidCategory(s)
			}
			return false
		}, "category")

		// objectid: validates that string is a valid MongoDB ObjectID hex
		customValidator.RegisterRuleFunc("objectid", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidObjectID(s)
			}
			return false
		}, "objectid")
	})
	return customValidator
}

// Validate validates a struct and returns a Result with user-friendly errors.
// The struct should have `validate` tags for rules and optional `label` tags
// for user-friendly field names. All failing fields are reported.
//
// Supported validation rules (from pantry/validate):
//   - required: field must not be empty
//   - oneof=a b c: field must be one of the specified values
//   - max=N: string length must be <= N
//
// Custom validation rules (registered by this package):
//   - decimal: field must parse as a decimal number
//   - inputstatus: field must be draft or preliminary
//   - category: field must be a known category
//   - objectid: field must be a valid MongoDB ObjectID hex string
func Validate(s any) *Result {
	result := &Result{}

	v := getValidator()
	err := v.Struct(s)
	if err == nil {
		return result
	}

	// Get field labels from struct tags
	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}

			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
	}

	return result
}

// getFieldLabels extracts the "label" tag from struct fields.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		// Get the field name (use json tag if available)
		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}

		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

// formatMessage creates a user-friendly message for a validation rule.
func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "max":
		return label + " must be at most " + param + " characters."
	case "decimal":
		return label + " must be a number."
	case "inputstatus":
		return label + " must be draft or preliminary; use verify to finalize."
	case "category":
		return label + " is not a known category."
	case "objectid":
		return label + " is not a valid ID."
	default:
		return label + " is invalid."
	}
}

// IsValidDecimal checks if s parses as a decimal number.
func IsValidDecimal(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// IsInputStatus reports whether a user may set status s directly.
func IsInputStatus(s string) bool {
	st := models.Status(strings.ToLower(strings.TrimSpace(s)))
	return st == models.StatusDraft || st == models.StatusPreliminary
}

// IsValidObjectID checks if the given string is a valid MongoDB ObjectID hex.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
