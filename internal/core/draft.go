package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// draftValidate is the validator instance for form drafts.
// Initialized in init() with the meal validator.
var draftValidate *validator.Validate

func init() {
	draftValidate = validator.New()
	_ = draftValidate.RegisterValidation("meal", validateMeal)
}

func validateMeal(fl validator.FieldLevel) bool {
	_, err := ParseMeal(fl.Field().String())
	return err == nil
}

// FormInput is a record submission as captured by a form or JSON body, all
// values still raw strings. It is checked here, at the presentation boundary;
// the store does not re-validate required fields.
type FormInput struct {
	Date     string `validate:"required"`
	Meal     string `validate:"required,meal"`
	Content  string `validate:"required,max=200"`
	Calories string `validate:"required,numeric"`
	Rating   string `validate:"omitempty,oneof=1 2 3 4 5"`
	Notes    string `validate:"max=500"`
}

// FieldError describes one rejected form field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects the rejected fields of a FormInput.
type ValidationError struct {
	Fields []FieldError
	errs   []error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

// Unwrap exposes the sentinel errors so callers can use errors.Is.
func (e *ValidationError) Unwrap() []error {
	return e.errs
}

// Draft validates the input and converts it into a Draft.
//
// A Quick Add entry without a date is logged for today. Negative calories are
// accepted: they are a display state, not a validation failure.
func (in FormInput) Draft() (Draft, error) {
	in.Date = strings.TrimSpace(in.Date)
	in.Meal = strings.TrimSpace(in.Meal)
	in.Content = strings.TrimSpace(in.Content)
	in.Calories = strings.TrimSpace(in.Calories)
	in.Rating = strings.TrimSpace(in.Rating)
	in.Notes = strings.TrimSpace(in.Notes)

	if in.Date == "" {
		if m, err := ParseMeal(in.Meal); err == nil && m == QuickAdd {
			in.Date = Encode(Today())
		}
	}

	if err := draftValidate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Draft{}, fmt.Errorf("validate draft: %w", err)
		}
		return Draft{}, toValidationError(verrs)
	}

	meal, _ := ParseMeal(in.Meal)
	calories, err := parseCalories(in.Calories)
	if err != nil {
		return Draft{}, &ValidationError{
			Fields: []FieldError{{Field: "calories", Reason: "must be a whole number"}},
			errs:   []error{ErrInvalidField},
		}
	}

	d := Draft{
		Date:     in.Date,
		Meal:     meal,
		Content:  in.Content,
		Calories: calories,
		Notes:    in.Notes,
	}
	if in.Rating != "" {
		r, _ := strconv.Atoi(in.Rating)
		d.Rating = &r
	}
	return d, nil
}

// parseCalories accepts integers and truncates decimal input.
func parseCalories(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("parse calories %q: %w", s, strconv.ErrSyntax)
	}
	return int(f), nil
}

func toValidationError(verrs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{}
	seen := map[error]bool{}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		var reason string
		var sentinel error
		switch {
		case fe.Tag() == "required":
			reason, sentinel = "required", ErrMissingRequiredField
		case field == "meal":
			reason, sentinel = "unknown meal type", ErrInvalidMeal
		case field == "rating":
			reason, sentinel = "must be between 1 and 5", ErrInvalidRating
		case fe.Tag() == "max":
			reason, sentinel = "too long (max "+fe.Param()+" characters)", ErrInvalidField
		case fe.Tag() == "numeric":
			reason, sentinel = "must be a number", ErrInvalidField
		default:
			reason, sentinel = "invalid", ErrInvalidField
		}
		ve.Fields = append(ve.Fields, FieldError{Field: field, Reason: reason})
		if !seen[sentinel] {
			seen[sentinel] = true
			ve.errs = append(ve.errs, sentinel)
		}
	}
	return ve
}
