package core

import (
	"errors"
	"strconv"
	"strings"
)

const (
	Breakfast Meal = "Breakfast"
	Lunch     Meal = "Lunch"
	Dinner    Meal = "Dinner"
	Snack     Meal = "Snack"
	QuickAdd  Meal = "Quick Add"
)

type (
	// Meal is the closed set of meal types a record can belong to.
	Meal string

	// Record is one logged meal. Records are built by the store and never
	// mutated afterwards.
	Record struct {
		ID       int64  `json:"id"`
		Date     Date   `json:"date"`
		Meal     Meal   `json:"meal"`
		Content  string `json:"content"`
		Calories int    `json:"calories"`
		Rating   *int   `json:"rating,omitempty"` // 1-5 when set
		Notes    string `json:"notes,omitempty"`
	}

	// Draft is a record submission before the store assigns an id.
	// Date is the YYYY-MM-DD string captured by the date input.
	Draft struct {
		Date     string `json:"date"`
		Meal     Meal   `json:"meal"`
		Content  string `json:"content"`
		Calories int    `json:"calories"`
		Rating   *int   `json:"rating,omitempty"`
		Notes    string `json:"notes,omitempty"`
	}
)

var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidMeal          = errors.New("invalid meal")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrInvalidField         = errors.New("invalid field")
)

// Meals lists every meal type in display order.
var Meals = []Meal{Breakfast, Lunch, Dinner, Snack, QuickAdd}

// IsValid returns true if the meal is one of the known meal types
func (m Meal) IsValid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Snack, QuickAdd:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (m Meal) String() string {
	return string(m)
}

// ParseMeal accepts the display name of a meal, case-insensitively.
// "QuickAdd" and "quick_add" are accepted as spellings of Quick Add.
func ParseMeal(s string) (Meal, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	for _, m := range Meals {
		if strings.ReplaceAll(strings.ToLower(string(m)), " ", "") == norm {
			return m, nil
		}
	}
	return "", ErrInvalidMeal
}

// IsInvalid reports whether the record carries a negative calorie amount.
// Such records are kept and counted but rendered as "Invalid".
func (r Record) IsInvalid() bool {
	return r.Calories < 0
}

// CaloriesLabel is the display form of the calorie amount.
func (r Record) CaloriesLabel() string {
	if r.IsInvalid() {
		return "Invalid"
	}
	return strconv.Itoa(r.Calories) + " cal"
}

// HasRating reports whether a rating was given.
func (r Record) HasRating() bool {
	return r.Rating != nil
}

// Stars renders the rating as filled stars, empty when unrated.
func (r Record) Stars() string {
	if r.Rating == nil {
		return ""
	}
	n := min(max(*r.Rating, 0), 5)
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// IntPtr is a convenience for optional integer fields.
func IntPtr(v int) *int {
	return &v
}
