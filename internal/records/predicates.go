package records

import "mealtrack/internal/core"

// Any matches every record.
func Any(core.Record) bool { return true }

// OnDate matches records on the given calendar date.
func OnDate(d core.Date) Predicate {
	return func(r core.Record) bool {
		return r.Date.Equal(d)
	}
}

// Between matches records dated within [from, to], both ends inclusive.
func Between(from, to core.Date) Predicate {
	return func(r core.Record) bool {
		return !r.Date.Before(from) && !r.Date.After(to)
	}
}

// OfMeal matches records of the given meal type.
func OfMeal(m core.Meal) Predicate {
	return func(r core.Record) bool {
		return r.Meal == m
	}
}

// And matches records satisfying every predicate.
func And(preds ...Predicate) Predicate {
	return func(r core.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}
