// Package goals derives goal-completion metrics from a record source.
//
// Every function is pure over a snapshot of the source: nothing here mutates
// records or keeps state between calls.
package goals

import (
	"time"

	"mealtrack/internal/core"
	"mealtrack/internal/records"
)

const (
	DefaultDailyCalories = 2000
	DaysPerWeek          = 7
)

// Source is anything that can sum calories over a predicate.
// *records.Store satisfies it.
type Source interface {
	SumCalories(pred records.Predicate) int
}

// Targets are the goal thresholds.
type Targets struct {
	DailyCalories int // calories per day
	WeeklyDays    int // days per week the daily goal should be met
}

// DefaultTargets returns the 2000 cal / 7 days goals.
func DefaultTargets() Targets {
	return Targets{DailyCalories: DefaultDailyCalories, WeeklyDays: DaysPerWeek}
}

// Report is the goal status as of one reference date.
type Report struct {
	Date           core.Date `json:"date"`
	Targets        Targets   `json:"targets"`
	DailyTotal     int       `json:"daily_total"`
	DailyProgress  float64   `json:"daily_progress"`
	WeekStart      core.Date `json:"week_start"`
	WeeklyTotals   [7]int    `json:"weekly_totals"`
	DaysMet        int       `json:"days_met"`
	WeeklyProgress float64   `json:"weekly_progress"`
	WeeklyAverage  float64   `json:"weekly_average"`
}

// DayMet reports whether the daily goal was reached on the i-th day of the
// week (0 = Monday).
func (r Report) DayMet(i int) bool {
	return i >= 0 && i < len(r.WeeklyTotals) && r.WeeklyTotals[i] >= r.Targets.DailyCalories
}

// Evaluator computes reports against fixed targets.
type Evaluator struct {
	Targets Targets
}

// NewEvaluator returns an evaluator; non-positive targets fall back to defaults.
func NewEvaluator(t Targets) *Evaluator {
	def := DefaultTargets()
	if t.DailyCalories <= 0 {
		t.DailyCalories = def.DailyCalories
	}
	if t.WeeklyDays <= 0 {
		t.WeeklyDays = def.WeeklyDays
	}
	return &Evaluator{Targets: t}
}

// Evaluate builds the report for the week containing d.
func (e *Evaluator) Evaluate(src Source, d core.Date) Report {
	totals := WeeklyDailyTotals(src, d)
	start := WeekStart(d)
	daily := totals[dayIndex(d)]
	met := DaysGoalMet(totals, e.Targets.DailyCalories)

	sum := 0
	for _, t := range totals {
		sum += t
	}

	return Report{
		Date:           d,
		Targets:        e.Targets,
		DailyTotal:     daily,
		DailyProgress:  GoalProgress(daily, e.Targets.DailyCalories),
		WeekStart:      start,
		WeeklyTotals:   totals,
		DaysMet:        met,
		WeeklyProgress: GoalProgress(met, e.Targets.WeeklyDays),
		WeeklyAverage:  float64(sum) / DaysPerWeek,
	}
}

// DailyTotal sums the calories logged on d.
func DailyTotal(src Source, d core.Date) int {
	return src.SumCalories(records.OnDate(d))
}

// WeekStart returns the Monday on or before d. A Sunday maps to the Monday six
// days earlier.
func WeekStart(d core.Date) core.Date {
	return d.AddDays(-dayIndex(d))
}

// WeeklyDailyTotals returns one total per day, Monday through Sunday, of the
// week containing d. Days without records are zero.
func WeeklyDailyTotals(src Source, d core.Date) [7]int {
	var out [7]int
	start := WeekStart(d)
	for i := range out {
		out[i] = DailyTotal(src, start.AddDays(i))
	}
	return out
}

// GoalProgress returns current/target as a percentage, capped at 100.
// A non-positive target yields 0.
func GoalProgress(current, target int) float64 {
	if target <= 0 {
		return 0
	}
	return min(float64(current)/float64(target)*100, 100)
}

// DaysGoalMet counts the days whose total reaches dailyGoal.
func DaysGoalMet(totals [7]int, dailyGoal int) int {
	n := 0
	for _, t := range totals {
		if t >= dailyGoal {
			n++
		}
	}
	return n
}

// dayIndex maps Monday..Sunday to 0..6.
func dayIndex(d core.Date) int {
	if d.Weekday() == time.Sunday {
		return 6
	}
	return int(d.Weekday()) - 1
}
