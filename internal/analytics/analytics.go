// Package analytics builds the weekly, calendar and health views from real
// store aggregates.
package analytics

import (
	"math"
	"time"

	"mealtrack/internal/core"
	"mealtrack/internal/goals"
	"mealtrack/internal/records"
)

// Source is the read side of the record store used by the views.
type Source interface {
	goals.Source
	Count(pred records.Predicate) int
}

var dayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Day is one column of the weekly chart.
type Day struct {
	Date     core.Date `json:"date"`
	Label    string    `json:"label"`
	Calories int       `json:"calories"`
	Meals    int       `json:"meals"`
	GoalMet  bool      `json:"goal_met"`
	Percent  float64   `json:"percent"` // of the daily goal, capped at 100
}

// Week summarizes the Monday-Sunday week containing a date.
type Week struct {
	Start           core.Date `json:"start"`
	DailyGoal       int       `json:"daily_goal"`
	Days            [7]Day    `json:"days"`
	TotalCalories   int       `json:"total_calories"`
	AverageCalories int       `json:"average_calories"`
	TotalMeals      int       `json:"total_meals"`
	DaysGoalMet     int       `json:"days_goal_met"`
	GoalAchievement float64   `json:"goal_achievement"`
}

// BuildWeek computes the weekly analytics for the week containing d.
func BuildWeek(src Source, d core.Date, dailyGoal int) Week {
	totals := goals.WeeklyDailyTotals(src, d)
	w := Week{
		Start:     goals.WeekStart(d),
		DailyGoal: dailyGoal,
	}
	for i, total := range totals {
		date := w.Start.AddDays(i)
		day := Day{
			Date:     date,
			Label:    dayLabels[i],
			Calories: total,
			Meals:    src.Count(records.OnDate(date)),
			GoalMet:  total >= dailyGoal,
			Percent:  goals.GoalProgress(total, dailyGoal),
		}
		w.Days[i] = day
		w.TotalCalories += total
		w.TotalMeals += day.Meals
	}
	w.AverageCalories = int(math.Round(float64(w.TotalCalories) / goals.DaysPerWeek))
	w.DaysGoalMet = goals.DaysGoalMet(totals, dailyGoal)
	w.GoalAchievement = goals.GoalProgress(w.DaysGoalMet, goals.DaysPerWeek)
	return w
}

// Cell is one square of the month calendar. Blank cells pad the first week.
type Cell struct {
	Blank    bool      `json:"blank"`
	Date     core.Date `json:"date"`
	Calories int       `json:"calories"`
	Records  int       `json:"records"`
	IsToday  bool      `json:"is_today"`
}

// Month is a Sunday-first calendar grid for one month.
type Month struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Name  string `json:"name"`
	Cells []Cell `json:"cells"`
}

// BuildMonth lays out the month with one cell per day carrying its totals.
// Months outside 1..12 are normalized (month 13 is January of the next year).
func BuildMonth(src Source, year, month int, today core.Date) Month {
	first := core.NewDate(year, month, 1)
	year, month = first.Year(), first.Month()

	m := Month{
		Year:  year,
		Month: month,
		Name:  time.Month(month).String()[:3],
	}
	for i := 0; i < int(first.Weekday()); i++ {
		m.Cells = append(m.Cells, Cell{Blank: true})
	}
	for day := 1; day <= core.DaysIn(year, month); day++ {
		date := core.NewDate(year, month, day)
		on := records.OnDate(date)
		m.Cells = append(m.Cells, Cell{
			Date:     date,
			Calories: src.SumCalories(on),
			Records:  src.Count(on),
			IsToday:  date.Equal(today),
		})
	}
	return m
}

// Prev returns the year and month before m.
func (m Month) Prev() (int, int) {
	p := core.NewDate(m.Year, m.Month-1, 1)
	return p.Year(), p.Month()
}

// Next returns the year and month after m.
func (m Month) Next() (int, int) {
	n := core.NewDate(m.Year, m.Month+1, 1)
	return n.Year(), n.Month()
}

// Health is the daily health card.
type Health struct {
	Date           core.Date `json:"date"`
	CaloriesToday  int       `json:"calories_today"`
	MealsToday     int       `json:"meals_today"`
	WeeklyAverage  float64   `json:"weekly_average"`
	InvalidEntries int       `json:"invalid_entries"`
}

// BuildHealth computes the health card for d.
func BuildHealth(src Source, d core.Date) Health {
	on := records.OnDate(d)
	totals := goals.WeeklyDailyTotals(src, d)
	sum := 0
	for _, t := range totals {
		sum += t
	}
	return Health{
		Date:           d,
		CaloriesToday:  src.SumCalories(on),
		MealsToday:     src.Count(on),
		WeeklyAverage:  float64(sum) / goals.DaysPerWeek,
		InvalidEntries: src.Count(records.And(on, isInvalid)),
	}
}

func isInvalid(r core.Record) bool {
	return r.IsInvalid()
}
