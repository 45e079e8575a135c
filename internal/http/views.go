package http

import (
	"mealtrack/internal/analytics"
	"mealtrack/internal/core"
	"mealtrack/internal/goals"
	"mealtrack/internal/records"
)

// ListView is the record list for one selected date.
type ListView struct {
	Date    core.Date
	Records []core.Record
	Total   int
}

// StatsView is the "today's progress" widget.
type StatsView struct {
	Total    int
	Goal     int
	Progress float64
	Meals    int
}

// TimelineView groups all records by date.
type TimelineView struct {
	Groups []records.Group
	Count  int
}

// CalendarView is a month grid with navigation.
type CalendarView struct {
	Grid                analytics.Month
	Weekdays            []string
	PrevYear, PrevMonth int
	NextYear, NextMonth int
}

// GoalDay is one row of the weekly goal table.
type GoalDay struct {
	Label string
	Date  core.Date
	Total int
	Met   bool
}

// GoalsView is the goals page for the week of a date.
type GoalsView struct {
	goals.Report
	Days []GoalDay
}

// AnalyticsView combines the weekly chart and the health card.
type AnalyticsView struct {
	Week   analytics.Week
	Health analytics.Health
}

// IndexPage is the full page.
type IndexPage struct {
	Theme      string
	OtherTheme string
	Today      string
	Meals      []core.Meal
	List       ListView
	Stats      StatsView
}

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func (s *Server) listView(d core.Date) ListView {
	recs := s.records.FilterByDate(d)
	v := ListView{Date: d, Records: recs}
	for _, r := range recs {
		v.Total += r.Calories
	}
	return v
}

func (s *Server) statsView(d core.Date) StatsView {
	goal := s.evaluator.Targets.DailyCalories
	total := goals.DailyTotal(s.records, d)
	return StatsView{
		Total:    total,
		Goal:     goal,
		Progress: goals.GoalProgress(total, goal),
		Meals:    s.records.Count(records.OnDate(d)),
	}
}

func calendarView(m analytics.Month) CalendarView {
	v := CalendarView{Grid: m, Weekdays: weekdayHeaders}
	v.PrevYear, v.PrevMonth = m.Prev()
	v.NextYear, v.NextMonth = m.Next()
	return v
}

func goalsView(rep goals.Report) GoalsView {
	v := GoalsView{Report: rep}
	for i, total := range rep.WeeklyTotals {
		date := rep.WeekStart.AddDays(i)
		v.Days = append(v.Days, GoalDay{
			Label: date.Weekday().String()[:3],
			Date:  date,
			Total: total,
			Met:   rep.DayMet(i),
		})
	}
	return v
}
