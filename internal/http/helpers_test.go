package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"mealtrack/internal/analytics"
	"mealtrack/internal/core"
	"mealtrack/internal/goals"
)

func TestDateBadge(t *testing.T) {
	assert.Equal(t, "1 Mar 2023", dateBadge(core.NewDate(2023, 3, 1)))
	assert.Equal(t, "30 June 2024", dateBadge(core.NewDate(2024, 6, 30)))
	assert.Equal(t, "4 July 2024", dateBadge(core.NewDate(2024, 7, 4)))
}

func TestParseTheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?theme=DARK", nil)
	assert.Equal(t, themeDark, parseTheme(req))
	assert.Equal(t, themeLight, otherTheme(themeDark))

	req = httptest.NewRequest(http.MethodGet, "/?theme=neon", nil)
	assert.Equal(t, themeLight, parseTheme(req))
	assert.Equal(t, themeDark, otherTheme(themeLight))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "50", formatPercent(50))
	assert.Equal(t, "100", formatPercent(100))
	assert.Equal(t, "33", formatPercent(33.3))
}

func TestCalendarViewNavigation(t *testing.T) {
	v := calendarView(analytics.Month{Year: 2024, Month: 1})
	assert.Equal(t, 2023, v.PrevYear)
	assert.Equal(t, 12, v.PrevMonth)
	assert.Equal(t, 2024, v.NextYear)
	assert.Equal(t, 2, v.NextMonth)
	assert.Equal(t, "Sun", v.Weekdays[0])
}

func TestGoalsViewDays(t *testing.T) {
	rep := goals.Report{
		Targets:      goals.DefaultTargets(),
		WeekStart:    core.NewDate(2023, 2, 27),
		WeeklyTotals: [7]int{2100, 0, 450, 2000, 0, 0, 0},
	}
	v := goalsView(rep)
	if assert.Len(t, v.Days, 7) {
		assert.Equal(t, "Mon", v.Days[0].Label)
		assert.True(t, v.Days[0].Met)
		assert.False(t, v.Days[2].Met)
		assert.True(t, v.Days[3].Met)
		assert.Equal(t, "Sun", v.Days[6].Label)
		assert.True(t, v.Days[6].Date.Equal(core.NewDate(2023, 3, 5)))
	}
}
