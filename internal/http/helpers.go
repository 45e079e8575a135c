package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"mealtrack/internal/core"
)

const (
	themeLight = "light"
	themeDark  = "dark"
)

// recordMonths are the month abbreviations of the record date badge.
var recordMonths = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "June", "July", "Aug", "Sep", "Oct", "Nov", "Dec"}

var templateFuncs = template.FuncMap{
	"pct":       formatPercent,
	"encode":    core.Encode,
	"dateBadge": dateBadge,
	"add":       func(a, b int) int { return a + b },
}

// parseTheme returns the requested view theme. The theme is a per-request
// option; nothing about it is stored.
func parseTheme(r *http.Request) string {
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("theme")), themeDark) {
		return themeDark
	}
	return themeLight
}

func otherTheme(theme string) string {
	if theme == themeDark {
		return themeLight
	}
	return themeDark
}

// dateBadge renders a record date as day, short month and year.
func dateBadge(d core.Date) string {
	return fmt.Sprintf("%d %s %d", d.Day(), recordMonths[d.Month()-1], d.Year())
}

// formatPercent renders a progress value for a CSS width or a label.
func formatPercent(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
