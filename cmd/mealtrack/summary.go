package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mealtrack/internal/analytics"
	"mealtrack/internal/cli"
	"mealtrack/internal/config"
	"mealtrack/internal/core"
	"mealtrack/internal/goals"
	"mealtrack/internal/log"
	"mealtrack/internal/records"
)

var (
	summaryDate     string
	summarySeedFile string
)

var (
	colorGood  = lipgloss.Color("#2F855A")
	colorWarn  = lipgloss.Color("#D69E2E")
	colorMuted = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGood)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	metStyle   = lipgloss.NewStyle().Foreground(colorGood)
	missStyle  = lipgloss.NewStyle().Foreground(colorWarn)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print goal progress and weekly totals for the seeded records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if summarySeedFile != "" {
			cfg.SeedFile = summarySeedFile
		}

		d := core.Today()
		if summaryDate != "" {
			parsed, err := core.Decode(summaryDate)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			d = parsed
		}

		// Logs go to stderr so stdout carries only the summary.
		logger := log.New(log.Config{
			Level:     slog.LevelWarn,
			Format:    cfg.LogFormat,
			Component: log.ComponentApp,
			Output:    cmd.ErrOrStderr(),
		})
		recs, err := cli.LoadSeed(cfg, logger)
		if err != nil {
			return err
		}

		store := records.New(records.WithSeed(recs...))
		eval := goals.NewEvaluator(goals.Targets{DailyCalories: cfg.DailyCalorieGoal})
		renderSummary(cmd.OutOrStdout(), eval.Evaluate(store, d), analytics.BuildWeek(store, d, eval.Targets.DailyCalories))
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "reference date YYYY-MM-DD (default today)")
	summaryCmd.Flags().StringVar(&summarySeedFile, "seed-file", "", "YAML seed file (overrides SEED_FILE)")
}

func renderSummary(w io.Writer, rep goals.Report, week analytics.Week) {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render("Goals for "+core.Encode(rep.Date)))
	fmt.Fprintf(&b, "Daily   %d / %d cal  %s%%\n", rep.DailyTotal, rep.Targets.DailyCalories, formatPct(rep.DailyProgress))
	fmt.Fprintf(&b, "Weekly  %d / %d days  %s%%\n", rep.DaysMet, rep.Targets.WeeklyDays, formatPct(rep.WeeklyProgress))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, titleStyle.Render("Week of "+core.Encode(week.Start)))
	for _, day := range week.Days {
		style := missStyle
		if day.GoalMet {
			style = metStyle
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			day.Label,
			style.Render(fmt.Sprintf("%6d cal", day.Calories)),
			mutedStyle.Render(fmt.Sprintf("%d meals", day.Meals)))
	}
	fmt.Fprintf(&b, "Total %d cal, average %d cal/day", week.TotalCalories, week.AverageCalories)

	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
