package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mealtrack/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "mealtrack",
	Short: "Log meals and track calorie goals",
	Long: `mealtrack serves a small meal diary with daily and weekly calorie goals.
Records live in memory for the lifetime of the process.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.LoadEnvFile()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, summaryCmd, eventsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
