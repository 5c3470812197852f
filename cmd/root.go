// Package cmd contains all Cobra commands for floatwords.
//
// Running `floatwords` with no arguments starts the floating-text TUI.
// --headless prints each float as a line instead, which is handy over SSH
// or for checking what the providers produce.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagDebug    bool
	flagHeadless bool
)

var rootCmd = &cobra.Command{
	Use:   "floatwords",
	Short: "Gentle floating texts in your terminal",
	Long: `floatwords drifts short, calm messages up your terminal while you are idle.
  • Texts come from a local file or are generated once a day by an AI backend
  • Generated texts are cached per day under ~/.floatwords/ai_cache
  • Optional city and weather context for the daily prompt

Run 'floatwords' to start the TUI.`,
	SilenceUsage: true,
	// Running with no subcommand launches the TUI.
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagHeadless {
			return runHeadless(cmd.Context())
		}
		return runTUI(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Write debug-level messages to app.log")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Print floats to stdout instead of starting the TUI")

	rootCmd.AddCommand(refreshCmd, statusCmd, newSettingsCmd())
	addVersion(rootCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
