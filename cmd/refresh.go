package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/DachengChen/floatwords/config"
	"github.com/DachengChen/floatwords/settings"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Regenerate today's AI texts now",
	Long: `Discards today's cached batch and asks the AI backend for a new one,
ignoring the retry backoff. Yesterday's and older files are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if !a.ctl.RefreshTodayAI() {
			return errors.New("AI texts are disabled; enable them with 'floatwords settings set ai/enabled true'")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Generating today's texts...")
		a.ctl.Wait()

		r, ok := a.remote()
		if !ok || !r.IsReady() {
			backend := a.cfg.AI.Backend
			if _, src := a.creds.Resolve(); src == config.KeySourceNone && config.RequiresKey(backend) {
				return fmt.Errorf("no API key configured; set %s or run 'floatwords settings set %s <key>'",
					config.APIKeyEnv(backend), settings.KeyDeepSeekAPIKey)
			}
			return fmt.Errorf("generation failed, see %s", filepath.Join(a.cfg.Paths.LogDir, "ai.log"))
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %d texts written to %s\n", len(r.Items()), r.TodayPath())
		return nil
	},
}
