package cmd

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/DachengChen/floatwords/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "List, read and change saved preferences",
		Long: `Preferences are stored one file per key under ~/.floatwords/settings.
A running floatwords picks up changes immediately.

Keys:
  ` + strings.Join(settings.AllKeys, "\n  "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadBase()
			if err != nil {
				return err
			}
			defer a.close()

			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow("KEY", "VALUE")
			for _, k := range settings.AllKeys {
				tbl.AddRow(k, displayValue(a.store, k))
			}
			fmt.Fprintln(cmd.OutOrStdout(), tbl)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Print one stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.IsKnown(args[0]) {
				return fmt.Errorf("unknown setting %q", args[0])
			}
			a, err := loadBase()
			if err != nil {
				return err
			}
			defer a.close()
			fmt.Fprintln(cmd.OutOrStdout(), displayValue(a.store, args[0]))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Store a value",
		Example: "  floatwords settings set context/city Lisbon\n  floatwords settings set ui/float_density many",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.Join(args[1:], " ")
			if err := settings.Validate(key, value); err != nil {
				return err
			}
			a, err := loadBase()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.store.Set(key, strings.TrimSpace(value)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, displayValue(a.store, key))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a stored value so the default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.IsKnown(args[0]) {
				return fmt.Errorf("unknown setting %q", args[0])
			}
			a, err := loadBase()
			if err != nil {
				return err
			}
			defer a.close()
			return a.store.Delete(args[0])
		},
	})

	return cmd
}

// displayValue shows the effective value, marking defaults and masking
// the API key.
func displayValue(s *settings.Store, key string) string {
	var v string
	switch key {
	case settings.KeyAIEnabled:
		v = onOff(s.AIEnabled())
	case settings.KeyTextSource:
		v = s.TextSource()
	case settings.KeyDeepSeekAPIKey:
		if k := s.DeepSeekAPIKey(); k != "" {
			v = mask(k)
		}
	case settings.KeyCity:
		v = s.City()
	case settings.KeyLocationMode:
		v = s.LocationMode()
	case settings.KeyWeatherEnabled:
		v = onOff(s.WeatherEnabled())
	case settings.KeyIdleEnabled:
		v = onOff(s.IdleOnly())
	case settings.KeyIdleThresholdSec:
		v = fmt.Sprint(s.IdleThresholdSeconds())
	case settings.KeyFloatDensity:
		v = s.FloatDensity()
	case settings.KeyFloatSpeed:
		v = s.FloatSpeed()
	case settings.KeySalutation:
		v = s.Salutation()
	case settings.KeyUserHint:
		v = s.UserHint()
	}
	if !s.Has(key) {
		if v == "" {
			return "(unset)"
		}
		return v + " (default)"
	}
	return v
}
