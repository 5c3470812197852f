package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/DachengChen/floatwords/contextinfo"
	"github.com/DachengChen/floatwords/provider"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, credentials and cached days",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadBase()
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		ok := color.New(color.FgGreen).SprintFunc()
		warn := color.New(color.FgYellow).SprintFunc()

		key, src := a.creds.Resolve()
		keyDesc := warn(describeKey(src))
		if key != "" {
			keyDesc = ok(describeKey(src)) + " (" + mask(key) + ")"
		}

		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.AddRow("backend", a.cfg.AI.Backend)
		tbl.AddRow("model", a.cfg.AI.ModelName())
		tbl.AddRow("api key", keyDesc)
		tbl.AddRow("AI enabled", onOff(a.store.AIEnabled()))
		tbl.AddRow("text source", a.store.TextSource())
		tbl.AddRow("texts file", a.cfg.Paths.TextsFile)
		tbl.AddRow("city", valueOr(a.store.City(), "-"))
		tbl.AddRow("weather", onOff(a.store.WeatherEnabled()))
		tbl.AddRow("idle only", fmt.Sprintf("%s (after %ds)", onOff(a.store.IdleOnly()), a.store.IdleThresholdSeconds()))
		tbl.AddRow("density", fmt.Sprintf("%s (max %d)", a.store.FloatDensity(), a.store.MaxFloats()))
		tbl.AddRow("speed", a.store.FloatSpeed())

		bold.Fprintln(out, "Configuration")
		fmt.Fprintln(out, tbl)
		fmt.Fprintln(out)

		entries, err := provider.ListCache(a.cfg.Paths.CacheDir)
		if err != nil {
			return err
		}
		bold.Fprintln(out, "Cached days")
		if len(entries) == 0 {
			fmt.Fprintln(out, "  none yet")
		} else {
			today := time.Now().Format(provider.DateLayout)
			days := uitable.New()
			days.Separator = "  "
			days.AddRow("DATE", "ITEMS", "WRITTEN")
			for _, e := range entries {
				date := e.Date
				if date == today {
					date = ok(date + " (today)")
				}
				items := fmt.Sprint(e.Items)
				if e.Items == 0 {
					items = warn("unusable")
				}
				days.AddRow(date, items, e.ModTime.Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(out, days)
		}

		if cache, err := contextinfo.OpenCache(a.cfg.Paths.ContextDB); err == nil {
			defer cache.Close()
			if g, c, err := cache.Stats(); err == nil {
				fmt.Fprintln(out)
				bold.Fprintln(out, "Context cache")
				fmt.Fprintf(out, "  %d geocodes, %d weather readings\n", g, c)
			}
		}
		return nil
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
