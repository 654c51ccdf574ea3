package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/settings"
)

var themeNames = map[string]int{
	"adaptive": config.ThemeAdaptive,
	"light":    config.ThemeLight,
	"dark":     config.ThemeDark,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the panel defaults",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		current := settings.New(service, settings.Options{}).Load(cmd.Context())
		printSettings(cmd.OutOrStdout(), current, localTheme())
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Change one setting (download_path, default_format, default_quality, theme)",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"download_path", "default_format", "default_quality", "theme"},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], strings.TrimSpace(args[1])

		// Theme is a local display preference and never leaves this machine.
		if key == "theme" {
			theme, ok := themeNames[strings.ToLower(value)]
			if !ok {
				return fmt.Errorf("unknown theme %q (adaptive, light, dark)", value)
			}
			cfg, err := config.LoadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			cfg.Theme = theme
			if err := config.SaveSettings(cfg); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "theme = %s\n", strings.ToLower(value))
			return nil
		}

		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		synchronizer := settings.New(service, settings.Options{})
		synchronizer.Load(cmd.Context())
		if err := applySetting(synchronizer, key, value); err != nil {
			return err
		}
		if err := synchronizer.Flush(cmd.Context()); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		printSettings(cmd.OutOrStdout(), synchronizer.Current(), localTheme())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}

func applySetting(s *settings.Synchronizer, key, value string) error {
	switch key {
	case "download_path":
		if value == "" {
			return fmt.Errorf("download_path must not be empty")
		}
		s.SetDownloadPath(value)
		return nil
	case "default_format":
		return s.SetFormat(types.Format(strings.ToLower(value)))
	case "default_quality":
		return s.SetQuality(types.Quality(strings.ToLower(value)))
	}
	return fmt.Errorf("unknown setting %q", key)
}

func localTheme() string {
	cfg, err := config.LoadSettings()
	if err != nil {
		return "adaptive"
	}
	for name, v := range themeNames {
		if v == cfg.Theme {
			return name
		}
	}
	return "adaptive"
}

func printSettings(out io.Writer, s types.AppSettings, theme string) {
	fmt.Fprintf(out, "download_path   = %s\n", s.DownloadPath)
	fmt.Fprintf(out, "default_format  = %s\n", s.DefaultFormat)
	fmt.Fprintf(out, "default_quality = %s\n", s.DefaultQuality)
	fmt.Fprintf(out, "theme           = %s\n", theme)
}
