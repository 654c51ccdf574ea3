package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/core"
	"github.com/surge-downloader/tubepanel/internal/engine/state"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/engine/ytdlp"
	"github.com/surge-downloader/tubepanel/internal/platform"
	"github.com/surge-downloader/tubepanel/internal/tui"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Connection overrides shared by every command.
var (
	globalHost  string
	globalToken string
)

const shutdownTimeout = 10 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "tubepanel",
	Short:         "A terminal panel for downloading YouTube videos and audio",
	Long:          `tubepanel downloads YouTube videos and audio through yt-dlp, from a terminal UI or a headless daemon.`,
	Version:       Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadDotEnv()
		return initializeGlobalState()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, token, err := resolveAPIConnection(false)
		if err != nil {
			return err
		}
		if baseURL != "" {
			utils.Debug("Attaching panel to daemon at %s", baseURL)
			return startTUI(core.NewRemoteDownloadService(baseURL, token))
		}

		isMaster, err := AcquireLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !isMaster {
			return errors.New("tubepanel is already running; use 'tubepanel connect' to attach to the daemon")
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		service, err := newLocalService()
		if err != nil {
			return err
		}
		defer func() { _ = service.Shutdown() }()
		return startTUI(service)
	},
}

// startTUI runs the panel against service until the user quits.
func startTUI(service core.DownloadService) error {
	if s, err := config.LoadSettings(); err == nil {
		tui.ApplyTheme(s.Theme)
	}

	desktop := platform.NewDesktop()
	m := tui.InitialRootModel(tui.Options{
		Service:   service,
		Picker:    desktop,
		Confirmer: desktop,
		Opener:    desktop,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if rm, ok := final.(tui.RootModel); ok {
		rm.Shutdown(ctx)
	} else {
		m.Shutdown(ctx)
	}

	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// newLocalService builds the in-process service from server.yml.
func newLocalService() (*core.LocalDownloadService, error) {
	cfg, err := config.LoadServerConfig(config.GetServerConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	engine := ytdlp.New(types.ConvertRuntimeConfig(&cfg))
	return core.NewLocalDownloadService(engine, cfg.HistoryLimit), nil
}

// openService returns the daemon client when one is reachable, otherwise
// the local service. The returned func releases it.
func openService() (core.DownloadService, func(), error) {
	baseURL, token, err := resolveAPIConnection(false)
	if err != nil {
		return nil, nil, err
	}
	if baseURL != "" {
		remote := core.NewRemoteDownloadService(baseURL, token)
		return remote, func() { _ = remote.Shutdown() }, nil
	}

	local, err := newLocalService()
	if err != nil {
		return nil, nil, err
	}
	return local, func() {
		_ = local.Shutdown()
		state.CloseDB()
	}, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer utils.CloseDebug()
	if err := rootCmd.Execute(); err != nil {
		utils.CloseDebug()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalHost, "host", "", "Daemon address (host:port or URL); defaults to TUBEPANEL_HOST")
	rootCmd.PersistentFlags().StringVar(&globalToken, "token", "", "Bearer token for the daemon; defaults to TUBEPANEL_TOKEN")
	rootCmd.SetVersionTemplate("tubepanel version {{.Version}} (built " + BuildTime + ")\n")
}

// loadDotEnv reads .env from the working directory and the app dir.
// Variables already set in the environment win.
func loadDotEnv() {
	for _, path := range []string{".env", filepath.Join(config.GetAppDir(), ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			utils.Debug("Error loading %s: %v", path, err)
		}
	}
}

// initializeGlobalState sets up the environment and configures the engine state and logging
func initializeGlobalState() error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("create app dirs: %w", err)
	}
	state.Configure(config.GetHistoryDBPath())
	utils.ConfigureDebug(config.GetLogsDir())
	return nil
}
