package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/api"
	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/core"
	"github.com/surge-downloader/tubepanel/internal/engine"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/engine/ytdlp"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the tubepanel background server (daemon)",
	Long:  `Start, stop, or check the status of the tubepanel background server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tubepanel server in headless mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Attempt to acquire lock
		isMaster, err := AcquireLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !isMaster {
			return errors.New("tubepanel is already running")
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		portFlag, _ := cmd.Flags().GetInt("port")
		bind, _ := cmd.Flags().GetString("bind")
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetServerConfigPath()
		}

		cfg, err := config.LoadServerConfig(configPath)
		if err != nil {
			return fmt.Errorf("load server config: %w", err)
		}

		// Save current PID to file
		savePID()
		defer removePID()

		return startServerLogic(cmd, cfg, bind, portFlag)
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running tubepanel server",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		pid := readPID()
		if pid == 0 {
			fmt.Fprintln(out, "No running tubepanel server found (PID file missing).")
			return
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			fmt.Fprintf(out, "Error finding process: %v\n", err)
			return
		}

		// Try to send SIGTERM
		if err := process.Signal(syscall.SIGTERM); err != nil {
			fmt.Fprintf(out, "Error stopping server: %v\n", err)
			return
		}

		fmt.Fprintf(out, "Sent stop signal to process %d\n", pid)
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the tubepanel server",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		pid := readPID()
		if pid == 0 {
			fmt.Fprintln(out, "tubepanel server is NOT running.")
			return
		}

		// Sending signal 0 to check existence
		process, err := os.FindProcess(pid)
		if err == nil {
			err = process.Signal(syscall.Signal(0))
		}
		if err != nil {
			fmt.Fprintf(out, "tubepanel server is NOT running (Process %d dead).\n", pid)
			return
		}

		port := readActivePort()
		fmt.Fprintf(out, "tubepanel server is running (PID: %d, Port: %d).\n", pid, port)
		if port == 0 {
			return
		}

		probe, err := engine.ProbeDaemon(cmd.Context(), fmt.Sprintf("http://127.0.0.1:%d", port), resolveLocalToken())
		if err != nil {
			fmt.Fprintf(out, "Health check failed: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Health: %s (%s)\n", probe.Status, probe.Latency.Round(time.Millisecond))
		if probe.Dependencies != nil {
			printDependencies(out, *probe.Dependencies)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverStatusCmd)

	serverStartCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: server.yml port or first available)")
	serverStartCmd.Flags().String("bind", "127.0.0.1", "Address to bind")
	serverStartCmd.Flags().StringP("config", "c", "", "Path to server.yml")
}

func pidFilePath() string {
	return filepath.Join(config.GetRuntimeDir(), "pid")
}

func savePID() {
	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		utils.Debug("Error writing PID file: %v", err)
	}
}

func removePID() {
	if err := os.Remove(pidFilePath()); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing PID file: %v", err)
	}
}

func readPID() int {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}

// listen binds the requested port strictly, or the configured port with
// fallback to the next free one.
func listen(bind string, portFlag, configured int) (int, net.Listener, error) {
	if portFlag > 0 {
		ln, err := net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(portFlag)))
		if err != nil {
			return 0, nil, fmt.Errorf("could not bind to port %d: %w", portFlag, err)
		}
		return portFlag, ln, nil
	}
	if bind == "127.0.0.1" {
		port, ln := findAvailablePort(configured)
		if ln == nil {
			return 0, nil, errors.New("could not find available port")
		}
		return port, ln, nil
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(configured)))
	if err != nil {
		return 0, nil, fmt.Errorf("could not bind to port %d: %w", configured, err)
	}
	return configured, ln, nil
}

// newDaemonHandler wires the HTTP API around service.
func newDaemonHandler(service core.DownloadService, logger *zerolog.Logger, token string) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	return api.NewRouter(api.NewAPI(service, logger, token))
}

func startServerLogic(cmd *cobra.Command, cfg config.ServerConfig, bind string, portFlag int) error {
	port, listener, err := listen(bind, portFlag, cfg.Port)
	if err != nil {
		return err
	}

	utils.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := utils.Logger()

	service := core.NewLocalDownloadService(ytdlp.New(types.ConvertRuntimeConfig(&cfg)), cfg.HistoryLimit)
	token := resolveLocalToken()
	srv := &http.Server{
		Handler:           newDaemonHandler(service, logger, token),
		ReadHeaderTimeout: 10 * time.Second,
	}

	saveActivePort(port)
	defer removeActivePort()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tubepanel %s running in server mode.\n", Version)
	fmt.Fprintf(out, "HTTP server listening on %s\n", net.JoinHostPort(bind, strconv.Itoa(port)))
	fmt.Fprintln(out, "Press Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok && err != nil {
			_ = service.Shutdown()
			return fmt.Errorf("http server: %w", err)
		}
	}

	fmt.Fprintln(out, "\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Debug("Error shutting down HTTP server: %v", err)
	}
	return service.Shutdown()
}
