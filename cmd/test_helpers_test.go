package cmd

import (
	"bytes"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/engine/state"
)

func requireTCPListener(t *testing.T) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp listener unavailable: %v", err)
		return
	}
	_ = ln.Close()
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	globalHost, globalToken = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

// resetLocalState empties the history database and settings file.
func resetLocalState(t *testing.T) {
	t.Helper()
	if err := config.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	state.Configure(config.GetHistoryDBPath())
	if err := state.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	_ = os.Remove(config.GetSettingsPath())
	removeActivePort()
	t.Cleanup(state.CloseDB)
}
