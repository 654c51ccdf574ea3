package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, clear or export the download history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past downloads, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		entries, err := service.History(cmd.Context())
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No downloads yet.")
			return nil
		}
		limit, _ := cmd.Flags().GetInt("limit")
		now := time.Now()
		for i, e := range entries {
			if limit > 0 && i >= limit {
				fmt.Fprintf(out, "... and %d more\n", len(entries)-limit)
				break
			}
			printHistoryRow(out, history.ToDisplay(e), humanize.RelTime(e.DownloadedAt, now, "ago", "from now"))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every history entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		yes, _ := cmd.Flags().GetBool("yes")
		refresher := history.NewRefresher(service, nil)
		cleared, err := refresher.Clear(cmd.Context(), promptConfirmer{
			in:  cmd.InOrStdin(),
			out: cmd.OutOrStdout(),
			yes: yes,
		})
		if err != nil {
			return err
		}
		if cleared {
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the history as JSON (to stdout with -)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		if len(args) == 1 && args[0] == "-" {
			_, err := service.ExportHistory(cmd.Context(), cmd.OutOrStdout())
			return err
		}

		var buf strings.Builder
		name, err := service.ExportHistory(cmd.Context(), &buf)
		if err != nil {
			return fmt.Errorf("export history: %w", err)
		}
		path := filepath.Base(name)
		if len(args) == 1 {
			path = args[0]
		}
		if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "History exported to %s (%s)\n", path, humanize.Bytes(uint64(buf.Len())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyClearCmd, historyExportCmd)

	historyListCmd.Flags().Bool("json", false, "Print raw entries as JSON")
	historyListCmd.Flags().IntP("limit", "n", 0, "Show at most n entries")
	historyClearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func printHistoryRow(out io.Writer, e history.DisplayEntry, when string) {
	mark := "✔"
	if !e.Completed() {
		mark = "✘"
	}
	fmt.Fprintf(out, "%s %s  %-5s %-6s  %s  (%s)\n", mark, e.Date, strings.ToUpper(string(e.Format)), e.Quality, e.Title, when)
	if e.FilePath != "" {
		fmt.Fprintf(out, "    %s\n", e.FilePath)
	}
}

// promptConfirmer asks on the terminal before destructive actions.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
	yes bool
}

func (p promptConfirmer) Confirm(title, message string) (bool, error) {
	if p.yes {
		return true, nil
	}
	fmt.Fprintf(p.out, "%s: %s [y/N] ", title, message)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
