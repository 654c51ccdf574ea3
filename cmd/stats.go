package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the download history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		stats, err := service.Statistics(cmd.Context())
		if err != nil {
			return fmt.Errorf("load statistics: %w", err)
		}
		printStats(cmd.OutOrStdout(), *stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func printStats(out io.Writer, s types.DownloadStats) {
	fmt.Fprintf(out, "Total:       %s\n", humanize.Comma(int64(s.Total)))
	fmt.Fprintf(out, "Completed:   %s\n", humanize.Comma(int64(s.Completed)))
	fmt.Fprintf(out, "Failed:      %s\n", humanize.Comma(int64(s.Failed)))
	if s.Downloading > 0 {
		fmt.Fprintf(out, "Downloading: %s\n", humanize.Comma(int64(s.Downloading)))
	}
	if s.MostUsedFormat != "" {
		fmt.Fprintf(out, "Most used:   %s\n", strings.ToUpper(s.MostUsedFormat))
	}
	if len(s.FormatsBreakdown) == 0 {
		return
	}

	formats := make([]string, 0, len(s.FormatsBreakdown))
	for f := range s.FormatsBreakdown {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool {
		if s.FormatsBreakdown[formats[i]] != s.FormatsBreakdown[formats[j]] {
			return s.FormatsBreakdown[formats[i]] > s.FormatsBreakdown[formats[j]]
		}
		return formats[i] < formats[j]
	})
	fmt.Fprintln(out, "By format:")
	for _, f := range formats {
		n := s.FormatsBreakdown[f]
		pct := 0.0
		if s.Total > 0 {
			pct = float64(n) * 100 / float64(s.Total)
		}
		fmt.Fprintf(out, "  %-5s %s (%s%%)\n", strings.ToUpper(f), humanize.Comma(int64(n)), humanize.FtoaWithDigits(pct, 1))
	}
}
