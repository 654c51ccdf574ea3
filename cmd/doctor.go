package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that yt-dlp and ffmpeg can be found",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		status, err := service.CheckDependencies(cmd.Context())
		if err != nil {
			return fmt.Errorf("check dependencies: %w", err)
		}
		printDependencies(cmd.OutOrStdout(), *status)
		if !status.OK {
			return errors.New("missing dependencies")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func printDependencies(out io.Writer, st types.DependencyStatus) {
	found := func(path string) string {
		if path == "" {
			return "not found"
		}
		return path
	}
	ytdlp := found(st.YtDlpPath)
	if st.YtDlpVersion != "" {
		ytdlp += " (" + st.YtDlpVersion + ")"
	}
	fmt.Fprintf(out, "yt-dlp: %s\n", ytdlp)
	fmt.Fprintf(out, "ffmpeg: %s\n", found(st.FFmpegPath))
	if st.Error != "" {
		fmt.Fprintf(out, "error:  %s\n", st.Error)
	}
}
