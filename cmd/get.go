package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/core"
	"github.com/surge-downloader/tubepanel/internal/engine/events"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/lifecycle"
)

// Overridden in tests.
var getPollInterval = types.DefaultPollInterval

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download a video or its audio without the panel",
	Long:  `get submits one YouTube URL, follows it until it finishes and prints the result.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, release, err := openService()
		if err != nil {
			return err
		}
		defer release()

		req, err := buildRequest(cmd, service, args[0])
		if err != nil {
			return err
		}
		skipInfo, _ := cmd.Flags().GetBool("skip-info")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		job, err := runGet(ctx, cmd.OutOrStdout(), service, req, skipInfo)
		if err != nil {
			return err
		}

		switch job.State {
		case lifecycle.StateCompleted:
			return nil
		case lifecycle.StateTimedOut:
			// The local engine would be cancelled on exit; let it finish.
			if local, ok := service.(*core.LocalDownloadService); ok && !job.Abandoned {
				fmt.Fprintln(cmd.OutOrStdout(), "Waiting for yt-dlp to finish...")
				local.Wait()
			}
			return nil
		default:
			return fmt.Errorf("download %s", job.State)
		}
	},
}

func init() {
	getCmd.Flags().StringP("format", "f", "", "Output format: mp4, mp3, wav, webm (default: settings)")
	getCmd.Flags().StringP("quality", "q", "", "Quality: best, high, medium, low, worst (default: settings)")
	getCmd.Flags().StringP("output", "o", "", "Download folder (default: settings)")
	getCmd.Flags().Bool("skip-info", false, "Do not fetch the title before starting")
	rootCmd.AddCommand(getCmd)
}

// buildRequest fills unset flags from the stored settings.
func buildRequest(cmd *cobra.Command, service core.DownloadService, url string) (types.DownloadRequest, error) {
	format, _ := cmd.Flags().GetString("format")
	quality, _ := cmd.Flags().GetString("quality")
	output, _ := cmd.Flags().GetString("output")

	if format == "" || quality == "" || output == "" {
		s, err := service.LoadSettings(cmd.Context())
		if err != nil {
			return types.DownloadRequest{}, fmt.Errorf("load settings: %w", err)
		}
		if format == "" {
			format = string(s.DefaultFormat)
		}
		if quality == "" {
			quality = string(s.DefaultQuality)
		}
		if output == "" {
			output = s.DownloadPath
		}
	}

	req := types.DownloadRequest{
		URL:        url,
		Format:     types.Format(format),
		Quality:    types.Quality(quality),
		OutputPath: output,
	}
	if err := req.Validate(); err != nil {
		return types.DownloadRequest{}, err
	}
	return req, nil
}

// runGet drives one job through the lifecycle client, printing events to out.
func runGet(ctx context.Context, out io.Writer, backend lifecycle.Backend, req types.DownloadRequest, skipInfo bool) (lifecycle.Job, error) {
	printer := make(chan any, types.EventChannelBuffer)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case msg := <-printer:
				printEvent(out, msg)
			case <-stop:
				for {
					select {
					case msg := <-printer:
						printEvent(out, msg)
					default:
						return
					}
				}
			}
		}
	}()

	client := lifecycle.NewClient(backend, lifecycle.Options{
		PollInterval: getPollInterval,
		SkipInfo:     skipInfo,
		Notify: func(msg any) {
			select {
			case printer <- msg:
			default:
			}
		},
	})
	defer func() {
		client.Close()
		close(stop)
		<-done
	}()

	handle, err := client.Submit(ctx, req)
	if err != nil {
		var engineErr *lifecycle.EngineError
		if errors.As(err, &engineErr) {
			return lifecycle.Job{}, fmt.Errorf("engine: %w", engineErr.Err)
		}
		return lifecycle.Job{}, err
	}

	job, err := handle.Wait(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		client.Abandon()
		return client.Snapshot(), nil
	}
	return job, err
}

func printEvent(out io.Writer, msg any) {
	switch m := msg.(type) {
	case events.JobStartedMsg:
		title := m.Title
		if title == "" {
			title = m.URL
		}
		fmt.Fprintf(out, "Started: %s [%s] (%s, %s)\n", title, shortID(m.JobID), m.Format, m.Quality)
	case events.ProgressMsg:
		if m.Progress > 0 && m.Progress < types.ProgressComplete {
			fmt.Fprintf(out, "  ~%d%%\n", m.Progress)
		}
	case events.JobCompleteMsg:
		fmt.Fprintf(out, "Completed: %s [%s] (in %s)\n", m.Title, shortID(m.JobID), m.Elapsed.Round(time.Millisecond))
	case events.JobErrorMsg:
		fmt.Fprintf(out, "Error: %v\n", m.Err)
	case events.JobTimedOutMsg:
		if m.Abandoned {
			fmt.Fprintf(out, "Stopped watching [%s]; it may still finish.\n", shortID(m.JobID))
		} else {
			fmt.Fprintf(out, "Still running after %s [%s]; check history later.\n", m.Elapsed.Round(time.Second), shortID(m.JobID))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
