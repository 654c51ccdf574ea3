package ytdlp

import (
	"fmt"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

const playerClientArgs = "youtube:player_client=android,web"

// AudioQuality maps a preset onto yt-dlp's --audio-quality value.
func AudioQuality(q types.Quality) string {
	switch q {
	case types.QualityBest:
		return "0"
	case types.QualityMedium:
		return "128K"
	case types.QualityLow:
		return "96K"
	case types.QualityWorst:
		return "64K"
	default:
		return "192K"
	}
}

// VideoHeight maps a preset onto the maximum video height.
func VideoHeight(q types.Quality) int {
	switch q {
	case types.QualityBest:
		return 2160
	case types.QualityMedium:
		return 720
	case types.QualityLow:
		return 480
	case types.QualityWorst:
		return 360
	default:
		return 1080
	}
}

// FormatSelector builds the -f expression for video formats.
func FormatSelector(f types.Format, q types.Quality) string {
	h := VideoHeight(q)
	if q == types.QualityBest {
		switch f {
		case types.FormatMP4:
			return fmt.Sprintf("bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", h, h, h)
		case types.FormatWEBM:
			return fmt.Sprintf("bestvideo[height<=%d][ext=webm]+bestaudio[ext=webm]/bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", h, h, h)
		}
	}
	return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]/bestvideo[height<=%d]/best", h, h, h)
}

// downloadArgs returns the primary yt-dlp invocation for a request.
func downloadArgs(rc *types.RuntimeConfig, cacheDir, template, url string, f types.Format, q types.Quality) ([]string, error) {
	args := []string{
		"--cache-dir", cacheDir,
		"--no-playlist",
		"--user-agent", rc.GetUserAgent(),
		"--referer", types.DefaultReferer,
		"--extractor-retries", fmt.Sprint(rc.GetExtractorRetries()),
		"--fragment-retries", fmt.Sprint(rc.GetFragmentRetries()),
	}

	switch f {
	case types.FormatMP3:
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", AudioQuality(q))
	case types.FormatWAV:
		args = append(args, "-x", "--audio-format", "wav", "--audio-quality", "0")
	case types.FormatMP4:
		args = append(args,
			"-f", FormatSelector(f, q),
			"--merge-output-format", "mp4",
			"--extractor-args", playerClientArgs,
			"--no-check-formats",
			"--prefer-free-formats",
		)
	case types.FormatWEBM:
		args = append(args,
			"-f", FormatSelector(f, q),
			"--merge-output-format", "webm",
			"--extractor-args", playerClientArgs,
			"--no-check-formats",
		)
	default:
		return nil, fmt.Errorf("unsupported format: %s", f)
	}

	return append(args, "-o", template, url), nil
}

// fallbackArgs is the relaxed retry used when the primary selector is rejected.
func fallbackArgs(cacheDir, template, url string, f types.Format) ([]string, error) {
	args := []string{
		"--cache-dir", cacheDir,
		"--no-playlist",
		"--user-agent", "Mozilla/5.0 (compatible; yt-dlp)",
	}

	switch f {
	case types.FormatMP3:
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	case types.FormatWAV:
		args = append(args, "-x", "--audio-format", "wav", "--audio-quality", "0")
	case types.FormatMP4, types.FormatWEBM:
		args = append(args, "-f", "best/worst", "--recode-video", string(f))
	default:
		return nil, fmt.Errorf("unsupported format for fallback: %s", f)
	}

	return append(args, "-o", template, url), nil
}
