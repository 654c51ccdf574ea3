package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

const (
	binYtDlp  = "yt-dlp"
	binFFmpeg = "ffmpeg"
)

// Fallback markers reported by yt-dlp when the primary selector cannot be served.
var fallbackMarkers = []string{
	"Requested format is not available",
	"nsig extraction failed",
}

// Engine drives the external yt-dlp binary.
type Engine struct {
	cfg    *types.RuntimeConfig
	runner Runner
	find   func(name, configured string) (string, error)
}

// New creates an engine using os/exec and the standard binary lookup.
func New(cfg *types.RuntimeConfig) *Engine {
	if cfg == nil {
		cfg = &types.RuntimeConfig{}
	}
	return &Engine{cfg: cfg, runner: ExecRunner{}, find: FindBinary}
}

// WithRunner replaces the process runner.
func (e *Engine) WithRunner(r Runner) *Engine {
	e.runner = r
	return e
}

// WithBinaryLookup replaces the binary resolver.
func (e *Engine) WithBinaryLookup(fn func(name, configured string) (string, error)) *Engine {
	e.find = fn
	return e
}

// ValidateURL accepts YouTube watch, short-link, playlist and shorts URLs.
func (e *Engine) ValidateURL(url string) bool {
	return strings.Contains(url, "youtube.com/watch") ||
		strings.Contains(url, "youtu.be/") ||
		strings.Contains(url, "youtube.com/playlist") ||
		strings.Contains(url, "youtube.com/shorts/")
}

// CheckDependencies verifies that yt-dlp and ffmpeg can be located.
func (e *Engine) CheckDependencies() error {
	if _, err := e.find(binYtDlp, e.cfg.YtDlpPath); err != nil {
		return err
	}
	if _, err := e.find(binFFmpeg, e.cfg.FFmpegPath); err != nil {
		return err
	}
	return nil
}

// Dependencies resolves both helpers and, when yt-dlp is present, its version.
func (e *Engine) Dependencies(ctx context.Context) types.DependencyStatus {
	var st types.DependencyStatus
	var errs []string

	if p, err := e.find(binYtDlp, e.cfg.YtDlpPath); err != nil {
		errs = append(errs, err.Error())
	} else {
		st.YtDlpPath = p
		if out, _, err := e.runner.Run(ctx, p, "--version"); err == nil {
			st.YtDlpVersion = strings.TrimSpace(string(out))
		}
	}
	if p, err := e.find(binFFmpeg, e.cfg.FFmpegPath); err != nil {
		errs = append(errs, err.Error())
	} else {
		st.FFmpegPath = p
	}

	st.OK = len(errs) == 0
	st.Error = strings.Join(errs, "; ")
	return st
}

func (e *Engine) cacheDir() (string, error) {
	dir := e.cfg.CacheDir
	if dir == "" {
		dir = config.GetCacheDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, nil
}

type rawInfo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Duration   *float64 `json:"duration"`
	Thumbnail  string   `json:"thumbnail"`
	Uploader   string   `json:"uploader"`
	UploadDate string   `json:"upload_date"`
	ViewCount  *int64   `json:"view_count"`
	Formats    []struct {
		Ext string `json:"ext"`
	} `json:"formats"`
}

// VideoInfo extracts metadata with --dump-json.
func (e *Engine) VideoInfo(ctx context.Context, url string) (*types.VideoInfo, error) {
	bin, err := e.find(binYtDlp, e.cfg.YtDlpPath)
	if err != nil {
		return nil, err
	}
	cacheDir, err := e.cacheDir()
	if err != nil {
		return nil, err
	}

	stdout, stderr, err := e.runner.Run(ctx, bin, "--dump-json", "--no-playlist", "--cache-dir", cacheDir, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %s", strings.TrimSpace(string(stderr)))
	}

	return parseInfo(stdout, url)
}

func parseInfo(data []byte, url string) (*types.VideoInfo, error) {
	var raw rawInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse video info: %w", err)
	}

	info := &types.VideoInfo{
		ID:         raw.ID,
		Title:      raw.Title,
		URL:        url,
		Thumbnail:  raw.Thumbnail,
		Uploader:   raw.Uploader,
		UploadDate: raw.UploadDate,
		ViewCount:  raw.ViewCount,
	}
	if info.ID == "" {
		info.ID = "unknown"
	}
	if info.Title == "" {
		info.Title = "Unknown Title"
	}
	if raw.Duration != nil {
		d := int64(*raw.Duration)
		info.Duration = &d
	}

	seen := make(map[string]bool)
	info.AvailableFormats = make([]string, 0)
	for _, f := range raw.Formats {
		if f.Ext == "" || seen[f.Ext] {
			continue
		}
		seen[f.Ext] = true
		info.AvailableFormats = append(info.AvailableFormats, f.Ext)
	}
	sort.Strings(info.AvailableFormats)
	return info, nil
}

// Download runs yt-dlp for req and returns the path of the produced file.
// title names the output file unless req.Filename is set.
func (e *Engine) Download(ctx context.Context, req types.DownloadRequest, title string) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	bin, err := e.find(binYtDlp, e.cfg.YtDlpPath)
	if err != nil {
		return "", err
	}
	cacheDir, err := e.cacheDir()
	if err != nil {
		return "", err
	}

	outDir := req.OutputPath
	if outDir == "" {
		outDir = config.DefaultDownloadDir()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	defer e.cleanupCache(cacheDir, outDir)

	stem := outputStem(req, title)
	template := filepath.Join(outDir, stem+".%(ext)s")

	args, err := downloadArgs(e.cfg, cacheDir, template, req.URL, req.Format, req.Quality)
	if err != nil {
		return "", err
	}

	utils.Debug("yt-dlp %s", strings.Join(args, " "))
	_, stderr, err := e.runner.Run(ctx, bin, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if !needsFallback(msg) {
			return "", fmt.Errorf("download failed: %s", msg)
		}

		utils.Debug("Primary download failed, trying fallback: %s", msg)
		if out, _, lerr := e.runner.Run(ctx, bin, "--list-formats", "--no-playlist", req.URL); lerr == nil {
			utils.Debug("Available formats for %s:\n%s", req.URL, out)
		}

		args, err = fallbackArgs(cacheDir, template, req.URL, req.Format)
		if err != nil {
			return "", err
		}
		if _, stderr, err = e.runner.Run(ctx, bin, args...); err != nil {
			return "", fmt.Errorf("fallback download failed: %s", strings.TrimSpace(string(stderr)))
		}
	}

	path, err := locateOutput(outDir, stem, req.Format)
	if err != nil {
		return "", err
	}

	if kind, ok := DetectMedia(path, req.Format); !ok {
		utils.Debug("Output %s does not look like %s (detected %q)", path, req.Format, kind)
	}
	return path, nil
}

func needsFallback(stderr string) bool {
	for _, m := range fallbackMarkers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}

func outputStem(req types.DownloadRequest, title string) string {
	if req.Filename != "" {
		return strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))
	}
	return utils.SanitizeTitle(title, types.MaxTitleLength)
}

// locateOutput finds the file yt-dlp produced. Post-processing can change
// the extension, so any file starting with the stem is accepted.
func locateOutput(dir, stem string, f types.Format) (string, error) {
	expected := filepath.Join(dir, stem+"."+string(f))
	if isRegularFile(expected) {
		return expected, nil
	}

	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			base := strings.TrimSuffix(name, filepath.Ext(name))
			if strings.HasPrefix(base, stem) && !strings.HasSuffix(name, ".part") {
				return filepath.Join(dir, name), nil
			}
		}
	}

	return "", fmt.Errorf("downloaded file not found at: %s", expected)
}

func (e *Engine) cleanupCache(cacheDir, outDir string) {
	for _, dir := range []string{cacheDir, filepath.Join(outDir, "cache")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
				utils.Debug("Failed to remove cache entry %s: %v", entry.Name(), err)
			}
		}
	}
}
