package ytdlp

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/surge-downloader/tubepanel/internal/utils"
)

// targetTriple names the bundled binary suffix for the running platform.
func targetTriple() string {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "aarch64-apple-darwin"
		}
		return "x86_64-apple-darwin"
	case "windows":
		return "x86_64-pc-windows-msvc"
	default:
		return "x86_64-unknown-linux-gnu"
	}
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// bundledCandidates lists where a packaged build ships its helper binaries,
// relative to the directory of the running executable.
func bundledCandidates(appDir, name string) []string {
	specific := exeName(name + "-" + targetTriple())
	plain := exeName(name)
	dirs := []string{
		filepath.Join(appDir, "..", "Resources", "binaries"),
		filepath.Join(appDir, "..", "Resources"),
		filepath.Join(appDir, "binaries"),
		appDir,
		filepath.Join(appDir, "libs"),
		filepath.Join(appDir, "resources"),
	}
	out := make([]string, 0, len(dirs)*2)
	for _, d := range dirs {
		out = append(out, filepath.Join(d, specific))
	}
	for _, d := range dirs {
		out = append(out, filepath.Join(d, plain))
	}
	return out
}

func commonPaths(name string) []string {
	file := exeName(name)
	switch runtime.GOOS {
	case "windows":
		return []string{
			filepath.Join(`C:\Program Files`, name, file),
			filepath.Join(`C:\Program Files (x86)`, name, file),
			filepath.Join(`C:\`, name, file),
			filepath.Join(`C:\ProgramData\chocolatey\bin`, file),
			filepath.Join(".", "libs", file),
			filepath.Join(".", "binaries", file),
		}
	case "darwin":
		return []string{
			"/usr/local/bin/" + file,
			"/opt/homebrew/bin/" + file,
			"/usr/bin/" + file,
			"/opt/local/bin/" + file,
			"./libs/" + file,
			"./binaries/" + file,
		}
	default:
		return []string{
			"/usr/local/bin/" + file,
			"/usr/bin/" + file,
			"/bin/" + file,
			"/snap/bin/" + file,
			"./libs/" + file,
			"./binaries/" + file,
		}
	}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FindBinary resolves a helper binary. Lookup order: explicit path,
// bundled next to the executable, PATH, common install locations.
func FindBinary(name, configured string) (string, error) {
	if configured != "" {
		if isRegularFile(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("%s not found at configured path %s", name, configured)
	}

	if exe, err := os.Executable(); err == nil {
		for _, p := range bundledCandidates(filepath.Dir(exe), name) {
			if isRegularFile(p) {
				utils.Debug("Found bundled binary: %s", p)
				return p, nil
			}
		}
	}

	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}

	for _, p := range commonPaths(name) {
		if isRegularFile(p) {
			return p, nil
		}
	}

	return "", fmt.Errorf("%s not found; install it or set its path in server.yml", name)
}
