package ytdlp

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Runner executes an external binary and returns its captured output.
type Runner interface {
	Run(ctx context.Context, bin string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs binaries with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	if runtime.GOOS == "darwin" {
		// GUI launches on macOS get a minimal PATH; ffmpeg must still be found.
		extra := []string{"/usr/local/bin", "/opt/homebrew/bin", "/usr/bin", "/bin", "/opt/local/bin"}
		cmd.Env = append(os.Environ(), "PATH="+os.Getenv("PATH")+":"+strings.Join(extra, ":"))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
