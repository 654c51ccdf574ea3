package platform

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/sqweek/dialog"

	"github.com/surge-downloader/tubepanel/internal/utils"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
)

// Command constants
const (
	OpenCommand    = "open"
	XDGOpenCommand = "xdg-open"
	RundllCommand  = "rundll32"
	RundllHandler  = "url.dll,FileProtocolHandler"
)

// Desktop implements the folder picker, confirmation dialog, URL opener and
// clipboard on top of the host desktop.
type Desktop struct {
	goos    string
	command func(name string, args ...string) error
	copy    func(string) error
	browse  func(title, start string) (string, error)
	confirm func(title, message string) bool
}

// NewDesktop returns a Desktop bound to the running OS.
func NewDesktop() *Desktop {
	return &Desktop{
		goos:    runtime.GOOS,
		command: runCommand,
		copy:    clipboard.WriteAll,
		browse:  browseDirectory,
		confirm: yesNo,
	}
}

func runCommand(name string, args ...string) error {
	_, err := startAndReap(exec.Command(name, args...))
	return err
}

// startAndReap starts cmd without blocking and waits for it in the
// background so the child does not linger as a zombie. The returned channel
// receives the exit result.
func startAndReap(cmd *exec.Cmd) (<-chan error, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()
	return done, nil
}

func browseDirectory(title, start string) (string, error) {
	b := dialog.Directory().Title(title)
	if start != "" {
		b = b.SetStartDir(start)
	}
	return b.Browse()
}

func yesNo(title, message string) bool {
	return dialog.Message("%s", message).Title(title).YesNo()
}

// OpenCommandFor returns the command line that opens url on goos.
func OpenCommandFor(goos, url string) (string, []string) {
	switch goos {
	case OSDarwin:
		return OpenCommand, []string{url}
	case OSWindows:
		return RundllCommand, []string{RundllHandler, url}
	default:
		return XDGOpenCommand, []string{url}
	}
}

// OpenURL opens url in the default browser.
func (d *Desktop) OpenURL(url string) error {
	name, args := OpenCommandFor(d.goos, url)
	if err := d.command(name, args...); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// CopyText places text on the system clipboard.
func (d *Desktop) CopyText(text string) error {
	if err := d.copy(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// PickFolder shows a native directory picker. Cancelling returns "" and a
// nil error.
func (d *Desktop) PickFolder(title, start string) (string, error) {
	dir, err := d.browse(title, start)
	if errors.Is(err, dialog.ErrCancelled) {
		return "", nil
	}
	if err != nil {
		utils.Debug("platform: directory picker: %v", err)
		return "", fmt.Errorf("directory picker: %w", err)
	}
	return dir, nil
}

// Confirm shows a native yes/no dialog.
func (d *Desktop) Confirm(title, message string) (bool, error) {
	return d.confirm(title, message), nil
}
