package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	debugDir  string
	debugFile *os.File
	debugOnce sync.Once
	logger    = zerolog.Nop()
	loggerMu  sync.RWMutex
)

// ConfigureDebug sets the directory debug.log is written to. Calls made
// after the first Debug have no effect.
func ConfigureDebug(dir string) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	debugDir = dir
}

func openDebugLog() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if debugDir == "" {
		return
	}
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(debugDir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	debugFile = f
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}).With().Timestamp().Logger()
}

// Logger returns the structured logger backing Debug.
func Logger() *zerolog.Logger {
	debugOnce.Do(openDebugLog)
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	l := logger
	return &l
}

// SetOutput replaces the debug sink. Used by the daemon to mirror logs to stderr.
func SetOutput(w io.Writer) {
	debugOnce.Do(func() {})
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// Debug writes a message to debug.log
func Debug(format string, args ...any) {
	l := Logger()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}

// CloseDebug flushes and closes the debug log file.
func CloseDebug() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if debugFile != nil {
		_ = debugFile.Sync()
		_ = debugFile.Close()
		debugFile = nil
	}
	logger = zerolog.Nop()
}
