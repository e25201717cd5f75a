package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const maxErrorEntries = 100

// Logger writes JSON log lines for one process to a file under the temp dir.
// It is safe for concurrent use.
type Logger struct {
	path   string
	file   *os.File
	zl     zerolog.Logger
	closed atomic.Bool

	errMu        sync.Mutex
	errorEntries []string
}

// NewLogger creates $TMPDIR/promptbatch-<pid>.log.
func NewLogger() (*Logger, error) {
	return NewLoggerWithSuffix("")
}

// NewLoggerWithSuffix creates $TMPDIR/promptbatch-<pid>-<suffix>.log.
func NewLoggerWithSuffix(suffix string) (*Logger, error) {
	name := fmt.Sprintf("%s-%d", PrimaryLogPrefix(), os.Getpid())
	if s := SanitizeLogSuffix(suffix); s != "" {
		name += "-" + s
	}
	path := filepath.Join(os.TempDir(), name+".log")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	zl := zerolog.New(zerolog.SyncWriter(file)).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()

	return &Logger{path: path, file: file, zl: zl}, nil
}

// SanitizeLogSuffix keeps [A-Za-z0-9_-], maps everything else to '-', and
// collapses repeated dashes.
func SanitizeLogSuffix(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var sb strings.Builder
	lastDash := false
	for _, r := range raw {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if ok {
			sb.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			sb.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.Trim(sb.String(), "-")
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}

func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(zerolog.DebugLevel, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(zerolog.InfoLevel, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(zerolog.WarnLevel, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.log(zerolog.ErrorLevel, msg, kv) }

func (l *Logger) log(level zerolog.Level, msg string, kv []any) {
	if l == nil || l.closed.Load() {
		return
	}

	if level >= zerolog.WarnLevel {
		l.errMu.Lock()
		l.errorEntries = append(l.errorEntries, msg)
		if len(l.errorEntries) > maxErrorEntries {
			l.errorEntries = l.errorEntries[len(l.errorEntries)-maxErrorEntries:]
		}
		l.errMu.Unlock()
	}

	event := l.zl.WithLevel(level)
	if len(kv) > 0 {
		event = event.Fields(kv)
	}
	event.Msg(msg)
}

// Flush syncs the log file to disk.
func (l *Logger) Flush() {
	if l == nil || l.closed.Load() {
		return
	}
	_ = l.file.Sync()
}

// Close stops further writes and closes the file. The file itself is kept.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.file.Close()
}

// RemoveLogFile deletes the log file. Call after Close.
func (l *Logger) RemoveLogFile() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := hooks.remove(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// ExtractRecentErrors returns up to maxEntries of the newest WARN/ERROR
// messages, oldest first.
func (l *Logger) ExtractRecentErrors(maxEntries int) []string {
	if l == nil || maxEntries <= 0 {
		return nil
	}
	l.errMu.Lock()
	defer l.errMu.Unlock()

	if len(l.errorEntries) == 0 {
		return nil
	}
	start := 0
	if len(l.errorEntries) > maxEntries {
		start = len(l.errorEntries) - maxEntries
	}
	out := make([]string, len(l.errorEntries)-start)
	copy(out, l.errorEntries[start:])
	return out
}
