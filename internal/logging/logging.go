package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// secretPatterns matches credentials that tend to leak through environment
// variables and command lines.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|authorization)\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)bearer\s+\S+`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`),
	regexp.MustCompile(`hf_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`ghp_\S+`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
}

const redacted = "[REDACTED]"

const (
	defaultMaxBytes = 5 * 1024 * 1024
	defaultMaxAge   = 14 * 24 * time.Hour
)

// ScrubSecrets replaces known secret patterns in s.
func ScrubSecrets(s string) string {
	for _, pat := range secretPatterns {
		s = pat.ReplaceAllString(s, redacted)
	}
	return s
}

// RotatingWriter appends to a log file and moves it aside to <path>.1 once
// it would grow past maxBytes. Rotated files older than maxAge are pruned.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	maxAge   time.Duration
	file     *os.File
	size     int64
}

func NewRotatingWriter(path string, maxBytes int64, maxAge time.Duration) (*RotatingWriter, error) {
	rw := &RotatingWriter{path: path, maxBytes: maxBytes, maxAge: maxAge}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingWriter) open() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	rw.file, rw.size = f, info.Size()
	return nil
}

func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size > 0 && rw.size+int64(len(p)) > rw.maxBytes {
		// A failed rotation keeps appending to the current file.
		_ = rw.rotate()
	}
	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

func (rw *RotatingWriter) rotate() error {
	rw.file.Close()
	if err := os.Rename(rw.path, rw.path+".1"); err != nil {
		if openErr := rw.open(); openErr != nil {
			return fmt.Errorf("rotate: %v; reopen: %w", err, openErr)
		}
		return fmt.Errorf("rotate: %w", err)
	}
	if err := rw.open(); err != nil {
		return err
	}
	rw.prune()
	return nil
}

// prune removes rotated siblings of the log file older than maxAge.
func (rw *RotatingWriter) prune() {
	dir, base := filepath.Dir(rw.path), filepath.Base(rw.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-rw.maxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), base+".") {
			continue
		}
		if info, err := e.Info(); err == nil && info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}

// ScrubbingHandler redacts secrets from the message and string attributes
// before passing records to inner.
type ScrubbingHandler struct {
	inner slog.Handler
}

func NewScrubbingHandler(inner slog.Handler) *ScrubbingHandler {
	return &ScrubbingHandler{inner: inner}
}

func (h *ScrubbingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ScrubbingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, ScrubSecrets(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(scrubAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *ScrubbingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ScrubbingHandler{inner: h.inner.WithAttrs(scrubAttrs(attrs))}
}

func (h *ScrubbingHandler) WithGroup(name string) slog.Handler {
	return &ScrubbingHandler{inner: h.inner.WithGroup(name)}
}

func scrubAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = scrubAttr(a)
	}
	return out
}

func scrubAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, ScrubSecrets(a.Value.String()))
	case slog.KindGroup:
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(scrubAttrs(a.Value.Group())...)}
	case slog.KindAny:
		if ss, ok := a.Value.Any().([]string); ok {
			scrubbed := make([]string, len(ss))
			for i, s := range ss {
				scrubbed[i] = ScrubSecrets(s)
			}
			return slog.Any(a.Key, scrubbed)
		}
	}
	return a
}

// ParseLevel maps a config log level to slog. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup opens logPath (creating its directory) and returns a JSON logger
// writing to it, plus a cleanup that closes the file. alsoStderr mirrors
// records to stderr.
func Setup(logPath string, level slog.Level, alsoStderr bool) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}
	rw, err := NewRotatingWriter(logPath, defaultMaxBytes, defaultMaxAge)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}

	var w io.Writer = rw
	if alsoStderr {
		w = io.MultiWriter(rw, os.Stderr)
	}
	handler := NewScrubbingHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return slog.New(handler), func() { rw.Close() }, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// RunLogger tags parent with a fresh run ID and returns both.
func RunLogger(parent *slog.Logger) (*slog.Logger, string) {
	id := uuid.NewString()
	return parent.With("run", id), id
}
