// Package obslog provides the atomically-swappable, silent-by-default
// *slog.Logger used by every top-level package in this module, following
// the convention the pack's gogpu/gg library uses for the same purpose:
// library code produces no log output until a host process opts in with
// SetLogger, and all access is safe for concurrent use.
package obslog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records. The
// Enabled method returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// NewNop returns a logger that discards all output.
func NewNop() *slog.Logger { return slog.New(nopHandler{}) }

// Holder is an atomically-swappable logger slot, defaulting to NewNop.
// Each package that wants independently configurable logging keeps its own
// Holder in a small logger.go rather than sharing one package-wide logger,
// so a host process can enable diagnostics for, say, framequeue without
// also enabling them for gpucontext.
type Holder struct {
	ptr atomic.Pointer[slog.Logger]
}

// NewHolder returns a Holder pre-populated with a no-op logger.
func NewHolder() *Holder {
	h := &Holder{}
	h.ptr.Store(NewNop())
	return h
}

// Set installs l, or restores the no-op default if l is nil.
func (h *Holder) Set(l *slog.Logger) {
	if l == nil {
		l = NewNop()
	}
	h.ptr.Store(l)
}

// Get returns the currently installed logger.
func (h *Holder) Get() *slog.Logger {
	return h.ptr.Load()
}
