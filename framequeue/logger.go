package framequeue

import (
	"log/slog"

	"github.com/oxy-systems/scenecompositor/internal/obslog"
)

var logHolder = obslog.NewHolder()

// SetLogger installs the logger used for backlog-drop warnings and ingest
// timeout diagnostics. Passing nil restores the no-op default.
func SetLogger(l *slog.Logger) { logHolder.Set(l) }

// Logger returns the currently installed logger.
func Logger() *slog.Logger { return logHolder.Get() }
