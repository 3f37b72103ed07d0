package pipeline

import (
	"log/slog"

	"github.com/oxy-systems/scenecompositor/internal/obslog"
)

var logHolder = obslog.NewHolder()

// SetLogger installs the logger used for scene-swap, registration, and
// render-loop diagnostics. Passing nil restores the no-op default.
func SetLogger(l *slog.Logger) { logHolder.Set(l) }

// Logger returns the currently installed logger.
func Logger() *slog.Logger { return logHolder.Get() }
