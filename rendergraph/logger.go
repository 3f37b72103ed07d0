package rendergraph

import (
	"log/slog"

	"github.com/oxy-systems/scenecompositor/internal/obslog"
)

var logHolder = obslog.NewHolder()

// SetLogger installs the logger used for render-time diagnostics: node
// texture sizing failures, nodes with no resolved renderer, fallback blit
// failures, and render failures whose frame is dropped (spec.md §7).
func SetLogger(l *slog.Logger) { logHolder.Set(l) }

// Logger returns the currently installed logger.
func Logger() *slog.Logger { return logHolder.Get() }
