//go:build !(cgo && (linux || darwin) && (amd64 || arm64))

package oracle

import "go.uber.org/zap"

// DefaultBackend returns the backend used when none is configured. HiGHS
// is not available on this platform, so the bundled simplex serves.
func DefaultBackend(p Params, log *zap.Logger) Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return NewSimplexBackend(p.solveOptions(log)...)
}
