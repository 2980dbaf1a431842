package middlewares

import (
	"runtime"

	"github.com/clinicore/clinicore/internal"
)

// DefaultStackSize caps the captured stack trace at 4 KiB.
const DefaultStackSize = 4096

// RecoverConfig configures panic recovery.
type RecoverConfig struct {
	StackSize         int
	DisablePrintStack bool
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithRecoverStackSize overrides the stack capture limit.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.StackSize = size
	}
}

// WithRecoverDisablePrintStack skips stack capture and stack logging.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

// Recover converts a handler panic into a PanicError returned through the
// normal error path. The connection stays open and the client receives the
// standard JSON error envelope instead of a reset.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := &RecoverConfig{StackSize: DefaultStackSize}
	for _, opt := range opts {
		opt(cfg)
	}

	capture := func(c internal.Context, value any) *PanicError {
		pe := &PanicError{Value: value}
		if cfg.DisablePrintStack {
			c.LogError("panic recovered", "panic", value)
			return pe
		}

		buf := make([]byte, cfg.StackSize)
		pe.Stack = buf[:runtime.Stack(buf, false)]
		c.LogError("panic recovered", "panic", value, "stack", string(pe.Stack))
		return pe
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = capture(c, r)
				}
			}()
			return next(c)
		}
	}
}
