// Package rtlog wraps *zap.Logger for the runtime/CLI edges of wazerolite.
// The core decoder/validator/interpreter never imports this package: errors
// are returned, not logged, on the hot path (spec.md §7).
package rtlog

import "go.uber.org/zap"

// Logger is a thin handle around *zap.Logger, defaulting to a no-op
// instance so library use without an embedder-supplied logger stays
// silent, mirroring zap's own NewNop idiom.
type Logger struct {
	z *zap.Logger
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// New wraps an embedder-supplied *zap.Logger. A nil z falls back to Nop.
func New(z *zap.Logger) *Logger {
	if z == nil {
		return Nop()
	}
	return &Logger{z: z}
}

func (l *Logger) ModuleInstantiated(name string) {
	l.z.Info("module instantiated", zap.String("module", name))
}

func (l *Logger) StartFunctionInvoked(name string) {
	l.z.Debug("start function invoked", zap.String("module", name))
}

func (l *Logger) Trapped(module, function string, err error) {
	l.z.Warn("function call trapped",
		zap.String("module", module), zap.String("function", function), zap.Error(err))
}

func (l *Logger) Closed(name string) {
	l.z.Debug("module closed", zap.String("module", name))
}
