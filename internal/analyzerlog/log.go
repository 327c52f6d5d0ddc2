// Package analyzerlog is the logging component shared by every report-master
// subsystem. It mirrors the Component shape used throughout the teacher's
// comp/core/log package (Debugf/Infof/Warnf/Errorf) but is constructed
// directly, without a dependency-injection container: per spec §9's
// "global flags/config loading" note, this repo takes explicit
// constructor arguments instead of framework wiring.
package analyzerlog

import (
	"go.uber.org/zap"
)

// Component is the logging surface every report-master package depends on.
type Component interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	With(fields ...zap.Field) Component
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// New builds a production logger. Callers that need to control the
// encoding/level/output externally should build their own *zap.Logger and
// pass it to Wrap; New is a convenience for the common case.
func New() Component {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return Wrap(l)
}

// NewDevelopment builds a logger tuned for local development: console
// encoding, debug level enabled.
func NewDevelopment() Component {
	l, err := zap.NewDevelopment()
	if err != nil {
		l = zap.NewNop()
	}
	return Wrap(l)
}

// NewNop returns a logger that discards everything; used by tests that do
// not assert on log output.
func NewNop() Component {
	return Wrap(zap.NewNop())
}

// Wrap adapts an existing *zap.Logger into a Component.
func Wrap(l *zap.Logger) Component {
	return &zapLogger{l: l.Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...interface{}) { z.l.Debugf(format, args...) }
func (z *zapLogger) Infof(format string, args ...interface{})  { z.l.Infof(format, args...) }
func (z *zapLogger) Warnf(format string, args ...interface{})  { z.l.Warnf(format, args...) }
func (z *zapLogger) Errorf(format string, args ...interface{}) { z.l.Errorf(format, args...) }

func (z *zapLogger) With(fields ...zap.Field) Component {
	return &zapLogger{l: z.l.Desugar().With(fields...).Sugar()}
}
