package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl filters a debug-level zap logger through an adjustable level. Context variants bypass
// the filter when the context was marked with EnableDebugMode.
type impl struct {
	*zap.SugaredLogger

	full  *zap.Logger
	level zap.AtomicLevel
}

func newImpl(full *zap.Logger, level zap.AtomicLevel) *impl {
	full = full.WithOptions(zap.AddCaller())
	return &impl{
		SugaredLogger: full.WithOptions(zap.IncreaseLevel(level)).Sugar(),
		full:          full,
		level:         level,
	}
}

func (imp *impl) Sublogger(subname string) Logger {
	return &impl{
		SugaredLogger: imp.SugaredLogger.Named(subname),
		full:          imp.full.Named(subname),
		level:         imp.level,
	}
}

func (imp *impl) SetLevel(level zapcore.Level) {
	imp.level.SetLevel(level)
}

// contextual picks the unfiltered logger for debug-mode contexts and skips the wrapper frame.
func (imp *impl) contextual(ctx context.Context) *zap.SugaredLogger {
	if IsDebugMode(ctx) {
		return imp.full.WithOptions(zap.AddCallerSkip(1)).Sugar().With("debug_key", GetName(ctx))
	}
	return imp.SugaredLogger.WithOptions(zap.AddCallerSkip(1))
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.contextual(ctx).Debugw(msg, keysAndValues...)
}

func (imp *impl) CInfow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.contextual(ctx).Infow(msg, keysAndValues...)
}

func (imp *impl) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.contextual(ctx).Warnw(msg, keysAndValues...)
}

func (imp *impl) CErrorw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.contextual(ctx).Errorw(msg, keysAndValues...)
}
