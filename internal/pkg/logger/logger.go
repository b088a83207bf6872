package logger

import (
	"context"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"go.uber.org/zap"
)

var global = zap.Must(zap.NewProduction()).Sugar()

// Init replaces the process logger. debug switches to the development config.
func Init(debug bool) {
	if debug {
		global = zap.Must(zap.NewDevelopment()).Sugar()
		return
	}
	global = zap.Must(zap.NewProduction()).Sugar()
}

func fromCtx(ctx context.Context) *zap.SugaredLogger {
	if runID := domain.RunIDFrom(ctx); runID != "" {
		return global.With("run_id", runID)
	}
	return global
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	fromCtx(ctx).Debugf(format, args...)
}

func Info(ctx context.Context, args ...interface{}) {
	fromCtx(ctx).Info(args...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	fromCtx(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	fromCtx(ctx).Warnf(format, args...)
}

func Error(ctx context.Context, args ...interface{}) {
	fromCtx(ctx).Error(args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	fromCtx(ctx).Errorf(format, args...)
}

func Fatal(ctx context.Context, args ...interface{}) {
	fromCtx(ctx).Fatal(args...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = global.Sync()
}
