package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationKey
	annotationsKey
)

// FromContext returns the request-scoped logger, or the process logger when
// ctx carries none.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return Logger()
}

// CorrelationID returns the Cloud Trace resource of the request, or its
// request ID when no trace header was sent.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

func LogInfo(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Info(msg, fields...)
}

func LogWarn(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Warn(msg, fields...)
}

// LogError appends err as the "error" field when it is non-nil.
func LogError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	FromContext(ctx).Error(msg, fields...)
}

// LogFatal logs like LogError and exits the process.
func LogFatal(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	FromContext(ctx).Fatal(msg, fields...)
}

// annotations collects fields that handlers attach to the access log line.
type annotations struct {
	mu     sync.Mutex
	fields []zap.Field
}

func (a *annotations) add(fields []zap.Field) {
	a.mu.Lock()
	a.fields = append(a.fields, fields...)
	a.mu.Unlock()
}

func (a *annotations) snapshot() []zap.Field {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]zap.Field(nil), a.fields...)
}

// Annotate adds fields to the access log entry of the current request. It is
// a no-op outside AccessLogger.
func Annotate(ctx context.Context, fields ...zap.Field) {
	if ctx == nil {
		return
	}
	if a, ok := ctx.Value(annotationsKey).(*annotations); ok {
		a.add(fields)
	}
}
