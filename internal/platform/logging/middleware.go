package logging

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Outcome classes reported on the access log.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// RequestLogger stores a logger carrying the request ID and, when a
// traceparent header and projectID are present, Cloud Trace correlation.
func RequestLogger(projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimiddleware.GetReqID(r.Context())

			var fields []zap.Field
			correlation := reqID
			if tp, ok := parseTraceparent(r.Header.Get(traceparentHeader)); ok && projectID != "" {
				fields = traceFields(tp, projectID)
				correlation = tp.resource(projectID)
			}
			if reqID != "" {
				fields = append(fields, zap.String("requestId", reqID))
			}

			logger := Logger()
			if len(fields) > 0 {
				logger = logger.With(fields...)
			}
			ctx := context.WithValue(r.Context(), loggerKey, logger)
			if correlation != "" {
				ctx = context.WithValue(ctx, correlationKey, correlation)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLogger writes one entry per request with its outcome class and any
// fields handlers attached through Annotate. Server failures are logged at
// error level, rejected requests at warning level.
func AccessLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			notes := &annotations{}
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), annotationsKey, notes)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			outcome, level := classify(status)
			fields := append([]zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.String("outcome", outcome),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}, notes.snapshot()...)
			if ce := FromContext(r.Context()).Check(level, "request completed"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}

func classify(status int) (string, zapcore.Level) {
	switch {
	case status >= http.StatusInternalServerError:
		return OutcomeFailed, zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return OutcomeRejected, zapcore.WarnLevel
	default:
		return OutcomeSucceeded, zapcore.InfoLevel
	}
}
