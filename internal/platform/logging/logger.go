package logging

import (
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/janisto/timestamp-logger/internal/platform/timeutil"
)

// global holds the process logger. It is built on first use.
var global atomic.Pointer[zap.Logger]

// cloudSeverity maps zap levels to Cloud Logging severity names.
var cloudSeverity = map[zapcore.Level]string{
	zapcore.DebugLevel:  "DEBUG",
	zapcore.InfoLevel:   "INFO",
	zapcore.WarnLevel:   "WARNING",
	zapcore.ErrorLevel:  "ERROR",
	zapcore.DPanicLevel: "CRITICAL",
	zapcore.PanicLevel:  "ALERT",
	zapcore.FatalLevel:  "EMERGENCY",
}

func encodeSeverity(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	severity, ok := cloudSeverity[level]
	if !ok {
		severity = "DEFAULT"
	}
	enc.AppendString(severity)
}

func encodeTimeMicros(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(timeutil.FormatMicros(t))
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.LevelKey = "severity"
	cfg.MessageKey = "message"
	cfg.EncodeTime = encodeTimeMicros
	cfg.EncodeLevel = encodeSeverity
	return cfg
}

// New builds a JSON logger in the Cloud Logging layout writing to w.
// Structured logs and the formatter's raw lines share stdout, so w should be
// locked when it is shared.
func New(w zapcore.WriteSyncer) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), w, zapcore.InfoLevel)
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(w))
}

// Logger returns the process-wide logger, writing to stdout.
func Logger() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, New(zapcore.Lock(os.Stdout)))
	return global.Load()
}

// Replace swaps the process-wide logger and returns a func restoring the
// previous one.
func Replace(l *zap.Logger) (restore func()) {
	prev := global.Swap(l)
	return func() { global.Store(prev) }
}

// Sync flushes buffered entries. Call during shutdown.
func Sync() error {
	return Logger().Sync()
}
