package formatter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	applog "github.com/janisto/timestamp-logger/internal/platform/logging"
	"github.com/janisto/timestamp-logger/internal/platform/timeutil"
)

// Formatter implements Service by writing each formatted line to a locked
// WriteSyncer, so concurrent callers never interleave within a line.
type Formatter struct {
	out zapcore.WriteSyncer
	now func() time.Time
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithOutput replaces the default stdout sink.
func WithOutput(w io.Writer) Option {
	return func(f *Formatter) {
		f.out = zapcore.Lock(zapcore.AddSync(w))
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) {
		f.now = now
	}
}

// New returns a Formatter writing to stdout.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		out: zapcore.Lock(os.Stdout),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format captures the timestamp once so the emitted line and the returned
// value are identical. Any failure, including a panic, becomes ErrProcessing.
func (f *Formatter) Format(ctx context.Context, text string) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			applog.LogError(ctx, "formatter panicked", fmt.Errorf("%v", rec))
			result, err = "", ErrProcessing
		}
	}()

	line := "[" + timeutil.FormatMillis(f.now()) + "] " + text
	if _, werr := f.out.Write([]byte(line + "\n")); werr != nil {
		applog.LogError(ctx, "formatter write failed", werr, zap.Int("length", len(text)))
		return "", ErrProcessing
	}
	return line, nil
}

// Compile-time interface check
var _ Service = (*Formatter)(nil)
