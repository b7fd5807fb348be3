package formatter

import (
	"context"
	"errors"
)

// ErrProcessing is the only failure surfaced by a Service. Its message is
// part of the HTTP contract and must stay stable.
var ErrProcessing = errors.New("Error processing logger response") //nolint:staticcheck // exact wire message

// Service timestamps messages and echoes them to process output.
type Service interface {
	// Format returns "[<timestamp>] <text>" after writing the same line to
	// the output stream.
	Format(ctx context.Context, text string) (string, error)
}
