package logging

import (
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

const traceparentHeader = "traceparent"

// traceparent is a parsed W3C Trace Context header:
// {version}-{trace-id}-{parent-id}-{trace-flags}.
type traceparent struct {
	traceID string
	spanID  string
	sampled bool
}

func parseTraceparent(header string) (traceparent, bool) {
	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) != 4 {
		return traceparent{}, false
	}
	version, traceID, spanID, flags := parts[0], parts[1], parts[2], parts[3]
	if !isHex(version, 2) || !isHex(traceID, 32) || !isHex(spanID, 16) || !isHex(flags, 2) {
		return traceparent{}, false
	}
	// All-zero IDs are invalid.
	if traceID == strings.Repeat("0", 32) || spanID == strings.Repeat("0", 16) {
		return traceparent{}, false
	}
	flagBits, _ := hex.DecodeString(flags)
	return traceparent{
		traceID: strings.ToLower(traceID),
		spanID:  strings.ToLower(spanID),
		sampled: flagBits[0]&0x01 == 0x01,
	}, true
}

func isHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// resource returns the Cloud Trace resource name for projectID.
func (tp traceparent) resource(projectID string) string {
	return "projects/" + projectID + "/traces/" + tp.traceID
}

// traceFields returns the Cloud Logging trace correlation fields. They are
// only meaningful with a project ID.
func traceFields(tp traceparent, projectID string) []zap.Field {
	if projectID == "" {
		return nil
	}
	return []zap.Field{
		zap.String("logging.googleapis.com/trace", tp.resource(projectID)),
		zap.String("logging.googleapis.com/spanId", tp.spanID),
		zap.Bool("logging.googleapis.com/trace_sampled", tp.sampled),
	}
}
