package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Audit results.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEvent records who did what to which resource. It is logged under the
// "audit" key.
type AuditEvent struct {
	Action       string
	UserID       string
	ResourceType string
	ResourceID   string
	Result       string
	Details      map[string]any
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e AuditEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("action", e.Action)
	enc.AddString("userId", e.UserID)
	enc.AddString("resourceType", e.ResourceType)
	enc.AddString("resourceId", e.ResourceID)
	enc.AddString("result", e.Result)
	if len(e.Details) > 0 {
		return enc.AddReflected("details", e.Details)
	}
	return nil
}

// Audit writes ev with the request-scoped logger.
func Audit(ctx context.Context, ev AuditEvent) {
	FromContext(ctx).Info("audit event", zap.Object("audit", ev))
}
