package logger

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/timestamp-logger/internal/platform/auth"
	applog "github.com/janisto/timestamp-logger/internal/platform/logging"
	"github.com/janisto/timestamp-logger/internal/platform/respond"
	"github.com/janisto/timestamp-logger/internal/service/formatter"
)

const (
	// MsgTextRequired is returned when the request carries no usable text.
	MsgTextRequired = "Text input is required."

	msgInvalidText = "validation failed"

	auditAction       = "submit"
	auditResourceType = "log_message"
)

// Handler serves the logger endpoint.
type Handler struct {
	formatter formatter.Service
}

// Register wires logger routes into the provided API router.
func Register(api huma.API, svc formatter.Service) {
	h := &Handler{formatter: svc}

	huma.Register(api, huma.Operation{
		OperationID: "create-log-entry",
		Method:      http.MethodPost,
		Path:        "/logger",
		Summary:     "Send a message to the logger",
		Description: "Prefixes the text with an ISO-8601 timestamp, writes it to process output and echoes it back.",
		Tags:        []string{"logger"},
		Security:    auth.Security(),
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.create)
}

func (h *Handler) create(ctx context.Context, input *CreateInput) (*CreateOutput, error) {
	text, err := messageText(input.Body.Text)
	if err != nil {
		applog.Annotate(ctx, zap.String("rejection", "unsupported_text"))
		return nil, respond.NewError(http.StatusUnprocessableEntity, msgInvalidText, "body.text: "+err.Error())
	}
	if text == "" {
		applog.Annotate(ctx, zap.String("rejection", "missing_text"))
		applog.LogWarn(ctx, "logger request rejected", zap.String("reason", "missing_text"))
		return nil, respond.NewError(http.StatusBadRequest, MsgTextRequired, "")
	}
	applog.Annotate(ctx, zap.Int("textLength", len(text)))

	response, err := h.formatter.Format(ctx, text)
	if err != nil {
		h.audit(ctx, applog.AuditFailure, map[string]any{"textLength": len(text), "reason": err.Error()})
		return nil, respond.ServerError(err)
	}

	h.audit(ctx, applog.AuditSuccess, map[string]any{"textLength": len(text)})
	return &CreateOutput{Body: Data{Response: response}}, nil
}

func (h *Handler) audit(ctx context.Context, result string, details map[string]any) {
	ev := applog.AuditEvent{
		Action:       auditAction,
		ResourceType: auditResourceType,
		ResourceID:   chimiddleware.GetReqID(ctx),
		Result:       result,
		Details:      details,
	}
	if user := auth.UserFromContext(ctx); user != nil {
		ev.UserID = user.UID
	}
	applog.Audit(ctx, ev)
}
