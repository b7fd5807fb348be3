package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/negotiation"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/timestamp-logger/internal/platform/logging"
)

const (
	// MsgServerError is the fixed top-level message for every 5xx response.
	MsgServerError = "Server error"

	msgNotFound           = "resource not found"
	msgMethodNotAllowed   = "method not allowed"
	msgInternalServerErr  = "internal server error"
	contentTypeJSON       = "application/json"
	contentTypeCBOR       = "application/cbor"
	contentTypeJSONHeader = "application/json; charset=utf-8"
)

var (
	installOnce sync.Once

	// negotiableTypes lists JSON first so it wins ties.
	negotiableTypes = []string{contentTypeJSON, contentTypeCBOR}
)

// Error is the body shared by every non-2xx response of the API:
// {"message": "...", "error": "..."}. It satisfies huma.StatusError so
// handlers can return it directly.
type Error struct {
	status  int
	Message string `json:"message" doc:"Human readable summary" example:"Server error"`
	Detail  string `json:"error,omitempty" doc:"Underlying failure message" example:"Error processing logger response"`
}

// NewError builds an Error for the given status. detail is optional.
func NewError(status int, msg, detail string) *Error {
	return &Error{status: status, Message: messageOrDefault(status, msg), Detail: detail}
}

// ServerError wraps a failure as a 500 with the fixed top-level message and
// the error's message as detail.
func ServerError(err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return NewError(http.StatusInternalServerError, MsgServerError, detail)
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *Error) GetStatus() int {
	return e.status
}

// Install makes huma emit the shared Error body for framework-generated
// failures (auth, body parsing, schema validation).
func Install() {
	installOnce.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return NewError(status, msg, detailFromErrors(errs))
		}
		huma.NewErrorWithContext = func(hctx huma.Context, status int, msg string, errs ...error) huma.StatusError {
			se := NewError(status, msg, detailFromErrors(errs))
			if hctx != nil {
				logWithStatus(hctx.Context(), status, se.Message, errors.Join(errs...))
			}
			return se
		}
	})
}

// Write serializes body in the format negotiated from the request's Accept
// header. JSON is the default.
func Write(w http.ResponseWriter, r *http.Request, status int, body any) error {
	if acceptsCBOR(r.Header.Get("Accept")) {
		data, err := cbor.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.WriteHeader(status)
		_, err = w.Write(data)
		return err
	}
	w.Header().Set("Content-Type", contentTypeJSONHeader)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(body)
}

// WriteError renders e and logs it at a level derived from its status.
func WriteError(w http.ResponseWriter, r *http.Request, e *Error, cause error) error {
	logWithStatus(r.Context(), e.GetStatus(), e.Message, cause)
	return Write(w, r, e.GetStatus(), e)
}

// NotFoundHandler emits a 404 using the shared error body.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := NewError(http.StatusNotFound, msgNotFound, "")
		if err := WriteError(w, r, e, nil); err != nil {
			applog.LogError(r.Context(), "failed to render not found", err)
		}
	}
}

// MethodNotAllowedHandler emits a 405 using the shared error body and lists
// the allowed methods.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		e := NewError(http.StatusMethodNotAllowed, msgMethodNotAllowed, fmt.Sprintf("%s is not supported", r.Method))
		if err := WriteError(w, r, e, nil); err != nil {
			applog.LogError(r.Context(), "failed to render method not allowed", err)
		}
	}
}

// Recoverer converts panics into 500 responses. http.ErrAbortHandler is
// re-panicked so net/http can abort the connection.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				err = fmt.Errorf("%w\n%s", err, debug.Stack())
				if rw.wroteHeader {
					applog.LogError(r.Context(), "panic after response started", err)
					return
				}
				e := NewError(http.StatusInternalServerError, MsgServerError, msgInternalServerErr)
				if writeErr := WriteError(rw, r, e, err); writeErr != nil {
					applog.LogError(r.Context(), "failed to render internal error", writeErr)
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// responseWriter records whether the response has started.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// acceptsCBOR reports whether CBOR is strictly preferred over JSON. Ties
// resolve to JSON. Wildcards are not matched, so a header naming neither type
// also yields JSON.
func acceptsCBOR(accept string) bool {
	if accept == "" {
		return false
	}
	return negotiation.SelectQValue(accept, negotiableTypes) == contentTypeCBOR
}

// allowedMethods inspects chi's routing context to discover allowed methods.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		if r.URL.RawPath != "" {
			routePath = r.URL.RawPath
		} else {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowed := make([]string, 0, len(methods))
	for _, method := range methods {
		tctx := chi.NewRouteContext()
		if rctx.Routes.Match(tctx, method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

func detailFromErrors(errs []error) string {
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		msg := err.Error()
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			if d := detailer.ErrorDetail(); d != nil {
				msg = d.Message
				if d.Location != "" {
					msg = d.Location + ": " + msg
				}
			}
		}
		details = append(details, msg)
	}
	return strings.Join(details, "; ")
}

func messageOrDefault(status int, msg string) string {
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func logWithStatus(ctx context.Context, status int, msg string, err error) {
	fields := []zap.Field{zap.Int("status", status)}
	switch {
	case status >= 500:
		applog.LogError(ctx, msg, err, fields...)
	case status >= 400:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		applog.LogWarn(ctx, msg, fields...)
	default:
		applog.LogInfo(ctx, msg, fields...)
	}
}
