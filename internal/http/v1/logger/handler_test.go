package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap/zapcore"

	"github.com/janisto/timestamp-logger/internal/platform/auth"
	applog "github.com/janisto/timestamp-logger/internal/platform/logging"
	appmiddleware "github.com/janisto/timestamp-logger/internal/platform/middleware"
	"github.com/janisto/timestamp-logger/internal/platform/respond"
	"github.com/janisto/timestamp-logger/internal/service/formatter"
)

var responsePattern = regexp.MustCompile(`^\[[0-9TZ:\.\-]+\] (.*)$`)

func newTestRouter(verifier auth.Verifier, svc formatter.Service) chi.Router {
	respond.Install()

	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(""),
		respond.Recoverer(),
	)
	cfg := huma.DefaultConfig("LoggerTest", "test")
	cfg.CreateHooks = nil
	api := humachi.New(router, cfg)
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))
	Register(api, svc)
	return router
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC)
}

func postJSON(router http.Handler, body string, authenticated bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/logger", reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer valid-token")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("json unmarshal: %v (body %q)", err, resp.Body.String())
	}
	return payload
}

func TestCreateReturnsTimestampedText(t *testing.T) {
	var out bytes.Buffer
	svc := formatter.New(formatter.WithOutput(&out), formatter.WithClock(fixedClock))
	router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, svc)

	resp := postJSON(router, `{"text":"Hello, logger!"}`, true)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	payload := decodeBody(t, resp)
	want := "[2024-01-15T10:30:00.123Z] Hello, logger!"
	if payload["response"] != want {
		t.Fatalf("expected response %q, got %v", want, payload["response"])
	}
	if len(payload) != 1 {
		t.Fatalf("expected only the response field, got %v", payload)
	}
	if out.String() != want+"\n" {
		t.Fatalf("expected process output %q, got %q", want+"\n", out.String())
	}
}

func TestCreateResponseMatchesPattern(t *testing.T) {
	router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, formatter.New(formatter.WithOutput(io.Discard)))

	inputs := []string{"x", "Hello, logger!", "with \"quotes\"", "tabs\tand spaces ", "ünïcödé"}
	for _, in := range inputs {
		body, err := json.Marshal(map[string]string{"text": in})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		resp := postJSON(router, string(body), true)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %q, got %d", in, resp.Code)
		}
		var data Data
		if err := json.Unmarshal(resp.Body.Bytes(), &data); err != nil {
			t.Fatalf("json unmarshal: %v", err)
		}
		m := responsePattern.FindStringSubmatch(data.Response)
		if m == nil {
			t.Fatalf("response %q does not match timestamp pattern", data.Response)
		}
		if m[1] != in {
			t.Fatalf("expected suffix %q, got %q", in, m[1])
		}
	}
}

func TestCreateRejectsMissingText(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"empty string", `{"text":""}`},
		{"null text", `{"text":null}`},
		{"false text", `{"text":false}`},
		{"zero text", `{"text":0}`},
		{"negative zero text", `{"text":-0.0}`},
		{"only unknown fields", `{"message":"hi"}`},
		{"no body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &formatter.MockService{Prefix: "[ts] "}
			router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, svc)

			resp := postJSON(router, tt.body, true)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
			}
			payload := decodeBody(t, resp)
			if payload["message"] != MsgTextRequired {
				t.Fatalf("expected message %q, got %v", MsgTextRequired, payload["message"])
			}
			if _, ok := payload["error"]; ok {
				t.Fatalf("did not expect error field on validation failure: %v", payload)
			}
			if calls := svc.Calls(); len(calls) != 0 {
				t.Fatalf("expected formatter not to be called, got %v", calls)
			}
		})
	}
}

func TestCreateFormatterFailureReturnsServerError(t *testing.T) {
	svc := &formatter.MockService{Err: formatter.ErrProcessing}
	router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, svc)

	resp := postJSON(router, `{"text":"Hello"}`, true)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	payload := decodeBody(t, resp)
	if payload["message"] != "Server error" {
		t.Fatalf("expected message 'Server error', got %v", payload["message"])
	}
	if payload["error"] != "Error processing logger response" {
		t.Fatalf("expected error detail, got %v", payload["error"])
	}
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc := &formatter.MockService{}
	router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, svc)

	resp := postJSON(router, `{"text":"Hello"}`, false)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if calls := svc.Calls(); len(calls) != 0 {
		t.Fatalf("expected formatter not to be called, got %v", calls)
	}
}

func TestCreateRejectsInvalidToken(t *testing.T) {
	svc := &formatter.MockService{}
	router := newTestRouter(&auth.MockVerifier{Error: auth.ErrInvalidToken}, svc)

	resp := postJSON(router, `{"text":"Hello"}`, true)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if calls := svc.Calls(); len(calls) != 0 {
		t.Fatalf("expected formatter not to be called, got %v", calls)
	}
}

func TestCreateRejectsStructuredText(t *testing.T) {
	for _, body := range []string{`{"text":{"a":1}}`, `{"text":["a"]}`} {
		svc := &formatter.MockService{}
		router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, svc)

		resp := postJSON(router, body, true)

		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", body, resp.Code)
		}
		payload := decodeBody(t, resp)
		if payload["message"] != "validation failed" {
			t.Fatalf("%s: unexpected message %v", body, payload["message"])
		}
		if payload["error"] != "body.text: expected string, number or boolean" {
			t.Fatalf("%s: unexpected detail %v", body, payload["error"])
		}
		if calls := svc.Calls(); len(calls) != 0 {
			t.Fatalf("%s: expected formatter not to be called, got %v", body, calls)
		}
	}
}

func TestCreateIgnoresUnknownFields(t *testing.T) {
	svc := &formatter.MockService{Prefix: "[ts] "}
	router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, svc)

	resp := postJSON(router, `{"text":"hi","extra":1,"channel":"ops"}`, true)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if payload := decodeBody(t, resp); payload["response"] != "[ts] hi" {
		t.Fatalf("unexpected response %v", payload["response"])
	}
}

func TestCreateLogsScalarTextInJSONForm(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"text":42}`, "42"},
		{`{"text":-1.5}`, "-1.5"},
		{`{"text":true}`, "true"},
		{`{"text":"0"}`, "0"},
		{`{"text":"false"}`, "false"},
	}

	for _, tt := range tests {
		svc := &formatter.MockService{Prefix: "[ts] "}
		router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, svc)

		resp := postJSON(router, tt.body, true)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", tt.body, resp.Code, resp.Body.String())
		}
		if payload := decodeBody(t, resp); payload["response"] != "[ts] "+tt.want {
			t.Fatalf("%s: unexpected response %v", tt.body, payload["response"])
		}
	}
}

func TestCreateCBOR(t *testing.T) {
	router := newTestRouter(
		&auth.MockVerifier{User: auth.TestUser()},
		formatter.New(formatter.WithOutput(io.Discard), formatter.WithClock(fixedClock)),
	)

	body, err := cbor.Marshal(map[string]string{"text": "CBOR"})
	if err != nil {
		t.Fatalf("cbor marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/logger", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/cbor")
	req.Header.Set("Accept", "application/cbor")
	req.Header.Set("Authorization", "Bearer valid-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Errorf("expected application/cbor, got %s", ct)
	}
	var data Data
	if err := cbor.Unmarshal(resp.Body.Bytes(), &data); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if data.Response != "[2024-01-15T10:30:00.123Z] CBOR" {
		t.Fatalf("unexpected response %q", data.Response)
	}
}

func TestCreateConcurrentRequestsDoNotCrossTalk(t *testing.T) {
	var out bytes.Buffer
	router := newTestRouter(&auth.MockVerifier{User: auth.TestUser()}, formatter.New(formatter.WithOutput(&out)))

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			text := fmt.Sprintf("request-%02d", i)
			resp := postJSON(router, fmt.Sprintf(`{"text":%q}`, text), true)
			if resp.Code != http.StatusOK {
				t.Errorf("request %d: expected 200, got %d", i, resp.Code)
				return
			}
			var data Data
			if err := json.Unmarshal(resp.Body.Bytes(), &data); err != nil {
				t.Errorf("request %d: json unmarshal: %v", i, err)
				return
			}
			if !strings.HasSuffix(data.Response, "] "+text) {
				t.Errorf("request %d: got response %q", i, data.Response)
			}
		})
	}
	wg.Wait()

	if lines := strings.Count(out.String(), "\n"); lines != n {
		t.Fatalf("expected %d output lines, got %d", n, lines)
	}
}

func TestCreateAnnotatesAccessLog(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		outcome string
		field   string
		value   any
	}{
		{"formatted", `{"text":"Hello, logger!"}`, applog.OutcomeSucceeded, "textLength", float64(len("Hello, logger!"))},
		{"missing text", `{"text":""}`, applog.OutcomeRejected, "rejection", "missing_text"},
		{"structured text", `{"text":[1]}`, applog.OutcomeRejected, "rejection", "unsupported_text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			t.Cleanup(applog.Replace(applog.New(zapcore.AddSync(&logs))))

			router := chi.NewRouter()
			router.Use(appmiddleware.RequestID(), applog.RequestLogger(""), applog.AccessLogger())
			cfg := huma.DefaultConfig("LoggerTest", "test")
			cfg.CreateHooks = nil
			respond.Install()
			api := humachi.New(router, cfg)
			api.UseMiddleware(auth.NewAuthMiddleware(api, &auth.MockVerifier{User: auth.TestUser()}))
			Register(api, formatter.New(formatter.WithOutput(io.Discard)))

			postJSON(router, tt.body, true)

			var access map[string]any
			for line := range strings.SplitSeq(strings.TrimSpace(logs.String()), "\n") {
				var entry map[string]any
				if err := json.Unmarshal([]byte(line), &entry); err != nil {
					t.Fatalf("invalid log line %q: %v", line, err)
				}
				if entry["message"] == "request completed" {
					access = entry
				}
			}
			if access == nil {
				t.Fatalf("expected access log entry, got %s", logs.String())
			}
			if access["outcome"] != tt.outcome {
				t.Fatalf("expected outcome %s, got %v", tt.outcome, access["outcome"])
			}
			if access[tt.field] != tt.value {
				t.Fatalf("expected %s=%v, got %v", tt.field, tt.value, access[tt.field])
			}
			if access["userId"] != auth.TestUser().UID {
				t.Fatalf("expected userId annotation, got %v", access["userId"])
			}
		})
	}
}
