package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/timestamp-logger/internal/http/health"
	"github.com/janisto/timestamp-logger/internal/http/v1/routes"
	"github.com/janisto/timestamp-logger/internal/platform/auth"
	"github.com/janisto/timestamp-logger/internal/platform/config"
	"github.com/janisto/timestamp-logger/internal/platform/firebase"
	applog "github.com/janisto/timestamp-logger/internal/platform/logging"
	appmiddleware "github.com/janisto/timestamp-logger/internal/platform/middleware"
	"github.com/janisto/timestamp-logger/internal/platform/respond"
	"github.com/janisto/timestamp-logger/internal/service/formatter"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const docsPath = "/api-docs"

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()

	cfg, err := config.Load(".env")
	if err != nil {
		applog.LogFatal(context.Background(), "invalid configuration", err)
	}

	verifier, err := newVerifier(context.Background(), cfg)
	if err != nil {
		applog.LogFatal(context.Background(), "auth initialization failed", err,
			zap.String("provider", cfg.AuthProvider))
	}
	applog.LogInfo(context.Background(), "auth provider ready", zap.String("provider", cfg.AuthProvider))

	srv := newServer(cfg.Addr(), newRouter(cfg.ProjectID, verifier, formatter.New()))

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(context.Background(), "server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		applog.LogError(context.Background(), "listen failed", err, zap.String("addr", srv.Addr))
		os.Exit(1)
	case <-stop:
		applog.LogInfo(context.Background(), "shutdown signal received")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		applog.LogError(ctx, "server shutdown error", err)
	}
	applog.LogInfo(context.Background(), "server exited")
}

// newVerifier builds the token verifier selected by AUTH_PROVIDER.
func newVerifier(ctx context.Context, cfg config.Config) (auth.Verifier, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderJWT:
		return auth.NewJWTVerifier(cfg.JWTSecret,
			auth.WithIssuer(cfg.JWTIssuer),
			auth.WithLeeway(cfg.JWTLeeway),
		)
	case config.AuthProviderFirebase:
		client, err := firebase.NewAuthClient(ctx, firebase.Config{
			ProjectID:                    cfg.FirebaseProjectID,
			GoogleApplicationCredentials: cfg.GoogleApplicationCredentials,
		})
		if err != nil {
			return nil, fmt.Errorf("firebase auth: %w", err)
		}
		return auth.NewFirebaseVerifier(client), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.AuthProvider)
	}
}

func newRouter(projectID string, verifier auth.Verifier, svc formatter.Service) http.Handler {
	respond.Install()

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security(docsPath),
		appmiddleware.Vary("Accept", "Authorization"),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		// Without a trusted proxy, clients can spoof their IP address.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<20), // 1 MB limit
		applog.RequestLogger(projectID),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/health", health.Handler)

	cfg := huma.DefaultConfig("Timestamp Logger API", Version)
	cfg.DocsPath = docsPath
	// Response bodies carry exactly the documented fields, no $schema link.
	cfg.CreateHooks = nil
	api := humachi.New(router, cfg)

	// Add CBOR content type to OpenAPI requests and responses
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)

	routes.Register(api, verifier, svc)
	return router
}

func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}
