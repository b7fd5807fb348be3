package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/timestamp-logger/internal/http/v1/logger"
	"github.com/janisto/timestamp-logger/internal/platform/auth"
	"github.com/janisto/timestamp-logger/internal/service/formatter"
)

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, verifier auth.Verifier, formatterService formatter.Service) {
	registerSecurityScheme(api.OpenAPI())

	// Apply auth middleware for protected endpoints
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))

	logger.Register(api, formatterService)
}

func registerSecurityScheme(oapi *huma.OpenAPI) {
	if oapi.Components == nil {
		oapi.Components = &huma.Components{}
	}
	if oapi.Components.SecuritySchemes == nil {
		oapi.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oapi.Components.SecuritySchemes[auth.SecuritySchemeName] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
}
