package router // package router defines how HTTP routes are registered for the API

import (
	"io/fs"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/editorial-roles/internal/admin"      // settings screen dispatcher
	"github.com/iliyamo/editorial-roles/internal/handler"    // handlers that implement the endpoints
	"github.com/iliyamo/editorial-roles/internal/middleware" // JWT authentication and capability checks
)

// CapEditWorkflows guards the workflow editor and the scheduler hook.
const CapEditWorkflows = "manage_options"

// RegisterRoutes registers routes that do not require authentication: the
// health check and the embedded admin assets.
func RegisterRoutes(e *echo.Echo, assets fs.FS) {
	e.GET("/healthz", handler.Health)
	e.StaticFS("/assets", assets)
}

// RegisterAuth registers the login endpoint behind limit and the protected
// /v1/me endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limit)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterAdmin mounts the settings screens.  Authentication is required;
// each module checks its own capability.
func RegisterAdmin(e *echo.Echo, r *admin.Router, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/admin", middleware.JWTAuth(jwtSecret))
	g.GET("", r.Serve)
	g.POST("", r.Serve, limit)
}

// RegisterWorkflow mounts the publishing event editor and the scheduler
// endpoints for users holding CapEditWorkflows.
func RegisterWorkflow(e *echo.Echo, w *handler.WorkflowHandler, jwtSecret string, caps middleware.CapabilityChecker) {
	guard := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireCapability(caps, CapEditWorkflows)}

	editor := e.Group("/admin/workflows", guard...)
	editor.GET("/:id/events/publishing", w.RenderPublishing)
	editor.POST("/:id/events/publishing", w.SavePublishing)

	api := e.Group("/v1/workflows", guard...)
	api.GET("/events/metakeys", w.EventMetaKeys)
	api.POST("/run-query-args", w.RunQueryArgs)
}
