package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/handler"
	"github.com/iliyamo/online-cinema/internal/middleware"
	"github.com/iliyamo/online-cinema/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check, which
// load balancers and monitoring systems use to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account-lifecycle routes.  Unauthenticated
// operations live under /v1/auth: registration, activation, resend, login,
// token refresh, logout and the password reset flow.  Bearer-protected
// endpoints live under /v1 behind the JWTAuth middleware built from the
// same codec that issues the tokens.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, codec *utils.Codec) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/activate", a.Activate)
	g.POST("/resend-activation", a.ResendActivation)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body and so needs no JWT; a
	// refresh token can always terminate its own session.
	g.POST("/logout", a.Logout)
	g.POST("/password-reset/request", a.RequestPasswordReset)
	g.POST("/password-reset/complete", a.CompletePasswordReset)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(codec))
	auth.POST("/logout-all", a.LogoutAll)
	auth.POST("/change-password", a.ChangePassword)
	auth.GET("/me", a.Me)
}
