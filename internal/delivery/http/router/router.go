// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"aegis/internal/delivery/http/middleware"
	"aegis/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler      *handler.AuthHandler
	MfaHandler       *handler.MfaHandler
	BiometricHandler *handler.BiometricHandler
	SessionHandler   *handler.SessionHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler      *handler.AuthHandler
	mfaHandler       *handler.MfaHandler
	biometricHandler *handler.BiometricHandler
	sessionHandler   *handler.SessionHandler
	authMiddleware   *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:      params.AuthHandler,
		mfaHandler:       params.MfaHandler,
		biometricHandler: params.BiometricHandler,
		sessionHandler:   params.SessionHandler,
		authMiddleware:   params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	v2 := e.Group("/v2")

	authGroup := v2.Group("/auth")
	{
		authGroup.POST("/signin", r.authHandler.Signin)
	}

	mfaGroup := v2.Group("/mfa")
	{
		mfaGroup.POST("/signin", r.mfaHandler.StepUp)
		mfaGroup.POST("/enroll", r.mfaHandler.Enroll)
		mfaGroup.GET("/factors", r.mfaHandler.ListFactors)
	}

	biometricGroup := v2.Group("/biometric")
	{
		biometricGroup.POST("/challenge", r.biometricHandler.CreateChallenge)
		biometricGroup.POST("/complete", r.biometricHandler.Complete)
	}

	// Session management requires a valid access token
	userGroup := v2.Group("/user")
	userGroup.Use(r.authMiddleware.Authenticate)
	{
		userGroup.GET("/refresh-tokens", r.sessionHandler.ListSessions)
		userGroup.DELETE("/refresh-tokens", r.sessionHandler.RevokeAllSessions)
		userGroup.DELETE("/refresh-tokens/:id", r.sessionHandler.RevokeSession)
	}
}
