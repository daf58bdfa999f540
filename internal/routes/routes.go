package routes

import (
	"context"
	"net/http"

	"github.com/templui/authgate/internal/app"
	"github.com/templui/authgate/internal/db"
	"github.com/templui/authgate/internal/handler"
	"github.com/templui/authgate/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.SessionService, app.ResetService, app.UserService)
	account := handler.NewAccountHandler(app.UserService)
	health := handler.NewHealthHandler(func(ctx context.Context) error {
		return db.Ping(ctx, app.DB)
	})

	requireBearer := middleware.RequireBearer(app.SessionService)

	mux := http.NewServeMux()

	// Probes
	mux.HandleFunc("GET /healthz", health.Health)

	// Authentication
	mux.HandleFunc("POST /login/{$}", auth.Login)
	mux.HandleFunc("POST /register/{$}", auth.Register)
	mux.HandleFunc("POST /validate-token/{$}", auth.ValidateToken)
	mux.HandleFunc("POST /logout/{$}", auth.Logout)

	// Password reset
	mux.HandleFunc("POST /forgotten-password/{$}", auth.ForgottenPassword)
	mux.HandleFunc("POST /reset-password/{$}", auth.ResetPassword)

	// Protected
	mux.HandleFunc("GET /me/{$}", requireBearer(account.Me))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.RequestLogging,
		middleware.Recover,
	)
}
