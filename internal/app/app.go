package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/authgate/internal/config"
	"github.com/templui/authgate/internal/db"
	"github.com/templui/authgate/internal/repository"
	"github.com/templui/authgate/internal/service"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	TokenManager   *service.TokenManager
	SessionService *service.SessionService
	ResetService   *service.PasswordResetService
	UserService    *service.UserService
	EmailService   *service.EmailService
}

// New connects to the database, applies migrations and wires services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a, err := Wire(cfg, database, service.SystemClock{}, 0)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return a, nil
}

// Wire builds the service graph over an open database. A zero bcryptCost
// selects the bcrypt default.
func Wire(cfg *config.Config, database *sqlx.DB, clock service.Clock, bcryptCost int) (*App, error) {
	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)

	// Services
	tokenManager, err := service.NewTokenManager(tokenRepository, clock, &service.TokenConfig{
		Secret:    cfg.JWTSecret,
		Algorithm: cfg.JWTAlgorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.TokenPasswordResetExpiry,
		cfg.IsDevelopment(),
	)
	authenticator := service.NewAuthenticator(userRepository, bcryptCost)
	sessionService := service.NewSessionService(authenticator, tokenManager, cfg.AccessTokenExpiry, cfg.AccessTokenStoreCheck)
	resetService := service.NewPasswordResetService(
		userRepository,
		tokenManager,
		authenticator,
		db.NewTransactor(database),
		emailService,
		cfg.TokenPasswordResetExpiry,
		cfg.NotifyTimeout,
	)
	userService := service.NewUserService(userRepository, authenticator)

	return &App{
		Cfg:            cfg,
		DB:             database,
		TokenManager:   tokenManager,
		SessionService: sessionService,
		ResetService:   resetService,
		UserService:    userService,
		EmailService:   emailService,
	}, nil
}

// Close waits for pending reset notifications and closes the database.
func (a *App) Close() error {
	if a.ResetService != nil {
		a.ResetService.Wait()
	}
	return db.Close(a.DB)
}
