package main

import (
	"database/sql"
	"log"

	"replypilot/internal/ai"
	"replypilot/internal/calendar"
	"replypilot/internal/config"
	"replypilot/internal/gmail"
	"replypilot/internal/handler"
	"replypilot/internal/logger"
	"replypilot/internal/model"
	"replypilot/internal/repository"
	"replypilot/internal/repository/memory"
	"replypilot/internal/repository/postgres"
	"replypilot/internal/router"
	"replypilot/internal/service"
	"replypilot/internal/sse"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	// Initialize logger
	appLogger := logger.New()

	// Initialize repository (conditionally use postgres or in-memory based on DATABASE_URL)
	var userRepo repository.UserRepository

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()

		userRepo = postgres.NewPostgresUserRepository(db)

		// Initialize database tables
		if err := postgres.InitializeDatabase(db); err != nil {
			log.Fatal("Failed to initialize database:", err)
		}

		appLogger.Info("Using PostgreSQL repository")
	} else {
		userRepo = memory.NewInMemoryUserRepository()

		appLogger.Info("Using in-memory repository")
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, appLogger)

	// Initialize AI client
	aiClient := ai.NewClient(cfg.AIProvider, cfg.AIKey, appLogger)

	// Initialize SSE manager for real-time view updates
	sseManager := sse.NewManager(appLogger)

	// Each authenticated user gets an inbox shell whose Gmail and Calendar
	// clients carry that user's access token.
	newShell := func(user *model.User, notifier service.Notifier) (*service.InboxShell, error) {
		mailClient, err := gmail.NewClient(user.AccessToken, cfg.PageSize, appLogger)
		if err != nil {
			return nil, err
		}
		calendarClient, err := calendar.NewClient(user.AccessToken, appLogger)
		if err != nil {
			return nil, err
		}
		return service.NewInboxShell(user.ID, mailClient, aiClient, calendarClient, appLogger, notifier), nil
	}

	// Initialize handlers
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	authHandler := handler.NewAuthHandler(authService, cfg, e.Logger)
	inboxHandler := handler.NewInboxHandler(authHandler, sseManager, newShell, e.Logger)

	// Setup routes
	router.SetupRoutes(e, authHandler, inboxHandler)

	// Start server
	appLogger.Info("Starting server on port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		appLogger.Error("Failed to start server:", err)
		// Close SSE manager when shutting down
		sseManager.Close()
	}
}
