package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accpartner-backend/internal/blob"
	"accpartner-backend/internal/config"
	"accpartner-backend/internal/handlers"
	"accpartner-backend/internal/middleware"
	"accpartner-backend/internal/ratelimit"
	"accpartner-backend/internal/repository"
	"accpartner-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Redis backs the rate limiter only; the app runs without it
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	pairingRepo := repository.NewPairingRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)

	// Blob store for completion attachments
	blobStore, err := blob.NewS3Store(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create blob store")
	}

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(userRepo, cfg.JWT.Secret, nil)
	pairingService := services.NewPairingService(userRepo, requestRepo, pairingRepo, wsHub, nil)
	taskService := services.NewTaskService(userService, pairingService, taskRepo, blobStore, wsHub, nil)
	settlementService := services.NewSettlementService(
		userService, pairingService, taskRepo, verificationRepo, userRepo, wsHub, nil,
	)
	sweeper := services.NewSweeper(nil, requestRepo, pairingRepo, taskRepo, verificationRepo)
	limiter := ratelimit.New(rdb)

	// Background jobs: the 60-second ticks that drive settlement and the
	// midnight reset
	scheduler := services.NewScheduler()
	scheduler.Every(time.Minute, "settlement", func(ctx context.Context) {
		if err := settlementService.SettleDuePairings(ctx); err != nil {
			log.Error().Err(err).Msg("Settlement sweep failed")
		}
	})
	scheduler.Every(time.Minute, "midnight-sweep", sweeper.Sweep)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, pairingService)
	pairingHandler := handlers.NewPairingHandler(pairingService)
	taskHandler := handlers.NewTaskHandler(taskService, verificationRepo)
	verificationHandler := handlers.NewVerificationHandler(settlementService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, pairingService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(limiter.Middleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(userService))
			r.Get("/users/me", userHandler.Me)
			r.Put("/users/me/deadline", userHandler.UpdateDeadline)
			r.Put("/users/me/availability", userHandler.UpdateAvailability)
			r.Get("/users/available", userHandler.AvailableUsers)

			r.Post("/pairing-requests", pairingHandler.SendRequest)
			r.Get("/pairing-requests", pairingHandler.ListRequests)
			r.Post("/pairing-requests/{request_id}/respond", pairingHandler.RespondRequest)

			r.Get("/pairings", pairingHandler.ListPairings)
			r.Get("/pairings/{pairing_id}/status", taskHandler.Status)
			r.Post("/pairings/{pairing_id}/plan", taskHandler.PlanTask)
			r.Post("/pairings/{pairing_id}/completion", taskHandler.UploadCompletion)
			r.Post("/pairings/{pairing_id}/verify", verificationHandler.Verify)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
