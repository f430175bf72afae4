package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"studydeck/internal/config"
	"studydeck/internal/coordinator"
	"studydeck/internal/database"
	"studydeck/internal/generation"
	"studydeck/internal/handlers"
	"studydeck/internal/llm"
	"studydeck/internal/repository"
	"studydeck/internal/security"
	"studydeck/internal/service"
)

func main() {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	// Load configuration
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize LLM provider
	llmConfig := llm.ConfigFromEnv()
	if err := llmConfig.Validate(); err != nil {
		log.Fatalf("Invalid LLM configuration: %v", err)
	}
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}

	log.Printf("LLM provider initialized: %s", llmConfig.Provider)

	// Initialize repositories
	docRepo := repository.NewDocumentRepository(db)
	cardRepo := repository.NewCardRepository(db)
	sessionRepo := repository.NewStudySessionRepository(db)

	// Initialize services
	genService := generation.NewService(provider, generation.DefaultConfig())
	coalescer := coordinator.NewCoalescer[*generation.Materials](cfg.CacheTTL, cfg.CacheSweepInterval)
	defer coalescer.Close()

	sessions := coordinator.NewSessionManager(sessionRepo, genService, cfg.BatchSize, uuid.NewString)
	reviewService := service.NewReviewService(cardRepo, uuid.NewString)
	studyService := service.NewStudyService(sessions, genService, reviewService, docRepo, coalescer, uuid.NewString)

	// Initialize handlers
	tokens := security.NewTokenManager(cfg.JWTSecret)
	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	middleware := handlers.NewMiddleware(tokens, limiter)
	documentHandler := handlers.NewDocumentHandler(docRepo, uuid.NewString)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	studyHandler := handlers.NewStudyHandler(studyService)
	generateHandler := handlers.NewGenerateHandler(studyService)

	// Setup routes
	mux := http.NewServeMux()

	// Document routes
	mux.HandleFunc("POST /api/documents", middleware.RequireOwner(documentHandler.CreateDocument))
	mux.HandleFunc("GET /api/documents", middleware.RequireOwner(studyHandler.ListDocuments))

	// Review routes
	mux.HandleFunc("POST /api/cards/{cardID}/review", middleware.RequireOwner(reviewHandler.ReviewCard))
	mux.HandleFunc("GET /api/cards/due", middleware.RequireOwner(reviewHandler.DueCards))

	// Session routes; creation triggers generation, so it is rate limited
	mux.HandleFunc("POST /api/sessions", middleware.RequireOwner(middleware.RateLimit(studyHandler.CreateSession)))
	mux.HandleFunc("POST /api/sessions/{sessionID}/questions", middleware.RequireOwner(middleware.RateLimit(studyHandler.NextQuestions)))

	// Generation routes
	mux.HandleFunc("POST /api/generate", middleware.RequireOwner(middleware.RateLimit(generateHandler.Generate)))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
