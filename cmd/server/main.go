package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"ludoforge/internal/auth"
	"ludoforge/internal/config"
	"ludoforge/internal/editor"
	"ludoforge/internal/handler"
	"ludoforge/internal/middleware"
	"ludoforge/internal/repository/postgres"
	postgresRulebook "ludoforge/internal/repository/postgres/rulebook"
	serviceRulebook "ludoforge/internal/service/rulebook"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	projectRepo := postgresRulebook.NewProjectRepository(repoConfig)
	rulebookRepo := postgresRulebook.NewRulebookRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Create services
	projectService := serviceRulebook.NewProjectService(projectRepo, logger)
	rulebookService := serviceRulebook.NewRulebookService(rulebookRepo, projectRepo, txManager, logger)

	// Session registry with background cleanup of idle sessions
	registry := editor.NewDefaultSessionRegistry(logger)
	go registry.StartSweep(ctx)

	// Create handlers
	projectHandler := handler.NewProjectHandler(projectService, logger)
	rulebookHandler := handler.NewRulebookHandler(rulebookService, logger)
	sessionHandler := handler.NewSessionHandler(projectService, rulebookService, registry, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Project routes
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)

	// Rulebook content routes (project-scoped)
	mux.HandleFunc("GET /api/projects/{id}/rulebook", rulebookHandler.GetProjectRulebook)
	mux.HandleFunc("PUT /api/projects/{id}/rulebook", rulebookHandler.SaveProjectRulebook)

	// Editing session routes (project-scoped)
	mux.HandleFunc("POST /api/projects/{id}/session", sessionHandler.OpenSession)
	mux.HandleFunc("GET /api/projects/{id}/session", sessionHandler.GetSession)
	mux.HandleFunc("DELETE /api/projects/{id}/session", sessionHandler.CloseSession)
	mux.HandleFunc("POST /api/projects/{id}/session/commands", sessionHandler.DispatchCommand)
	mux.HandleFunc("POST /api/projects/{id}/session/keys", sessionHandler.HandleKey)
	mux.HandleFunc("POST /api/projects/{id}/session/save", sessionHandler.SaveSession)

	// Rulebook metadata and history routes
	mux.HandleFunc("GET /api/rulebooks/{id}", rulebookHandler.GetRulebook)
	mux.HandleFunc("PATCH /api/rulebooks/{id}", rulebookHandler.UpdateRulebook)
	mux.HandleFunc("GET /api/rulebooks/{id}/versions", rulebookHandler.ListVersions)
	mux.HandleFunc("GET /api/rulebooks/{id}/versions/{n}", rulebookHandler.GetVersion)
	mux.HandleFunc("POST /api/rulebooks/{id}/versions/{n}/restore", rulebookHandler.RestoreVersion)
	mux.HandleFunc("GET /api/rulebooks/{id}/export", rulebookHandler.ExportMarkdown)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
