package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"datavista-backend/cmd"
	"datavista-backend/internal/api"
	"datavista-backend/internal/database"
	"datavista-backend/internal/narrative"
	"datavista-backend/internal/session"
)

type APIConfig struct {
	APIPort          string        `env:"API_PORT" envDefault:"8001"`
	DatabasePath     string        `env:"DATABASE_PATH" envDefault:"file::memory:?cache=shared"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	NarrativeTimeout time.Duration `env:"NARRATIVE_TIMEOUT" envDefault:"30s"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	sessions := session.NewManager(db, cfg.SessionTTL)

	generator := narrative.NewGenerator(narrative.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.NarrativeTimeout,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	apiHandler := api.NewBackendService(sessions, generator, cfg.MaxUploadBytes)
	apiHandler.AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
