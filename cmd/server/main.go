package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prudhvinik1/paymirror/internal/config"
	"github.com/prudhvinik1/paymirror/internal/database"
	"github.com/prudhvinik1/paymirror/internal/events"
	"github.com/prudhvinik1/paymirror/internal/handlers"
	"github.com/prudhvinik1/paymirror/internal/idempotency"
	"github.com/prudhvinik1/paymirror/internal/registry"
	"github.com/prudhvinik1/paymirror/internal/remote"
	"github.com/prudhvinik1/paymirror/internal/repositories"
	syncengine "github.com/prudhvinik1/paymirror/internal/sync"
)

const purgeInterval = 1 * time.Hour

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Wire the sync core
	reg := registry.NewBuiltinRegistry()
	objectRepo := repositories.NewPostgresObjectRepository(postgresPool)
	eventRepo := repositories.NewPostgresEventRepository(postgresPool)
	providerClient := remote.NewHTTPClient(cfg.ProviderAPIBase, cfg.IdempotencyHeader)
	coordinator := idempotency.NewCoordinator(redisClient, cfg.IdempotencyTTL)

	engine := syncengine.NewEngine(reg, objectRepo, providerClient).
		WithCreator(providerClient, coordinator)

	handlerRegistry := events.NewHandlerRegistry()
	reconciler := events.NewReconciler(eventRepo, engine, providerClient, handlerRegistry)

	account := remote.AccountContext{
		AccountID:  cfg.ProviderAccountID,
		APIKey:     cfg.ProviderAPIKey,
		APIVersion: cfg.ProviderAPIVersion,
		Livemode:   cfg.LiveMode,
	}
	webhook := handlers.NewWebhookHandler(reconciler, account)

	// Initialize HTTP Server
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Health check endpoints
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Post("/webhook", webhook.Handle)

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// Periodic sweep for leaked idempotency tokens
	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if purged, err := coordinator.PurgeExpired(purgeCtx); err != nil {
					log.Printf("Idempotency token purge failed: %v", err)
				} else if purged > 0 {
					log.Printf("Purged %d leaked idempotency tokens", purged)
				}
			}
		}
	}()

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
