package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/prudhvinik1/themesync/internal/config"
	"github.com/prudhvinik1/themesync/internal/database"
	"github.com/prudhvinik1/themesync/internal/handlers"
	"github.com/prudhvinik1/themesync/internal/notifier"
	"github.com/prudhvinik1/themesync/internal/registry"
	"github.com/prudhvinik1/themesync/internal/repositories"
	"github.com/prudhvinik1/themesync/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	shopRepo := repositories.NewPostgresShopRepository(postgresPool)
	snapshotRepo := repositories.NewPostgresThemeSnapshotRepository(postgresPool)
	cacheRepo := repositories.NewRedisThemeCacheRepository(redisClient, cfg.CacheTTL)

	// Core components
	subscriberRegistry := registry.New()
	syncService := services.NewSyncService(shopRepo, snapshotRepo, cacheRepo, cfg.ShopifyAccessToken)
	changeNotifier := notifier.New(cfg.DatabaseURL, snapshotRepo, cacheRepo, subscriberRegistry)

	// HTTP handlers
	webhookHandler := handlers.NewWebhookHandler(syncService, cfg.ShopifyAPISecret, cfg.ShopifyShopDomain, cfg.SyncRetries, cfg.SyncRetryBackoff)
	streamHandler := handlers.NewStreamHandler(subscriberRegistry, snapshotRepo, cacheRepo, cfg.ShopifyShopDomain)
	themeHandler := handlers.NewThemeHandler(syncService, snapshotRepo, cacheRepo, cfg.ShopifyShopDomain)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/webhooks", func(r chi.Router) {
		r.Post("/theme", webhookHandler.Theme)
		r.Post("/asset", webhookHandler.Asset)
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/stream", streamHandler.Stream)
		r.Get("/ws", streamHandler.StreamWS)
		r.Get("/theme-data", themeHandler.GetThemeData)
		r.With(handlers.RequireAuth(cfg.JWTSecret)).Post("/sync", themeHandler.TriggerSync)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Change-feed watcher runs for the life of the process.
	g.Go(func() error {
		return changeNotifier.Run(ctx)
	})

	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")

		subscriberRegistry.Drain()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
