package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/cache"
	"github.com/GTDGit/jewel_catalog/internal/config"
	"github.com/GTDGit/jewel_catalog/internal/database"
	"github.com/GTDGit/jewel_catalog/internal/handler"
	"github.com/GTDGit/jewel_catalog/internal/middleware"
	"github.com/GTDGit/jewel_catalog/internal/repository"
	"github.com/GTDGit/jewel_catalog/internal/service"
	"github.com/GTDGit/jewel_catalog/internal/sse"
	"github.com/GTDGit/jewel_catalog/internal/utils"
	"github.com/GTDGit/jewel_catalog/internal/worker"
	"github.com/GTDGit/jewel_catalog/pkg/devjewels"
)

// main is the entrypoint for the jewel catalog API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting jewel catalog api")
	utils.SetJWTSecret(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.Migrate(db.DB, database.DefaultMigrationsURL); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis. Required by the redis cache backend, optional otherwise.
	var redisPinger handler.Pinger
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		if cfg.Catalog.CacheBackend == "redis" {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		log.Warn().Err(err).Msg("redis unavailable - continuing with in-memory catalog cache")
	} else {
		defer redisClient.Close()
		redisPinger = redisClient
		log.Info().Msg("redis connected successfully")
	}

	// 4. Initialize DevJewels feed client
	feed := devjewels.NewClient(devjewels.Config{
		StockURL:      cfg.Feed.StockURL,
		DesignURL:     cfg.Feed.DesignURL,
		UserID:        cfg.Feed.UserID,
		StockTimeout:  cfg.Feed.StockTimeout,
		DesignTimeout: cfg.Feed.DesignTimeout,
		Debug:         cfg.Env != "production",
	})

	// 5. Initialize repositories
	designRepo := repository.NewDesignRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db, cfg.Sequence.LockTimeout)

	// 6. Initialize SSE hub
	sseHub := sse.NewHub()
	notifier := sse.NewHubNotifier(sseHub)

	// 7. Initialize services
	registry := service.NewDesignRegistry(designRepo, cfg.Catalog.DefaultActiveDesign)
	syncSvc := service.NewCatalogSyncService(feed, registry, notifier, service.CatalogSyncConfig{
		DiscountPercent: cfg.Catalog.DiscountPercent,
		ImageBaseURL:    cfg.Catalog.ImageBaseURL,
	})

	var catalogCache cache.CatalogCache
	if cfg.Catalog.CacheBackend == "redis" {
		catalogCache = cache.NewRedisCatalogCache(redisClient, syncSvc.BuildProductView, cfg.Catalog.CacheTTL)
	} else {
		catalogCache = cache.NewMemoryCatalogCache(syncSvc.BuildProductView, cfg.Catalog.CacheTTL)
	}
	log.Info().Str("backend", cfg.Catalog.CacheBackend).Dur("ttl", cfg.Catalog.CacheTTL).Msg("catalog cache configured")

	// Wire cache into sync so a run that changed designs invalidates the view
	syncSvc.SetCatalogCache(catalogCache)

	querySvc := service.NewCatalogQueryService(catalogCache, registry, cfg.Catalog.MaxPageSize)
	adminSvc := service.NewDesignAdminService(registry, catalogCache, notifier)
	sequenceSvc := service.NewSequenceService(sequenceRepo, service.SequenceConfig{
		MaxAttempts:    cfg.Sequence.MaxAttempts,
		OrderScanLimit: cfg.Sequence.OrderScanLimit,
	})

	imageSvc, err := service.NewImageService(&cfg.S3, cfg.Catalog.ImageBaseURL)
	if err != nil {
		log.Error().Err(err).Msg("image service initialization failed")
		fmt.Fprintf(os.Stderr, "image service initialization failed: %v\n", err)
		os.Exit(1)
	}

	// 8. Initialize handlers
	handlers := &Handlers{
		Health:      handler.NewHealthHandler(designRepo, redisPinger, catalogCache),
		Catalog:     handler.NewCatalogHandler(querySvc, imageSvc),
		AdminDesign: handler.NewAdminDesignHandler(adminSvc, syncSvc),
		Sequence:    handler.NewSequenceHandler(sequenceSvc),
		SSE:         handler.NewSSEHandler(sseHub),
	}

	// 9. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 10. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 11. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 12. Start workers
	go worker.NewDesignSyncWorker(syncSvc, cfg.Worker.DesignSyncInterval).Start(ctx)

	// 13. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 15. Cancel context to stop workers
	cancel()

	// 16. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health      *handler.HealthHandler
	Catalog     *handler.CatalogHandler
	AdminDesign *handler.AdminDesignHandler
	Sequence    *handler.SequenceHandler
	SSE         *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Public catalog
	catalog := router.Group("/v1/catalog")
	{
		catalog.GET("/products", handlers.Catalog.SearchProducts)
		catalog.GET("/products/:designNo", handlers.Catalog.GetProduct)
		catalog.GET("/products/:designNo/images/:file", handlers.Catalog.GetImage)
		catalog.GET("/jobs/:jobNo", handlers.Catalog.GetJob)
		catalog.GET("/filters", handlers.Catalog.GetFilterOptions)
	}

	// SSE validates its own token query param (EventSource cannot send headers)
	router.GET("/v1/admin/sse", handlers.SSE.Stream)

	// Admin routes (protected with JWT)
	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle(utils.RoleAdmin, utils.RoleStaff))
	{
		admin.GET("/designs", handlers.AdminDesign.ListDesigns)
		admin.POST("/designs/sync", handlers.AdminDesign.SyncDesigns)
		admin.POST("/designs/:designNo/toggle", handlers.AdminDesign.ToggleDesign)
		admin.POST("/catalog/invalidate", handlers.AdminDesign.InvalidateCatalog)

		admin.POST("/sequences/:name/next", handlers.Sequence.Next)
		admin.POST("/sequences/:name/reconcile", handlers.Sequence.Reconcile)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
