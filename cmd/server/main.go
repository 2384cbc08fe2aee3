package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eternaldev/recipe-backend/config"
	"github.com/eternaldev/recipe-backend/internal/app/controller"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/internal/app/service"
	"github.com/eternaldev/recipe-backend/internal/cache"
	"github.com/eternaldev/recipe-backend/internal/db"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/eternaldev/recipe-backend/internal/router"
	"github.com/eternaldev/recipe-backend/internal/scheduler"
	"github.com/eternaldev/recipe-backend/internal/storage"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/eternaldev/recipe-backend/pkg/payment/stripe"
	pkgredis "github.com/eternaldev/recipe-backend/pkg/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Server.Environment == "development",
	})
	gin.SetMode(cfg.Server.GinMode)

	logger.Info("Starting recipe backend server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Log.Level,
	})

	// Initialize database
	database, err := db.Connect(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional; without it recipe reads go straight to the database.
	var recipeCache cache.Cache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.Connect(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, recipe cache disabled", map[string]interface{}{
				"addr":  cfg.Redis.Addr(),
				"error": err.Error(),
			})
		} else {
			recipeCache = cache.NewRedisCache(redisClient, cfg.Cache.RecipeTTL)
		}
	}
	defer pkgredis.Close(redisClient)

	// Payment gateway; an unconfigured gateway makes checkout return 502.
	var gateway service.PaymentGateway
	stripeClient, err := stripe.NewClient(stripe.Config{
		SecretKey: cfg.Payment.Stripe.SecretKey,
		BaseURL:   cfg.Payment.Stripe.BaseURL,
	})
	if err != nil {
		logger.Warn("Payment provider not configured", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		gateway = stripeClient
	}

	if err := controller.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", err)
	}

	// Initialize repositories
	recipeRepo := repository.NewRecipeRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	reviewRepo := repository.NewReviewRepository(database)
	cartRepo := repository.NewCartRepository(database)
	orderRepo := repository.NewOrderRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)

	// Initialize services
	cartService := service.NewCartService(database, cartRepo, recipeRepo)
	recipeService := service.NewRecipeService(recipeRepo, categoryRepo, reviewRepo, recipeCache)
	reviewService := service.NewReviewService(reviewRepo, recipeRepo)
	paymentService := service.NewPaymentService(database, cartRepo, orderRepo, paymentRepo, gateway, service.PaymentOptions{
		Currency:   cfg.Payment.Stripe.Currency,
		PendingTTL: cfg.Payment.PendingTTL,
	})

	// Initialize controllers
	cartController := controller.NewCartController(cartService)
	recipeController := controller.NewRecipeController(recipeService)
	reviewController := controller.NewReviewController(reviewService)
	paymentController := controller.NewPaymentController(paymentService)

	var uploadController *controller.UploadController
	if cfg.S3.Bucket != "" {
		uploadController = controller.NewUploadController(storage.NewS3Storage(context.Background(), cfg.S3))
	} else {
		logger.Warn("S3 bucket not configured, uploads disabled")
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		cartController,
		recipeController,
		reviewController,
		paymentController,
		uploadController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	expiryScheduler := scheduler.NewPaymentExpiryScheduler(paymentService, cfg.Payment.ExpirySchedule)
	if err := expiryScheduler.Start(); err != nil {
		logger.Fatal("Failed to start payment expiry scheduler", err)
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	expiryScheduler.Stop()

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
