package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stayhub-backend/config"
	"stayhub-backend/controllers"
	"stayhub-backend/repository"
	"stayhub-backend/routes"
	"stayhub-backend/services"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env not found or couldn't load it; continuing with environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("❌ zap init failed: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	if cfg.Gateway.WebhookSecret == "" {
		logger.Fatal("GATEWAY_WEBHOOK_SECRET is not set, cannot verify webhook signatures")
	}

	// Connect database (config.ConnectDatabase sets config.DB)
	if err := config.ConnectDatabase(); err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	db := config.DB
	if db == nil {
		logger.Fatal("config.DB is nil after ConnectDatabase()")
	}
	logger.Info("✅ database connection established, migrations applied")

	// In-process pub/sub for notification events. Swappable for a broker-backed
	// publisher without touching the services.
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go func() {
		if err := services.RunNotificationConsumer(consumerCtx, pubSub, logger); err != nil && consumerCtx.Err() == nil {
			logger.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	// Initialize services
	uow := repository.NewGormUnitOfWork(db)
	guard := services.NewAvailabilityGuard()
	notifier := services.NewEventNotifier(pubSub, logger)
	gateway := services.NewRESTGateway(cfg.Gateway)

	loyaltyService := services.NewLoyaltyService(uow, cfg.Loyalty, logger)
	paymentService := services.NewPaymentService(uow, gateway, loyaltyService, notifier, cfg.Gateway, logger)
	bookingService := services.NewBookingService(uow, guard, loyaltyService, paymentService, notifier, cfg.Refund, logger)

	// Initialize controllers
	bookingController := controllers.NewBookingController(bookingService)
	paymentController := controllers.NewPaymentController(paymentService)
	loyaltyController := controllers.NewLoyaltyController(loyaltyService)

	// Build router
	router := routes.SetupRouter(bookingController, paymentController, loyaltyController, cfg.CORSOrigins, logger)

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
		// useful timeouts
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("🚀 server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ListenAndServe()", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with timeout
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("⚠️  shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	stopConsumer()

	logger.Info("✅ server stopped gracefully")
}
