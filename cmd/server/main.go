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

	"litoarte-backend/config"
	"litoarte-backend/internal/api"
	"litoarte-backend/internal/deadletter"
	"litoarte-backend/internal/mailer"
	"litoarte-backend/internal/payments"
	"litoarte-backend/internal/service"
	"litoarte-backend/internal/staging"
	"litoarte-backend/internal/store"
	"litoarte-backend/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting LitoArte backend")

	tp, err := util.InitTracer("litoarte-backend", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	stg, err := staging.New(cfg.Uploads.Dir)
	if err != nil {
		log.Fatalf("Failed to prepare uploads directory: %v", err)
	}

	var deadLetter api.DeadLetter
	if cfg.Redis.Addr != "" {
		dl, err := deadletter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer dl.Close()
		deadLetter = dl
		log.Println("Dead-letter log connected")
	}

	stripeClient := payments.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	dispatcher := mailer.New(cfg.Email, cfg.Company)

	orderService := service.NewOrderService(db)
	paymentService := service.NewPaymentService(db, stripeClient, stg, cfg.Stripe)
	confirmationService := service.NewConfirmationService(db, stripeClient, stg, dispatcher)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService, paymentService, confirmationService, stripeClient, stg, deadLetter)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
