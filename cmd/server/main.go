// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yecy-cosmetic/store-backend/internal/config"
	"github.com/yecy-cosmetic/store-backend/internal/database"
	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/realtime"
	"github.com/yecy-cosmetic/store-backend/internal/router"
	"github.com/yecy-cosmetic/store-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	configureLogging(cfg.Environment)

	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		log.Fatal("Failed to initialize i18n:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	if err := database.SeedInitialData(db, cfg.Seed.AdminNumero, cfg.Seed.AdminPassword); err != nil {
		log.Fatal("Failed to seed initial data:", err)
	}

	// Notification push: in-process SSE hub, plus the broker when configured
	hub := realtime.NewHub(0)
	pushers := realtime.MultiPusher{hub}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := realtime.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange,
			time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Millisecond)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer publisher.Close()
		pushers = append(pushers, publisher)
	}

	store, err := services.NewStorageService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	r := router.Initialize(ctx, router.Dependencies{
		DB:     db,
		Config: cfg,
		Hub:    hub,
		Pusher: pushers,
		Store:  store,
	})

	// No WriteTimeout: the notification stream is long-lived. Request
	// contexts derive from ctx so open streams end on shutdown.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func configureLogging(environment string) {
	if environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}
