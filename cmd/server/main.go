// cmd/server/main.go
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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/database"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/lock"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/middleware"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/repository/memory"
	"github.com/javajoker/distro-backend/internal/repository/postgres"
	"github.com/javajoker/distro-backend/internal/router"
	"github.com/javajoker/distro-backend/internal/services"
)

func main() {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.Configure(cfg.Environment, cfg.LogLevel)

	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx := context.Background()

	store, closeStore := openStore(cfg)
	defer closeStore()

	locker, closeLocker := openLocker(ctx, cfg)
	defer closeLocker()

	publisher := openPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.LogError("main", "main", "failed to close event publisher", nil, err)
		}
	}()

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize receipt storage")
	}

	var provider services.PaymentProvider
	if cfg.Payment.StripeSecretKey != "" {
		provider = services.NewStripeProvider(cfg.Payment.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, card payments are disabled")
	}

	svc := router.NewServices(cfg, router.Infrastructure{
		Store:     store,
		Locker:    locker,
		Publisher: publisher,
		Storage:   storage,
		Provider:  provider,
	})

	if admin, err := svc.Users.SeedAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.WithError(err).Fatal("Failed to seed admin user")
	} else if admin == nil {
		log.Warn("SEED_ADMIN_PASSWORD not set, no admin user was seeded")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	limits := middleware.NewLimits(cfg.RateLimit)
	defer limits.Stop()

	r := router.Initialize(cfg, svc, store.AuditLogs(), limits)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func openStore(cfg *config.Config) (repository.Store, func()) {
	if cfg.Database.Driver == "memory" {
		logger.Get().Warn("Using the in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logger.Get().WithError(err).Fatal("Failed to initialize database")
	}
	if err := database.RunMigrations(db); err != nil {
		logger.Get().WithError(err).Fatal("Failed to run migrations")
	}
	return postgres.NewStore(db), func() { database.Close(db) }
}

// openLocker uses Redis when it is configured so allocation locks hold across replicas.
func openLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func()) {
	addr := cfg.Redis.Addr()
	if addr == "" {
		return lock.NewLocal(), func() {}
	}

	client, err := lock.NewRedisClient(ctx, addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Get().WithError(err).Fatal("Failed to connect to Redis")
	}
	logger.Get().WithField("addr", addr).Info("Using Redis allocation locks")

	return lock.NewRedis(client, time.Duration(cfg.Redis.LockTTL)*time.Second), func() {
		if err := client.Close(); err != nil {
			logger.LogError("main", "openLocker", "failed to close Redis client", addr, err)
		}
	}
}

func openPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Noop{}
	}
	logger.Get().WithFields(logrus.Fields{
		"brokers": cfg.Kafka.Brokers,
		"topic":   cfg.Kafka.Topic,
	}).Info("Publishing ledger events to Kafka")
	return events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}
