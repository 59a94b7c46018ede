package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/brightmed/medremind/internal/api"
	"github.com/brightmed/medremind/internal/config"
	"github.com/brightmed/medremind/internal/notify"
	"github.com/brightmed/medremind/internal/repository/postgres"
	"github.com/brightmed/medremind/internal/service"
	"github.com/brightmed/medremind/pkg/logger"
)

func main() {
	// A missing .env file is fine in production; variables come from the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting medremindd...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	caregiverRepo := postgres.NewCaregiverRepository(db.DB)
	elderRepo := postgres.NewElderRepository(db.DB)
	medicationRepo := postgres.NewMedicationRepository(db.DB)
	reminderRepo := postgres.NewReminderLogRepository(db.DB)

	// Notification channels
	gateway := notify.NewConsoleGateway(l)

	var alerter notify.CaregiverAlerter = notify.NewConsoleAlerter(l)
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramAlerter(cfg.TelegramToken, l, alerter)
		if err != nil {
			l.Errorf("Telegram alerts unavailable, falling back to console: %v", err)
		} else {
			alerter = tg
		}
	}

	// Service layer
	svc := service.New(cfg, l,
		caregiverRepo, elderRepo, medicationRepo, reminderRepo,
		gateway, alerter,
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Start the reminder scheduler
	go svc.StartScheduler(ctx)

	// Start HTTP server for the management API
	apiServer := api.NewServer(svc, l, db.DB)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("medremindd started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("medremindd stopped")
}
