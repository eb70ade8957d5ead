package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"godlykids/internal/config"
	"godlykids/internal/database"
	"godlykids/internal/entitlement"
	"godlykids/internal/events"
	"godlykids/internal/jobs"
	"godlykids/internal/push"
	"godlykids/internal/repository"
	"godlykids/internal/service"
)

// subscheck runs a single subscription renewal sweep against the legacy
// billing API and exits. The same sweep runs daily inside the server, this
// tool exists for manual runs and cron-based deployments.
func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "Abort the sweep after this long")
	quiet := flag.Bool("quiet", false, "Skip renewal emails and push notifications")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	if cfg.LegacyBillingURL == "" {
		fmt.Println("Error: LEGACY_BILLING_URL is not set")
		os.Exit(1)
	}

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	subscriptions := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		entitlement.NewMemoryCache(),
		events.NewBus(),
		cfg.BridgeWebhookSecret,
		cfg.EntitlementPollInterval,
	)

	var emailService *service.EmailService
	var pushClient *push.Client
	if !*quiet {
		emailService, err = service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
		if err != nil {
			log.Fatalf("Failed to initialize email service: %v", err)
		}
		pushClient = push.NewClient(cfg.PushAPIURL, cfg.PushAPIKey)
	}

	checker := jobs.NewRenewalChecker(
		userRepo,
		subscriptions,
		jobs.NewBillingClient(cfg.LegacyBillingURL),
		emailService,
		pushClient,
		cfg.RenewalBatchSize,
		cfg.RenewalBatchDelay,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Starting renewal sweep against %s", cfg.LegacyBillingURL)
	checker.Run(ctx)
}
