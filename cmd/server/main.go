package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"godlykids/internal/ai"
	"godlykids/internal/config"
	"godlykids/internal/database"
	"godlykids/internal/entitlement"
	"godlykids/internal/events"
	"godlykids/internal/handlers"
	"godlykids/internal/jobs"
	"godlykids/internal/push"
	"godlykids/internal/repository"
	"godlykids/internal/security"
	"godlykids/internal/service"
	"godlykids/internal/state"
	"godlykids/internal/voice"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Seed the comment moderation word list
	if err := db.SeedModerationWords(); err != nil {
		log.Printf("Warning: Failed to seed moderation words: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	economyRepo := repository.NewEconomyRepository(db)
	avatarRepo := repository.NewAvatarRepository(db)
	shopRepo := repository.NewShopRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	contentRepo := repository.NewContentRepository(db)

	// Event bus connects the state manager, activity tracking and
	// entitlement changes
	bus := events.NewBus()

	// Entitlement cache, Redis when configured, in-memory otherwise
	var cache entitlement.Cache
	if cfg.RedisHost != "" {
		redisClient, err := entitlement.NewRedisClient(context.Background(), cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			log.Printf("Warning: Redis unavailable, using in-memory entitlement cache: %v", err)
			cache = entitlement.NewMemoryCache()
		} else {
			log.Println("Connected to Redis entitlement cache")
			cache = entitlement.NewRedisCache(redisClient)
		}
	} else {
		cache = entitlement.NewMemoryCache()
	}

	// Profile state manager
	stateMgr := state.NewManager(db, economyRepo, avatarRepo, bus, state.Options{
		StarterCoins:     cfg.StarterCoins,
		CodeRewardCoins:  cfg.CodeRewardCoins,
		TransactionLimit: cfg.TransactionLimit,
	})

	// AI content generation degrades to curated content when unconfigured
	aiClient, err := ai.NewFromConfig(cfg)
	if err != nil {
		if !errors.Is(err, ai.ErrNotConfigured) {
			log.Fatalf("Failed to initialize AI provider: %v", err)
		}
		log.Println("AI provider not configured, generated content disabled")
		aiClient = nil
	} else {
		log.Printf("AI provider initialized (%s)", aiClient.Name())
	}

	// Email via SES, disabled without a sender address
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	pushClient := push.NewClient(cfg.PushAPIURL, cfg.PushAPIKey)
	voiceClient := voice.NewClient(cfg.VoiceServiceURL, cfg.AudioCachePath)

	// Initialize services
	authService := service.NewAuthService(userRepo, profileRepo, cfg.SessionDuration)
	profileService := service.NewProfileService(profileRepo, economyRepo, avatarRepo, cfg.SessionDuration)
	quizService := service.NewQuizService(quizRepo, stateMgr, aiClient)
	contentService := service.NewContentService(contentRepo, db, aiClient)
	activityService := service.NewActivityService(activityRepo)
	activityService.ListenForSwitches(bus)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, cache, bus, cfg.BridgeWebhookSecret, cfg.EntitlementPollInterval)

	reconcilerCtx, stopReconciler := context.WithCancel(context.Background())
	subscriptionService.StartReconciler(reconcilerCtx, userRepo.GetAllUserIDs)

	// Background jobs
	renewalChecker := jobs.NewRenewalChecker(
		userRepo,
		subscriptionService,
		jobs.NewBillingClient(cfg.LegacyBillingURL),
		emailService,
		pushClient,
		cfg.RenewalBatchSize,
		cfg.RenewalBatchDelay,
	)
	scheduler := jobs.NewScheduler()
	if err := scheduler.AddRenewalCheck(cfg.RenewalCheckSchedule, renewalChecker); err != nil {
		log.Fatalf("Failed to schedule renewal check: %v", err)
	}
	if err := scheduler.AddActivityAggregation(jobs.NewActivityAggregator(activityRepo)); err != nil {
		log.Fatalf("Failed to schedule activity aggregation: %v", err)
	}
	scheduler.Start()

	// CSRF tokens are HMAC-derived from the session ID. Without a configured
	// secret a random one is used and tokens do not survive restarts.
	csrfSecret := cfg.CSRFSecret
	if csrfSecret == "" {
		csrfSecret = security.GenerateSessionID()
		log.Println("Warning: CSRF_SECRET not set, using a random per-process secret")
	}
	csrf := security.NewCSRFGenerator(csrfSecret)

	// Initialize handlers
	rateLimiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(authService, profileService, rateLimiter, csrf)
	authHandler := handlers.NewAuthHandler(authService, emailService, stateMgr, csrf, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectBaseURL)
	profileHandler := handlers.NewProfileHandler(profileService, stateMgr)
	economyHandler := handlers.NewEconomyHandler(stateMgr, userRepo)
	shopHandler := handlers.NewShopHandler(shopRepo, stateMgr, subscriptionService)
	avatarHandler := handlers.NewAvatarHandler(stateMgr)
	quizHandler := handlers.NewQuizHandler(quizService, stateMgr)
	contentHandler := handlers.NewContentHandler(contentService, stateMgr)
	activityHandler := handlers.NewActivityHandler(activityService, profileService, stateMgr)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	narrationHandler := handlers.NewNarrationHandler(voiceClient, stateMgr, cfg.VoiceSamplesPath)

	// Setup routes
	mux := http.NewServeMux()

	// Generated narration audio
	mux.Handle("GET /static/audio/", http.StripPrefix("/static/audio/", http.FileServer(http.Dir(cfg.AudioCachePath))))

	// Auth routes
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", middleware.RequireAuth(authHandler.Logout))
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("DELETE /api/auth/account", middleware.RequireAuth(middleware.RequireCSRF(authHandler.DeleteAccount)))
	mux.HandleFunc("GET /api/auth/google/start", authHandler.StartGoogleOAuth)
	mux.HandleFunc("GET /api/auth/google/callback", authHandler.GoogleOAuthCallback)

	// Profile management (parent)
	mux.HandleFunc("GET /api/profiles", middleware.RequireAuth(profileHandler.List))
	mux.HandleFunc("POST /api/profiles", middleware.RequireAuth(middleware.RequireCSRF(profileHandler.CreateKid)))
	mux.HandleFunc("PUT /api/profiles/{id}", middleware.RequireAuth(middleware.RequireCSRF(profileHandler.Rename)))
	mux.HandleFunc("DELETE /api/profiles/{id}", middleware.RequireAuth(middleware.RequireCSRF(profileHandler.DeleteKid)))
	mux.HandleFunc("POST /api/profiles/{id}/pin", middleware.RequireAuth(middleware.RequireCSRF(profileHandler.RegeneratePIN)))
	mux.HandleFunc("POST /api/profiles/{id}/reset", middleware.RequireAuth(middleware.RequireCSRF(profileHandler.ResetData)))
	mux.HandleFunc("POST /api/profiles/{id}/activate", middleware.RequireAuth(middleware.RequireCSRF(profileHandler.Activate)))

	// Kid login
	mux.HandleFunc("POST /api/kid/login", middleware.RateLimit(profileHandler.KidLogin))
	mux.HandleFunc("POST /api/kid/logout", middleware.RequireKidAuth(profileHandler.KidLogout))

	// Active profile state and economy
	mux.HandleFunc("GET /api/state", middleware.RequireAnySession(economyHandler.GetState))
	mux.HandleFunc("POST /api/coins/earn", middleware.RequireAnySession(economyHandler.Earn))
	mux.HandleFunc("POST /api/coins/spend", middleware.RequireAnySession(economyHandler.Spend))
	mux.HandleFunc("POST /api/codes/redeem", middleware.RequireAnySession(economyHandler.Redeem))
	mux.HandleFunc("GET /api/transactions", middleware.RequireAnySession(economyHandler.Transactions))

	// Shop
	mux.HandleFunc("GET /api/shop/items", shopHandler.ListItems)
	mux.HandleFunc("POST /api/shop/items/{id}/purchase", middleware.RequireAnySession(shopHandler.Purchase))

	// Avatar
	mux.HandleFunc("PUT /api/avatar/slots/{slot}", middleware.RequireAnySession(avatarHandler.Equip))
	mux.HandleFunc("DELETE /api/avatar/slots/{slot}", middleware.RequireAnySession(avatarHandler.Unequip))
	mux.HandleFunc("PUT /api/avatar/slots/{slot}/pose", middleware.RequireAnySession(avatarHandler.SetPose))
	mux.HandleFunc("POST /api/avatar/reset", middleware.RequireAnySession(avatarHandler.Reset))

	// Quizzes
	mux.HandleFunc("GET /api/quizzes", middleware.RequireAnySession(quizHandler.GetByReference))
	mux.HandleFunc("GET /api/quizzes/results", middleware.RequireAnySession(quizHandler.Results))
	mux.HandleFunc("GET /api/quizzes/{id}", middleware.RequireAnySession(quizHandler.GetByID))
	mux.HandleFunc("POST /api/quizzes/{id}/submit", middleware.RequireAnySession(quizHandler.Submit))

	// Comments and surveys
	mux.HandleFunc("GET /api/comments", middleware.RequireAnySession(contentHandler.GetComments))
	mux.HandleFunc("POST /api/comments", middleware.RequireAnySession(contentHandler.PostComment))
	mux.HandleFunc("POST /api/surveys", middleware.RequireAuth(middleware.RequireCSRF(contentHandler.SubmitSurvey)))

	// Activity
	mux.HandleFunc("POST /api/activity", middleware.RequireAnySession(activityHandler.Record))
	mux.HandleFunc("GET /api/profiles/{id}/activity", middleware.RequireAuth(activityHandler.RecentEvents))
	mux.HandleFunc("GET /api/profiles/{id}/activity/summary", middleware.RequireAuth(activityHandler.Summaries))

	// Subscription
	mux.HandleFunc("GET /api/subscription", middleware.RequireAuth(subscriptionHandler.Get))
	mux.HandleFunc("POST /api/webhooks/bridge", subscriptionHandler.BridgeWebhook)

	// Narration
	mux.HandleFunc("POST /api/narrate", middleware.RequireAnySession(narrationHandler.Narrate))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // narration generation can be slow
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(authService)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	stopReconciler()
	scheduler.Stop()
	activityService.Stop()

	// Persist any pending profile state before exit
	stateMgr.FlushAll()

	log.Println("Shutdown complete")
}

// cleanupExpiredSessions periodically removes expired parent and kid sessions
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		} else {
			log.Println("Expired sessions cleaned up")
		}
	}
}
