package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	CSRFSecret      string
	DatabaseType    string // sqlite (default), postgres, mysql
	DatabasePath    string // sqlite file path
	DatabaseURL     string // postgres/mysql connection string
	MigrationsPath  string
	SessionDuration time.Duration

	// Economy defaults
	StarterCoins     int
	CodeRewardCoins  int
	TransactionLimit int

	// Entitlement reconciliation
	EntitlementPollInterval time.Duration
	BridgeWebhookSecret     string
	RedisHost               string
	RedisPort               string
	RedisPassword           string

	// Subscription renewal job
	LegacyBillingURL     string
	RenewalBatchSize     int
	RenewalBatchDelay    time.Duration
	RenewalCheckSchedule string // cron spec

	// Email (SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	// Push notifications
	PushAPIURL string
	PushAPIKey string

	// AI content generation
	AIProvider   string // gemini (default) or openai
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIURL    string

	// Voice cloning service
	VoiceServiceURL  string
	AudioCachePath   string
	VoiceSamplesPath string

	// OAuth
	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	Debug bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		CSRFSecret:      getEnv("CSRF_SECRET", ""),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./godlykids.db"),
		DatabaseURL:     getEnv("DB_URL", ""),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionDuration: 24 * time.Hour,

		StarterCoins:     getEnvInt("STARTER_COINS", 500),
		CodeRewardCoins:  getEnvInt("CODE_REWARD_COINS", 100),
		TransactionLimit: getEnvInt("TRANSACTION_LIMIT", 100),

		EntitlementPollInterval: getEnvDuration("ENTITLEMENT_POLL_INTERVAL", 3*time.Second),
		BridgeWebhookSecret:     getEnv("BRIDGE_WEBHOOK_SECRET", ""),
		RedisHost:               getEnv("REDIS_HOST", ""),
		RedisPort:               getEnv("REDIS_PORT", "6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),

		LegacyBillingURL:     getEnv("LEGACY_BILLING_URL", ""),
		RenewalBatchSize:     getEnvInt("RENEWAL_BATCH_SIZE", 10),
		RenewalBatchDelay:    getEnvDuration("RENEWAL_BATCH_DELAY", 2*time.Second),
		RenewalCheckSchedule: getEnv("RENEWAL_CHECK_SCHEDULE", "0 6 * * *"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "GodlyKids"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		PushAPIURL: getEnv("PUSH_API_URL", ""),
		PushAPIKey: getEnv("PUSH_API_KEY", ""),

		AIProvider:   getEnv("AI_PROVIDER", "gemini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIURL:    getEnv("OPENAI_URL", "https://api.openai.com/v1"),

		VoiceServiceURL:  getEnv("VOICE_SERVICE_URL", ""),
		AudioCachePath:   getEnv("AUDIO_CACHE_PATH", "./static/audio"),
		VoiceSamplesPath: getEnv("VOICE_SAMPLES_PATH", "./static/voices"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", getEnv("APP_BASE_URL", "http://localhost:8080")),

		Debug: getEnv("DEBUG", "") != "",
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid value for %s (%q), using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration reads a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid value for %s (%q), using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
