package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Ticket store. Empty DatabaseURL selects the in-memory store.
	DatabaseURL string

	// Redis backs the transcript mirror and role cache. Empty disables both.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// NATS carries escalation events. Empty disables publishing.
	NATSURL           string
	NATSToken         string
	EscalationSubject string

	// Escalation email. EMAIL_PROVIDER is sendgrid, ses, or empty for
	// log-only delivery; no recipient disables email entirely.
	EmailProvider              string
	SendGridAPIKey             string
	EmailFrom                  string
	EmailFromName              string
	EscalationEmailTo          string
	EscalationEmailMinPriority string

	// AWS is only used for SES.
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	GatewayTimeout        time.Duration
	SummaryMessageCount   int
	RoleCacheTTL          time.Duration
	SessionIdleTTL        time.Duration
	SessionSweepInterval  time.Duration
	TranscriptTTL         time.Duration
	TranscriptMaxMessages int

	// Per-conversation turn throttle. A non-positive burst disables it.
	TurnRateLimit float64
	TurnRateBurst int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		NATSURL:           getEnv("NATS_URL", ""),
		NATSToken:         getEnv("NATS_TOKEN", ""),
		EscalationSubject: getEnv("ESCALATION_SUBJECT", "support.intake.escalation"),

		EmailProvider:              strings.ToLower(getEnv("EMAIL_PROVIDER", "")),
		SendGridAPIKey:             getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:                  getEnv("EMAIL_FROM", "support@staydesk.example"),
		EmailFromName:              getEnv("EMAIL_FROM_NAME", "StayDesk Support"),
		EscalationEmailTo:          getEnv("ESCALATION_EMAIL_TO", ""),
		EscalationEmailMinPriority: getEnv("ESCALATION_EMAIL_MIN_PRIORITY", "HIGH"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		GatewayTimeout:        getEnvAsDuration("GATEWAY_TIMEOUT", 2*time.Second),
		SummaryMessageCount:   getEnvAsInt("SUMMARY_MESSAGE_COUNT", 10),
		RoleCacheTTL:          getEnvAsDuration("ROLE_CACHE_TTL", time.Hour),
		SessionIdleTTL:        getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
		SessionSweepInterval:  getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		TranscriptTTL:         getEnvAsDuration("TRANSCRIPT_TTL", 24*time.Hour),
		TranscriptMaxMessages: getEnvAsInt("TRANSCRIPT_MAX_MESSAGES", 250),

		TurnRateLimit: getEnvAsFloat("TURN_RATE_LIMIT", 2),
		TurnRateBurst: getEnvAsInt("TURN_RATE_BURST", 10),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// LoadDotEnv loads a .env file into the process environment when present.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
