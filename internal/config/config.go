package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// ───── Infrastructure ─────
	DatabaseURL  string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	// ───── Runtime ─────
	HTTPAddr    string
	ObsHTTPAddr string
	ServiceName string
	LogLevel    string

	RequestTimeout time.Duration

	// ───── Sessions ─────
	SessionSecret   string
	SessionIssuer   string
	SessionAudience string
	SessionTTL      time.Duration
	CookieSecure    bool

	// ───── Identity provider ─────
	IdentitySecret   string
	IdentityIssuer   string
	IdentityAudience string

	// ───── Feed ─────
	PublicFeedLimit int
	FeedCacheTTL    time.Duration
	OutboxInterval  time.Duration

	// ───── Rate Limiting ─────
	SignInRateLimitPerMin int

	// ───── Observability ─────
	MetricsEnabled bool
	TracingEnabled bool
	JaegerURL      string
}

// Load reads the environment. A .env file in the working directory is applied
// first when present; real environment variables win over it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}

	return &Config{
		// Infra
		DatabaseURL:  mustEnv("DATABASE_URL"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "journal.post.events"),
		KafkaGroup:   getEnv("KAFKA_GROUP", "journal-feed-cache"),

		// Runtime
		HTTPAddr:    fixPort(getEnv("HTTP_ADDR", ":8080")),
		ObsHTTPAddr: fixPort(getEnv("OBS_HTTP_ADDR", ":8090")),
		ServiceName: getEnv("SERVICE_NAME", "journal-service"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 5*time.Second),

		// Sessions
		SessionSecret:   mustEnv("SESSION_SECRET"),
		SessionIssuer:   getEnv("SESSION_ISSUER", "xiaoyao"),
		SessionAudience: getEnv("SESSION_AUDIENCE", "xiaoyao-web"),
		SessionTTL:      getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		CookieSecure:    getEnvBool("COOKIE_SECURE", false),

		// Identity provider
		IdentitySecret:   mustEnv("IDENTITY_SECRET"),
		IdentityIssuer:   getEnv("IDENTITY_ISSUER", "https://accounts.google.com"),
		IdentityAudience: getEnv("IDENTITY_AUDIENCE", "xiaoyao"),

		// Feed
		PublicFeedLimit: getEnvInt("PUBLIC_FEED_LIMIT", 50),
		FeedCacheTTL:    getEnvDuration("FEED_CACHE_TTL", 5*time.Minute),
		OutboxInterval:  getEnvDuration("OUTBOX_INTERVAL", 2*time.Second),

		// Rate limiting
		SignInRateLimitPerMin: getEnvInt("SIGNIN_RATE_LIMIT", 10),

		// Observability
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		JaegerURL:      getEnv("JAEGER_URL", "http://localhost:14268/api/traces"),
	}
}

func fixPort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env: %s", k)
	}
	return v
}

func getEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}

func getEnvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int env %s: %v", k, err)
	}
	return i
}

func getEnvBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return strings.ToLower(v) == "true"
}

func getEnvDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	dur, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration env %s: %v", k, err)
	}
	return dur
}

func getEnvSlice(k string, d []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return strings.Split(v, ",")
}
