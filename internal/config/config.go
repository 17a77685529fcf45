package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Facta webservice
	FactaBaseURL          string
	FactaAuthBasic        string // base64 user:password for GET /gera-token
	FactaLoginCertificado string
	FactaTokenTTL         time.Duration
	FactaTokenSafety      time.Duration // subtracted from the stated lifetime
	FactaConvenio         string
	FactaAverbador        string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL  time.Duration
	UseRedis  bool
	RedisAddr string

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Caller identity
	JWTSecret string

	// Chat gateway (OpenAI-style completions)
	ChatGatewayURL string
	ChatGatewayKey string
	ChatModel      string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FactaBaseURL:          getEnv("FACTA_BASE_URL", "https://webservice.facta.com.br"),
		FactaAuthBasic:        getEnv("FACTA_AUTH_BASIC", ""),
		FactaLoginCertificado: getEnv("FACTA_LOGIN_CERTIFICADO", "1024"),
		FactaTokenTTL:         getEnvDuration("FACTA_TOKEN_TTL", time.Hour),
		FactaTokenSafety:      getEnvDuration("FACTA_TOKEN_SAFETY_MARGIN", 5*time.Minute),
		FactaConvenio:         getEnv("FACTA_CONVENIO", "3"),
		FactaAverbador:        getEnv("FACTA_AVERBADOR", "10010"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL:  getEnvDuration("CACHE_TTL", 2*time.Minute),
		UseRedis:  getEnv("USE_REDIS", "false") == "true",
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		JWTSecret: getEnv("JWT_SECRET", "upclt-default-dev-secret-change-me"),

		ChatGatewayURL: getEnv("CHAT_GATEWAY_URL", ""),
		ChatGatewayKey: getEnv("CHAT_GATEWAY_KEY", ""),
		ChatModel:      getEnv("CHAT_MODEL", "google/gemini-2.5-flash"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
