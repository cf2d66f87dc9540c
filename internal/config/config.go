package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	LogLevel    string
	DatabaseURL string
	SQLitePath  string
	NatsURL     string
	NatsToken   string
	RedisURL    string
	CacheTTL    time.Duration

	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string

	EmbeddingProvider string
	EmbeddingModel    string

	MinClauseLength     int
	MemoryTopK          int
	MemoryDedupDistance float64
	MaxRetries          int
	BackoffBase         time.Duration
	Temperature         float64
	MaxOutputTokens     int
	Workers             int
	RequestTimeout      time.Duration
	Jurisdiction        string

	SlackBotToken string
	SlackChannel  string

	IndexStatePath string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        envInt("CLERK_PORT", 8760),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		DatabaseURL: envStr("DATABASE_URL", ""),
		SQLitePath:  envStr("CLERK_SQLITE_PATH", "clerk.db"),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		RedisURL:    envStr("REDIS_URL", ""),
		CacheTTL:    envDuration("CLERK_CACHE_TTL", 24*time.Hour),

		LLMProvider:     strings.ToLower(envStr("CLERK_LLM_PROVIDER", "openai")),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   envStr("OPENAI_BASE_URL", ""),
		OpenAIModel:     envStr("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		GeminiModel:     envStr("GEMINI_MODEL", "gemini-2.5-flash"),

		EmbeddingProvider: strings.ToLower(envStr("CLERK_EMBEDDING_PROVIDER", "openai")),
		EmbeddingModel:    envStr("CLERK_EMBEDDING_MODEL", ""),

		MinClauseLength:     envInt("CLERK_MIN_CLAUSE_LENGTH", 40),
		MemoryTopK:          envInt("CLERK_MEMORY_TOP_K", 4),
		MemoryDedupDistance: envFloat("CLERK_MEMORY_DEDUP_DISTANCE", 0.02),
		MaxRetries:          envInt("CLERK_MAX_RETRIES", 3),
		BackoffBase:         envDuration("CLERK_BACKOFF_BASE", 1200*time.Millisecond),
		Temperature:         envFloat("CLERK_TEMPERATURE", 0.3),
		MaxOutputTokens:     envInt("CLERK_MAX_OUTPUT_TOKENS", 1500),
		Workers:             envInt("CLERK_WORKERS", 4),
		RequestTimeout:      envDuration("CLERK_REQUEST_TIMEOUT", 2*time.Minute),
		Jurisdiction:        envStr("CLERK_JURISDICTION", "Kenya"),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_REVIEW_CHANNEL", ""),

		IndexStatePath: envStr("CLERK_INDEX_STATE", "~/.clerk/index-state.json"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90s", "1.2s") or a bare number
// of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	return fallback
}
