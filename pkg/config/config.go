package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	OpenAI    OpenAIConfig
	GigaChat  GigaChatConfig
	Knowledge KnowledgeConfig
	Match     MatchConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level  string
	Format string // json | console
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LLMConfig selects the chat backend used for fallback generation.
type LLMConfig struct {
	Provider string // openai | gigachat
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	BaseURL            string
	OAuthURL           string
	InsecureSkipVerify bool
}

type KnowledgeConfig struct {
	Path string
}

// MatchConfig holds the empirical weights and thresholds of the local matcher.
type MatchConfig struct {
	SequenceWeight     float64
	TokenWeight        float64
	FuzzyThreshold     float64
	EmbeddingThreshold float64
	QueryCacheSize     int64
}

// DefaultMatchConfig returns the tuned matcher constants.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		SequenceWeight:     0.7,
		TokenWeight:        0.3,
		FuzzyThreshold:     0.78,
		EmbeddingThreshold: 0.82,
		QueryCacheSize:     1000,
	}
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too (Docker, Vercel)
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "120"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"

	defaults := DefaultMatchConfig()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8000"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			BaseURL:            getEnv("GIGACHAT_BASE_URL", ""),
			OAuthURL:           getEnv("GIGACHAT_OAUTH_URL", ""),
			InsecureSkipVerify: insecureSkipVerify,
		},
		Knowledge: KnowledgeConfig{
			Path: getEnv("KB_PATH", "data/chatbot.json"),
		},
		Match: MatchConfig{
			SequenceWeight:     getEnvFloat("MATCH_SEQUENCE_WEIGHT", defaults.SequenceWeight),
			TokenWeight:        getEnvFloat("MATCH_TOKEN_WEIGHT", defaults.TokenWeight),
			FuzzyThreshold:     getEnvFloat("MATCH_FUZZY_THRESHOLD", defaults.FuzzyThreshold),
			EmbeddingThreshold: getEnvFloat("MATCH_EMBEDDING_THRESHOLD", defaults.EmbeddingThreshold),
			QueryCacheSize:     int64(getEnvInt("MATCH_QUERY_CACHE_SIZE", int(defaults.QueryCacheSize))),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
