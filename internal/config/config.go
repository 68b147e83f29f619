// Package config provides configuration for the PRD service.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int
	RPCPort  int

	// Database
	DatabaseURL  string
	RunCacheSize int

	// Artifacts
	DataDir         string
	ArtifactBackend string
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool

	// Generation backend
	Mode          string
	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	AgentSeed     int64
	LLMTimeout    time.Duration

	// Pipeline
	MaxStrategistQuestions int
	MaxIdeaLength          int
	StaleRunTimeout        time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from a .env file, if present, and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: failed to load .env: %v", err)
	}

	cfg := &Config{
		HTTPPort:               getEnvInt("HTTP_PORT", 8080),
		RPCPort:                getEnvInt("RPC_PORT", 0),
		DatabaseURL:            getEnv("DATABASE_URL", "file:runs.db?mode=rwc&_busy_timeout=5000&_journal_mode=WAL"),
		RunCacheSize:           getEnvInt("RUN_CACHE_SIZE", 256),
		DataDir:                getEnv("DATA_DIR", "./data"),
		ArtifactBackend:        strings.ToLower(getEnv("ARTIFACT_BACKEND", "fs")),
		S3Endpoint:             getEnv("ARTIFACT_S3_ENDPOINT", ""),
		S3Region:               getEnv("ARTIFACT_S3_REGION", "us-east-1"),
		S3AccessKey:            getEnv("ARTIFACT_S3_ACCESS_KEY", ""),
		S3SecretKey:            getEnv("ARTIFACT_S3_SECRET_KEY", ""),
		S3Bucket:               getEnv("ARTIFACT_S3_BUCKET", "prd-artifacts"),
		S3UseSSL:               getEnvBool("ARTIFACT_S3_USE_SSL", false),
		Mode:                   getEnv("PM_MODE", ""),
		LLMProvider:            strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", "your_openai_api_key_here"),
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-4-turbo-preview"),
		OpenAIBaseURL:          getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		AgentSeed:              int64(getEnvInt("AGENT_SEED", 42)),
		LLMTimeout:             time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		MaxStrategistQuestions: getEnvInt("MAX_STRATEGIST_QUESTIONS", 5),
		MaxIdeaLength:          getEnvInt("MAX_IDEA_LENGTH", 2000),
		StaleRunTimeout:        time.Duration(getEnvInt("STALE_RUN_TIMEOUT_MS", 1800000)) * time.Millisecond,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
