package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Keys     APIKeys
	Ai       AIConfig
	Copilot  CopilotConfig
	Jira     JiraConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host            string
	Port            int
	Email           string
	Password        string
	SenderName      string
	EscalationInbox string
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string
	RequestTimeout    time.Duration
}

// CopilotConfig holds the pipeline tunables. Weights must sum to 1; the
// retriever falls back to defaults when they do not.
type CopilotConfig struct {
	WeightSimilarity      float64
	WeightKeyword         float64
	WeightRecency         float64
	WeightQuality         float64
	TopK                  int
	MinSimilarity         float64
	MaxSubQueries         int
	VagueWordCount        int
	MaxReviewRetries      int
	HistoryWindow         int
	MaxContextDocs        int
	ConfidenceFloor       float64
	ThresholdFaithfulness float64
	ThresholdCompleteness float64
	ThresholdClarity      float64
	SessionTTL            time.Duration
	PipelineLogPath       string
}

type JiraConfig struct {
	BaseURL    string
	Username   string
	APIToken   string
	ProjectKey string
	Timeout    time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:            getEnv("SMTP_HOST", ""),
			Port:            getEnvAsInt("SMTP_PORT", 587),
			Email:           getEnv("SMTP_EMAIL", ""),
			Password:        getEnv("SMTP_PASSWORD", ""),
			SenderName:      getEnv("SMTP_SENDER_NAME", "Support Copilot"),
			EscalationInbox: getEnv("ESCALATION_INBOX", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			RequestTimeout:    getEnvAsDuration("LLM_REQUEST_TIMEOUT", 60*time.Second),
		},
		Copilot: CopilotConfig{
			WeightSimilarity:      getEnvAsFloat("SCORE_WEIGHT_SIMILARITY", 0.5),
			WeightKeyword:         getEnvAsFloat("SCORE_WEIGHT_KEYWORD", 0.2),
			WeightRecency:         getEnvAsFloat("SCORE_WEIGHT_RECENCY", 0.15),
			WeightQuality:         getEnvAsFloat("SCORE_WEIGHT_QUALITY", 0.15),
			TopK:                  getEnvAsInt("RETRIEVAL_TOP_K", 5),
			MinSimilarity:         getEnvAsFloat("RETRIEVAL_MIN_SIMILARITY", 0.3),
			MaxSubQueries:         getEnvAsInt("DECOMPOSE_MAX_SUBQUERIES", 4),
			VagueWordCount:        getEnvAsInt("DECOMPOSE_VAGUE_WORD_COUNT", 12),
			MaxReviewRetries:      getEnvAsInt("REVIEW_MAX_RETRIES", 2),
			HistoryWindow:         getEnvAsInt("HISTORY_WINDOW", 6),
			MaxContextDocs:        getEnvAsInt("MAX_CONTEXT_DOCS", 8),
			ConfidenceFloor:       getEnvAsFloat("INTENT_CONFIDENCE_FLOOR", 0.6),
			ThresholdFaithfulness: getEnvAsFloat("REVIEW_THRESHOLD_FAITHFULNESS", 0.7),
			ThresholdCompleteness: getEnvAsFloat("REVIEW_THRESHOLD_COMPLETENESS", 0.6),
			ThresholdClarity:      getEnvAsFloat("REVIEW_THRESHOLD_CLARITY", 0.6),
			SessionTTL:            getEnvAsDuration("SESSION_TTL", 1*time.Hour),
			PipelineLogPath:       getEnv("PIPELINE_LOG_PATH", "logs/copilot.log"),
		},
		Jira: JiraConfig{
			BaseURL:    getEnv("JIRA_BASE_URL", ""),
			Username:   getEnv("JIRA_USERNAME", ""),
			APIToken:   getEnv("JIRA_API_TOKEN", ""),
			ProjectKey: getEnv("JIRA_PROJECT_KEY", "CS"),
			Timeout:    getEnvAsDuration("JIRA_TIMEOUT", 15*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
