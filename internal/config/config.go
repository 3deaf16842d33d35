package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	NewsAPIKey   string
	GeminiAPIKey string
	OpenAIAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string

	// Ingestion tuning
	IngestPageSize  int
	IngestPoolSize  int
	ExtractMinChars int
	ExtractMaxChars int

	// Retrieval tuning
	RetrievalTopK        int
	SimilarityTieEpsilon float64
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		NewsAPIKey:   getEnv("NEWS_API_KEY", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		DatabaseURL:  getEnv("DATABASE_URL", "newsmind.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		IngestPageSize:  getEnvAsInt("INGEST_PAGE_SIZE", 5),
		IngestPoolSize:  getEnvAsInt("INGEST_POOL_SIZE", 4),
		ExtractMinChars: getEnvAsInt("EXTRACT_MIN_CHARS", 200),
		ExtractMaxChars: getEnvAsInt("EXTRACT_MAX_CHARS", 5000),

		RetrievalTopK:        getEnvAsInt("RETRIEVAL_TOP_K", 3),
		SimilarityTieEpsilon: getEnvAsFloat("SIMILARITY_TIE_EPSILON", 1e-9),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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
