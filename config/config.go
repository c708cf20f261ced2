package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       string
	// DigitalOcean Spaces (S3-compatible object storage)
	DO_SPACES_BUCKET   string
	DO_SPACES_REGION   string
	DO_SPACES_ENDPOINT string
	DO_SPACES_KEY      string
	DO_SPACES_SECRET   string
	// DigitalOcean AI Inference
	DO_INFERENCE_KEY   string
	DO_INFERENCE_MODEL string
	// Retrieval / ingestion tuning
	RAG_ENABLED          bool
	RAG_CHUNK_SIZE       int
	RAG_CHUNK_OVERLAP    int
	RAG_TOP_K            int
	RAG_LOW_TEXT_CHARS   int
	RAG_INGEST_WORKERS   int
	VTT_MERGE_MAX_CHARS  int
	VTT_MERGE_WINDOW_SEC float64
	CHAT_HISTORY_MAX     int
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func floatEnv(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       os.Getenv("REDIS_DB"),
		// DigitalOcean
		DO_SPACES_BUCKET:   os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:   os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT: os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_KEY:      os.Getenv("DO_SPACES_KEY"),
		DO_SPACES_SECRET:   os.Getenv("DO_SPACES_SECRET"),
		DO_INFERENCE_KEY:   os.Getenv("DO_INFERENCE_KEY"),
		DO_INFERENCE_MODEL: os.Getenv("DO_INFERENCE_MODEL"),
		// Retrieval / ingestion
		RAG_ENABLED:          os.Getenv("RAG_ENABLED") != "false",
		RAG_CHUNK_SIZE:       intEnv("RAG_CHUNK_SIZE", 1200),
		RAG_CHUNK_OVERLAP:    intEnv("RAG_CHUNK_OVERLAP", 200),
		RAG_TOP_K:            intEnv("RAG_TOP_K", 8),
		RAG_LOW_TEXT_CHARS:   intEnv("RAG_LOW_TEXT_CHARS", 200),
		RAG_INGEST_WORKERS:   intEnv("RAG_INGEST_WORKERS", 4),
		VTT_MERGE_MAX_CHARS:  intEnv("VTT_MERGE_MAX_CHARS", 700),
		VTT_MERGE_WINDOW_SEC: floatEnv("VTT_MERGE_WINDOW_SEC", 30),
		CHAT_HISTORY_MAX:     intEnv("CHAT_HISTORY_MAX", 12),
	}

	return envVariables, nil
}
