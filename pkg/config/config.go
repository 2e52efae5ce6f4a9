package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Admin     AdminConfig
	FaceAPI   FaceAPIConfig
	Upload    UploadConfig
	Search    SearchConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
}

type AdminConfig struct {
	Token string // Token for the admin log endpoints (X-Admin-Token)
}

type AppConfig struct {
	Name   string
	Port   string
	Env    string
	LogDir string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTLHours int // Lifetime of cached embeddings
}

type FaceAPIConfig struct {
	BaseURL        string  // Base URL of the facial-analysis service
	Enabled        bool    // Enable/disable face processing
	Model          string  // Embedding model name (e.g. VGG-Face)
	MatchThreshold float64 // Cosine distance below which two faces match
	TimeoutSeconds int
	RequestsPerSec float64 // Client side rate limit, 0 = unlimited
}

type UploadConfig struct {
	Dir               string
	TempDir           string
	MaxBytes          int64
	AllowedExtensions []string
	TempMaxAgeMinutes int
}

type SearchConfig struct {
	MaxConcurrent int // Parallel comparisons during an image scan
}

type WorkerConfig struct {
	Enabled             bool
	PollIntervalSeconds int
	BatchSize           int
}

type RateLimitConfig struct {
	Enabled       bool
	MaxRequests   int
	WindowSeconds int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists (optional for production)
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	config := &Config{
		App: AppConfig{
			Name:   getEnv("APP_NAME", "Criminal Registry"),
			Port:   getEnv("APP_PORT", "3000"),
			Env:    getEnv("APP_ENV", "development"),
			LogDir: getEnv("LOG_DIR", "logs"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "criminal_detection"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTLHours: getEnvInt("REDIS_EMBEDDING_TTL_HOURS", 24),
		},
		Admin: AdminConfig{
			Token: getEnv("ADMIN_TOKEN", ""),
		},
		FaceAPI: FaceAPIConfig{
			BaseURL:        getEnv("FACE_API_URL", "http://localhost:5005"),
			Enabled:        getEnv("FACE_API_ENABLED", "true") == "true",
			Model:          getEnv("FACE_API_MODEL", "VGG-Face"),
			MatchThreshold: getEnvFloat("FACE_MATCH_THRESHOLD", 0.40),
			TimeoutSeconds: getEnvInt("FACE_API_TIMEOUT_SECONDS", 120),
			RequestsPerSec: getEnvFloat("FACE_API_RPS", 0),
		},
		Upload: UploadConfig{
			Dir:               getEnv("UPLOAD_DIR", "static/uploads"),
			TempDir:           getEnv("UPLOAD_TEMP_DIR", "static/uploads/tmp"),
			MaxBytes:          int64(getEnvInt("UPLOAD_MAX_BYTES", 16*1024*1024)),
			AllowedExtensions: getEnvList("UPLOAD_ALLOWED_EXTENSIONS", []string{"png", "jpg", "jpeg"}),
			TempMaxAgeMinutes: getEnvInt("UPLOAD_TEMP_MAX_AGE_MINUTES", 30),
		},
		Search: SearchConfig{
			MaxConcurrent: getEnvInt("SEARCH_MAX_CONCURRENT", 4),
		},
		Worker: WorkerConfig{
			Enabled:             getEnv("SIGNATURE_WORKER_ENABLED", "true") == "true",
			PollIntervalSeconds: getEnvInt("SIGNATURE_WORKER_POLL_SECONDS", 30),
			BatchSize:           getEnvInt("SIGNATURE_WORKER_BATCH_SIZE", 20),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			MaxRequests:   getEnvInt("RATE_LIMIT_MAX_REQUESTS", 30),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList parses a comma separated list, lowercased and trimmed
func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
