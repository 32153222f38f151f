package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port                     int
	ModelPath                string
	ModelInputSize           int
	NMSThreshold             float64
	ConfidenceThreshold      float64
	ProcessingWorkers        int // detector instances in the pool
	CameraDevice             int
	ImageDirectory           string
	ImageBufferLimit         int
	ImageBufferFlushInterval int // seconds
	LogDirectory             string
	EventLogBackend          string
	EventLogPath             string
	DatabasePath             string
	CatalogPath              string // empty means the built-in catalog
	AllowedOrigins           []string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                     getEnvAsInt("PORT", 8080),
		ModelPath:                getEnv("MODEL_PATH", filepath.Join(".", "models", "yolov8n.onnx")),
		ModelInputSize:           getEnvAsInt("MODEL_INPUT_SIZE", 640),
		NMSThreshold:             getEnvAsFloat("NMS_THRESHOLD", 0.45),
		ConfidenceThreshold:      getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		ProcessingWorkers:        getEnvAsInt("PROCESSING_WORKERS", 2),
		CameraDevice:             getEnvAsInt("CAMERA_DEVICE", 0),
		ImageDirectory:           getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		ImageBufferLimit:         getEnvAsInt("BUFFER_LIMIT", 5),
		ImageBufferFlushInterval: getEnvAsInt("FLUSH_INTERVAL", 30),
		LogDirectory:             getEnv("LOG_DIR", filepath.Join(".", "logs")),
		EventLogBackend:          strings.ToLower(getEnv("EVENT_LOG_BACKEND", BackendJSON)),
		EventLogPath:             getEnv("EVENT_LOG_PATH", "tracker_log.json"),
		DatabasePath:             getEnv("DATABASE_PATH", filepath.Join(".", "data", "tracker.db")),
		CatalogPath:              getEnv("CATALOG_PATH", ""),
		AllowedOrigins:           getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
