package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ArchiveDir     string // Destination directory for archived images
	Debug          bool   // Show preview windows while processing
	GrayscaleCrops bool   // Convert face crops to grayscale before archiving
	VisionEndpoint string // Base URL of the face-detection service
	VisionAPIKey   string // Ambient credential for the face-detection service
	DBPath         string // SQLite run index location
	LogDirectory   string
	PreviewAddr    string // Optional listen address for the headless debug preview
}

func Load() *Config {
	// Local overrides; the file is optional.
	_ = godotenv.Load()

	return &Config{
		ArchiveDir:     getEnv("ARCHIVE_DIR", os.TempDir()),
		Debug:          getEnvAsBool("DEBUG", false),
		GrayscaleCrops: getEnvAsBool("GRAYSCALE_CROPS", true),
		VisionEndpoint: getEnv("VISION_ENDPOINT", "http://localhost:8089"),
		VisionAPIKey:   getEnv("VISION_API_KEY", ""),
		DBPath:         getEnv("DB_PATH", filepath.Join(".", "facearchiver.db")),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
		PreviewAddr:    getEnv("PREVIEW_ADDR", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
