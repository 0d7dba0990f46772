package config

import (
	"fmt"
	"os"
)

type Config struct {
	TargetsFile string // BOOTGATE_TARGETS_FILE (required)
	DataDir     string // BOOTGATE_DATA_DIR (default "priv")
	NATSURL     string // BOOTGATE_NATS_URL (optional, empty = no events)

	// Remote migration-bundle source
	S3Bucket   string // BOOTGATE_S3_BUCKET (enables S3 when set)
	S3Prefix   string // BOOTGATE_S3_PREFIX (default "migrations")
	S3Region   string // BOOTGATE_S3_REGION (default "us-east-1")
	S3Endpoint string // BOOTGATE_S3_ENDPOINT (custom endpoint for MinIO)
}

func Load() (*Config, error) {
	c := &Config{
		TargetsFile: os.Getenv("BOOTGATE_TARGETS_FILE"),
		DataDir:     envOrDefault("BOOTGATE_DATA_DIR", "priv"),
		NATSURL:     os.Getenv("BOOTGATE_NATS_URL"),
		S3Bucket:    os.Getenv("BOOTGATE_S3_BUCKET"),
		S3Prefix:    envOrDefault("BOOTGATE_S3_PREFIX", "migrations"),
		S3Region:    envOrDefault("BOOTGATE_S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("BOOTGATE_S3_ENDPOINT"),
	}
	if c.TargetsFile == "" {
		return nil, fmt.Errorf("BOOTGATE_TARGETS_FILE is required")
	}
	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
