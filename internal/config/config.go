package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr       string
	CORSOrigin string

	// Backing store: "fs" keeps ledgers in a local directory, "minio" in an
	// S3-compatible bucket.
	StoreBackend   string
	DataDir        string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Redis switches the coordinator to a cross-process lock when set.
	RedisURL  string
	LockWait  time.Duration
	LockLease time.Duration

	HistoryLimit   int
	SeedExecutives []string
	TemplateObject string
}

func Load() Config {
	return Config{
		Addr:       getenv("VISITLOG_ADDR", ":3000"),
		CORSOrigin: getenv("VISITLOG_CORS_ORIGIN", "*"),

		StoreBackend:   getenv("VISITLOG_STORE", "fs"),
		DataDir:        getenv("VISITLOG_DATA_DIR", "./data/ledgers"),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "visitlogs"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),

		RedisURL:  getenv("VISITLOG_REDIS_URL", ""),
		LockWait:  time.Duration(getenvInt("VISITLOG_LOCK_WAIT_SECONDS", 10)) * time.Second,
		LockLease: time.Duration(getenvInt("VISITLOG_LOCK_LEASE_SECONDS", 30)) * time.Second,

		HistoryLimit:   getenvInt("VISITLOG_HISTORY_LIMIT", 7),
		SeedExecutives: getenvList("VISITLOG_SEED_EXECUTIVES"),
		TemplateObject: getenv("VISITLOG_TEMPLATE_OBJECT", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvList(key string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
