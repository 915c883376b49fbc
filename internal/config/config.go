package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	ExportScopeFiltered = "filtered"
	ExportScopeFull     = "full"
)

type Config struct {
	DataSource string
	DataDir    string
	OutputDir  string

	HTTPAddr string
	LogLevel zerolog.Level

	LoadTimeoutMs   int
	LoadMaxAttempts int
	RefreshInterval time.Duration
	RefreshCron     string
	LoadOnStart     bool
	RefreshCrawl    bool
	RefreshExport   bool

	ExportScope string

	FetchRateRPS   int
	FetchTimeoutMs int
	FetchUserAgent string
	FetchMaxLinks  int
	SeedsPath      string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	dataDir := getEnv("DATA_DIR", filepath.Join(cwd, "data"))
	cfg := Config{
		DataSource: getEnv("DATA_SOURCE", filepath.Join(dataDir, "machines.json")),
		DataDir:    dataDir,
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		HTTPAddr: getEnv("HTTP_ADDR", "127.0.0.1:8080"),
		LogLevel: getEnvLevel("LOG_LEVEL", zerolog.InfoLevel),

		LoadTimeoutMs:   getEnvInt("LOAD_TIMEOUT_MS", 15000),
		LoadMaxAttempts: getEnvInt("LOAD_MAX_ATTEMPTS", 3),
		RefreshInterval: time.Duration(getEnvInt("REFRESH_INTERVAL_SEC", 0)) * time.Second,
		RefreshCron:     strings.TrimSpace(getEnv("REFRESH_CRON", "")),
		LoadOnStart:     getEnvBool("LOAD_ON_START", true),
		RefreshCrawl:    getEnvBool("REFRESH_CRAWL", false),
		RefreshExport:   getEnvBool("REFRESH_EXPORT", false),

		ExportScope: getEnvChoice("EXPORT_SCOPE", ExportScopeFiltered, ExportScopeFiltered, ExportScopeFull),

		FetchRateRPS:   getEnvInt("FETCH_RATE_RPS", 5),
		FetchTimeoutMs: getEnvInt("FETCH_TIMEOUT_MS", 20000),
		FetchUserAgent: getEnv("FETCH_USER_AGENT", "CarbonEquipmentBot/1.0"),
		FetchMaxLinks:  getEnvInt("FETCH_MAX_LINKS", 30),
		SeedsPath:      getEnv("SEEDS_FILE", filepath.Join(dataDir, "sources.yaml")),
	}

	if cfg.LoadMaxAttempts < 1 {
		cfg.LoadMaxAttempts = 1
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvLevel(key string, fallback zerolog.Level) zerolog.Level {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil {
		return fallback
	}
	return level
}

func getEnvChoice(key, fallback string, allowed ...string) string {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	return fallback
}
