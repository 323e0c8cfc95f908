package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr      string
	RegistryAPIURL  string        // prefix for /api/totals and /api/transactions
	RegistryTimeout time.Duration // zero keeps the HTTP client default (no timeout)
	LogLevel        string

	MaxUploadSizeBytes  int64
	UploadRatePerMinute int
	PDFStructureCheck   bool

	NotificationTTL time.Duration
	SessionTTL      time.Duration
	SecureCookies   bool
}

// fileConfig mirrors AppConfig for the optional YAML file. Values found there
// become the defaults that environment variables override.
type fileConfig struct {
	ListenAddr          string `yaml:"listen_addr"`
	RegistryAPIURL      string `yaml:"registry_api_url"`
	RegistryTimeout     string `yaml:"registry_timeout"`
	LogLevel            string `yaml:"log_level"`
	MaxUploadSizeBytes  int64  `yaml:"max_upload_size_bytes"`
	UploadRatePerMinute int    `yaml:"upload_rate_per_minute"`
	PDFStructureCheck   *bool  `yaml:"pdf_structure_check"`
	NotificationTTL     string `yaml:"notification_ttl"`
	SessionTTL          string `yaml:"session_ttl"`
	SecureCookies       bool   `yaml:"secure_cookies"`
}

var Cfg *AppConfig

// LoadConfig populates Cfg from an optional YAML file, an optional .env file
// and the process environment, in increasing order of precedence.
func LoadConfig(path string) error {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	fc, err := readFileConfig(path)
	if err != nil {
		return err
	}

	log.Println("Loading application configuration...")
	Cfg = build(fc)

	if Cfg.MaxUploadSizeBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_BYTES must be positive, got %d", Cfg.MaxUploadSizeBytes)
	}
	if Cfg.UploadRatePerMinute <= 0 {
		return fmt.Errorf("UPLOAD_RATE_PER_MINUTE must be positive, got %d", Cfg.UploadRatePerMinute)
	}

	log.Printf("Configuration loaded: ListenAddr=%s, LogLevel=%s, RegistryAPIURL=%s",
		Cfg.ListenAddr, Cfg.LogLevel, Cfg.RegistryAPIURL)
	return nil
}

func readFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	log.Printf("Config file %s loaded.", path)
	return fc, nil
}

func build(fc fileConfig) *AppConfig {
	pdfCheck := false
	if fc.PDFStructureCheck != nil {
		pdfCheck = *fc.PDFStructureCheck
	}

	return &AppConfig{
		ListenAddr:      getEnv("LISTEN_ADDR", orDefault(fc.ListenAddr, "0.0.0.0:3000")),
		RegistryAPIURL:  strings.TrimRight(getEnv("REGISTRY_API_URL", orDefault(fc.RegistryAPIURL, "http://localhost:8080")), "/"),
		RegistryTimeout: getEnvAsDuration("REGISTRY_TIMEOUT", parseDurationOr(fc.RegistryTimeout, 0)),
		LogLevel:        getEnv("LOG_LEVEL", orDefault(fc.LogLevel, "info")),

		MaxUploadSizeBytes:  getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", orDefaultInt64(fc.MaxUploadSizeBytes, 10*1024*1024)),
		UploadRatePerMinute: getEnvAsInt("UPLOAD_RATE_PER_MINUTE", orDefaultInt(fc.UploadRatePerMinute, 30)),
		PDFStructureCheck:   getEnvAsBool("PDF_STRUCTURE_CHECK", pdfCheck),

		NotificationTTL: getEnvAsDuration("NOTIFICATION_TTL", parseDurationOr(fc.NotificationTTL, 5*time.Second)),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", parseDurationOr(fc.SessionTTL, 30*time.Minute)),
		SecureCookies:   getEnvAsBool("SECURE_COOKIES", fc.SecureCookies),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orDefaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orDefaultInt64(v, fallback int64) int64 {
	if v == 0 {
		return fallback
	}
	return v
}

func parseDurationOr(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: Invalid duration '%s' in config file. Using default %s. Error: %v", v, fallback, err)
		return fallback
	}
	return d
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	switch strings.ToLower(valueStr) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
