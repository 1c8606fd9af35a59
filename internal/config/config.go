package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はクライアント全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL     string
	UploadsBaseURL string
	APITimeout     time.Duration
	APIRateLimit   float64 // req/sec
	APIRateBurst   int

	// Message
	MessageClearDelay time.Duration

	// Credential
	CredentialFile string

	// Search
	SearchParam string

	// Logging
	LogLevel string

	// Metrics
	MetricsAddr string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return nil, fmt.Errorf("API_BASE_URL must start with http:// or https://: %s", cfg.APIBaseURL)
	}

	// Optional fields with defaults
	cfg.UploadsBaseURL = strings.TrimRight(getEnvString("UPLOADS_BASE_URL", cfg.APIBaseURL+"/uploads"), "/")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)
	cfg.APIRateLimit = getEnvFloat("API_RATE_LIMIT", 10)
	cfg.APIRateBurst = getEnvInt("API_RATE_BURST", 20)
	cfg.MessageClearDelay = getEnvDuration("MESSAGE_CLEAR_DELAY", 2*time.Second)
	cfg.CredentialFile = getEnvString("CREDENTIAL_FILE", defaultCredentialFile())
	cfg.SearchParam = getEnvString("SEARCH_PARAM", "q")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.MetricsAddr = getEnvString("METRICS_ADDR", "")

	return cfg, nil
}

// defaultCredentialFile はホームディレクトリ配下の既定の認証情報ファイルパスを返す。
func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".photoshare", "credentials.json")
	}
	return filepath.Join(home, ".photoshare", "credentials.json")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
