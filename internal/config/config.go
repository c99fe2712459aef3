package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	defaultStorage = "."
	defaultHost    = "localhost"
	defaultPort    = 8080
)

// Config holds the settings shared by every command. Flags override these values.
type Config struct {
	Storage       string
	Host          string
	Port          int
	Debug         bool
	FrontMatter   bool
	GithubRepo    string
	GithubToken   string
	Mirror        string
	WebhookSecret string
}

// Load reads the configuration from the environment, falling back to defaults
func Load() *Config {
	return &Config{
		Storage:       getEnv("COMMOTION_STORAGE", defaultStorage),
		Host:          getEnv("COMMOTION_HOST", defaultHost),
		Port:          getEnvInt("COMMOTION_PORT", defaultPort),
		Debug:         getEnvBool("COMMOTION_DEBUG", false),
		FrontMatter:   getEnvBool("COMMOTION_FRONTMATTER", false),
		GithubRepo:    os.Getenv("COMMOTION_GITHUB_REPO"),
		GithubToken:   os.Getenv("GITHUB_TOKEN"),
		Mirror:        os.Getenv("SQLITE_DB_PATH"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
	}
}

func getEnv(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid integer")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid boolean")
		return fallback
	}
	return b
}
