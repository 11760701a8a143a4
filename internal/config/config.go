// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/antflydb/tinyfinder/internal/logging"
)

// Config holds every environment-derived setting for the search service.
type Config struct {
	DataDir     string
	Port        int
	MetricsPort int

	APITokens   []string
	CORSOrigins []string

	LogStyle logging.Style
	LogLevel logging.Level

	MistralAPIKey  string
	MistralBaseURL string
	MistralModel   string
}

// Load reads Config from the process environment, applying the defaults
// documented for each variable.
func Load() Config {
	c := Config{
		DataDir:        getEnv("DATA_DIR", "./data"),
		Port:           getEnvInt("PORT", 3000),
		MetricsPort:    getEnvInt("METRICS_PORT", 9090),
		LogStyle:       logging.Style(getEnv("LOG_STYLE", string(logging.StyleTerminal))),
		LogLevel:       logging.Level(getEnv("LOG_LEVEL", "info")),
		MistralAPIKey:  os.Getenv("MISTRAL_API_KEY"),
		MistralBaseURL: getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
		MistralModel:   getEnv("MISTRAL_MODEL", "mistral-large-latest"),
	}
	c.APITokens = splitCSV(os.Getenv("API_TOKENS"))
	c.CORSOrigins = splitCSV(os.Getenv("CORS_ORIGINS"))
	return c
}

// GenerativeAnswersEnabled reports whether a chat-completion provider is configured.
func (c Config) GenerativeAnswersEnabled() bool {
	return strings.TrimSpace(c.MistralAPIKey) != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
