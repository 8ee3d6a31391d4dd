package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration loaded from an optional YAML file and
// environment variables.
type Config struct {
	Port             string        `yaml:"port"`
	UploadDir        string        `yaml:"upload_dir"`
	OpenAIKey        string        `yaml:"openai_api_key"`
	OpenAIEndpoint   string        `yaml:"openai_api_endpoint"`
	OpenAIModel      string        `yaml:"openai_model"`
	AITimeout        time.Duration `yaml:"ai_timeout"`
	AIMaxTokens      int           `yaml:"ai_max_tokens"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
	AnalyticsBackend string        `yaml:"analytics_backend"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:             "8080",
		UploadDir:        "./uploads",
		OpenAIEndpoint:   "https://api.openai.com/v1",
		OpenAIModel:      "gpt-4o-mini",
		AITimeout:        60 * time.Second,
		AIMaxTokens:      300,
		MaxUploadBytes:   16 << 20,
		AnalyticsBackend: "memory",
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Load reads configuration: defaults, then the YAML file named by
// STUDYAI_CONFIG, then the environment (a .env file is loaded first if present).
func Load() (Config, error) {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("STUDYAI_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure upload dir %s: %w", cfg.UploadDir, err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.OpenAIEndpoint = getEnv("OPENAI_API_ENDPOINT", c.OpenAIEndpoint)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.AnalyticsBackend = getEnv("ANALYTICS_BACKEND", c.AnalyticsBackend)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	if raw := getEnv("AI_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse AI_TIMEOUT: %w", err)
		}
		c.AITimeout = d
	}
	if raw := getEnv("AI_MAX_TOKENS", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse AI_MAX_TOKENS: %w", err)
		}
		c.AIMaxTokens = n
	}
	if raw := getEnv("MAX_UPLOAD_BYTES", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload dir must not be empty")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("ai timeout must be positive, got %s", c.AITimeout)
	}
	if c.AIMaxTokens <= 0 {
		return fmt.Errorf("ai max tokens must be positive, got %d", c.AIMaxTokens)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	switch c.AnalyticsBackend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown analytics backend %q", c.AnalyticsBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
