package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Groq    GroqConfig    `yaml:"groq"`
	Worker  WorkerConfig  `yaml:"worker"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	UploadDir string `yaml:"upload_dir"`
	WatchDir  string `yaml:"watch_dir"` // empty disables the watch-folder intake
}

type GroqConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	TranscribeModel string        `yaml:"transcribe_model"`
	ChatModel       string        `yaml:"chat_model"`
	Timeout         time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	Count      int           `yaml:"count"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads an optional YAML file and then applies environment overrides.
// Environment variables always win so deployments can keep one file and
// override per instance.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Server.Addr = getEnv("ADDR", cfg.Server.Addr)
	cfg.Storage.DBPath = getEnv("DB_PATH", cfg.Storage.DBPath)
	cfg.Storage.UploadDir = getEnv("UPLOAD_DIR", cfg.Storage.UploadDir)
	cfg.Storage.WatchDir = getEnv("WATCH_DIR", cfg.Storage.WatchDir)
	cfg.Groq.APIKey = getEnv("GROQ_API_KEY", cfg.Groq.APIKey)
	cfg.Groq.BaseURL = getEnv("GROQ_BASE_URL", cfg.Groq.BaseURL)
	cfg.Groq.TranscribeModel = getEnv("TRANSCRIBE_MODEL", cfg.Groq.TranscribeModel)
	cfg.Groq.ChatModel = getEnv("CHAT_MODEL", cfg.Groq.ChatModel)
	cfg.Groq.Timeout = getEnvAsDuration("GROQ_TIMEOUT", cfg.Groq.Timeout)
	cfg.Worker.Count = getEnvAsInt("WORKERS", cfg.Worker.Count)
	cfg.Worker.JobTimeout = getEnvAsDuration("JOB_TIMEOUT", cfg.Worker.JobTimeout)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and fills defaults for the rest.
func (c *Config) Validate() error {
	if c.Groq.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "clearminutes.db"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "uploads"
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Groq.TranscribeModel == "" {
		c.Groq.TranscribeModel = "whisper-large-v3"
	}
	if c.Groq.ChatModel == "" {
		c.Groq.ChatModel = "llama-3.3-70b-versatile"
	}
	if c.Groq.Timeout <= 0 {
		c.Groq.Timeout = 5 * time.Minute
	}
	if c.Worker.Count <= 0 {
		c.Worker.Count = 2
	}
	if c.Worker.JobTimeout <= 0 {
		c.Worker.JobTimeout = 30 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
