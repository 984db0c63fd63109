// Package config provides configuration loading for the docquiz server.
// A YAML file supplies the base configuration; environment variables
// override individual values so container deployments need no file at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Files      FilesConfig      `yaml:"files"`
	AI         AIConfig         `yaml:"ai"`
	Remote     RemoteConfig     `yaml:"remote"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Processing ProcessingConfig `yaml:"processing"`
	Worker     WorkerConfig     `yaml:"worker"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL                string `yaml:"url"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ConnMaxIdleSec     int    `yaml:"conn_max_idle_sec"`
}

// RedisConfig holds Redis settings. An empty URL disables Redis; the task
// queue and distributed lock then fall back to PostgreSQL.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// FilesConfig holds local file store settings.
type FilesConfig struct {
	RootDir    string `yaml:"root_dir"`
	SignSecret string `yaml:"sign_secret"`
	BaseURL    string `yaml:"base_url"`
}

// AIConfig holds embedding and question-generation provider settings.
type AIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	QuestionModel  string `yaml:"question_model"`
}

// RemoteConfig holds the remote execution venue settings.
type RemoteConfig struct {
	Enabled            bool   `yaml:"enabled"`
	FunctionURL        string `yaml:"function_url"`
	AuthToken          string `yaml:"auth_token"`
	SizeThresholdBytes int64  `yaml:"size_threshold_bytes"`
	TimeoutSec         int    `yaml:"timeout_sec"`
}

// ChunkingConfig holds text splitting settings.
type ChunkingConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
	Overlap      int `yaml:"overlap"`
}

// ProcessingConfig holds pipeline settings.
type ProcessingConfig struct {
	RemoteTimeoutSec int `yaml:"remote_timeout_sec"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	Concurrency       int `yaml:"concurrency"`
	DequeueTimeoutSec int `yaml:"dequeue_timeout_sec"`
}

// Load reads the config file at path (optional), applies defaults, and then
// environment overrides. An empty path yields a pure defaults+env config.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv overlays well-known environment variables onto the config
func applyEnv(cfg *Config) {
	overrideString(&cfg.Server.Host, "HOST")
	overrideInt(&cfg.Server.Port, "PORT")
	overrideString(&cfg.Database.URL, "DATABASE_URL")
	overrideString(&cfg.Redis.URL, "REDIS_URL")
	overrideString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.Files.RootDir, "FILES_ROOT_DIR")
	overrideString(&cfg.Files.SignSecret, "FILES_SIGN_SECRET")
	overrideString(&cfg.Files.BaseURL, "FILES_BASE_URL")
	overrideString(&cfg.AI.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.AI.BaseURL, "OPENAI_BASE_URL")
	overrideString(&cfg.AI.EmbeddingModel, "EMBEDDING_MODEL")
	overrideString(&cfg.AI.QuestionModel, "QUESTION_MODEL")
	overrideBool(&cfg.Remote.Enabled, "REMOTE_ENABLED")
	overrideString(&cfg.Remote.FunctionURL, "REMOTE_FUNCTION_URL")
	overrideString(&cfg.Remote.AuthToken, "REMOTE_AUTH_TOKEN")
	overrideInt64(&cfg.Remote.SizeThresholdBytes, "REMOTE_SIZE_THRESHOLD_BYTES")
	overrideInt(&cfg.Worker.Concurrency, "WORKER_CONCURRENCY")
	overrideInt(&cfg.Worker.DequeueTimeoutSec, "WORKER_DEQUEUE_TIMEOUT")
}

func overrideString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func overrideInt(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*target = n
		}
	}
}

func overrideInt64(target *int64, key string) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = n
		}
	}
}

func overrideBool(target *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value == "true" || value == "1" || value == "yes"
	}
}
