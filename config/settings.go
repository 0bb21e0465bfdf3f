// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	Server       ServerConfig
	LLM          LLMConfig
	Title        TitleConfig
	Chat         ChatConfig
	Storage      StorageConfig
	Auth         AuthConfig
	Tasks        TasksConfig
	RemoteConfig RemoteConfigConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string
}

// LLMConfig holds the chat model provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64

	// Project/Location select the Vertex AI backend for Gemini.
	Project  string
	Location string
}

// TitleConfig holds the title-generation provider configuration.
type TitleConfig struct {
	Provider    string
	Model       string
	MaxAttempts int
}

// ChatConfig holds conversation engine configuration.
type ChatConfig struct {
	MaxTurns                int
	TrimIntrospection       bool
	CiteQueries             bool
	PrefixSystemInstruction bool
}

// StorageConfig selects the transcript backend and object-store roots.
type StorageConfig struct {
	// Backend is one of "memory", "sqlite", "blob".
	Backend string
	// SqlitePath is the transcript database path for the sqlite backend.
	SqlitePath string
	// BucketURL roots the object store (transcripts for the blob
	// backend, plus images and prompts), e.g. "gs://my-bucket".
	BucketURL string
	// DatamartPath is the SQLite database the data tool queries.
	DatamartPath string
}

// AuthConfig holds token verification configuration.
type AuthConfig struct {
	Secret string
}

// TasksConfig holds async task dispatch configuration.
type TasksConfig struct {
	// BaseURL targets the service's own task endpoints; empty defaults
	// to the local server address.
	BaseURL     string
	MaxAttempts int
}

// RemoteConfigConfig holds the remote configuration endpoint settings.
type RemoteConfigConfig struct {
	URL string
	TTL time.Duration
}

// New loads settings from environment variables.
// Returns an error if a variable contains an invalid value.
func New() (Settings, error) {
	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.2)
	if err != nil {
		return Settings{}, err
	}
	titleAttempts, err := getEnvInt("TITLE_MAX_ATTEMPTS", 3)
	if err != nil {
		return Settings{}, err
	}
	maxTurns, err := getEnvInt("CHAT_MAX_TURNS", 10)
	if err != nil {
		return Settings{}, err
	}
	trimIntrospection, err := getEnvBool("CHAT_TRIM_INTROSPECTION", true)
	if err != nil {
		return Settings{}, err
	}
	citeQueries, err := getEnvBool("CHAT_CITE_QUERIES", false)
	if err != nil {
		return Settings{}, err
	}
	prefixSystem, err := getEnvBool("CHAT_PREFIX_SYSTEM_INSTRUCTION", false)
	if err != nil {
		return Settings{}, err
	}
	taskAttempts, err := getEnvInt("TASKS_MAX_ATTEMPTS", 3)
	if err != nil {
		return Settings{}, err
	}
	configTTL, err := getEnvDuration("REMOTE_CONFIG_TTL", time.Hour)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", "127.0.0.1:8080"),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "gemini"),
			Model:       getEnv("LLM_MODEL", "gemini-2.5-flash"),
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Project:     os.Getenv("GOOGLE_CLOUD_PROJECT"),
			Location:    getEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),
		},
		Title: TitleConfig{
			Provider:    getEnv("TITLE_PROVIDER", "anthropic"),
			Model:       getEnv("TITLE_MODEL", "claude-sonnet-4-20250514"),
			MaxAttempts: titleAttempts,
		},
		Chat: ChatConfig{
			MaxTurns:                maxTurns,
			TrimIntrospection:       trimIntrospection,
			CiteQueries:             citeQueries,
			PrefixSystemInstruction: prefixSystem,
		},
		Storage: StorageConfig{
			Backend:      getEnv("STORAGE_BACKEND", "blob"),
			SqlitePath:   getEnv("SQLITE_PATH", "data/transcripts.db"),
			BucketURL:    os.Getenv("BUCKET_URL"),
			DatamartPath: getEnv("DATAMART_PATH", "data/datamart.db"),
		},
		Auth: AuthConfig{
			Secret: os.Getenv("AUTH_SECRET"),
		},
		Tasks: TasksConfig{
			BaseURL:     os.Getenv("TASKS_BASE_URL"),
			MaxAttempts: taskAttempts,
		},
		RemoteConfig: RemoteConfigConfig{
			URL: os.Getenv("REMOTE_CONFIG_URL"),
			TTL: configTTL,
		},
	}, nil
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
