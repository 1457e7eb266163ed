package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// WeChat official-account configuration
	WeChat WeChatConfig

	// OpenAI configuration
	OpenAI OpenAIConfig

	// Store configuration
	Store StoreConfig

	// HTTP server configuration
	Server ServerConfig

	// Conversation context and delivery tuning
	Pipeline PipelineConfig

	// Debug mode
	Debug bool
}

// WeChatConfig contains WeChat configuration
type WeChatConfig struct {
	AppID     string
	AppSecret string
	// RefreshSpec is the cron spec for access-token refresh. The platform
	// token lives ~2 hours, so the default refreshes well under that.
	RefreshSpec string
}

// OpenAIConfig contains OpenAI configuration
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	EnableImage bool
}

// StoreConfig contains persistence configuration
type StoreConfig struct {
	DBPath string
}

// ServerConfig contains webhook server configuration
type ServerConfig struct {
	Addr string
}

// PipelineConfig contains reply-pipeline tuning
type PipelineConfig struct {
	HistoryWindow time.Duration // recency window for context turns
	HistoryLimit  int           // max context turns within the window
	WatchdogDelay time.Duration // slow-call notice delay
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".wechat-gpt-bridge", "bridge.db")
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	refreshSpec := os.Getenv("TOKEN_REFRESH_SPEC")
	if refreshSpec == "" {
		refreshSpec = "@every 90m"
	}

	historyWindowSec := 180
	if val := os.Getenv("HISTORY_WINDOW_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			historyWindowSec = parsed
		}
	}

	historyLimit := 6
	if val := os.Getenv("HISTORY_LIMIT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			historyLimit = parsed
		}
	}

	watchdogSec := 30
	if val := os.Getenv("WATCHDOG_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			watchdogSec = parsed
		}
	}

	temperature := float32(1.0)
	if val := os.Getenv("OPENAI_TEMPERATURE"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 32); err == nil {
			temperature = float32(parsed)
		}
	}

	return &Config{
		WeChat: WeChatConfig{
			AppID:       os.Getenv("WECHAT_APP_ID"),
			AppSecret:   os.Getenv("WECHAT_APP_SECRET"),
			RefreshSpec: refreshSpec,
		},
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Model:       os.Getenv("OPENAI_MODEL"),
			Temperature: temperature,
			EnableImage: os.Getenv("DISABLE_IMAGE_COMMAND") != "true",
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		Server: ServerConfig{
			Addr: addr,
		},
		Pipeline: PipelineConfig{
			HistoryWindow: time.Duration(historyWindowSec) * time.Second,
			HistoryLimit:  historyLimit,
			WatchdogDelay: time.Duration(watchdogSec) * time.Second,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WeChat.AppID == "" || c.WeChat.AppSecret == "" {
		return &ConfigError{Field: "WECHAT_APP_ID/WECHAT_APP_SECRET", Message: "required"}
	}
	if c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
