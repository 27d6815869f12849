package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"
)

// SnowflakeConfig holds the optional warehouse connection parameters.
type SnowflakeConfig struct {
	Account   string `json:"account"`
	User      string `json:"user"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Warehouse string `json:"warehouse"`
	Database  string `json:"database"`
}

// Config holds all application configuration loaded from config.json,
// an optional .env file, and the environment.
type Config struct {
	SlackBotToken        string
	AnthropicAPIKey      string
	ClaudeModel          string
	SystemPrompt         string
	ListenAddr           string
	LogLevel             string
	LogFormat            string
	HeaderSwitchInterval time.Duration
	Snowflake            SnowflakeConfig
	PonderDir            string
}

// jsonConfig is an intermediate struct for JSON unmarshalling.
// Pointer types for numerics distinguish "missing" (nil) from "zero".
type jsonConfig struct {
	SlackBotToken    string           `json:"slack_bot_token"`
	AnthropicAPIKey  string           `json:"anthropic_api_key"`
	ClaudeModel      string           `json:"claude_model"`
	SystemPrompt     string           `json:"system_prompt"`
	ListenAddr       string           `json:"listen_addr"`
	LogLevel         string           `json:"log_level"`
	LogFormat        string           `json:"log_format"`
	HeaderSwitchSec  *float64         `json:"header_switch_sec"`
	Snowflake        *SnowflakeConfig `json:"snowflake"`
}

// userHomeDir is a package-level variable to allow overriding in tests.
var userHomeDir = os.UserHomeDir

// readFile is a package-level variable to allow overriding in tests.
var readFile = os.ReadFile

// loadDotenv is a package-level variable to allow overriding in tests.
var loadDotenv = godotenv.Load

// Load reads configuration from ~/.ponder/config.json and returns a Config.
// A missing config file is tolerated; secrets can come entirely from the
// environment or a .env file found by walking up from the working directory.
func Load() (*Config, error) {
	home, err := userHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	ponderDir := filepath.Join(home, ".ponder")
	configPath := filepath.Join(ponderDir, "config.json")

	var jc jsonConfig
	data, err := readFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		standardJSON, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := json.Unmarshal(standardJSON, &jc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if path, err := findDotenv(); err == nil && path != "" {
		// Existing environment variables win over .env entries.
		_ = loadDotenv(path)
	}

	cfg := &Config{
		SlackBotToken:        envDefault("SLACK_BOT_TOKEN", jc.SlackBotToken),
		AnthropicAPIKey:      envDefault("ANTHROPIC_API_KEY", jc.AnthropicAPIKey),
		ClaudeModel:          jc.ClaudeModel,
		SystemPrompt:         jc.SystemPrompt,
		ListenAddr:           stringDefault(jc.ListenAddr, ":8322"),
		LogLevel:             stringDefault(jc.LogLevel, "info"),
		LogFormat:            stringDefault(jc.LogFormat, "text"),
		HeaderSwitchInterval: durationSec(floatPtrDefault(jc.HeaderSwitchSec, 1.0)),
		PonderDir:            ponderDir,
	}

	if jc.Snowflake != nil {
		cfg.Snowflake = *jc.Snowflake
	}
	cfg.Snowflake.Account = envDefault("SNOWFLAKE_ACCOUNT", cfg.Snowflake.Account)
	cfg.Snowflake.User = envDefault("SNOWFLAKE_USER", cfg.Snowflake.User)
	cfg.Snowflake.Password = envDefault("SNOWFLAKE_PASSWORD", cfg.Snowflake.Password)
	cfg.Snowflake.Role = envDefault("SNOWFLAKE_ROLE", cfg.Snowflake.Role)
	cfg.Snowflake.Warehouse = envDefault("SNOWFLAKE_WAREHOUSE", cfg.Snowflake.Warehouse)
	cfg.Snowflake.Database = envDefault("SNOWFLAKE_DATABASE", cfg.Snowflake.Database)

	var missing []string
	if cfg.SlackBotToken == "" {
		missing = append(missing, "slack_bot_token")
	}
	if cfg.AnthropicAPIKey == "" {
		missing = append(missing, "anthropic_api_key")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config fields: %v", missing)
	}

	return cfg, nil
}

// findDotenv walks up from the working directory looking for a .env file.
// It returns "" when none is found.
func findDotenv() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func envDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func stringDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

func floatPtrDefault(val *float64, def float64) float64 {
	if val != nil {
		return *val
	}
	return def
}

func durationSec(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
