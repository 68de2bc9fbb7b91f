package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	LLM      LLMConfig      `json:"llm"`
	Server   ServerConfig   `json:"server"`
	Pipeline PipelineConfig `json:"pipeline"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig represents the MySQL store configuration
type DatabaseConfig struct {
	Host            string `json:"host"               env:"DB_HOST"               envDefault:"127.0.0.1"`
	Port            int    `json:"port"               env:"DB_PORT"               envDefault:"3306"`
	User            string `json:"user"               env:"DB_USER"               envDefault:"chartquery"`
	Password        string `json:"password"           env:"DB_PASSWORD"           envDefault:""`
	Name            string `json:"name"               env:"DB_NAME"               envDefault:"olympics"`
	MaxConnections  int    `json:"max_connections"    env:"DB_MAX_CONNECTIONS"    envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME"  envDefault:"30m"`
	QueryTimeout    string `json:"query_timeout"      env:"DB_QUERY_TIMEOUT"      envDefault:"30s"`
}

// DSN builds a go-sql-driver/mysql connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// LLMConfig represents the LLM provider configuration
type LLMConfig struct {
	Provider    string  `json:"provider"    env:"LLM_PROVIDER"    envDefault:"openai"` // openai, anthropic, ollama
	Model       string  `json:"model"       env:"LLM_MODEL"       envDefault:"gpt-4o-mini"`
	APIKey      string  `json:"api_key"     env:"LLM_API_KEY"     envDefault:""`
	BaseURL     string  `json:"base_url"    env:"LLM_BASE_URL"    envDefault:""`
	Temperature float64 `json:"temperature" env:"LLM_TEMPERATURE" envDefault:"0.1"`
	MaxTokens   int     `json:"max_tokens"  env:"LLM_MAX_TOKENS"  envDefault:"2000"`
	Timeout     string  `json:"timeout"     env:"LLM_TIMEOUT"     envDefault:"60s"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host           string   `json:"host"            env:"SERVER_HOST"            envDefault:"0.0.0.0"`
	Port           int      `json:"port"            env:"SERVER_PORT"            envDefault:"8080"`
	AllowedOrigins []string `json:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ReadTimeout    string   `json:"read_timeout"    env:"SERVER_READ_TIMEOUT"    envDefault:"15s"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PipelineConfig represents policy knobs for the query pipeline. The retry
// budget and acceptance threshold are configurable policy, not derived values.
type PipelineConfig struct {
	MaxRetries          int    `json:"max_retries"          env:"PIPELINE_MAX_RETRIES"          envDefault:"2"`
	ConfidenceThreshold int    `json:"confidence_threshold" env:"PIPELINE_CONFIDENCE_THRESHOLD" envDefault:"70"`
	SampleLimit         int    `json:"sample_limit"         env:"PIPELINE_SAMPLE_LIMIT"         envDefault:"10"`
	PreviewRows         int    `json:"preview_rows"         env:"PIPELINE_PREVIEW_ROWS"         envDefault:"10"`
	DefaultTable        string `json:"default_table"        env:"PIPELINE_DEFAULT_TABLE"        envDefault:"olympic_medalists"`
	EnableRefinement    bool   `json:"enable_refinement"    env:"PIPELINE_ENABLE_REFINEMENT"    envDefault:"true"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:""`       // log file path when output is file
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	// Start with empty configuration (defaults will be set by env.Parse)
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "CHARTQUERY_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into a temporary struct to merge with defaults
	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Merge file config with defaults
	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "host":
			if str, ok := value.(string); ok && str != "" {
				config.Server.Host = str
			}
		case "port":
			if p, ok := value.(int); ok && p != 0 {
				config.Server.Port = p
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "db-name":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Name = str
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Provider = str
			}
		case "model":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Model = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := 0; i < s.NumField(); i++ {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	// Validate log format
	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	// Validate log output
	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	// Validate LLM provider
	validProviders := map[string]bool{
		"openai": true, "anthropic": true, "ollama": true, "local": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid LLM provider: %s (must be openai, anthropic, ollama, or local)",
			config.LLM.Provider,
		)
	}

	// Validate timeout durations
	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid LLM timeout: %s", config.LLM.Timeout)
	}

	// Validate numeric values
	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", config.Server.Port)
	}

	if config.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline max retries must not be negative: %d", config.Pipeline.MaxRetries)
	}

	if config.Pipeline.ConfidenceThreshold < 0 || config.Pipeline.ConfidenceThreshold > 100 {
		return fmt.Errorf(
			"pipeline confidence threshold must be 0-100: %d",
			config.Pipeline.ConfidenceThreshold,
		)
	}

	if config.Pipeline.DefaultTable == "" {
		return fmt.Errorf("pipeline default table must not be empty")
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	// Check for custom config path from environment
	if configPath := os.Getenv("CHARTQUERY_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "chartquery", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}
