// Package config loads the advisor's JSON config file and applies .env and
// environment overrides on top of it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"grant_proposal_advisor/advisor"
)

// DefaultPath is where the CLI looks for the config file when --config is not given.
const DefaultPath = "config/config.json"

// Config holds the advisor settings. Every field is optional in the file.
type Config struct {
	LLM                   LLMConfig `json:"llm"`
	ServerAddr            string    `json:"server_addr,omitempty"`
	QuestionsPath         string    `json:"questions_path,omitempty"`
	MaxDecodeAttempts     int       `json:"max_decode_attempts,omitempty"`
	LogMode               string    `json:"log_mode,omitempty"`
	CORSOrigins           []string  `json:"cors_origins,omitempty"`
	RequestTimeoutSeconds int       `json:"request_timeout_seconds,omitempty"`
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	APIKey      string   `json:"api_key,omitempty"`
	APIKeyEnv   string   `json:"api_key_env,omitempty"`
	BaseURL     string   `json:"base_url,omitempty"`
	APIVersion  string   `json:"api_version,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

const (
	defaultServerAddr     = ":8080"
	defaultLogMode        = "dev"
	defaultRequestTimeout = 120
	defaultTemperature    = 0.0
	defaultAPIKeyEnv      = "OPENAI_API_KEY"
)

// Load reads the JSON file at path, then the .env file in the working
// directory, then environment overrides. A missing file is not an error;
// the result is validated before it is returned.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// LoadDotEnv loads the given .env files (".env" when none are named) into the
// process environment. Missing files are skipped and existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = getEnv("ADVISOR_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("ADVISOR_LLM_MODEL", c.LLM.Model)
	c.ServerAddr = getEnv("ADVISOR_SERVER_ADDR", c.ServerAddr)
	c.MaxDecodeAttempts = getEnvInt("ADVISOR_MAX_DECODE_ATTEMPTS", c.MaxDecodeAttempts)
	if c.LLM.APIKey == "" {
		keyEnv := c.LLM.APIKeyEnv
		if keyEnv == "" {
			keyEnv = defaultAPIKeyEnv
		}
		c.LLM.APIKey = os.Getenv(keyEnv)
	}
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = advisor.ProviderOpenAI
	}
	if c.LLM.Model == "" && c.LLM.Provider != advisor.ProviderAzure {
		c.LLM.Model = advisor.DefaultModel
	}
	if c.LLM.Temperature == nil {
		t := defaultTemperature
		c.LLM.Temperature = &t
	}
	if c.ServerAddr == "" {
		c.ServerAddr = defaultServerAddr
	}
	if c.MaxDecodeAttempts == 0 {
		c.MaxDecodeAttempts = advisor.DefaultMaxAttempts
	}
	if c.LogMode == "" {
		c.LogMode = defaultLogMode
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = defaultRequestTimeout
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case advisor.ProviderOpenAI, advisor.ProviderDeepSeek, advisor.ProviderAzure, advisor.ProviderMock:
	default:
		return fmt.Errorf("llm.provider %q not supported", c.LLM.Provider)
	}
	if c.MaxDecodeAttempts < 1 || c.MaxDecodeAttempts > 10 {
		return fmt.Errorf("max_decode_attempts must be 1-10, got %d", c.MaxDecodeAttempts)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be 0-2, got %g", *t)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative, got %d", c.RequestTimeoutSeconds)
	}
	switch strings.ToLower(c.LogMode) {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("log_mode %q not supported", c.LogMode)
	}
	return nil
}

// LLMSettings converts the file section into the settings the backends take.
func (c Config) LLMSettings() *advisor.LLMSettings {
	s := &advisor.LLMSettings{
		Provider:   c.LLM.Provider,
		Model:      c.LLM.Model,
		APIKey:     c.LLM.APIKey,
		BaseURL:    c.LLM.BaseURL,
		APIVersion: c.LLM.APIVersion,
	}
	if c.LLM.Temperature != nil {
		s.Temperature = *c.LLM.Temperature
	}
	return s
}

// RequestTimeout is the per-request deadline for model-backed HTTP calls.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
