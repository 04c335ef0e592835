// Package config loads the tool's configuration: YAML file first, then
// environment overrides, then defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from YAML duration strings
// ("20s", "500ms").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	out, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(out)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	// Provider is "openrouter" (default, any OpenAI-format endpoint) or
	// "gemini".
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

type Config struct {
	// DataDir holds the inbox snapshot and all persisted stores.
	DataDir string `yaml:"data_dir"`

	LLM LLMConfig `yaml:"llm"`

	Workers        int      `yaml:"workers"`
	RequestTimeout Duration `yaml:"request_timeout"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
}

// Load reads the config file at path (missing file is fine), applies
// environment overrides, and fills defaults. An empty path checks
// $INBOX_AGENT_CONFIG and then config.yaml in the working directory.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		path = os.Getenv("INBOX_AGENT_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.loadFromEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && c.LLM.Provider != "gemini" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if c.LLM.Provider == "gemini" {
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
		if v := os.Getenv("GEMINI_MODEL"); v != "" {
			c.LLM.Model = v
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = Duration(d)
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openrouter"
	}
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(20 * time.Second)
	}
}

// Paths to the flat-file stores under DataDir.

func (c *Config) InboxPath() string {
	return filepath.Join(c.DataDir, "mock_inbox.json")
}

func (c *Config) ProcessedPath() string {
	return filepath.Join(c.DataDir, "processed.json")
}

func (c *Config) DraftsPath() string {
	return filepath.Join(c.DataDir, "drafts.json")
}

func (c *Config) PromptsPath() string {
	return filepath.Join(c.DataDir, "prompts.json")
}
