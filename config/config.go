// Package config provides configuration loading and management for forumdigest.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete forumdigest configuration
type Config struct {
	Forum  ForumConfig  `yaml:"forum"`
	Store  StoreConfig  `yaml:"store"`
	Model  ModelConfig  `yaml:"model"`
	Digest DigestConfig `yaml:"digest"`
	Output OutputConfig `yaml:"output"`
}

// ForumConfig configures the Discourse forum source
type ForumConfig struct {
	// BaseURL is the forum root (e.g., "https://forum.example.com")
	BaseURL string `yaml:"base_url"`
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig configures the local database
type StoreConfig struct {
	// Path is the SQLite database file path
	Path string `yaml:"path"`
}

// ModelConfig configures the LLM model settings
type ModelConfig struct {
	// Provider selects the backend ("ollama" or "openai")
	Provider string `yaml:"provider"`
	// Name is the model to use (e.g., "qwen2.5:14b")
	Name string `yaml:"name"`
	// Endpoint overrides the provider's default API endpoint
	Endpoint string `yaml:"endpoint"`
	// MaxRetryElapsed caps the total time spent retrying one call
	MaxRetryElapsed time.Duration `yaml:"max_retry_elapsed"`
	// RetryMalformedJSON retries when the model returns unparseable output
	RetryMalformedJSON *bool `yaml:"retry_malformed_json"`
}

// DigestConfig configures the summarization pipeline
type DigestConfig struct {
	// Concurrency bounds how many topics are processed at once
	Concurrency int `yaml:"concurrency"`
	// MaxChunkChars is the character budget for one topic's excerpt
	MaxChunkChars int `yaml:"max_chunk_chars"`
	// PostLimit caps how many posts feed one excerpt
	PostLimit int `yaml:"post_limit"`
	// SummarizeTimeout is the outer ceiling for one summarization call
	SummarizeTimeout time.Duration `yaml:"summarize_timeout"`
}

// OutputConfig configures digest rendering
type OutputConfig struct {
	// Dir is where index.html and rss.xml are written
	Dir string `yaml:"dir"`
	// Title is the digest page and feed title
	Title string `yaml:"title"`
	// Window is how far back rendered digests reach
	Window time.Duration `yaml:"window"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	retryMalformed := true
	return &Config{
		Forum: ForumConfig{
			BaseURL: "",
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: "forumdigest.db",
		},
		Model: ModelConfig{
			Provider:           "ollama",
			Name:               "qwen2.5:14b",
			Endpoint:           "",
			MaxRetryElapsed:    2 * time.Minute,
			RetryMalformedJSON: &retryMalformed,
		},
		Digest: DigestConfig{
			Concurrency:      5,
			MaxChunkChars:    1800,
			PostLimit:        200,
			SummarizeTimeout: 4 * time.Minute,
		},
		Output: OutputConfig{
			Dir:    "public",
			Title:  "Forum Digest",
			Window: 24 * time.Hour,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Forum.BaseURL == "" {
		return fmt.Errorf("forum.base_url is required")
	}
	if u, err := url.Parse(c.Forum.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("forum.base_url must be an absolute URL")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Digest.Concurrency < 1 {
		return fmt.Errorf("digest.concurrency must be at least 1")
	}
	if c.Digest.MaxChunkChars < 1 {
		return fmt.Errorf("digest.max_chunk_chars must be at least 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Forum
	if other.Forum.BaseURL != "" {
		c.Forum.BaseURL = other.Forum.BaseURL
	}
	if other.Forum.Timeout != 0 {
		c.Forum.Timeout = other.Forum.Timeout
	}

	// Store
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	// Model
	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.MaxRetryElapsed != 0 {
		c.Model.MaxRetryElapsed = other.Model.MaxRetryElapsed
	}
	if other.Model.RetryMalformedJSON != nil {
		c.Model.RetryMalformedJSON = other.Model.RetryMalformedJSON
	}

	// Digest
	if other.Digest.Concurrency != 0 {
		c.Digest.Concurrency = other.Digest.Concurrency
	}
	if other.Digest.MaxChunkChars != 0 {
		c.Digest.MaxChunkChars = other.Digest.MaxChunkChars
	}
	if other.Digest.PostLimit != 0 {
		c.Digest.PostLimit = other.Digest.PostLimit
	}
	if other.Digest.SummarizeTimeout != 0 {
		c.Digest.SummarizeTimeout = other.Digest.SummarizeTimeout
	}

	// Output
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.Output.Title != "" {
		c.Output.Title = other.Output.Title
	}
	if other.Output.Window != 0 {
		c.Output.Window = other.Output.Window
	}
}

// RetryMalformed reports whether malformed model output should be retried.
func (c *Config) RetryMalformed() bool {
	if c.Model.RetryMalformedJSON == nil {
		return true
	}
	return *c.Model.RetryMalformedJSON
}
