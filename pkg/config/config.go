package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the saved-items fetcher. Values are
// passed explicitly into component constructors; nothing reads the
// environment after Load returns.
type Config struct {
	// Reddit OAuth app identity
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// Fetch behavior
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Output artifact settings
	Output OutputConfig `yaml:"output" json:"output"`

	// State file locations
	State StateConfig `yaml:"state" json:"state"`

	// Retry budgets for page fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RedditConfig identifies the OAuth application and account.
type RedditConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri" json:"redirect_uri"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
	Username     string `yaml:"username" json:"username"`
}

// FetchConfig controls pagination and sync mode.
type FetchConfig struct {
	PageSize          int           `yaml:"page_size" json:"page_size"`
	ForceFetch        bool          `yaml:"force_fetch" json:"force_fetch"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	// Interval re-runs the engine periodically when set (scheduler mode).
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// OutputConfig controls the export artifact.
type OutputConfig struct {
	// Format is "json" or "html".
	Format    string `yaml:"format" json:"format"`
	Directory string `yaml:"directory" json:"directory"`
}

// StateConfig locates persisted token and boundary records.
type StateConfig struct {
	TokenFile    string `yaml:"token_file" json:"token_file"`
	BoundaryFile string `yaml:"boundary_file" json:"boundary_file"`
	// TokenBackend selects where the credential record lives:
	// "file", "keyring" or "encrypted".
	TokenBackend string `yaml:"token_backend" json:"token_backend"`
}

// RetryConfig bounds the per-page retry budgets.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with every default stated explicitly.
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent: "RedditFetch/2.0 (saved posts exporter)",
		},
		Fetch: FetchConfig{
			PageSize:          100,
			ForceFetch:        false,
			RequestTimeout:    30 * time.Second,
			RequestsPerMinute: 60,
		},
		Output: OutputConfig{
			Format:    "json",
			Directory: ".",
		},
		State: StateConfig{
			TokenFile:    "tokens.json",
			BoundaryFile: "last_fetch.json",
			TokenBackend: "file",
		},
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelay:   1 * time.Second,
			MaxDelay:    16 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides config values from environment variables. Values
// are whitespace-stripped; stray spaces in copied credentials are the
// single most common setup mistake.
func (c *Config) LoadFromEnv() error {
	if v := strings.TrimSpace(os.Getenv("CLIENT_ID")); v != "" {
		c.Reddit.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIENT_SECRET")); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIRECT_URI")); v != "" {
		c.Reddit.RedirectURI = v
	}
	if v := strings.TrimSpace(os.Getenv("USER_AGENT")); v != "" {
		c.Reddit.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("REDDIT_USERNAME")); v != "" {
		c.Reddit.Username = v
	}

	if v := strings.TrimSpace(os.Getenv("OUTPUT_FORMAT")); v != "" {
		c.Output.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("OUTPUT_DIR")); v != "" {
		c.Output.Directory = v
	}

	if v := strings.TrimSpace(os.Getenv("FORCE_FETCH")); v != "" {
		c.Fetch.ForceFetch = strings.EqualFold(v, "true") || v == "1"
	}
	if v := strings.TrimSpace(os.Getenv("FETCH_INTERVAL")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Fetch.Interval = time.Duration(secs) * time.Second
		}
	}

	if v := strings.TrimSpace(os.Getenv("TOKEN_BACKEND")); v != "" {
		c.State.TokenBackend = strings.ToLower(v)
	}

	// Container deployments mount /data for all persisted state.
	if os.Getenv("DOCKER") == "1" {
		c.State.TokenFile = "/data/tokens.json"
		c.State.BoundaryFile = "/data/last_fetch.json"
		if c.Output.Directory == "." {
			c.Output.Directory = "/data"
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path means
// "search the default locations"; a missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (c *Config) findConfigFile() string {
	locations := []string{
		".redditfetch.yaml",
		".redditfetch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "redditfetch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".redditfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks the configuration for the mistakes that produce opaque
// 401s from Reddit later.
func (c *Config) Validate() error {
	var errs []error

	if c.Reddit.ClientID == "" {
		errs = append(errs, errors.New("client ID is required (CLIENT_ID)"))
	} else if strings.ContainsAny(c.Reddit.ClientID, " \t") {
		errs = append(errs, errors.New("client ID contains whitespace"))
	}
	if c.Reddit.ClientSecret == "" {
		errs = append(errs, errors.New("client secret is required (CLIENT_SECRET)"))
	} else if strings.ContainsAny(c.Reddit.ClientSecret, " \t") {
		errs = append(errs, errors.New("client secret contains whitespace"))
	}
	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required (USER_AGENT)"))
	}
	if c.Reddit.Username == "" {
		errs = append(errs, errors.New("reddit username is required (REDDIT_USERNAME)"))
	}

	if c.Output.Format != "json" && c.Output.Format != "html" {
		errs = append(errs, fmt.Errorf("output format must be json or html, got %q", c.Output.Format))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Fetch.PageSize <= 0 || c.Fetch.PageSize > 100 {
		errs = append(errs, errors.New("page size must be between 1 and 100"))
	}
	if c.Fetch.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}

	switch c.State.TokenBackend {
	case "file", "keyring", "encrypted":
	default:
		errs = append(errs, fmt.Errorf("token backend must be file, keyring or encrypted, got %q", c.State.TokenBackend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeFlags merges command line flag values into the configuration.
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Output.Format = strings.ToLower(v)
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["force"].(bool); ok && v {
		c.Fetch.ForceFetch = true
	}
	if v, ok := flags["interval"].(time.Duration); ok && v > 0 {
		c.Fetch.Interval = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["token-backend"].(string); ok && v != "" {
		c.State.TokenBackend = strings.ToLower(v)
	}
}

// Load builds the configuration from all sources with the precedence
// flags > environment > .env file > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".redditfetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
