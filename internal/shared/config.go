package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Browser   BrowserConfig   `toml:"browser"`
	Capture   CaptureConfig   `toml:"capture"`
	Identity  IdentityConfig  `toml:"identity"`
	Tabs      TabsConfig      `toml:"tabs"`
	Operation OperationConfig `toml:"operation"`
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig contains HTTP server settings for the UI bridge.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL returns the http URL clients use to reach the daemon.
func (s ServerConfig) BaseURL() string {
	return "http://" + s.Addr()
}

// BrowserConfig contains Chromium DevTools connection settings.
type BrowserConfig struct {
	CDPURL     string `toml:"cdp_url"`
	TabFilter  string `toml:"tab_filter"`
	Binary     string `toml:"binary"`
	ProfileDir string `toml:"profile_dir"`
	StartURL   string `toml:"start_url"`
}

// CaptureConfig lists the request patterns observed for credential headers.
type CaptureConfig struct {
	Patterns            []string `toml:"patterns"`
	AuthorizationHeader string   `toml:"authorization_header"`
	ClientTokenHeader   string   `toml:"client_token_header"`
}

// IdentityConfig selects and configures the identity resolution strategy.
type IdentityConfig struct {
	Strategy       string `toml:"strategy"`
	Endpoint       string `toml:"endpoint"`
	ProfilePattern string `toml:"profile_pattern"`
	URIPath        string `toml:"uri_path"`
	IDPath         string `toml:"id_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TabsConfig contains the playlist URL prefix and the page rule that enables the start action.
type TabsConfig struct {
	PlaylistPrefix   string `toml:"playlist_prefix"`
	RuleHostSuffix   string `toml:"rule_host_suffix"`
	RulePathContains string `toml:"rule_path_contains"`
}

// OperationConfig selects the external playlist operation.
type OperationConfig struct {
	Kind           string   `toml:"kind"`
	APIURL         string   `toml:"api_url"`
	TargetSize     int      `toml:"target_size"`
	TracksPerAlbum int      `toml:"tracks_per_album"`
	RateLimit      float64  `toml:"rate_limit"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values the daemon cannot run without.
func (c *Config) Validate() error {
	switch c.Identity.Strategy {
	case "replay", "spoof":
	default:
		return fmt.Errorf("%w: identity.strategy must be replay or spoof, got %q", ErrInvalidConfig, c.Identity.Strategy)
	}
	switch c.Operation.Kind {
	case "fill":
	case "exec":
		if c.Operation.Command == "" {
			return fmt.Errorf("%w: operation.command is required for kind exec", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: operation.kind must be fill or exec, got %q", ErrInvalidConfig, c.Operation.Kind)
	}
	if len(c.Capture.Patterns) == 0 {
		return fmt.Errorf("%w: capture.patterns is empty", ErrInvalidConfig)
	}
	if c.Tabs.PlaylistPrefix == "" {
		return fmt.Errorf("%w: tabs.playlist_prefix is empty", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv loads an optional .env file and overrides config values from SPOTFILL_* variables.
func ApplyEnv(c *Config, files ...string) {
	// a missing .env is the common case
	_ = godotenv.Load(files...)

	c.Browser.CDPURL = getEnvOrDefault("SPOTFILL_CDP_URL", c.Browser.CDPURL)
	c.Browser.TabFilter = getEnvOrDefault("SPOTFILL_TAB_FILTER", c.Browser.TabFilter)
	c.Identity.Strategy = strings.ToLower(getEnvOrDefault("SPOTFILL_IDENTITY_STRATEGY", c.Identity.Strategy))
	c.Operation.Kind = strings.ToLower(getEnvOrDefault("SPOTFILL_OPERATION", c.Operation.Kind))
	c.Operation.Command = getEnvOrDefault("SPOTFILL_OPERATION_COMMAND", c.Operation.Command)
	c.Server.Host = getEnvOrDefault("SPOTFILL_HOST", c.Server.Host)
	c.Server.Port = getEnvIntOrDefault("SPOTFILL_PORT", c.Server.Port)
	c.Database.Path = getEnvOrDefault("SPOTFILL_DB", c.Database.Path)
	c.Log.Level = getEnvOrDefault("SPOTFILL_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvOrDefault("SPOTFILL_LOG_FILE", c.Log.File)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
