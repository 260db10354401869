package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// StateDirName is the per-project state directory under the indexed root
const StateDirName = ".devchat"

// Config represents the complete devchat configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Root    string `json:"root" mapstructure:"root"`

	Languages LanguagesConfig `json:"languages" mapstructure:"languages"`
	Scan      ScanConfig      `json:"scan" mapstructure:"scan"`
	Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
	Impact    ImpactConfig    `json:"impact" mapstructure:"impact"`
	Vector    VectorConfig    `json:"vector" mapstructure:"vector"`
	Index     IndexConfig     `json:"index" mapstructure:"index"`
	Server    ServerConfig    `json:"server" mapstructure:"server"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// LanguagesConfig selects which language parsers are active
type LanguagesConfig struct {
	Enabled          []string `json:"enabled" mapstructure:"enabled"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// ScanConfig controls the file walker
type ScanConfig struct {
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
	RespectGitignore bool     `json:"respectGitignore" mapstructure:"respectGitignore"`
}

// WatchConfig controls the filesystem watcher
type WatchConfig struct {
	Enabled         bool   `json:"enabled" mapstructure:"enabled"`
	DebounceMs      int    `json:"debounceMs" mapstructure:"debounceMs"`
	QueueSize       int    `json:"queueSize" mapstructure:"queueSize"`
	RefreshInterval string `json:"refreshInterval" mapstructure:"refreshInterval"`
}

// ImpactConfig bounds impact traversal
type ImpactConfig struct {
	MaxVisited int `json:"maxVisited" mapstructure:"maxVisited"`
}

// VectorConfig controls the embedding backend and semantic search
type VectorConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint   string `json:"endpoint" mapstructure:"endpoint"`
	Model      string `json:"model" mapstructure:"model"`
	APIKeyEnv  string `json:"apiKeyEnv" mapstructure:"apiKeyEnv"`
	Dimensions int    `json:"dimensions" mapstructure:"dimensions"`
	TopK       int    `json:"topK" mapstructure:"topK"`
}

// IndexConfig controls indexing behavior
type IndexConfig struct {
	DegradedThreshold float64 `json:"degradedThreshold" mapstructure:"degradedThreshold"`
	Persist           bool    `json:"persist" mapstructure:"persist"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Root:    ".",
		Languages: LanguagesConfig{
			Enabled:          []string{"python", "go", "javascript", "typescript"},
			MaxFileSizeBytes: 1000000,
		},
		Scan: ScanConfig{
			Ignore: []string{
				".git", ".devchat", "node_modules", "__pycache__",
				"venv", ".venv", "dist", "build", "vendor",
			},
			RespectGitignore: true,
		},
		Watch: WatchConfig{
			Enabled:         true,
			DebounceMs:      500,
			QueueSize:       1000,
			RefreshInterval: "",
		},
		Impact: ImpactConfig{
			MaxVisited: 5000,
		},
		Vector: VectorConfig{
			Enabled:    true,
			Endpoint:   "",
			Model:      "nomic-embed-text",
			APIKeyEnv:  "DEVCHAT_EMBED_API_KEY",
			Dimensions: 256,
			TopK:       5,
		},
		Index: IndexConfig{
			DegradedThreshold: 0.5,
			Persist:           true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8450",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.devchat/config.json
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("root", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, StateDirName))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigFile loads configuration from an explicit file path.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <root>/.devchat/config.json
func (c *Config) Save(root string) error {
	stateDir := filepath.Join(root, StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(stateDir, "config.json"), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Watch.QueueSize <= 0 {
		return &ConfigError{Field: "watch.queueSize", Message: "must be positive"}
	}
	if c.Impact.MaxVisited <= 0 {
		return &ConfigError{Field: "impact.maxVisited", Message: "must be positive"}
	}
	if c.Index.DegradedThreshold <= 0 || c.Index.DegradedThreshold > 1 {
		return &ConfigError{Field: "index.degradedThreshold", Message: "must be in (0, 1]"}
	}
	if c.Vector.Dimensions <= 0 {
		return &ConfigError{Field: "vector.dimensions", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
