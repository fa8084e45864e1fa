package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	fileName       = "raterc.yaml"
	defaultTimeout = 15 * time.Second
)

type Config struct {
	ServerURL      string        `yaml:"server_url" env:"RATERC_SERVER_URL"`
	DataDir        string        `yaml:"data_dir" env:"RATERC_DATA_DIR"`
	LogLevel       string        `yaml:"log_level" env:"RATERC_LOG_LEVEL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"RATERC_REQUEST_TIMEOUT"`

	DBPath  string `yaml:"-"`
	LogPath string `yaml:"-"`
}

// Options carries command-line overrides. Empty fields leave the value from
// the file or environment in place.
type Options struct {
	ConfigPath string
	DataDir    string
	ServerURL  string
	LogLevel   string
	EnvFile    string

	// DefaultServerURL applies when no other source names a server.
	DefaultServerURL string
}

// New resolves configuration from defaults, the YAML file, a .env file, the
// environment and finally the command-line options, in that order.
func New(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		DataDir:        defaultDataDir(),
		LogLevel:       "info",
		RequestTimeout: defaultTimeout,
	}

	path, explicit := configPath(opts)
	if err := loadFile(path, explicit, &cfg); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.ServerURL != "" {
		cfg.ServerURL = opts.ServerURL
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = opts.DefaultServerURL
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	cfg.DBPath = filepath.Join(cfg.DataDir, "raterc.db")
	cfg.LogPath = filepath.Join(cfg.DataDir, "raterc.log")

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields every command depends on. The server URL is
// checked by the commands that talk to the server.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be > 0")
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func configPath(opts Options) (string, bool) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, true
	}
	dir := opts.DataDir
	if dir == "" {
		dir = os.Getenv("RATERC_DATA_DIR")
	}
	if dir == "" {
		dir = defaultDataDir()
	}
	return filepath.Join(dir, fileName), false
}

func loadFile(path string, required bool, cfg *Config) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(payload, cfg); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "raterc")
	}
	return ".raterc"
}
