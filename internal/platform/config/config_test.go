package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"raterc/internal/platform/config"
)

func TestNewDefaultsDeriveStorePaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.New(config.Options{DataDir: dir, EnvFile: filepath.Join(dir, "missing.env")})
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, "raterc.db") || cfg.LogPath != filepath.Join(dir, "raterc.log") {
		t.Fatalf("unexpected derived paths: %+v", cfg)
	}
	if cfg.RequestTimeout != 15*time.Second || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestNewLayersFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := "server_url: http://file.example/\nlog_level: debug\nrequest_timeout: 3s\n"
	if err := os.WriteFile(filepath.Join(dir, "raterc.yaml"), []byte(file), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RATERC_LOG_LEVEL", "warn")

	cfg, err := config.New(config.Options{DataDir: dir, EnvFile: filepath.Join(dir, "missing.env")})
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.ServerURL != "http://file.example" {
		t.Fatalf("expected file server url without trailing slash, got %q", cfg.ServerURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected env to override file log level, got %q", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("expected file timeout 3s, got %s", cfg.RequestTimeout)
	}

	cfg, err = config.New(config.Options{DataDir: dir, ServerURL: "http://flag.example", LogLevel: "error", EnvFile: filepath.Join(dir, "missing.env")})
	if err != nil {
		t.Fatalf("new config with flags: %v", err)
	}
	if cfg.ServerURL != "http://flag.example" || cfg.LogLevel != "error" {
		t.Fatalf("expected flags to win, got %+v", cfg)
	}
}

func TestNewReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("RATERC_SERVER_URL=http://dotenv.example\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("RATERC_SERVER_URL", "")
	os.Unsetenv("RATERC_SERVER_URL")

	cfg, err := config.New(config.Options{DataDir: dir, EnvFile: envFile})
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.ServerURL != "http://dotenv.example" {
		t.Fatalf("expected dotenv server url, got %q", cfg.ServerURL)
	}
}

func TestNewRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.env")

	if _, err := config.New(config.Options{DataDir: dir, LogLevel: "loud", EnvFile: missing}); err == nil || !strings.Contains(err.Error(), "unknown log level") {
		t.Fatalf("expected log level error, got %v", err)
	}
	if _, err := config.New(config.Options{DataDir: dir, ConfigPath: filepath.Join(dir, "nope.yaml"), EnvFile: missing}); err == nil {
		t.Fatalf("expected error for explicit missing config file")
	}

	t.Setenv("RATERC_REQUEST_TIMEOUT", "soon")
	if _, err := config.New(config.Options{DataDir: dir, EnvFile: missing}); err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestDefaultServerURLIsLastResort(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.env")
	t.Setenv("RATERC_SERVER_URL", "")

	cfg, err := config.New(config.Options{DataDir: dir, EnvFile: missing, DefaultServerURL: "https://survey.example"})
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.ServerURL != "https://survey.example" {
		t.Fatalf("expected entry origin as server, got %q", cfg.ServerURL)
	}

	cfg, err = config.New(config.Options{DataDir: dir, EnvFile: missing, ServerURL: "http://flag.example", DefaultServerURL: "https://survey.example"})
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.ServerURL != "http://flag.example" {
		t.Fatalf("expected flag to win over entry origin, got %q", cfg.ServerURL)
	}
}
