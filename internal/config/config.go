// Package config provides configuration management for drivebridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/ini.v1"
)

// Config holds the connection settings and download tunables.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\drivebridge\config
//   - Unix: ~/.config/drivebridge/config
//
// INI format:
//
//	[drive]
//	api_base_url = https://www.googleapis.com/drive/v3
//	activity_base_url = https://driveactivity.googleapis.com/v2
//	people_base_url = https://people.googleapis.com/v1
//	access_token = <oauth-bearer-token>
//
//	[download]
//	default_folder = /home/user/Downloads
//	max_concurrent = 3
type Config struct {
	// Drive connection settings
	APIBaseURL      string `ini:"api_base_url"`
	ActivityBaseURL string `ini:"activity_base_url"`
	PeopleBaseURL   string `ini:"people_base_url"`

	// AccessToken is the OAuth bearer token, stored opaquely. Token
	// acquisition and refresh live outside this tool; the DRIVEBRIDGE_TOKEN
	// environment variable overrides the file value.
	AccessToken string `ini:"access_token"`

	Download DownloadConfig
}

// DownloadConfig contains settings for the bulk download engine.
type DownloadConfig struct {
	// DefaultFolder is the directory downloads go to when a request does
	// not name one and the prompt is skipped. Empty means "always prompt".
	DefaultFolder string `ini:"default_folder"`

	// MaxConcurrent bounds simultaneous leaf transfers.
	// Minimum: 1, Maximum: 16, Default: 3
	MaxConcurrent int `ini:"max_concurrent"`
}

// Validation errors
var (
	ErrMissingAccessToken = errors.New("access_token is required (or set DRIVEBRIDGE_TOKEN)")
	ErrInvalidConcurrency = errors.New("max_concurrent must be between 1 and 16")
	ErrMissingAPIBaseURL  = errors.New("api_base_url is required")
)

// DefaultConfigPath returns the default path for the config file.
//   - Windows: %USERPROFILE%\.config\drivebridge\config
//   - Unix: ~/.config/drivebridge/config
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "drivebridge")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "drivebridge")
	}

	return filepath.Join(configDir, "config"), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		APIBaseURL:      "https://www.googleapis.com/drive/v3",
		ActivityBaseURL: "https://driveactivity.googleapis.com/v2",
		PeopleBaseURL:   "https://people.googleapis.com/v1",
		Download: DownloadConfig{
			MaxConcurrent: 3,
		},
	}
}

// Load loads configuration from an INI file.
// If path is empty, the default location is used. A missing file returns
// defaults with no error; an unreadable or invalid file returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine the path
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := file.Section("drive").MapTo(cfg); err != nil {
		return nil, fmt.Errorf("failed to map [drive] section: %w", err)
	}
	if err := file.Section("download").MapTo(&cfg.Download); err != nil {
		return nil, fmt.Errorf("failed to map [download] section: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the configuration to an INI file, creating parent directories
// as needed. The file is written with 0600 permissions because it contains
// the access token.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file := ini.Empty()
	if err := file.Section("drive").ReflectFrom(c); err != nil {
		return fmt.Errorf("failed to build [drive] section: %w", err)
	}
	if err := file.Section("download").ReflectFrom(&c.Download); err != nil {
		return fmt.Errorf("failed to build [download] section: %w", err)
	}

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}

// Validate checks that the configuration is usable for API access.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if c.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.Download.MaxConcurrent < 1 || c.Download.MaxConcurrent > 16 {
		return ErrInvalidConcurrency
	}
	return nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if token := os.Getenv("DRIVEBRIDGE_TOKEN"); token != "" {
		c.AccessToken = token
	}
	if c.Download.MaxConcurrent == 0 {
		c.Download.MaxConcurrent = 3
	}
}
