// Package cli provides API client helper functions.
package cli

import (
	"context"
	"fmt"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/config"
)

// loadConfig loads the configuration and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if apiBaseURL != "" {
		cfg.APIBaseURL = apiBaseURL
	}
	return cfg, nil
}

// getAPIClient loads configuration and creates an initialized API client.
// This is the standard way to get an API client in CLI commands.
func getAPIClient(ctx context.Context) (*api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	if err := client.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to drive API: %w", err)
	}

	return client, nil
}
