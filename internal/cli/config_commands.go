// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage drivebridge configuration",
		Long: `Configuration management commands.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test drive API connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup.

The configuration is saved to ~/.config/drivebridge/config with 0600
permissions, because it contains the access token.

Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			configPath := cfgFile
			if configPath == "" {
				var err error
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Println("DriveBridge Configuration Setup")
			fmt.Println("===============================")
			fmt.Println()

			reader := bufio.NewReader(os.Stdin)
			cfg := config.New()

			// Access token (required unless the env var carries it)
			fmt.Print("Access token (empty to use DRIVEBRIDGE_TOKEN): ")
			tokenInput, _ := reader.ReadString('\n')
			cfg.AccessToken = strings.TrimSpace(tokenInput)

			fmt.Printf("API base URL [%s]: ", cfg.APIBaseURL)
			urlInput, _ := reader.ReadString('\n')
			if u := strings.TrimSpace(urlInput); u != "" {
				cfg.APIBaseURL = u
			}

			fmt.Println()
			fmt.Println("Download Settings (press Enter for defaults)")
			fmt.Println("--------------------------------------------")

			fmt.Print("Default download folder [prompt each time]: ")
			folderInput, _ := reader.ReadString('\n')
			cfg.Download.DefaultFolder = strings.TrimSpace(folderInput)

			fmt.Printf("Max concurrent transfers [%d]: ", cfg.Download.MaxConcurrent)
			concInput, _ := reader.ReadString('\n')
			if c := strings.TrimSpace(concInput); c != "" {
				if v, err := strconv.Atoi(c); err == nil && v >= 1 && v <= 16 {
					cfg.Download.MaxConcurrent = v
				}
			}

			if err := cfg.Save(configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			logger.Info().Str("path", configPath).Msg("Configuration saved")

			fmt.Println()
			fmt.Printf("✓ Configuration saved to: %s\n", configPath)
			fmt.Println()
			fmt.Println("Test your configuration with: drivebridge config test")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/drivebridge/config)
  2. Environment variables (DRIVEBRIDGE_TOKEN)
  3. Command-line flags (--api-url)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Println("Current Configuration")
			fmt.Println("=====================")
			fmt.Println()

			fmt.Println("Drive Settings:")
			fmt.Printf("  API Base URL:      %s\n", cfg.APIBaseURL)
			fmt.Printf("  Activity Base URL: %s\n", cfg.ActivityBaseURL)
			fmt.Printf("  People Base URL:   %s\n", cfg.PeopleBaseURL)
			if cfg.AccessToken != "" {
				// Never display any portion of the token
				fmt.Printf("  Access Token:      <set (%d chars)>\n", len(cfg.AccessToken))
			} else {
				fmt.Println("  Access Token:      <not set>")
			}
			fmt.Println()

			fmt.Println("Download Settings:")
			if cfg.Download.DefaultFolder != "" {
				fmt.Printf("  Default Folder: %s\n", cfg.Download.DefaultFolder)
			} else {
				fmt.Println("  Default Folder: <prompt each time>")
			}
			fmt.Printf("  Max Concurrent: %d\n", cfg.Download.MaxConcurrent)
			fmt.Println()

			configPath := cfgFile
			if configPath == "" {
				configPath, _ = config.DefaultConfigPath()
			}
			fmt.Printf("Configuration file: %s\n", configPath)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Println("  (file does not exist - using defaults)")
			}

			return nil
		},
	}

	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test drive API connection",
		Long: `Test the drive API connection with the current configuration.

Use this to verify your access token and network connectivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			fmt.Println("Testing Drive API Connection")
			fmt.Println("============================")
			fmt.Println()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			fmt.Printf("API URL: %s\n", cfg.APIBaseURL)
			fmt.Println("Testing connection...")
			fmt.Println()

			apiClient, err := api.NewClient(cfg)
			if err != nil {
				return fmt.Errorf("failed to create API client: %w", err)
			}

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			if err := apiClient.Init(ctx); err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Println("✗ Connection FAILED")
				fmt.Printf("  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}

			logger.Info().Msg("Connection test successful")

			fmt.Println("✓ Connection SUCCESSFUL")
			fmt.Println()
			fmt.Println("Your access token is valid and the connection is working!")

			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cfgFile
			if configPath == "" {
				var err error
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
				fmt.Println("Default configuration path:")
			} else {
				fmt.Println("Configuration path (from --config flag):")
			}

			fmt.Printf("  %s\n", configPath)
			fmt.Println()

			if fileInfo, err := os.Stat(configPath); err == nil {
				fmt.Println("Status: ✓ File exists")
				fmt.Printf("Size:   %d bytes\n", fileInfo.Size())
				fmt.Printf("Modified: %s\n", fileInfo.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("Status: File does not exist")
				fmt.Println()
				fmt.Println("Create a configuration file with: drivebridge config init")
			}

			return nil
		},
	}

	return cmd
}
