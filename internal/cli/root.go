// Package cli provides the command-line interface for drivebridge.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/logging"
)

var (
	// Global flags
	cfgFile    string
	apiBaseURL string
	verbose    bool
	debug      bool
	jsonLogs   bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by main package at startup
// The actual version is defined in:
// 1. Makefile (source of truth for releases, injected via LDFLAGS)
// 2. main.go (fallback for non-Makefile builds)
var (
	Version   = "v1.2.0-dev"
	BuildTime = "2026-08-29"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drivebridge",
		Short: "DriveBridge - browse and download a cloud drive from the terminal",
		Long: `DriveBridge ` + Version + ` - Built: ` + BuildTime + `
Tool for browsing a remote drive, inspecting file activity, and running
bulk downloads with bounded concurrency.

The remote file graph is fetched lazily: folders are listed the first time
you descend into them, and downloads recurse through folders on demand.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger
			mode := "cli"
			if jsonLogs {
				mode = "json"
			}
			logger = logging.NewLogger(mode, nil)
			if verbose || debug {
				logging.SetGlobalLevel(-1) // Debug level (zerolog.DebugLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "Drive API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit structured JSON logs on stderr (for embedding hosts)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	// Customize completion command description
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Enable tab-completion for drivebridge commands",
		Long: `Generate shell completion scripts to enable tab-completion.

QUICK START:

  bash:
    drivebridge completion bash | sudo tee /etc/bash_completion.d/drivebridge

  zsh:
    mkdir -p ~/.zsh/completions
    drivebridge completion zsh > ~/.zsh/completions/_drivebridge
    # Then add to ~/.zshrc: fpath=(~/.zsh/completions $fpath)

  fish:
    drivebridge completion fish > ~/.config/fish/completions/drivebridge.fish

Restart your terminal after installing a script.`,
	}
	rootCmd.AddCommand(completionCmd)

	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	// Disable default completion command (we're adding our own above)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())

	// Set up signal handling for graceful cancellation
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop to handle multiple signals (e.g., user pressing Ctrl+C repeatedly)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\n🛑 Received signal %v, cancelling operations...\n", sig)
				fmt.Fprintf(os.Stderr, "   Partial files are cleaned up before exit.\n\n")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newStatCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newActivityCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		// Fallback to background context if called before Execute()
		return context.Background()
	}
	return rootContext
}
