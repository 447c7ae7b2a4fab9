// Package cli provides download commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/download"
	"github.com/drivebridge/drivebridge/internal/events"
	"github.com/drivebridge/drivebridge/internal/logging"
	"github.com/drivebridge/drivebridge/internal/progress"
)

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var outDir string
	var overwriteAll bool
	var skipAll bool
	var keepBothAll bool
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "download <file-id> [file-id...]",
		Short: "Download files and folders",
		Long: `Download one or more remote files or folders.

Folders are downloaded recursively; their listings are fetched on demand
as the tree is walked. When a requested id sits inside another requested
folder it is dropped, because the folder download already covers it.

Existing local files trigger an interactive prompt unless one of
--overwrite, --skip or --keep-both preselects the answer.

Examples:
  # Download two files to ./results
  drivebridge download ABC123 DEF456 --outdir ./results

  # Download a folder tree, replacing anything already present
  drivebridge download 1AbCdEf --outdir ~/drive --overwrite

  # Keep both copies on conflicts, four transfers at a time
  drivebridge download 1AbCdEf --outdir ~/drive --keep-both --max-concurrent 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, presetSet, err := presetChoice(overwriteAll, skipAll, keepBothAll)
			if err != nil {
				return err
			}

			var prompter download.Prompter
			if presetSet {
				if outDir == "" {
					return fmt.Errorf("--outdir is required with --overwrite, --skip or --keep-both")
				}
				prompter = presetPrompter{choice: preset}
			} else {
				prompter = newConsolePrompter()
			}

			return runDownload(args, outDir, prompter, maxConcurrent)
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "o", "", "Destination directory (default: config, then prompt)")
	cmd.Flags().BoolVar(&overwriteAll, "overwrite", false, "Replace existing files without prompting")
	cmd.Flags().BoolVar(&skipAll, "skip", false, "Skip existing files without prompting")
	cmd.Flags().BoolVar(&keepBothAll, "keep-both", false, "Save conflicting files under numbered names without prompting")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Maximum concurrent transfers (0 = config value)")

	return cmd
}

// runDownload wires up the engine and runs one invocation. Shared by
// 'download' and 'import'.
func runDownload(ids []string, outDir string, prompter download.Prompter, maxConcurrent int) error {
	ctx := GetContext()
	logger := GetLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if maxConcurrent == 0 {
		maxConcurrent = cfg.Download.MaxConcurrent
	}
	if maxConcurrent < 1 || maxConcurrent > 16 {
		return fmt.Errorf("--max-concurrent must be between 1 and 16, got %d", maxConcurrent)
	}
	if outDir == "" {
		outDir = cfg.Download.DefaultFolder
	}

	apiClient, err := getAPIClient(ctx)
	if err != nil {
		return err
	}

	fc := cache.NewFileCache(apiClient, logger)
	fc.Root()

	// The engine works off cached nodes; pull metadata for every
	// requested id up front and drop the ones that no longer exist.
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		node, err := fc.GetOrFetch(ctx, id)
		if err != nil {
			return err
		}
		if node == nil {
			logger.Warn().Str("id", id).Msg("file no longer exists, skipping")
			continue
		}
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		return fmt.Errorf("none of the requested files exist")
	}

	state := progress.NewDownloadProgressState()

	// Embedding hosts read structured events off stderr instead of a
	// terminal display.
	if jsonLogs {
		bus := events.NewEventBus(constants.EventBusDefaultBuffer)
		defer bus.Close()
		drained := logDownloadEvents(bus, logger)

		engine := download.NewOrchestrator(apiClient, fc, prompter,
			progress.MultiObserver{state, download.NewBusObserver(bus)}, logger)
		engine.Concurrency = maxConcurrent
		engine.SetEventBus(bus)

		err = engine.Download(ctx, valid, outDir)
		bus.Close()
		<-drained
		return err
	}

	ui := progress.NewDownloadUI(len(valid))
	logger.SetOutput(ui.LogWriter())

	engine := download.NewOrchestrator(apiClient, fc, prompter, progress.MultiObserver{state, ui}, logger)
	engine.Concurrency = maxConcurrent

	err = engine.Download(ctx, valid, outDir)
	ui.Wait()

	fmt.Fprintf(ui.Writer(), "\nDownloaded %d of %d file(s)", state.Completed(), state.Total())
	if state.Failed() > 0 {
		fmt.Fprintf(ui.Writer(), ", %d failed", state.Failed())
	}
	fmt.Fprintln(ui.Writer())

	return err
}

// logDownloadEvents forwards bus events to the structured logger until the
// bus closes. Returns a channel that closes once the subscription drains.
func logDownloadEvents(bus *events.EventBus, logger *logging.Logger) <-chan struct{} {
	ch := bus.SubscribeAll()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			switch e := ev.(type) {
			case *events.DownloadEvent:
				entry := logger.Info().Str("event", string(e.Type())).Str("fileId", e.FileID).Str("name", e.Name)
				if e.Size > 0 {
					entry = entry.Int64("size", e.Size)
				}
				if e.Bytes > 0 {
					entry = entry.Int64("bytes", e.Bytes)
				}
				if e.Error != nil {
					entry = entry.Err(e.Error)
				}
				entry.Msg("download event")
			case *events.BatchEvent:
				logger.Info().Str("event", string(e.Type())).
					Int("total", e.TotalFiles).
					Dur("duration", e.Duration).
					Msg("batch event")
			}
		}
	}()
	return done
}

// newGetCmd creates the 'get' command: a single file to a single path,
// with a plain progress bar instead of the multi-file display.
func newGetCmd() *cobra.Command {
	var outDir string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Download a single file",
		Long: `Download one file to a directory.

Unlike 'download' this never recurses and shows a single progress bar,
which makes it the right tool for scripts and pipelines.

Examples:
  drivebridge get ABC123
  drivebridge get ABC123 --outdir ./results --quiet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			logger := GetLogger()

			apiClient, err := getAPIClient(ctx)
			if err != nil {
				return err
			}

			fc := cache.NewFileCache(apiClient, logger)
			node, err := fc.GetOrFetch(ctx, args[0])
			if err != nil {
				return err
			}
			if node == nil {
				return fmt.Errorf("file %s does not exist", args[0])
			}
			if node.IsFolder {
				return fmt.Errorf("%s is a folder; use 'download' for folders", node.Name)
			}

			if outDir == "" {
				outDir = "."
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			var reporter progress.Reporter = progress.NewCLIProgress()
			if quiet {
				reporter = progress.NewNoOpProgress()
			}

			engine := download.NewOrchestrator(apiClient, fc, newConsolePrompter(), reporterObserver{reporter}, logger)
			if err := engine.Download(ctx, args[0:1], outDir); err != nil {
				return err
			}

			fmt.Printf("Saved to %s\n", filepath.Join(outDir, node.Name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "o", "", "Destination directory (default: current directory)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "No progress output")

	return cmd
}

// reporterObserver adapts a single-operation Reporter to the engine's
// Observer interface. Only meaningful for single-file invocations.
type reporterObserver struct {
	reporter progress.Reporter
}

func (r reporterObserver) OnUnitStarted(fileID, name, localPath string, size int64) {
	r.reporter.Start(size, name)
}

func (r reporterObserver) OnUnitProgress(fileID string, bytes int64) {
	r.reporter.Update(bytes)
}

func (r reporterObserver) OnUnitFinished(fileID string, err error) {
	if err != nil {
		r.reporter.Error(err)
		return
	}
	r.reporter.Finish()
}

func (r reporterObserver) OnTotalCountChanged(total int) {}
