// Package cli provides the download request import command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/download"
	"github.com/drivebridge/drivebridge/internal/request"
)

// newImportCmd creates the 'import' command.
func newImportCmd() *cobra.Command {
	var overwriteAll bool
	var skipAll bool
	var keepBothAll bool
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Run download requests from " + request.FileExtension + " files",
		Long: `Run one or more queued download requests.

A ` + request.FileExtension + ` file is a small JSON handoff written by another tool
(typically a browser extension or a GUI) naming the file ids to fetch and
optionally the destination directory:

  {"fileIds": ["ABC123", "DEF456"], "path": "/home/user/results"}

When the path is omitted, files are downloaded next to the request file.
Each request file is deleted once it has been read, so a watched
directory drains as requests are picked up.

Pass a directory to import every ` + request.FileExtension + ` file in it.

Examples:
  drivebridge import job.drivedl
  drivebridge import ~/Downloads --skip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, presetSet, err := presetChoice(overwriteAll, skipAll, keepBothAll)
			if err != nil {
				return err
			}

			paths, err := resolveRequestFiles(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no %s files found in %s", request.FileExtension, args[0])
			}

			for _, p := range paths {
				req, err := request.Import(p)
				if err != nil {
					return fmt.Errorf("failed to import %s: %w", p, err)
				}

				GetLogger().Info().Str("request", p).Int("files", len(req.FileIDs)).Msg("importing download request")

				// Import always carries a destination (it defaults to the
				// request file's directory), so a preset prompter is safe.
				var prompter download.Prompter = newConsolePrompter()
				if presetSet {
					prompter = presetPrompter{choice: preset}
				}
				if err := runDownload(req.FileIDs, req.Path, prompter, maxConcurrent); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwriteAll, "overwrite", false, "Replace existing files without prompting")
	cmd.Flags().BoolVar(&skipAll, "skip", false, "Skip existing files without prompting")
	cmd.Flags().BoolVar(&keepBothAll, "keep-both", false, "Save conflicting files under numbered names without prompting")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Maximum concurrent transfers (0 = config value)")

	return cmd
}

// presetChoice maps the mutually exclusive conflict flags to a Choice.
func presetChoice(overwriteAll, skipAll, keepBothAll bool) (download.Choice, bool, error) {
	set := 0
	var choice download.Choice
	if overwriteAll {
		set++
		choice = download.ChoiceOverwrite
	}
	if skipAll {
		set++
		choice = download.ChoiceSkip
	}
	if keepBothAll {
		set++
		choice = download.ChoiceUniqueName
	}
	if set > 1 {
		return 0, false, fmt.Errorf("only one of --overwrite, --skip, or --keep-both can be specified")
	}
	return choice, set == 1, nil
}

// resolveRequestFiles expands the argument into request file paths: a
// directory is scanned, anything else is taken as a single request file.
func resolveRequestFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return request.Scan(path)
	}
	return []string{path}, nil
}
