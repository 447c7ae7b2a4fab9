// Package cli provides the file activity command.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/activity"
	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/models"
)

// newActivityCmd creates the 'activity' command.
func newActivityCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "activity [file-id]",
		Short: "Show recent changes to a file or folder",
		Long: `Show the change history of a remote file or folder.

For folders the history covers the whole subtree. Without an argument
the entire drive's history is shown. Entries arrive newest first; press
Enter at the prompt to fetch the next batch.

Examples:
  # Recent changes anywhere in the drive
  drivebridge activity

  # Changes under one folder
  drivebridge activity 1AbCdEf

  # Keep fetching until the history is exhausted
  drivebridge activity --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			logger := GetLogger()

			apiClient, err := getAPIClient(ctx)
			if err != nil {
				return err
			}

			fc := cache.NewFileCache(apiClient, logger)
			fc.Root()
			usernames := cache.NewUsernameCache(apiClient)
			feed := activity.NewFeed(apiClient, fc, usernames)

			targetID := constants.RootFolderID
			isFolder := true
			if len(args) == 1 {
				node, err := fc.GetOrFetch(ctx, args[0])
				if err != nil {
					return err
				}
				if node == nil {
					return fmt.Errorf("file %s does not exist", args[0])
				}
				targetID = node.ID
				isFolder = node.IsFolder
			}

			stdin := bufio.NewReader(os.Stdin)
			pageToken := ""
			for {
				entries, next, err := feed.Fetch(ctx, targetID, isFolder, pageToken)
				if err != nil {
					return err
				}
				for _, e := range entries {
					printActivityEntry(e)
				}
				if next == "" {
					return nil
				}
				pageToken = next

				if all {
					continue
				}
				fmt.Print("-- more (Enter to continue, q to quit) -- ")
				input, err := stdin.ReadString('\n')
				if err != nil || strings.TrimSpace(input) == "q" {
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Fetch the complete history without pausing")

	return cmd
}

func printActivityEntry(e *models.ActivityEntry) {
	size := humanSize(e.Size)
	if e.IsFolder || e.Size < 0 {
		size = "-"
	}
	name := e.RelativePath
	if e.FileID == "" {
		name += " (gone)"
	}
	fmt.Printf("%s  %-7s  %-20s  %10s  %s\n",
		e.Time.Format("2006-01-02 15:04"), e.Type, e.Username, size, name)
}
