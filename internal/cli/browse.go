// Package cli provides drive browsing commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/models"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List a remote folder",
		Long: `List the contents of a remote folder.

Without an argument the drive's top level is listed: files at the root
plus everything shared with you. Folder ids come from a previous listing.

Examples:
  # List the top level
  drivebridge ls

  # List a folder by id
  drivebridge ls 1AbCdEf

  # Long format (size, modified time, id)
  drivebridge ls -l`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := getAPIClient(ctx)
			if err != nil {
				return err
			}

			fc := cache.NewFileCache(apiClient, GetLogger())

			folderID := constants.RootFolderID
			if len(args) == 1 {
				folderID = args[0]
			}
			if folderID == constants.RootFolderID {
				fc.Root()
			} else {
				node, err := fc.GetOrFetch(ctx, folderID)
				if err != nil {
					return err
				}
				if node == nil {
					return fmt.Errorf("folder %s does not exist", folderID)
				}
				if !node.IsFolder {
					return fmt.Errorf("%s is a file, not a folder", node.Name)
				}
			}

			if err := fc.RefreshChildren(ctx, folderID); err != nil {
				return err
			}

			folder := fc.GetOrNil(folderID)
			for _, childID := range folder.Children {
				child := fc.GetOrNil(childID)
				if child == nil {
					continue
				}
				printNode(child, long)
			}
			if len(folder.Children) == 0 {
				fmt.Println("(empty)")
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Long format: size, modified time and id per entry")

	return cmd
}

func printNode(node *models.FileNode, long bool) {
	name := node.Name
	if node.IsFolder {
		name += "/"
	}
	if !long {
		fmt.Println(name)
		return
	}

	size := humanSize(node.Size)
	if node.IsFolder {
		size = "-"
	}
	fmt.Printf("%10s  %s  %-20s  %s\n", size, node.ModifiedTime.Format("2006-01-02 15:04"), node.ID, name)
}

// humanSize formats a byte count for display. Negative sizes mean
// "unknown" (exports report no size up front).
func humanSize(n int64) string {
	if n < 0 {
		return "?"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
