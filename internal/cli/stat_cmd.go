// Package cli provides the file metadata command.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/resolver"
)

// newStatCmd creates the 'stat' command.
func newStatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat <file-id>",
		Short: "Show metadata for a remote file",
		Long: `Show the metadata of one remote file or folder, including its
content checksum for integrity verification against a local copy.

Examples:
  drivebridge stat ABC123`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := getAPIClient(ctx)
			if err != nil {
				return err
			}

			fc := cache.NewFileCache(apiClient, GetLogger())
			fc.Root()
			node, err := fc.GetOrFetch(ctx, args[0])
			if err != nil {
				return err
			}
			if node == nil {
				return fmt.Errorf("file %s does not exist", args[0])
			}

			kind := "file"
			if node.IsFolder {
				kind = "folder"
			}

			fmt.Printf("Name:     %s\n", node.Name)
			fmt.Printf("ID:       %s\n", node.ID)
			fmt.Printf("Type:     %s\n", kind)
			if !node.IsFolder {
				fmt.Printf("Size:     %s (%d bytes)\n", humanSize(node.Size), node.Size)
			}
			fmt.Printf("Modified: %s\n", node.ModifiedTime.Format("2006-01-02 15:04:05"))

			// Breadcrumb down from the highest known ancestor
			ancestors, err := resolver.New(fc).AncestryPath(ctx, node, constants.RootFolderID)
			if err == nil && len(ancestors) > 1 {
				parts := make([]string, 0, len(ancestors)-1)
				for _, a := range ancestors[:len(ancestors)-1] {
					parts = append(parts, a.Name)
				}
				fmt.Printf("Path:     %s/\n", strings.Join(parts, "/"))
			}

			if !node.IsFolder {
				sum, err := fc.GetMD5(ctx, node.ID)
				if err != nil {
					return err
				}
				if sum == "" {
					sum = "<none - exported document>"
				}
				fmt.Printf("MD5:      %s\n", sum)
			}

			return nil
		},
	}

	return cmd
}
