// Package cli provides the remote search command.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/search"
)

// newSearchCmd creates the 'search' command.
func newSearchCmd() *cobra.Command {
	var long bool
	var all bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the drive by file name",
		Long: `Search the whole drive for files whose name contains the query.

Results come in batches; press Enter at the prompt to fetch more. The
returned ids can be fed straight into 'download'.

Examples:
  drivebridge search report
  drivebridge search "q3 results" -l`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := getAPIClient(ctx)
			if err != nil {
				return err
			}

			fc := cache.NewFileCache(apiClient, GetLogger())
			searcher := search.New(apiClient, fc)

			stdin := bufio.NewReader(os.Stdin)
			pageToken := ""
			total := 0
			for {
				results, next, err := searcher.Search(ctx, args[0], pageToken)
				if err != nil {
					return err
				}
				for _, node := range results {
					printNode(node, long)
				}
				total += len(results)
				if next == "" {
					if total == 0 {
						fmt.Println("No matches.")
					}
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

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Long format: size, modified time and id per entry")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every match without pausing")

	return cmd
}
