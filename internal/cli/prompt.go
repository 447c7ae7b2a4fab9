package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/drivebridge/drivebridge/internal/download"
)

// consolePrompter implements download.Prompter on stdin/stdout.
type consolePrompter struct {
	reader *bufio.Reader
}

func newConsolePrompter() *consolePrompter {
	return &consolePrompter{reader: bufio.NewReader(os.Stdin)}
}

// SelectTargetDir asks for a destination directory.
func (p *consolePrompter) SelectTargetDir(ctx context.Context) (string, error) {
	fmt.Print("Download destination directory (empty to abort): ")
	input, err := p.reader.ReadString('\n')
	if err != nil {
		return "", download.ErrAborted
	}
	dir := strings.TrimSpace(input)
	if dir == "" {
		return "", download.ErrAborted
	}
	return dir, nil
}

// ResolveConflict asks what to do when a local path already exists. Folders
// offer Append (reuse the existing directory and fill it in) where files
// offer Overwrite.
func (p *consolePrompter) ResolveConflict(ctx context.Context, path string, isFolder, askRemember bool) (download.Choice, bool, error) {
	kind := "File"
	action := "Overwrite - Replace the existing file"
	if isFolder {
		kind = "Folder"
		action = "Append - Download into the existing folder"
	}

	fmt.Printf("\n⚠️  %s '%s' already exists.\n", kind, path)
	fmt.Println("What would you like to do?")
	fmt.Printf("  1. %s\n", action)
	fmt.Println("  2. Skip - Leave the existing one untouched")
	fmt.Println("  3. Keep both - Save under a numbered name")

	choice, err := p.readChoice(3)
	if err != nil {
		return download.ChoiceSkip, false, err
	}

	var c download.Choice
	switch choice {
	case 1:
		c = download.ChoiceOverwrite
	case 2:
		c = download.ChoiceSkip
	default:
		c = download.ChoiceUniqueName
	}

	if !askRemember {
		return c, false, nil
	}

	fmt.Print("Apply this choice to every remaining conflict? [y/N]: ")
	input, err := p.reader.ReadString('\n')
	if err != nil {
		return c, false, nil
	}
	answer := strings.TrimSpace(strings.ToLower(input))
	return c, answer == "y" || answer == "yes", nil
}

func (p *consolePrompter) readChoice(max int) (int, error) {
	for {
		fmt.Printf("Choose [1-%d]: ", max)
		input, err := p.reader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		input = strings.TrimSpace(input)
		for n := 1; n <= max; n++ {
			if input == fmt.Sprintf("%d", n) {
				return n, nil
			}
		}
		fmt.Println("Invalid choice, please try again.")
	}
}

// presetPrompter answers every conflict with a fixed choice, for
// non-interactive runs driven by --overwrite, --skip or --keep-both.
// The target directory still has to come from the command line.
type presetPrompter struct {
	choice download.Choice
}

func (p presetPrompter) SelectTargetDir(ctx context.Context) (string, error) {
	return "", download.ErrAborted
}

func (p presetPrompter) ResolveConflict(ctx context.Context, path string, isFolder, askRemember bool) (download.Choice, bool, error) {
	return p.choice, true, nil
}
