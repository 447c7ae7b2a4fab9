package download

import (
	"context"
	"errors"
)

// ErrAborted is returned when the user declines the target directory
// prompt; it aborts the whole invocation.
var ErrAborted = errors.New("download aborted by user")

// Prompter supplies the interactive decisions the engine cannot make
// itself. A headless host injects its own implementation; tests inject
// scripted ones.
type Prompter interface {
	// SelectTargetDir asks for a destination directory when the request
	// did not carry one. Returns ErrAborted if the user declines.
	SelectTargetDir(ctx context.Context) (string, error)

	// ResolveConflict asks what to do about an existing path. isFolder
	// selects the wording (Append vs Overwrite). When askRemember is true
	// the implementation additionally asks whether to apply the choice to
	// every later conflict of this invocation, returned as the second
	// value.
	ResolveConflict(ctx context.Context, path string, isFolder, askRemember bool) (Choice, bool, error)
}
