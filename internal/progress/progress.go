// Package progress provides progress reporting for CLI (progress bars) and
// host-driven (event bus) modes.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter is the interface for reporting single-operation progress.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements progress reporting for CLI mode using progress bars.
type CLIProgress struct {
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a new CLI progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

// Start does nothing.
func (p *NoOpProgress) Start(total int64, description string) {}

// Update does nothing.
func (p *NoOpProgress) Update(current int64) {}

// Finish does nothing.
func (p *NoOpProgress) Finish() {}

// Error does nothing.
func (p *NoOpProgress) Error(err error) {}

// SetDescription does nothing.
func (p *NoOpProgress) SetDescription(desc string) {}
