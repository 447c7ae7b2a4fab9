package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// DownloadUI renders one progress bar per in-flight transfer using mpb.
// It implements Observer, so the orchestrator drives it directly.
type DownloadUI struct {
	progress   *mpb.Progress
	bars       sync.Map // fileID -> *fileBar
	isTerminal bool
	totalFiles int32
	completed  int32
	nextIndex  int32
}

// fileBar tracks a single file's progress bar
type fileBar struct {
	bar        *mpb.Bar
	ui         *DownloadUI
	index      int
	fileID     string
	remoteName string
	localPath  string
	size       int64
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	mu         sync.Mutex
}

// NewDownloadUI creates a download UI. totalFiles is the initially known
// file count; it grows as folders are expanded.
func NewDownloadUI(totalFiles int) *DownloadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		// Enable ANSI escape sequences on Windows for proper progress bar rendering
		enableANSIOnWindows(os.Stderr)

		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond), // ~3 times per second
			mpb.WithWidth(100),
		)
	} else {
		// Non-TTY: disable progress bars, just use text output
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &DownloadUI{
		progress:   p,
		isTerminal: isTerminal,
		totalFiles: int32(totalFiles),
	}
}

// OnTotalCountChanged updates the expected file count shown in bar labels.
func (u *DownloadUI) OnTotalCountChanged(total int) {
	atomic.StoreInt32(&u.totalFiles, int32(total))
}

// OnUnitStarted creates a progress bar for a file transfer.
func (u *DownloadUI) OnUnitStarted(fileID, name, localPath string, size int64) {
	index := int(atomic.AddInt32(&u.nextIndex, 1))
	// Truncate local path to last 2 components (shorter for readability)
	destPath := truncatePath(localPath, 2)

	fb := &fileBar{
		ui:         u,
		index:      index,
		fileID:     fileID,
		remoteName: name,
		localPath:  localPath,
		size:       size,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}

	if u.isTerminal {
		barTotal := size
		if barTotal < 0 {
			barTotal = 0 // Unknown size: bar renders as indeterminate counters
		}
		fb.bar = u.progress.New(barTotal,
			// Custom bar style with Unicode block characters
			mpb.BarStyle().
				Lbound("[").
				Filler("█").  // U+2588 - Full block for completed portion
				Tip("█").     // Full block at leading edge
				Padding("░"). // U+2591 - Light shade for remaining portion
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(s decor.Statistics) string {
					return fmt.Sprintf("[%d/%d] %s (%.1f MiB) ← %s",
						fb.index, atomic.LoadInt32(&u.totalFiles),
						destPath,
						float64(size)/(1024*1024),
						name)
				}, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Any(func(s decor.Statistics) string {
					if s.Total == 0 {
						return "      "
					}
					pct := float64(s.Current) / float64(s.Total) * 100
					return fmt.Sprintf("%6.2f%%", pct)
				}, decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
				decor.Name("  "),
				decor.Name("ETA ", decor.WCSyncWidth),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		// Non-TTY: print simple start message
		fmt.Printf("Downloading [%d/%d]: %s ← %s\n",
			index, atomic.LoadInt32(&u.totalFiles),
			destPath,
			name)
	}

	u.bars.Store(fileID, fb)
}

// OnUnitProgress advances the file's bar. Updates are throttled to the mpb
// refresh cadence; EwmaIncrBy must still see elapsed time even when no
// bytes moved so speed and ETA stay accurate.
func (u *DownloadUI) OnUnitProgress(fileID string, bytes int64) {
	v, ok := u.bars.Load(fileID)
	if !ok {
		return
	}
	fb := v.(*fileBar)
	if fb.bar == nil {
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(fb.lastUpdate)
	bytesDelta := bytes - fb.lastBytes

	const updateInterval = 300 * time.Millisecond
	if elapsed >= updateInterval {
		fb.bar.EwmaIncrBy(int(bytesDelta), elapsed)
		fb.lastBytes = bytes
		fb.lastUpdate = now
	}
}

// OnUnitFinished settles the file's bar and prints a one-line summary.
func (u *DownloadUI) OnUnitFinished(fileID string, err error) {
	v, ok := u.bars.LoadAndDelete(fileID)
	if !ok {
		return
	}
	fb := v.(*fileBar)

	elapsed := time.Since(fb.startTime)
	speed := float64(fb.size) / elapsed.Seconds() / (1024 * 1024) // MB/s

	if err == nil {
		if fb.bar != nil {
			// ENSURE exact 100% completion (no rounding errors)
			fb.bar.SetCurrent(fb.size)
			fb.bar.SetTotal(fb.size, true) // Mark done, trigger BarRemoveOnComplete
		}

		msg := fmt.Sprintf("✓ %s ← %s (%.1f MiB, %s, %.1f MiB/s)\n",
			truncatePath(fb.localPath, 2),
			fb.remoteName,
			float64(fb.size)/(1024*1024),
			elapsed.Round(time.Second),
			speed)

		// Write through mpb's writer (not stdout) to avoid triggering redraws
		if u.isTerminal && u.progress != nil {
			u.progress.Write([]byte(msg))
		} else {
			fmt.Print(msg)
		}
	} else {
		// Error: keep bar visible if terminal, print error
		if fb.bar != nil {
			fb.bar.Abort(false) // false = don't remove (show failure)
		}

		msg := fmt.Sprintf("✗ %s ← %s: %v\n",
			truncatePath(fb.localPath, 2),
			fb.remoteName,
			err)

		if u.isTerminal && u.progress != nil {
			u.progress.Write([]byte(msg))
		} else {
			fmt.Print(msg)
		}
	}

	atomic.AddInt32(&u.completed, 1)
}

// Wait blocks until all progress bars complete
func (u *DownloadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// LogWriter returns an io.Writer that safely prints above the progress bars
func (u *DownloadUI) LogWriter() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// Writer returns an io.Writer for output during progress operations.
func (u *DownloadUI) Writer() io.Writer {
	return u.LogWriter()
}

// GetCompleted returns the number of settled downloads
func (u *DownloadUI) GetCompleted() int {
	return int(atomic.LoadInt32(&u.completed))
}

// IsTerminal returns whether output is to a terminal
func (u *DownloadUI) IsTerminal() bool {
	return u.isTerminal
}

// truncatePath shortens a path to its last maxComponents segments
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows for ANSI escape sequences
// This is a no-op on non-Windows platforms
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
