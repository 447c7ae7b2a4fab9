//go:build !windows

package diskspace

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// GetAvailableSpace returns the bytes available to this process on the
// filesystem containing path's parent directory, or 0 when it cannot be
// determined.
func GetAvailableSpace(path string) int64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(filepath.Dir(path), &stat); err != nil {
		return 0
	}
	return int64(stat.Bavail) * int64(stat.Bsize)
}
