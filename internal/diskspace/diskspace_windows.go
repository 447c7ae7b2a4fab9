//go:build windows

package diskspace

import (
	"path/filepath"

	"golang.org/x/sys/windows"
)

// GetAvailableSpace returns the bytes available to this process on the
// volume containing path's parent directory, or 0 when it cannot be
// determined.
func GetAvailableSpace(path string) int64 {
	dir, err := windows.UTF16PtrFromString(filepath.Dir(path))
	if err != nil {
		return 0
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0
	}
	return int64(freeBytesAvailable)
}
