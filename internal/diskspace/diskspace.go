// Package diskspace checks free space on the filesystem that will receive
// a download, before any bytes are transferred.
package diskspace

import (
	"errors"
	"fmt"
)

// InsufficientSpaceError indicates the target filesystem cannot hold the
// transfer plus its safety margin.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// IsInsufficientSpaceError reports whether err is (or wraps) an
// InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}

// CheckAvailableSpace verifies the filesystem holding targetPath's parent
// directory has room for requiredBytes scaled by safetyMargin (1.1 leaves a
// 10% buffer). An unreadable filesystem passes the check; the transfer then
// fails on its own terms if space really runs out.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	available := GetAvailableSpace(targetPath)
	if available == 0 {
		return nil
	}

	requiredWithMargin := int64(float64(requiredBytes) * safetyMargin)
	if available < requiredWithMargin {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  requiredWithMargin,
			AvailableBytes: available,
		}
	}
	return nil
}
