// Package api provides error types for remote drive API responses.
package api

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError indicates a remote id that no longer exists. Callers treat
// this as a recoverable local condition (cache unlink), not a failure.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("remote file not found: %s", e.ID)
}

// PermissionDeniedError indicates a copy-protected source whose owner has
// restricted downloads.
type PermissionDeniedError struct {
	ID string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("download restricted by owner: %s", e.ID)
}

// AbusiveFileError indicates the remote flagged the file as potentially
// abusive and blocked the download by default. A retry with the acknowledge
// flag set bypasses the block.
type AbusiveFileError struct {
	ID string
}

func (e *AbusiveFileError) Error() string {
	return fmt.Sprintf("file flagged as abusive, download blocked: %s", e.ID)
}

// ExportSizeLimitError indicates a document export that exceeds the remote's
// export size limit (10 MB).
type ExportSizeLimitError struct {
	ID string
}

func (e *ExportSizeLimitError) Error() string {
	return fmt.Sprintf("export size limit exceeded: %s", e.ID)
}

// ErrAuthExpired indicates the stored access token was rejected. Detected
// during session init; the client revokes its token and re-initializes once.
var ErrAuthExpired = errors.New("access token expired or revoked")

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsPermissionDenied reports whether err is (or wraps) a PermissionDeniedError.
func IsPermissionDenied(err error) bool {
	var pd *PermissionDeniedError
	return errors.As(err, &pd)
}

// IsAbusiveFile reports whether err is (or wraps) an AbusiveFileError.
func IsAbusiveFile(err error) bool {
	var af *AbusiveFileError
	return errors.As(err, &af)
}

// IsExportSizeLimit reports whether err is (or wraps) an ExportSizeLimitError.
func IsExportSizeLimit(err error) bool {
	var es *ExportSizeLimitError
	return errors.As(err, &es)
}

// apiErrorBody is the JSON error envelope returned by the remote store.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// hasReason reports whether the error envelope carries the given reason
// code (case-insensitive), e.g. "notFound" or "cannotDownloadAbusiveFile".
func (b *apiErrorBody) hasReason(reason string) bool {
	for _, e := range b.Error.Errors {
		if strings.EqualFold(e.Reason, reason) {
			return true
		}
	}
	return false
}
