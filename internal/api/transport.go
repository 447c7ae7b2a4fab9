package api

import (
	"context"
	"io"

	"github.com/drivebridge/drivebridge/internal/models"
)

// ProgressFunc receives the total number of bytes transferred so far for a
// single stream. Calls arrive in non-decreasing byte order, throttled to
// roughly one call per constants.DownloadProgressInterval bytes.
type ProgressFunc func(bytes int64)

// ActivityQuery describes one page request against the activity log.
// Exactly one of AncestorID (folder scope, includes descendants) or ItemID
// (single file scope) is set.
type ActivityQuery struct {
	AncestorID string
	ItemID     string
	PageToken  string
	PageSize   int
}

// Transport is the abstract contract with the remote store. The production
// implementation is Client; tests substitute fakes.
type Transport interface {
	// ListChildren returns one page of file metadata matching the listing
	// query, plus the next page token ("" when exhausted).
	ListChildren(ctx context.Context, query, pageToken string, pageSize int) ([]*models.RemoteItem, string, error)

	// GetMetadata fetches one file's metadata. Returns *NotFoundError when
	// the id no longer exists.
	GetMetadata(ctx context.Context, id, fields string) (*models.RemoteItem, error)

	// GetDownloadAttributes fetches the per-file flags the download engine
	// consults before transferring content.
	GetDownloadAttributes(ctx context.Context, id string) (*models.DownloadAttributes, error)

	// DownloadContent streams a file's raw bytes to w. acknowledgeAbuse
	// bypasses the abusive-file block on retry.
	DownloadContent(ctx context.Context, id string, w io.Writer, acknowledgeAbuse bool, onProgress ProgressFunc) error

	// ExportContent streams a remote-native document converted to mimeType.
	ExportContent(ctx context.Context, id, mimeType string, w io.Writer, onProgress ProgressFunc) error

	// QueryActivity returns one page of change events plus the next token.
	QueryActivity(ctx context.Context, q ActivityQuery) ([]*models.ActivityEvent, string, error)

	// ResolveUsername resolves a user id to a display name. Results are
	// cacheable for the process lifetime.
	ResolveUsername(ctx context.Context, userID string) (string, error)

	// Search returns one page of file metadata whose names contain query.
	Search(ctx context.Context, query, pageToken string, pageSize int) ([]*models.RemoteItem, string, error)

	// GetMD5 fetches a file's content checksum. Empty for folders and
	// remote-native documents.
	GetMD5(ctx context.Context, id string) (string, error)
}
