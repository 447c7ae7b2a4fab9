package constants

// Drive query defaults
const (
	// ListPageSize - page size for folder children listings (50)
	// Matches the fields we request; larger pages delay the first progressive
	// UI update, smaller pages burn through the per-user query quota.
	ListPageSize = 50

	// ActivityMinEntriesPerFetch - minimum activity entries fetched per
	// "load more" request before the pager stops following next-page tokens.
	ActivityMinEntriesPerFetch = 20

	// SearchMinEntriesPerFetch - minimum search results per fetch.
	SearchMinEntriesPerFetch = 50

	// RequiredFileFields - metadata fields requested for every file fetch.
	// Every FileNode constructor expects exactly these to be populated.
	RequiredFileFields = "id, name, mimeType, size, modifiedTime, parents"
)

// Download engine tuning
const (
	// MaxConcurrentDownloads - leaf transfers allowed in flight at once.
	// Folder exploration is not capacity-bound; only file transfers hold a
	// semaphore slot.
	MaxConcurrentDownloads = 3

	// DownloadProgressInterval - progress callbacks fire roughly once per
	// this many bytes (1 MiB). Throttles UI updates for large transfers.
	DownloadProgressInterval = 1 << 20

	// DownloadCopyBufferSize - buffer size for the content copy loop (128 KB)
	DownloadCopyBufferSize = 128 * 1024

	// DiskSpaceSafetyMargin - multiplier applied to a file's known size when
	// checking free space before a transfer (10% buffer).
	DiskSpaceSafetyMargin = 1.1
)

// Event bus buffers
const (
	// EventBusDefaultBuffer - default per-subscriber channel buffer (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - hard cap on per-subscriber buffers (10000)
	EventBusMaxBuffer = 10000
)

// RootFolderID - sentinel id of the synthetic root node. The remote store
// never issues ids containing a slash, so this cannot collide.
const RootFolderID = "drive/root"

// MIME types of the remote store
const (
	// FolderMimeType - the remote marks folders with this MIME type
	FolderMimeType = "application/vnd.google-apps.folder"

	// ShortcutMimeType - shortcuts are excluded from root listings
	ShortcutMimeType = "application/vnd.google-apps.shortcut"

	// PreferredExportMimeType - export mime tried first for native documents
	PreferredExportMimeType = "application/pdf"
)
