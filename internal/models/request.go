package models

// DownloadRequest is a set of remote ids plus a target local directory.
// Path may be empty, in which case the orchestrator prompts for a directory
// before executing.
//
// The JSON shape is also the on-disk handoff format (.drivedl files) read
// by the request importer, so the field names must stay stable.
type DownloadRequest struct {
	FileIDs []string `json:"fileIds"`
	Path    string   `json:"path"`
}

// DownloadAttributes carries the per-file flags the download engine needs
// beyond the cached metadata: access restriction and export availability.
type DownloadAttributes struct {
	CopyRequiresWriterPermission bool `json:"copyRequiresWriterPermission"`

	// ExportLinks maps export MIME type to the export URL offered by the
	// remote. Non-empty for remote-native documents that cannot be
	// downloaded raw.
	ExportLinks map[string]string `json:"exportLinks,omitempty"`
}
