// Package request reads and writes the on-disk download-request handoff
// format. An embedding host drops a small sentinel file describing what to
// download; a later import picks it up and feeds the download engine. The
// on-disk shape is stable: {"fileIds": [...], "path": "..."}.
package request

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drivebridge/drivebridge/internal/models"
)

// FileExtension marks handoff files.
const FileExtension = ".drivedl"

// Write serializes a download request to path.
func Write(req *models.DownloadRequest, path string) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize download request: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write download request: %w", err)
	}
	return nil
}

// Read parses a handoff file without consuming it.
func Read(path string) (*models.DownloadRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read download request: %w", err)
	}

	var req models.DownloadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse download request %s: %w", path, err)
	}
	return &req, nil
}

// Import consumes a handoff file: parses it, deletes it, and returns the
// request. A record without a target path defaults to the directory the
// file was dropped in.
func Import(path string) (*models.DownloadRequest, error) {
	req, err := Read(path)
	if err != nil {
		return nil, err
	}

	if req.Path == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve request path: %w", err)
		}
		req.Path = filepath.Dir(abs)
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove consumed request %s: %w", path, err)
	}
	return req, nil
}

// Scan returns all handoff files directly inside dir, sorted by name.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == FileExtension {
			found = append(found, filepath.Join(dir, entry.Name()))
		}
	}
	return found, nil
}
