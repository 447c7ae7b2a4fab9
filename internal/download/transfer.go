package download

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/diskspace"
	"github.com/drivebridge/drivebridge/internal/models"
	"github.com/drivebridge/drivebridge/internal/util/paths"
)

// Transport is the subset of the API surface the download engine consumes.
type Transport interface {
	GetDownloadAttributes(ctx context.Context, id string) (*models.DownloadAttributes, error)
	DownloadContent(ctx context.Context, id string, w io.Writer, acknowledgeAbuse bool, onProgress api.ProgressFunc) error
	ExportContent(ctx context.Context, id, mimeType string, w io.Writer, onProgress api.ProgressFunc) error
}

// MetaExtension marks the sidecar written next to an in-progress transfer.
// Its presence means "this output is incomplete".
const MetaExtension = ".meta"

// transferMeta is the sidecar's content.
type transferMeta struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

// transferFile downloads one leaf. The caller holds a semaphore slot for
// the whole call. Failures are contained here: logged, reported through
// the observer, never propagated to sibling units.
func (o *Orchestrator) transferFile(ctx context.Context, node *models.FileNode, destDir string) {
	if ctx.Err() != nil {
		return
	}

	attrs, err := o.transport.GetDownloadAttributes(ctx, node.ID)
	if err != nil {
		if api.IsNotFound(err) {
			o.log.Info().Str("file", node.Name).Msg("file no longer exists remotely, unlinking")
			o.cache.UnlinkChild(node.ParentID, node.ID)
			return
		}
		o.log.Error().Err(err).Str("file", node.Name).Msg("failed to read download attributes")
		return
	}

	if attrs.CopyRequiresWriterPermission {
		o.log.Warn().Str("file", node.Name).Msg("file is copy-protected, skipping")
		return
	}

	name := paths.SanitizeFileName(node.Name)
	size := node.Size
	exportMime := ""
	if len(attrs.ExportLinks) > 0 {
		// Remote-native document: no raw content, stream an export instead
		mime, ext := chooseExport(attrs.ExportLinks)
		exportMime = mime
		if ext != "" && !strings.HasSuffix(strings.ToLower(name), ext) {
			name += ext
		}
		size = -1 // export size is unknown until streamed
	}

	localPath := filepath.Join(destDir, name)
	finalPath, skip, err := o.resolveConflict(ctx, localPath, false)
	if err != nil {
		o.log.Error().Err(err).Str("file", node.Name).Msg("conflict prompt failed, skipping file")
		return
	}
	if skip {
		o.log.Info().Str("file", node.Name).Msg("existing file skipped")
		o.observer.OnUnitStarted(node.ID, node.Name, localPath, size)
		o.observer.OnUnitFinished(node.ID, nil)
		return
	}

	if size > 0 {
		if err := diskspace.CheckAvailableSpace(finalPath, size, constants.DiskSpaceSafetyMargin); err != nil {
			o.log.Error().Err(err).Str("file", node.Name).Msg("not enough disk space")
			return
		}
	}

	o.observer.OnUnitStarted(node.ID, node.Name, finalPath, size)
	err = o.streamToFile(ctx, node, finalPath, size, exportMime)

	if err != nil && api.IsNotFound(err) {
		// Deleted mid-flight: recover locally, not a unit failure
		o.log.Info().Str("file", node.Name).Msg("file deleted during transfer, unlinking")
		o.cache.UnlinkChild(node.ParentID, node.ID)
		err = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		o.log.Error().Err(err).Str("file", node.Name).Msg("transfer failed")
	}
	o.observer.OnUnitFinished(node.ID, err)
}

// streamToFile writes the content (raw or exported) to finalPath. A
// sidecar marks the output incomplete for its duration; on any failure or
// cancellation both the partial output and the sidecar are removed.
func (o *Orchestrator) streamToFile(ctx context.Context, node *models.FileNode, finalPath string, size int64, exportMime string) error {
	metaPath := finalPath + MetaExtension
	meta, _ := json.Marshal(transferMeta{FileID: node.ID, Name: node.Name, Size: size})
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return err
	}

	out, err := os.Create(finalPath)
	if err != nil {
		os.Remove(metaPath)
		return err
	}

	onProgress := func(bytes int64) {
		o.observer.OnUnitProgress(node.ID, bytes)
	}

	if exportMime != "" {
		err = o.transport.ExportContent(ctx, node.ID, exportMime, out, onProgress)
	} else {
		err = o.transport.DownloadContent(ctx, node.ID, out, false, onProgress)
		if api.IsAbusiveFile(err) {
			// Flagged files are blocked by default; retry exactly once with
			// explicit acknowledgment. Rewind first so the retry starts clean.
			o.log.Warn().Str("file", node.Name).Msg("file flagged by the remote, retrying with acknowledgment")
			if _, serr := out.Seek(0, io.SeekStart); serr == nil {
				if terr := out.Truncate(0); terr == nil {
					err = o.transport.DownloadContent(ctx, node.ID, out, true, onProgress)
				}
			}
		}
	}

	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(finalPath)
		os.Remove(metaPath)
		return err
	}

	os.Remove(metaPath)
	return nil
}

// chooseExport picks an export mime type (PDF when offered, otherwise the
// first in stable order) and derives the local extension from the export
// link's declared format.
func chooseExport(links map[string]string) (mime, ext string) {
	link, ok := links[constants.PreferredExportMimeType]
	if ok {
		mime = constants.PreferredExportMimeType
	} else {
		mimes := make([]string, 0, len(links))
		for m := range links {
			mimes = append(mimes, m)
		}
		sort.Strings(mimes)
		mime = mimes[0]
		link = links[mime]
	}

	if u, err := url.Parse(link); err == nil {
		if format := u.Query().Get("exportFormat"); format != "" {
			ext = "." + strings.ToLower(format)
		}
	}
	return mime, ext
}
