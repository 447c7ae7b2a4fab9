package download

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/models"
	"github.com/drivebridge/drivebridge/internal/progress"
)

// fakeTransport serves both the cache (listings) and the engine (content).
type fakeTransport struct {
	api.Transport

	mu            sync.Mutex
	listings      map[string][]*models.RemoteItem // query -> items
	listCalls     int
	content       map[string][]byte
	attrs         map[string]*models.DownloadAttributes
	abusive       map[string]bool // flagged until acknowledged
	missing       map[string]bool // not-found on content fetch
	downloadCalls map[string]int
	acknowledged  map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		listings:      make(map[string][]*models.RemoteItem),
		content:       make(map[string][]byte),
		attrs:         make(map[string]*models.DownloadAttributes),
		abusive:       make(map[string]bool),
		missing:       make(map[string]bool),
		downloadCalls: make(map[string]int),
		acknowledged:  make(map[string]bool),
	}
}

func (f *fakeTransport) ListChildren(ctx context.Context, query, pageToken string, pageSize int) ([]*models.RemoteItem, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.listings[query], "", nil
}

func (f *fakeTransport) GetDownloadAttributes(ctx context.Context, id string) (*models.DownloadAttributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[id] {
		return nil, &api.NotFoundError{ID: id}
	}
	if attrs, ok := f.attrs[id]; ok {
		return attrs, nil
	}
	return &models.DownloadAttributes{}, nil
}

func (f *fakeTransport) DownloadContent(ctx context.Context, id string, w io.Writer, acknowledgeAbuse bool, onProgress api.ProgressFunc) error {
	f.mu.Lock()
	f.downloadCalls[id]++
	if acknowledgeAbuse {
		f.acknowledged[id] = true
	}
	flagged := f.abusive[id] && !acknowledgeAbuse
	gone := f.missing[id]
	data := f.content[id]
	f.mu.Unlock()

	if gone {
		return &api.NotFoundError{ID: id}
	}
	if flagged {
		return &api.AbusiveFileError{ID: id}
	}

	// Stream in 1 MiB chunks with throttled progress, like the real client
	var total int64
	for off := 0; off < len(data); off += constants.DownloadProgressInterval {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := off + constants.DownloadProgressInterval
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[off:end]); err != nil {
			return err
		}
		total = int64(end)
		if onProgress != nil {
			onProgress(total)
		}
	}
	if len(data) == 0 && onProgress != nil {
		onProgress(0)
	}
	return nil
}

func (f *fakeTransport) ExportContent(ctx context.Context, id, mimeType string, w io.Writer, onProgress api.ProgressFunc) error {
	f.mu.Lock()
	data := f.content[id]
	f.mu.Unlock()
	if _, err := w.Write(data); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(int64(len(data)))
	}
	return nil
}

// fakePrompter scripts interactive answers and counts prompts.
type fakePrompter struct {
	mu       sync.Mutex
	dir      string
	dirErr   error
	choice   Choice
	remember bool
	prompts  int
}

func (p *fakePrompter) SelectTargetDir(ctx context.Context) (string, error) {
	if p.dirErr != nil {
		return "", p.dirErr
	}
	return p.dir, nil
}

func (p *fakePrompter) ResolveConflict(ctx context.Context, path string, isFolder, askRemember bool) (Choice, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts++
	return p.choice, p.remember, nil
}

func (p *fakePrompter) promptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts
}

// recordingObserver captures callbacks for assertions.
type recordingObserver struct {
	mu        sync.Mutex
	started   []string
	finished  map[string]error
	progress  map[string][]int64
	lastTotal int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		finished: make(map[string]error),
		progress: make(map[string][]int64),
	}
}

func (r *recordingObserver) OnUnitStarted(fileID, name, localPath string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, fileID)
}

func (r *recordingObserver) OnUnitProgress(fileID string, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[fileID] = append(r.progress[fileID], bytes)
}

func (r *recordingObserver) OnUnitFinished(fileID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[fileID] = err
}

func (r *recordingObserver) OnTotalCountChanged(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if total > r.lastTotal {
		r.lastTotal = total
	}
}

func setup(t *testing.T) (*fakeTransport, *cache.FileCache, *fakePrompter, *recordingObserver, *Orchestrator) {
	t.Helper()
	ft := newFakeTransport()
	fc := cache.NewFileCache(ft, nil)
	fp := &fakePrompter{dir: t.TempDir()}
	obs := newRecordingObserver()
	o := NewOrchestrator(ft, fc, fp, obs, nil)
	return ft, fc, fp, obs, o
}

func TestNormalizeDropsDescendants(t *testing.T) {
	_, fc, _, _, o := setup(t)
	fc.Put(&models.FileNode{ID: "parent", IsFolder: true})
	fc.Put(&models.FileNode{ID: "child1", ParentID: "parent"})
	fc.Put(&models.FileNode{ID: "grand", ParentID: "child1"})

	got := o.Normalize([]string{"child1", "parent"})
	if len(got) != 1 || got[0].ID != "parent" {
		t.Errorf("Normalize = %v, want [parent]", got)
	}

	// Ordering independence
	got = o.Normalize([]string{"parent", "grand", "child1"})
	if len(got) != 1 || got[0].ID != "parent" {
		t.Errorf("Normalize = %v, want [parent]", got)
	}

	// Idempotence: an already-normalized set maps to itself
	got = o.Normalize([]string{"parent"})
	if len(got) != 1 || got[0].ID != "parent" {
		t.Errorf("Normalize of normalized set = %v", got)
	}
}

func TestNormalizeDropsBlanksAndRepeats(t *testing.T) {
	_, fc, _, _, o := setup(t)
	fc.Put(&models.FileNode{ID: "a"})
	fc.Put(&models.FileNode{ID: "b"})

	got := o.Normalize([]string{"", "a", "a", "uncached", "b"})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("Normalize = %v, want [a b]", got)
	}
}

func TestDownloadFolderScenario(t *testing.T) {
	ft, fc, fp, obs, o := setup(t)

	// folderA has unknown children: f1 (2 MB file) and f2 (explored empty folder)
	fc.Put(&models.FileNode{ID: "folderA", Name: "A", IsFolder: true})
	fc.Put(&models.FileNode{ID: "f2", Name: "Empty", ParentID: "folderA",
		IsFolder: true, ChildrenState: models.NoChildren})

	payload := bytes.Repeat([]byte("x"), 2<<20)
	ft.content["f1"] = payload
	ft.listings["'folderA' in parents and trashed = false"] = []*models.RemoteItem{
		{ID: "f1", Name: "big.bin", MimeType: "application/octet-stream", Size: int64(len(payload))},
		{ID: "f2", Name: "Empty", MimeType: constants.FolderMimeType},
	}

	if err := o.Download(context.Background(), []string{"folderA"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if ft.listCalls != 1 {
		t.Errorf("made %d listing calls, want 1 (f2 was already explored)", ft.listCalls)
	}
	// 1 initial unit + 2 children discovered
	if obs.lastTotal != 3 {
		t.Errorf("total count = %d, want 3", obs.lastTotal)
	}

	data, err := os.ReadFile(filepath.Join(fp.dir, "A", "big.bin"))
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("wrote %d bytes, want %d", len(data), len(payload))
	}
	if _, err := os.Stat(filepath.Join(fp.dir, "A", "Empty")); err != nil {
		t.Errorf("empty folder directory not created: %v", err)
	}

	// Progress at ~1 MiB granularity, non-decreasing
	reports := obs.progress["f1"]
	if len(reports) != 2 || reports[0] != 1<<20 || reports[1] != 2<<20 {
		t.Errorf("progress reports = %v", reports)
	}
	if got := obs.finished["f1"]; got != nil {
		t.Errorf("f1 finished with error: %v", got)
	}
	// No sidecar left behind
	if _, err := os.Stat(filepath.Join(fp.dir, "A", "big.bin"+MetaExtension)); !os.IsNotExist(err) {
		t.Error("sidecar not cleaned up")
	}
}

func TestAbusiveFileRetriedOnceWithAcknowledgment(t *testing.T) {
	ft, fc, fp, obs, o := setup(t)

	fc.Put(&models.FileNode{ID: "flagged", Name: "virus.zip", Size: 4})
	ft.content["flagged"] = []byte("data")
	ft.abusive["flagged"] = true

	if err := o.Download(context.Background(), []string{"flagged"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if ft.downloadCalls["flagged"] != 2 {
		t.Errorf("made %d content calls, want exactly 2", ft.downloadCalls["flagged"])
	}
	if !ft.acknowledged["flagged"] {
		t.Error("second attempt did not acknowledge the flag")
	}
	if got := obs.finished["flagged"]; got != nil {
		t.Errorf("unit finished with error: %v", got)
	}
	data, err := os.ReadFile(filepath.Join(fp.dir, "virus.zip"))
	if err != nil || string(data) != "data" {
		t.Errorf("content = %q, err %v", data, err)
	}
}

func TestAlwaysSkipWritesNothingWithoutPrompt(t *testing.T) {
	ft, fc, fp, obs, o := setup(t)

	fc.Put(&models.FileNode{ID: "f1", Name: "a.txt", Size: 3})
	fc.Put(&models.FileNode{ID: "f2", Name: "b.txt", Size: 3})
	ft.content["f1"] = []byte("new")
	ft.content["f2"] = []byte("new")

	existing := filepath.Join(fp.dir, "a.txt")
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	// First (and only) prompt chooses skip and remembers it
	fp.choice = ChoiceSkip
	fp.remember = true

	if err := o.Download(context.Background(), []string{"f1", "f2"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if fp.promptCount() != 1 {
		t.Errorf("prompted %d times, want 1", fp.promptCount())
	}
	if got := o.Policy().Get(); got != PolicyAlwaysSkip {
		t.Errorf("policy = %v, want always-skip", got)
	}
	if data, _ := os.ReadFile(existing); string(data) != "old" {
		t.Errorf("existing file overwritten: %q", data)
	}
	// The skipped unit still settles as completed
	if got, ok := obs.finished["f1"]; !ok || got != nil {
		t.Errorf("skipped unit finished = (%v, %v), want settled without error", got, ok)
	}
	// The non-conflicting sibling transferred normally
	if data, err := os.ReadFile(filepath.Join(fp.dir, "b.txt")); err != nil || string(data) != "new" {
		t.Errorf("sibling output = %q, err %v", data, err)
	}
}

func TestPolicyMonotonicWithinInvocation(t *testing.T) {
	ft, fc, fp, _, o := setup(t)

	fc.Put(&models.FileNode{ID: "f1", Name: "a.txt", Size: 1})
	fc.Put(&models.FileNode{ID: "f2", Name: "b.txt", Size: 1})
	fc.Put(&models.FileNode{ID: "f3", Name: "c.txt", Size: 1})
	for _, id := range []string{"f1", "f2", "f3"} {
		ft.content[id] = []byte("x")
	}
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := os.WriteFile(filepath.Join(fp.dir, name), []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// First conflict: choose unique-name and remember it
	fp.choice = ChoiceUniqueName
	fp.remember = true

	if err := o.Download(context.Background(), []string{"f1", "f2", "f3"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if fp.promptCount() != 1 {
		t.Errorf("prompted %d times, want exactly 1 (then remembered)", fp.promptCount())
	}
	if got := o.Policy().Get(); got != PolicyAlwaysUniqueName {
		t.Errorf("policy = %v, want always-unique-name", got)
	}
	// All three files landed under suffixed names
	for _, name := range []string{"a 1.txt", "b 1.txt", "c 1.txt"} {
		if _, err := os.Stat(filepath.Join(fp.dir, name)); err != nil {
			t.Errorf("suffixed output %s missing: %v", name, err)
		}
	}
}

func TestSingleFileDefaultsToAlwaysAsk(t *testing.T) {
	ft, fc, fp, _, o := setup(t)

	fc.Put(&models.FileNode{ID: "f1", Name: "a.txt", Size: 1})
	ft.content["f1"] = []byte("x")

	if err := o.Download(context.Background(), []string{"f1"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	// Single plain file: the "remember my choice" upsell is skipped
	if got := o.Policy().Get(); got != PolicyAlwaysAsk {
		t.Errorf("policy = %v, want always-ask", got)
	}
}

func TestDeclinedDirectoryAbortsInvocation(t *testing.T) {
	ft, fc, fp, _, o := setup(t)

	fc.Put(&models.FileNode{ID: "f1", Name: "a.txt", Size: 1})
	ft.content["f1"] = []byte("x")
	fp.dirErr = ErrAborted

	err := o.Download(context.Background(), []string{"f1"}, "")
	if err != ErrAborted {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if ft.downloadCalls["f1"] != 0 {
		t.Error("transfer ran despite aborted directory prompt")
	}
}

func TestNotFoundDuringTransferUnlinksFromParent(t *testing.T) {
	ft, fc, fp, obs, o := setup(t)

	fc.Put(&models.FileNode{ID: "parent", Name: "P", IsFolder: true,
		Children: []string{"gone", "ok"}, ChildrenState: models.HasChildren})
	fc.Put(&models.FileNode{ID: "gone", Name: "gone.txt", ParentID: "parent", Size: 1})
	fc.Put(&models.FileNode{ID: "ok", Name: "ok.txt", ParentID: "parent", Size: 1})
	ft.missing["gone"] = true
	ft.content["ok"] = []byte("x")

	if err := o.Download(context.Background(), []string{"gone", "ok"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	parent := fc.GetOrNil("parent")
	if len(parent.Children) != 1 || parent.Children[0] != "ok" {
		t.Errorf("parent children = %v, want [ok]", parent.Children)
	}
	// The sibling was unaffected
	if got := obs.finished["ok"]; got != nil {
		t.Errorf("sibling failed: %v", got)
	}
	if _, err := os.Stat(filepath.Join(fp.dir, "ok.txt")); err != nil {
		t.Errorf("sibling output missing: %v", err)
	}
}

func TestCancellationCleansUpPartialOutput(t *testing.T) {
	ft, fc, fp, _, _ := setup(t)

	payload := bytes.Repeat([]byte("x"), 4<<20)
	fc.Put(&models.FileNode{ID: "big", Name: "big.bin", Size: int64(len(payload))})
	ft.content["big"] = payload

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after the first progress report arrives
	cancelling := &cancelOnProgress{recordingObserver: newRecordingObserver(), cancel: cancel}
	o := NewOrchestrator(ft, fc, fp, cancelling, nil)

	err := o.Download(ctx, []string{"big"}, fp.dir)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if _, err := os.Stat(filepath.Join(fp.dir, "big.bin")); !os.IsNotExist(err) {
		t.Error("partial output not deleted after cancellation")
	}
	if _, err := os.Stat(filepath.Join(fp.dir, "big.bin"+MetaExtension)); !os.IsNotExist(err) {
		t.Error("sidecar not deleted after cancellation")
	}
}

// cancelOnProgress cancels the invocation on the first progress callback.
type cancelOnProgress struct {
	*recordingObserver
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnProgress) OnUnitProgress(fileID string, bytes int64) {
	c.recordingObserver.OnUnitProgress(fileID, bytes)
	c.once.Do(c.cancel)
}

func TestExportedDocumentGetsDerivedExtension(t *testing.T) {
	ft, fc, fp, obs, o := setup(t)

	fc.Put(&models.FileNode{ID: "doc1", Name: "Notes"})
	ft.content["doc1"] = []byte("%PDF-1.4")
	ft.attrs["doc1"] = &models.DownloadAttributes{
		ExportLinks: map[string]string{
			"application/pdf": "https://remote/export?id=doc1&exportFormat=pdf",
			"text/plain":      "https://remote/export?id=doc1&exportFormat=txt",
		},
	}

	if err := o.Download(context.Background(), []string{"doc1"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(fp.dir, "Notes.pdf"))
	if err != nil {
		t.Fatalf("exported output missing: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("content = %q", data)
	}
	if got := obs.finished["doc1"]; got != nil {
		t.Errorf("unit finished with error: %v", got)
	}
}

func TestCopyProtectedFileSkippedSiblingsUnaffected(t *testing.T) {
	ft, fc, fp, obs, o := setup(t)

	fc.Put(&models.FileNode{ID: "locked", Name: "locked.txt", Size: 1})
	fc.Put(&models.FileNode{ID: "open", Name: "open.txt", Size: 1})
	ft.attrs["locked"] = &models.DownloadAttributes{CopyRequiresWriterPermission: true}
	ft.content["open"] = []byte("x")

	if err := o.Download(context.Background(), []string{"locked", "open"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(fp.dir, "locked.txt")); !os.IsNotExist(err) {
		t.Error("copy-protected file was written")
	}
	if got := obs.finished["open"]; got != nil {
		t.Errorf("sibling failed: %v", got)
	}
}

func TestDownloadRejectsConcurrentInvocation(t *testing.T) {
	_, fc, fp, _, o := setup(t)
	fc.Put(&models.FileNode{ID: "f1", Name: "a.txt", Size: 1})

	o.inProgress.Store(true)
	defer o.inProgress.Store(false)

	if err := o.Download(context.Background(), []string{"f1"}, fp.dir); err != ErrBusy {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func TestCompletionCallbackFires(t *testing.T) {
	ft, fc, fp, _, o := setup(t)
	fc.Put(&models.FileNode{ID: "f1", Name: "a.txt", Size: 1})
	ft.content["f1"] = []byte("x")

	fired := false
	o.OnComplete = func() { fired = true }

	if err := o.Download(context.Background(), []string{"f1"}, fp.dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !fired {
		t.Error("completion callback did not fire")
	}
}

var _ progress.Observer = (*recordingObserver)(nil)
