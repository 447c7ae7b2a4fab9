package resolver

import (
	"context"
	"testing"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/models"
)

type fakeTransport struct {
	api.Transport
	metadata map[string]*models.RemoteItem
}

func (f *fakeTransport) GetMetadata(ctx context.Context, id, fields string) (*models.RemoteItem, error) {
	if item, ok := f.metadata[id]; ok {
		return item, nil
	}
	return nil, &api.NotFoundError{ID: id}
}

// buildCache seeds a chain root -> a -> b -> c plus a sibling "other".
func buildCache(t *testing.T) (*cache.FileCache, *Resolver) {
	t.Helper()
	c := cache.NewFileCache(&fakeTransport{}, nil)
	c.Put(&models.FileNode{ID: "a", Name: "A", IsFolder: true})
	c.Put(&models.FileNode{ID: "b", Name: "B", ParentID: "a", IsFolder: true})
	c.Put(&models.FileNode{ID: "c", Name: "C", ParentID: "b"})
	c.Put(&models.FileNode{ID: "other", Name: "Other", ParentID: "a"})
	return c, New(c)
}

func TestIsAncestorOf(t *testing.T) {
	c, r := buildCache(t)

	nodeC := c.GetOrNil("c")
	if !r.IsAncestorOf("a", nodeC) {
		t.Error("a should be an ancestor of c")
	}
	if !r.IsAncestorOf("b", nodeC) {
		t.Error("b should be an ancestor of c")
	}
	if r.IsAncestorOf("other", nodeC) {
		t.Error("other is a sibling branch, not an ancestor")
	}
	if r.IsAncestorOf("c", nodeC) {
		t.Error("a node is not its own ancestor")
	}
	if r.IsAncestorOf("c", c.GetOrNil("a")) {
		t.Error("descendant is not an ancestor")
	}
}

func TestIsAncestorOfTerminatesOnCycle(t *testing.T) {
	ft := &fakeTransport{}
	c := cache.NewFileCache(ft, nil)
	// A corrupted chain: x -> y -> x
	c.Put(&models.FileNode{ID: "x", ParentID: "y"})
	c.Put(&models.FileNode{ID: "y", ParentID: "x"})
	r := New(c)

	// Must return, not spin
	if r.IsAncestorOf("unrelated", c.GetOrNil("x")) {
		t.Error("unrelated id reported as ancestor of a cyclic chain")
	}
}

func TestAncestryPathOldestFirst(t *testing.T) {
	c, r := buildCache(t)

	path, err := r.AncestryPath(context.Background(), c.GetOrNil("c"), "")
	if err != nil {
		t.Fatalf("AncestryPath failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(path) != len(want) {
		t.Fatalf("path length = %d, want %d", len(path), len(want))
	}
	for i, id := range want {
		if path[i].ID != id {
			t.Errorf("path[%d] = %s, want %s", i, path[i].ID, id)
		}
	}
}

func TestAncestryPathStopsAtID(t *testing.T) {
	c, r := buildCache(t)

	path, err := r.AncestryPath(context.Background(), c.GetOrNil("c"), "b")
	if err != nil {
		t.Fatalf("AncestryPath failed: %v", err)
	}

	if len(path) != 2 || path[0].ID != "b" || path[1].ID != "c" {
		ids := make([]string, len(path))
		for i, n := range path {
			ids[i] = n.ID
		}
		t.Errorf("path = %v, want [b c]", ids)
	}
}

func TestAncestryPathFetchesMissingAncestors(t *testing.T) {
	ft := &fakeTransport{metadata: map[string]*models.RemoteItem{
		"p1": {ID: "p1", Name: "Parent", MimeType: constants.FolderMimeType},
	}}
	c := cache.NewFileCache(ft, nil)
	c.Put(&models.FileNode{ID: "leaf", Name: "Leaf", ParentID: "p1"})
	r := New(c)

	path, err := r.AncestryPath(context.Background(), c.GetOrNil("leaf"), "")
	if err != nil {
		t.Fatalf("AncestryPath failed: %v", err)
	}
	if len(path) != 2 || path[0].ID != "p1" {
		t.Errorf("missing ancestor was not fetched: %v", path)
	}
	if c.GetOrNil("p1") == nil {
		t.Error("fetched ancestor not cached")
	}
}

func TestAncestryPathTruncatesOnDeletedAncestor(t *testing.T) {
	// "gone" does not exist remotely; the path keeps what it has
	ft := &fakeTransport{}
	c := cache.NewFileCache(ft, nil)
	c.Put(&models.FileNode{ID: "leaf", Name: "Leaf", ParentID: "gone"})
	r := New(c)

	path, err := r.AncestryPath(context.Background(), c.GetOrNil("leaf"), "")
	if err != nil {
		t.Fatalf("AncestryPath failed: %v", err)
	}
	if len(path) != 1 || path[0].ID != "leaf" {
		t.Errorf("path = %v, want just the leaf", path)
	}
}
