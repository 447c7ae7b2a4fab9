// Package models defines the data types shared between the cache, the
// download engine, and the activity/search projections.
package models

import (
	"time"

	"github.com/drivebridge/drivebridge/internal/constants"
)

// ChildrenState tracks whether a folder's children have been listed yet.
// Unknown means "never fetched from the remote", which is distinct from
// "fetched and found empty" (NoChildren).
type ChildrenState int

const (
	ChildrenUnknown ChildrenState = iota
	HasChildren
	NoChildren
)

func (s ChildrenState) String() string {
	switch s {
	case HasChildren:
		return "has-children"
	case NoChildren:
		return "no-children"
	default:
		return "unknown"
	}
}

// FileNode represents one remote file or folder known to the cache.
// Nodes are keyed by ID; ParentID is empty for root-level entries and for
// the synthetic root itself. Children is meaningful only when
// ChildrenState != ChildrenUnknown.
type FileNode struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ParentID     string    `json:"parentId,omitempty"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime"`
	IsFolder     bool      `json:"isFolder"`

	Children      []string      `json:"children,omitempty"`
	ChildrenState ChildrenState `json:"childrenState"`
}

// RemoteItem is the wire shape of one file's metadata as returned by the
// remote store's list and get endpoints.
type RemoteItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size,string,omitempty"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Parents      []string  `json:"parents,omitempty"`
}

// NewFileNode builds a FileNode from remote metadata. IsFolder is derived
// from the MIME type once and never changes; folders start with
// ChildrenUnknown, regular files are always NoChildren.
func NewFileNode(item *RemoteItem) *FileNode {
	parentID := ""
	if len(item.Parents) > 0 {
		parentID = item.Parents[0]
	}

	isFolder := item.MimeType == constants.FolderMimeType

	childrenState := NoChildren
	if isFolder {
		childrenState = ChildrenUnknown
	}

	return &FileNode{
		ID:            item.ID,
		Name:          item.Name,
		ParentID:      parentID,
		Size:          item.Size,
		ModifiedTime:  item.ModifiedTime,
		IsFolder:      isFolder,
		ChildrenState: childrenState,
	}
}

// Clone returns a deep copy (the Children slice is not shared).
func (f *FileNode) Clone() *FileNode {
	c := *f
	if f.Children != nil {
		c.Children = make([]string, len(f.Children))
		copy(c.Children, f.Children)
	}
	return &c
}

func (f *FileNode) String() string {
	return f.Name
}
