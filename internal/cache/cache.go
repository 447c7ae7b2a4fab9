// Package cache holds the process-wide mirror of the remote file graph.
// It is a read-through, eventually-stale mirror: entries are created on
// first fetch and replaced on refresh, never merged from concurrent remote
// mutations.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/logging"
	"github.com/drivebridge/drivebridge/internal/models"
	"github.com/drivebridge/drivebridge/internal/pagination"
)

// rootQuery lists the drive's top level: files owned at the root plus
// anything shared with the user, minus trash and shortcuts.
const rootQuery = "('root' in parents or sharedWithMe = true) and trashed = false and mimeType != '" + constants.ShortcutMimeType + "'"

// FileCache maps remote id to FileNode. All mutation happens through
// GetOrFetch, RefreshChildren, Put and UnlinkChild under the internal mutex;
// callers must treat returned nodes as snapshots.
type FileCache struct {
	mu        sync.RWMutex
	nodes     map[string]*models.FileNode
	md5s      map[string]string
	transport api.Transport
	log       *logging.Logger
}

// NewFileCache creates an empty cache backed by the given transport.
func NewFileCache(transport api.Transport, log *logging.Logger) *FileCache {
	if log == nil {
		log = logging.NewDefaultCLILogger()
	}
	return &FileCache{
		nodes:     make(map[string]*models.FileNode),
		md5s:      make(map[string]string),
		transport: transport,
		log:       log,
	}
}

// Root returns the synthetic root node, creating it on first access.
// Subsequent calls return the same entry.
func (c *FileCache) Root() *models.FileNode {
	c.mu.Lock()
	defer c.mu.Unlock()

	if root, ok := c.nodes[constants.RootFolderID]; ok {
		return root.Clone()
	}

	root := &models.FileNode{
		ID:            constants.RootFolderID,
		Name:          "My Drive",
		IsFolder:      true,
		ChildrenState: models.ChildrenUnknown,
	}
	c.nodes[constants.RootFolderID] = root
	return root.Clone()
}

// GetOrNil returns the cached node or nil. Never touches the network.
func (c *FileCache) GetOrNil(id string) *models.FileNode {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if node, ok := c.nodes[id]; ok {
		return node.Clone()
	}
	return nil
}

// GetOrFetch returns the cached node, fetching its metadata on a miss.
// A remote not-found returns (nil, nil): the caller asked about an id that
// no longer exists, which is an answer, not a failure. Other transport
// errors are returned as-is.
func (c *FileCache) GetOrFetch(ctx context.Context, id string) (*models.FileNode, error) {
	if node := c.GetOrNil(id); node != nil {
		return node, nil
	}

	item, err := c.transport.GetMetadata(ctx, id, constants.RequiredFileFields)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", id, err)
	}

	node := models.NewFileNode(item)

	c.mu.Lock()
	c.nodes[node.ID] = node
	c.mu.Unlock()

	return node.Clone(), nil
}

// Put inserts or replaces a node, carrying over the previous entry's
// Children and ChildrenState so a refresh does not discard an already
// explored subtree.
func (c *FileCache) Put(node *models.FileNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(node)
}

func (c *FileCache) putLocked(node *models.FileNode) {
	stored := node.Clone()
	if prev, ok := c.nodes[node.ID]; ok && prev.ChildrenState != models.ChildrenUnknown {
		stored.Children = append([]string(nil), prev.Children...)
		stored.ChildrenState = prev.ChildrenState
	}
	c.nodes[node.ID] = stored
}

// RefreshChildren re-lists a folder's children from the remote, paging to
// exhaustion. On success the folder's Children becomes the exact returned
// ordering and its ChildrenState flips to HasChildren or NoChildren. On any
// failure the folder's prior state is left untouched.
func (c *FileCache) RefreshChildren(ctx context.Context, folderID string) error {
	isRoot := folderID == constants.RootFolderID

	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	if isRoot {
		query = rootQuery
	}

	fetch := func(ctx context.Context, pageToken string) ([]*models.RemoteItem, string, error) {
		return c.transport.ListChildren(ctx, query, pageToken, constants.ListPageSize)
	}

	var fetched []*models.FileNode
	_, err := pagination.Fetch(ctx, fetch, 0, func(item *models.RemoteItem) error {
		node := models.NewFileNode(item)
		if isRoot {
			// Shared items carry their orphaned remote parent; at the top
			// level everything hangs off the synthetic root
			node.ParentID = ""
		} else {
			node.ParentID = folderID
		}
		fetched = append(fetched, node)
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("folder", folderID).Msg("children refresh failed, keeping cached state")
		return fmt.Errorf("failed to refresh children of %s: %w", folderID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	childIDs := make([]string, 0, len(fetched))
	for _, node := range fetched {
		c.putLocked(node)
		childIDs = append(childIDs, node.ID)
	}

	folder, ok := c.nodes[folderID]
	if !ok {
		// Refreshing a folder nobody fetched yet; synthesize the entry
		folder = &models.FileNode{ID: folderID, IsFolder: true}
		c.nodes[folderID] = folder
	}
	folder.Children = childIDs
	if len(childIDs) > 0 {
		folder.ChildrenState = models.HasChildren
	} else {
		folder.ChildrenState = models.NoChildren
	}

	return nil
}

// UnlinkChild removes childID from its parent's children list. The child
// entry itself stays cached as an orphan. Called when a transfer discovers
// the remote id no longer exists.
func (c *FileCache) UnlinkChild(parentID, childID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent, ok := c.nodes[parentID]
	if !ok {
		return
	}

	for i, id := range parent.Children {
		if id == childID {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}
	if len(parent.Children) == 0 && parent.ChildrenState == models.HasChildren {
		parent.ChildrenState = models.NoChildren
	}
}

// Len returns the number of cached nodes.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}
