// Package resolver answers ancestry questions over the file cache.
package resolver

import (
	"context"

	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/models"
)

// maxChainDepth bounds parent-chain walks. The cache is expected to be
// acyclic; a corrupted chain must terminate instead of spinning.
const maxChainDepth = 1000

// Resolver walks parent chains through a FileCache.
type Resolver struct {
	cache *cache.FileCache
}

func New(c *cache.FileCache) *Resolver {
	return &Resolver{cache: c}
}

// IsAncestorOf reports whether ancestorID appears in node's parent chain.
// Only cached nodes are consulted; the walk never touches the network.
func (r *Resolver) IsAncestorOf(ancestorID string, node *models.FileNode) bool {
	if node == nil || ancestorID == "" || node.ID == ancestorID {
		return false
	}

	parentID := node.ParentID
	for depth := 0; parentID != "" && depth < maxChainDepth; depth++ {
		if parentID == ancestorID {
			return true
		}
		parent := r.cache.GetOrNil(parentID)
		if parent == nil {
			return false
		}
		parentID = parent.ParentID
	}
	return false
}

// AncestryPath builds the path from the outermost known ancestor down to
// node inclusive, oldest first. stopAtID, when non-empty, ends the upward
// walk once that id is included. Ancestors missing from the cache are
// fetched on demand; a deleted ancestor truncates the path rather than
// failing, so breadcrumbs still render for files whose folders are gone.
func (r *Resolver) AncestryPath(ctx context.Context, node *models.FileNode, stopAtID string) ([]*models.FileNode, error) {
	if node == nil {
		return nil, nil
	}

	path := []*models.FileNode{node}
	current := node

	for depth := 0; depth < maxChainDepth; depth++ {
		if current.ID == stopAtID || current.ParentID == "" {
			break
		}
		parent, err := r.cache.GetOrFetch(ctx, current.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			// Ancestor was deleted remotely; keep what we have
			break
		}
		path = append(path, parent)
		current = parent
	}

	// Collected bottom-up; callers want oldest first
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}
