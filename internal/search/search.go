// Package search runs name searches against the remote store and folds the
// results into the file cache.
package search

import (
	"context"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/models"
	"github.com/drivebridge/drivebridge/internal/pagination"
)

// Searcher pages through search results.
type Searcher struct {
	transport api.Transport
	cache     *cache.FileCache
}

func New(transport api.Transport, fc *cache.FileCache) *Searcher {
	return &Searcher{transport: transport, cache: fc}
}

// Search returns one batch of matches, following page tokens until the
// minimum batch size is reached or the results are exhausted. Every match
// is inserted into the cache (with carry-over), so search results are
// immediately usable as download requests. The returned token resumes the
// search ("" means exhausted).
func (s *Searcher) Search(ctx context.Context, query, pageToken string) ([]*models.FileNode, string, error) {
	fetch := func(ctx context.Context, token string) ([]*models.RemoteItem, string, error) {
		return s.transport.Search(ctx, query, token, constants.SearchMinEntriesPerFetch)
	}

	var results []*models.FileNode
	next, err := pagination.Resume(ctx, fetch, pageToken, constants.SearchMinEntriesPerFetch, func(item *models.RemoteItem) error {
		node := models.NewFileNode(item)
		s.cache.Put(node)
		results = append(results, s.cache.GetOrNil(node.ID))
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return results, next, nil
}
