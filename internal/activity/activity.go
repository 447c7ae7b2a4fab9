// Package activity projects raw remote change events into display-ready
// entries, enriched with breadcrumbs and usernames from the cache.
package activity

import (
	"context"
	"strings"

	"github.com/drivebridge/drivebridge/internal/api"
	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/models"
	"github.com/drivebridge/drivebridge/internal/pagination"
	"github.com/drivebridge/drivebridge/internal/resolver"
)

// Feed fetches and projects activity for one file or folder subtree.
type Feed struct {
	transport api.Transport
	cache     *cache.FileCache
	resolver  *resolver.Resolver
	usernames *cache.UsernameCache
}

func NewFeed(transport api.Transport, fc *cache.FileCache, usernames *cache.UsernameCache) *Feed {
	return &Feed{
		transport: transport,
		cache:     fc,
		resolver:  resolver.New(fc),
		usernames: usernames,
	}
}

// Fetch returns one batch of entries for the target, following page tokens
// until at least the minimum batch size is collected or the feed is
// exhausted. The returned token resumes the feed ("" means exhausted).
// isFolder selects a subtree query instead of a single-item query.
func (f *Feed) Fetch(ctx context.Context, targetID string, isFolder bool, pageToken string) ([]*models.ActivityEntry, string, error) {
	query := api.ActivityQuery{ItemID: targetID, PageSize: constants.ActivityMinEntriesPerFetch}
	if isFolder {
		query = api.ActivityQuery{AncestorID: targetID, PageSize: constants.ActivityMinEntriesPerFetch}
	}

	fetch := func(ctx context.Context, token string) ([]*models.ActivityEvent, string, error) {
		q := query
		q.PageToken = token
		return f.transport.QueryActivity(ctx, q)
	}

	var entries []*models.ActivityEntry
	next, err := pagination.Resume(ctx, fetch, pageToken, constants.ActivityMinEntriesPerFetch, func(event *models.ActivityEvent) error {
		entries = append(entries, f.project(ctx, targetID, event))
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return entries, next, nil
}

// project enriches one raw event. A target that no longer exists gets
// Size -1 and a best-effort breadcrumb instead of a resolved path.
func (f *Feed) project(ctx context.Context, rootID string, event *models.ActivityEvent) *models.ActivityEntry {
	entry := &models.ActivityEntry{
		Type:     models.ParseActivityType(event.Action),
		Username: f.usernames.GetOrResolve(ctx, event.ActorUserID),
		IsFolder: event.TargetFolder,
		Time:     event.Timestamp,
	}

	node, err := f.cache.GetOrFetch(ctx, event.TargetID)
	if err != nil || node == nil {
		// Deleted target: no id to link, no size to show. For moves the
		// destination folder's title is the only breadcrumb left.
		entry.Size = -1
		entry.RelativePath = event.TargetTitle
		if entry.Type == models.ActivityMove && event.MovedToTitle != "" {
			entry.RelativePath = event.MovedToTitle + "/" + event.TargetTitle
		}
		return entry
	}

	entry.FileID = node.ID
	entry.IsFolder = node.IsFolder
	entry.Size = node.Size
	entry.RelativePath = f.breadcrumb(ctx, node, rootID)
	return entry
}

// breadcrumb renders the path from (but excluding) rootID down to node.
// A deleted ancestor truncates the walk, so the path may start mid-tree.
func (f *Feed) breadcrumb(ctx context.Context, node *models.FileNode, rootID string) string {
	path, err := f.resolver.AncestryPath(ctx, node, rootID)
	if err != nil || len(path) == 0 {
		return node.Name
	}

	names := make([]string, 0, len(path))
	for _, n := range path {
		if n.ID == rootID {
			continue
		}
		names = append(names, n.Name)
	}
	return strings.Join(names, "/")
}
