package cache

import (
	"context"
	"sync"

	"github.com/drivebridge/drivebridge/internal/api"
)

// UnknownUser is shown when a user id cannot be resolved to a display name.
const UnknownUser = "Unknown User"

// UsernameCache resolves remote user ids to display names, caching results
// for the process lifetime. Display names change rarely enough that we
// never expire entries.
type UsernameCache struct {
	mu        sync.RWMutex
	names     map[string]string
	transport api.Transport
}

// NewUsernameCache creates an empty username cache.
func NewUsernameCache(transport api.Transport) *UsernameCache {
	return &UsernameCache{
		names:     make(map[string]string),
		transport: transport,
	}
}

// GetOrResolve returns the display name for userID, resolving it through
// the transport on a miss. Resolution failures and empty names map to
// UnknownUser; the failure is cached too, so a broken id is looked up once.
func (u *UsernameCache) GetOrResolve(ctx context.Context, userID string) string {
	if userID == "" {
		return UnknownUser
	}

	u.mu.RLock()
	name, ok := u.names[userID]
	u.mu.RUnlock()
	if ok {
		return name
	}

	name, err := u.transport.ResolveUsername(ctx, userID)
	if err != nil || name == "" {
		name = UnknownUser
	}

	u.mu.Lock()
	u.names[userID] = name
	u.mu.Unlock()

	return name
}

// Len returns the number of cached usernames.
func (u *UsernameCache) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.names)
}
