package cache

import (
	"context"
	"fmt"
)

// GetMD5 returns the file's content checksum, fetching it once per process.
// Checksums never change for a given file revision, so resolve-once is safe
// for a session. Folders and exported documents have no checksum; the empty
// string is cached for those too.
func (c *FileCache) GetMD5(ctx context.Context, id string) (string, error) {
	c.mu.RLock()
	sum, ok := c.md5s[id]
	c.mu.RUnlock()
	if ok {
		return sum, nil
	}

	sum, err := c.transport.GetMD5(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to fetch checksum for %s: %w", id, err)
	}

	c.mu.Lock()
	c.md5s[id] = sum
	c.mu.Unlock()
	return sum, nil
}
