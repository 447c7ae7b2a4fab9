package cache

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/drivebridge/drivebridge/internal/models"
)

// Snapshot key prefixes. The flat key/value shape survives editor reloads
// through hosts that only persist string pairs.
const (
	fileKeyPrefix = "file:"
	userKeyPrefix = "user:"
)

// SnapshotEntry is one persisted key/value pair.
type SnapshotEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Export flattens the cache into key/value pairs, one "file:<id>" entry
// per node. Username entries come from UsernameCache.Export.
func (c *FileCache) Export() ([]SnapshotEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]SnapshotEntry, 0, len(c.nodes))
	for id, node := range c.nodes {
		data, err := json.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize node %s: %w", id, err)
		}
		entries = append(entries, SnapshotEntry{Key: fileKeyPrefix + id, Value: string(data)})
	}
	return entries, nil
}

// Import restores nodes from exported pairs. Entries may arrive in any
// order; duplicate keys are last-write-wins. Unknown prefixes are skipped so
// a snapshot can carry entries for other subsystems.
func (c *FileCache) Import(entries []SnapshotEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		id, ok := strings.CutPrefix(entry.Key, fileKeyPrefix)
		if !ok {
			continue
		}
		var node models.FileNode
		if err := json.Unmarshal([]byte(entry.Value), &node); err != nil {
			return fmt.Errorf("failed to restore node %s: %w", id, err)
		}
		c.nodes[node.ID] = &node
	}
	return nil
}

// Export flattens the username cache into "user:<id>" pairs.
func (u *UsernameCache) Export() []SnapshotEntry {
	u.mu.RLock()
	defer u.mu.RUnlock()

	entries := make([]SnapshotEntry, 0, len(u.names))
	for id, name := range u.names {
		entries = append(entries, SnapshotEntry{Key: userKeyPrefix + id, Value: name})
	}
	return entries
}

// Import restores usernames from exported pairs, last-write-wins.
func (u *UsernameCache) Import(entries []SnapshotEntry) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, entry := range entries {
		if id, ok := strings.CutPrefix(entry.Key, userKeyPrefix); ok {
			u.names[id] = entry.Value
		}
	}
}
