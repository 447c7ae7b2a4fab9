// Package paths provides utilities for local destination path handling
// during downloads.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// invalidChars are characters that cannot appear in file names on at least
// one supported platform. Remote names may contain any of them.
const invalidChars = `/\:*?"<>|`

// SanitizeFileName makes a remote display name safe to use as a local file
// name. Invalid characters become underscores; trailing dots and spaces are
// trimmed (Windows rejects them); an empty result falls back to "untitled".
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimRight(b.String(), ". ")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// WithSuffix inserts a numeric suffix before the extension:
// "report.pdf", 2 -> "report 2.pdf". Folders (no extension) get the suffix
// at the end.
func WithSuffix(path string, n int) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s %d%s", base, n, ext)
}

// UniquePath returns path if nothing exists there, otherwise the first
// suffixed variant ("name 1.ext", "name 2.ext", ...) that does not exist at
// call time. The search is unbounded upward; in practice it ends within the
// number of conflicting entries actually present.
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	for n := 1; ; n++ {
		candidate := WithSuffix(path, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
