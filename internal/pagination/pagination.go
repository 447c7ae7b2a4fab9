// Package pagination drives token-based page fetching shared by directory
// listing, activity retrieval, and search.
package pagination

import (
	"context"
	"fmt"
)

// FetchPage fetches one page of items for the given token. An empty token
// requests the first page. An empty returned token signals exhaustion.
type FetchPage[T any] func(ctx context.Context, pageToken string) (items []T, nextToken string, err error)

// Fetch repeatedly invokes fetch, delivering every item to onItem as soon as
// its page arrives so callers can render progressively. Paging continues while
// a next-page token is present and, when minItems > 0, until at least minItems
// items have been seen. minItems <= 0 drains to exhaustion.
//
// The returned token is the cursor to resume from ("" means exhausted), so
// callers can offer "load more". Cancellation is checked between pages; the
// context is also passed into each fetch.
func Fetch[T any](ctx context.Context, fetch FetchPage[T], minItems int, onItem func(T) error) (string, error) {
	token := ""
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			return token, err
		}

		items, next, err := fetch(ctx, token)
		if err != nil {
			return token, err
		}

		for _, item := range items {
			if onItem != nil {
				if err := onItem(item); err != nil {
					return next, fmt.Errorf("page item callback failed: %w", err)
				}
			}
		}
		count += len(items)
		token = next

		if token == "" {
			return "", nil
		}
		if minItems > 0 && count >= minItems {
			return token, nil
		}
	}
}

// Resume is Fetch starting from a previously returned token instead of the
// first page.
func Resume[T any](ctx context.Context, fetch FetchPage[T], startToken string, minItems int, onItem func(T) error) (string, error) {
	first := true
	wrapped := func(ctx context.Context, pageToken string) ([]T, string, error) {
		if first {
			first = false
			pageToken = startToken
		}
		return fetch(ctx, pageToken)
	}
	return Fetch(ctx, wrapped, minItems, onItem)
}
