package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// pagedSource simulates a token-paginated remote endpoint.
type pagedSource struct {
	pages [][]int
	calls int
}

func (s *pagedSource) fetch(ctx context.Context, pageToken string) ([]int, string, error) {
	s.calls++
	idx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "p%d", &idx)
	}
	if idx >= len(s.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(s.pages) {
		next = fmt.Sprintf("p%d", idx+1)
	}
	return s.pages[idx], next, nil
}

func TestFetchDrainsToExhaustion(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1, 2}, {3}, {4, 5, 6}}}

	var got []int
	token, err := Fetch(context.Background(), src.fetch, 0, func(n int) error {
		got = append(got, n)
		return nil
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty after exhaustion", token)
	}
	if len(got) != 6 {
		t.Errorf("got %d items, want 6", len(got))
	}
	if src.calls != 3 {
		t.Errorf("made %d calls, want 3", src.calls)
	}
}

func TestFetchStopsAtMinItems(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1, 2}, {3, 4}, {5, 6}}}

	var got []int
	token, err := Fetch(context.Background(), src.fetch, 3, func(n int) error {
		got = append(got, n)
		return nil
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	// Two pages satisfy the minimum of 3; the third page must not be fetched
	if src.calls != 2 {
		t.Errorf("made %d calls, want 2", src.calls)
	}
	if len(got) != 4 {
		t.Errorf("got %d items, want 4", len(got))
	}
	if token != "p2" {
		t.Errorf("token = %q, want p2 for load-more", token)
	}
}

func TestFetchCancellationBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	fetch := func(ctx context.Context, pageToken string) ([]int, string, error) {
		calls++
		cancel() // Cancel after the first page is served
		return []int{1}, "more", nil
	}

	_, err := Fetch(ctx, fetch, 0, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("made %d calls after cancellation, want 1", calls)
	}
}

func TestFetchPropagatesFetchError(t *testing.T) {
	boom := errors.New("transport fault")
	fetch := func(ctx context.Context, pageToken string) ([]int, string, error) {
		return nil, "", boom
	}

	_, err := Fetch(context.Background(), fetch, 0, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestFetchPropagatesCallbackError(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1, 2}}}
	boom := errors.New("callback failed")

	_, err := Fetch(context.Background(), src.fetch, 0, func(n int) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestResumeStartsFromToken(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1, 2}, {3, 4}, {5, 6}}}

	var got []int
	token, err := Resume(context.Background(), src.fetch, "p1", 0, func(n int) error {
		got = append(got, n)
		return nil
	})
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty", token)
	}
	if len(got) != 4 || got[0] != 3 {
		t.Errorf("got %v, want pages from p1 onward", got)
	}
}
