package woo

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func fullPage(start int) []int {
	page := make([]int, PerPage)
	for i := range page {
		page[i] = start + i
	}
	return page
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	calls := 0
	items, err := FetchAll(context.Background(), func(_ context.Context, page int) ([]int, error) {
		calls++
		if page > 2 {
			return nil, nil
		}
		return fullPage((page - 1) * PerPage), nil
	})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(items) != 2*PerPage {
		t.Errorf("expected %d items, got %d", 2*PerPage, len(items))
	}
	if calls != 3 {
		t.Errorf("expected 3 page fetches, got %d", calls)
	}
}

func TestFetchAllStopsOnShortPage(t *testing.T) {
	calls := 0
	items, err := FetchAll(context.Background(), func(_ context.Context, page int) ([]int, error) {
		calls++
		if page == 1 {
			return fullPage(0), nil
		}
		return []int{1, 2, 3}, nil
	})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(items) != PerPage+3 {
		t.Errorf("expected %d items, got %d", PerPage+3, len(items))
	}
	if calls != 2 {
		t.Errorf("short page should end pagination, got %d calls", calls)
	}
}

func TestFetchAllPageCap(t *testing.T) {
	calls := 0
	_, err := FetchAll(context.Background(), func(_ context.Context, page int) ([]int, error) {
		calls++
		return fullPage(0), nil
	})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if calls != maxPages {
		t.Errorf("expected pagination capped at %d pages, got %d", maxPages, calls)
	}
}

func TestFetchAllKeepsPartialResultsOnError(t *testing.T) {
	boom := errors.New("page 3 exploded")
	items, err := FetchAll(context.Background(), func(_ context.Context, page int) ([]int, error) {
		if page == 3 {
			return nil, boom
		}
		return fullPage((page - 1) * PerPage), nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected page error, got %v", err)
	}
	if len(items) != 2*PerPage {
		t.Errorf("expected %d accumulated items preserved, got %d", 2*PerPage, len(items))
	}
}

func TestFetchAllFirstPageError(t *testing.T) {
	items, err := FetchAll(context.Background(), func(_ context.Context, page int) ([]string, error) {
		return nil, fmt.Errorf("unreachable")
	})
	if err == nil {
		t.Fatal("expected error from first page")
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}
