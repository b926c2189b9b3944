// ABOUTME: Paginated fetch loop over list endpoints
// ABOUTME: Accumulates pages until the upstream is exhausted or the cap is hit
package woo

import "context"

// maxPages bounds pagination against an upstream that never reports
// exhaustion.
const maxPages = 100

// PageFunc fetches one page of a list resource.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, error)

// FetchAll drives fetch across pages 1, 2, 3, ... until an empty page, a
// page-size shortfall, or the page cap. A mid-run error halts pagination but
// returns the items accumulated so far alongside the error, so callers can
// keep partial results.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		items, err := fetch(ctx, page)
		if err != nil {
			return all, err
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
		if len(items) < PerPage {
			break
		}
	}
	return all, nil
}
