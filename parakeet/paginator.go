package parakeet

import "context"

// Page is one page of a cursor-paginated list.
type Page[T any] struct {
	Items   []T
	FirstID string
	LastID  string
	HasMore bool
}

func pageFromEnvelope[T any](env listEnvelope[T]) *Page[T] {
	return &Page[T]{
		Items:   env.Data,
		FirstID: env.FirstID,
		LastID:  env.LastID,
		HasMore: env.HasMore,
	}
}

type pageFetcher[T any] func(ctx context.Context, after string) (*Page[T], error)

// Paginator produces a lazy, finite, forward-only sequence of pages. Each
// NextPage substitutes the previous page's last ID as the cursor; the
// sequence ends when the service reports has_more false. Paginators are not
// restartable and must not be shared across goroutines.
type Paginator[T any] struct {
	fetch pageFetcher[T]
	after string
	done  bool
}

func newPaginator[T any](after string, fetch pageFetcher[T]) *Paginator[T] {
	return &Paginator[T]{fetch: fetch, after: after}
}

// HasMorePages reports whether NextPage can produce another page.
func (p *Paginator[T]) HasMorePages() bool {
	return !p.done
}

// NextPage fetches the next page. Calling it after exhaustion is an error.
func (p *Paginator[T]) NextPage(ctx context.Context) (*Page[T], error) {
	if p.done {
		return nil, newError(ErrCodeInvalidRequest, "no more pages available")
	}

	page, err := p.fetch(ctx, p.after)
	if err != nil {
		return nil, err
	}

	if page.HasMore && page.LastID != "" {
		p.after = page.LastID
	} else {
		p.done = true
	}

	return page, nil
}

// All drains the remaining pages and returns every item.
func (p *Paginator[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}
