package remote

import "context"

// ListPage is one page of a paginated list call.
type ListPage struct {
	Objects []RawObject
	HasMore bool
}

// Fetcher is the boundary to the provider API. Implementations surface typed
// failures (*FetchError, *NotFoundError); they do not retry.
type Fetcher interface {
	// Fetch retrieves the canonical current state of one object.
	Fetch(ctx context.Context, kind, remoteID string, actx AccountContext) (RawObject, error)
	// FetchPage retrieves one page of objects of a kind, resuming after the
	// given remote id ("" for the first page).
	FetchPage(ctx context.Context, kind string, filters map[string]string, startingAfter string, actx AccountContext) (*ListPage, error)
}

// Creator is the boundary for the one mutating call the sync layer makes:
// creating a provider object that should exist but doesn't. The idempotency
// token prevents duplicate creation under retry.
type Creator interface {
	Create(ctx context.Context, kind string, params map[string]string, idempotencyToken string, actx AccountContext) (RawObject, error)
}

// Iterator walks a paginated list lazily. Usage:
//
//	it := List(fetcher, kind, filters, actx)
//	for it.Next(ctx) {
//		obj := it.Object()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	fetcher Fetcher
	kind    string
	filters map[string]string
	actx    AccountContext

	page    []RawObject
	pos     int
	lastID  string
	hasMore bool
	started bool
	err     error
}

// List returns an iterator over all objects of a kind matching the filters.
func List(fetcher Fetcher, kind string, filters map[string]string, actx AccountContext) *Iterator {
	return &Iterator{fetcher: fetcher, kind: kind, filters: filters, actx: actx}
}

// Next advances to the next object, fetching pages as needed.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	it.pos++
	if it.pos < len(it.page) {
		return true
	}
	if it.started && !it.hasMore {
		return false
	}

	page, err := it.fetcher.FetchPage(ctx, it.kind, it.filters, it.lastID, it.actx)
	if err != nil {
		it.err = err
		return false
	}
	it.started = true
	it.page = page.Objects
	it.pos = 0
	it.hasMore = page.HasMore
	if len(page.Objects) == 0 {
		return false
	}
	it.lastID = page.Objects[len(page.Objects)-1].ID()
	return true
}

// Object returns the current object. Valid only after Next returned true.
func (it *Iterator) Object() RawObject {
	return it.page[it.pos]
}

// Err returns the first error encountered while iterating.
func (it *Iterator) Err() error {
	return it.err
}
