// Package product defines the core types and collection logic for paginated
// storefront product listings.
package product

import (
	"context"
	"time"
)

// SourceURLField is the record field stamped with the originating base URL.
const SourceURLField = "source_url"

// Defaults applied when configuration leaves the knobs unset.
const (
	DefaultPageTimeout = 10 * time.Second
	DefaultURLBudget   = 35 * time.Second
	DefaultNumBatches  = 4
)

// Record is a single product as returned by a storefront listing endpoint.
// The shape is whatever the endpoint sent; no schema is enforced beyond the
// source_url stamp added during collection.
type Record map[string]any

// PageFetcher retrieves one page of a storefront's product listing.
type PageFetcher interface {
	// FetchPage requests page number page of baseURL's listing. An empty slice
	// with a nil error means the listing is exhausted.
	FetchPage(ctx context.Context, baseURL string, page int) ([]Record, error)
}

// Clock abstracts time.Now so collection budgets are testable.
type Clock interface {
	Now() time.Time
}
