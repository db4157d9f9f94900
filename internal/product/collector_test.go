package product

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared between the collector and the
// scripted fetcher.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedFetcher returns canned pages in order and can advance the clock to
// simulate slow requests.
type scriptedFetcher struct {
	pages   [][]Record
	errs    []error
	cost    time.Duration
	clock   *fakeClock
	calls   int
	gotPage []int
}

func (f *scriptedFetcher) FetchPage(_ context.Context, _ string, page int) ([]Record, error) {
	f.gotPage = append(f.gotPage, page)
	idx := f.calls
	f.calls++
	if f.cost > 0 && f.clock != nil {
		f.clock.Advance(f.cost)
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	var records []Record
	if idx < len(f.pages) {
		records = f.pages[idx]
	}
	return records, err
}

// TestCollectConcatenatesPages covers the happy path: finite non-empty pages
// followed by one empty page yield their exact concatenation, every record
// stamped with the source URL.
func TestCollectConcatenatesPages(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		pages: [][]Record{
			{{"title": "alpha"}, {"title": "beta"}},
			{{"title": "gamma"}},
			{},
		},
	}
	collector := NewCollector(fetcher, newFakeClock(), time.Minute, nil)

	records := collector.Collect(context.Background(), "https://a.test")

	require.Len(t, records, 3)
	assert.Equal(t, "alpha", records[0]["title"])
	assert.Equal(t, "gamma", records[2]["title"])
	for _, record := range records {
		assert.Equal(t, "https://a.test", record[SourceURLField])
	}
	assert.Equal(t, []int{1, 2, 3}, fetcher.gotPage, "pages must be requested sequentially from 1")
}

// TestCollectFirstPageTimeout treats a page-1 timeout as an empty listing.
func TestCollectFirstPageTimeout(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		errs: []error{context.DeadlineExceeded},
	}
	collector := NewCollector(fetcher, newFakeClock(), time.Minute, nil)

	records := collector.Collect(context.Background(), "https://slow.test")
	assert.Empty(t, records)
	assert.Equal(t, 1, fetcher.calls)
}

// TestCollectFetchErrorEndsPagination verifies non-timeout failures also end
// pagination without discarding earlier pages.
func TestCollectFetchErrorEndsPagination(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		pages: [][]Record{
			{{"title": "alpha"}},
			nil,
		},
		errs: []error{nil, errors.New("connection refused")},
	}
	collector := NewCollector(fetcher, newFakeClock(), time.Minute, nil)

	records := collector.Collect(context.Background(), "https://flaky.test")
	require.Len(t, records, 1)
	assert.Equal(t, "alpha", records[0]["title"])
}

// TestCollectBudgetDiscardsEverything asserts the all-or-nothing policy:
// exceeding the per-URL budget mid-pagination discards accumulated records.
func TestCollectBudgetDiscardsEverything(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	fetcher := &scriptedFetcher{
		pages: [][]Record{
			{{"title": "alpha"}},
			{{"title": "beta"}},
			{{"title": "gamma"}},
		},
		cost:  20 * time.Second,
		clock: clock,
	}
	collector := NewCollector(fetcher, clock, 35*time.Second, nil)

	records := collector.Collect(context.Background(), "https://slow.test")
	assert.Nil(t, records, "partial results must be discarded on budget overrun")
	// Two pages fetched (0s and 20s elapsed at check time); the 40s check aborts.
	assert.Equal(t, 2, fetcher.calls)
}

// TestCollectEmptyFirstPage returns immediately with no records.
func TestCollectEmptyFirstPage(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{pages: [][]Record{{}}}
	collector := NewCollector(fetcher, newFakeClock(), time.Minute, nil)

	records := collector.Collect(context.Background(), "https://b.test")
	assert.Empty(t, records)
	assert.Equal(t, 1, fetcher.calls)
}
