package product

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Collector paginates a single storefront until its listing is exhausted or a
// wall-clock budget runs out.
type Collector struct {
	fetcher PageFetcher
	clock   Clock
	budget  time.Duration
	logger  *zap.Logger
}

// NewCollector builds a Collector. A non-positive budget falls back to
// DefaultURLBudget.
func NewCollector(fetcher PageFetcher, clock Clock, budget time.Duration, logger *zap.Logger) *Collector {
	if budget <= 0 {
		budget = DefaultURLBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		fetcher: fetcher,
		clock:   clock,
		budget:  budget,
		logger:  logger,
	}
}

// Collect fetches pages 1, 2, 3, ... of baseURL until a page comes back empty
// or the cumulative wall-clock budget is exceeded. Every returned record is
// stamped with source_url = baseURL.
//
// A budget overrun discards everything gathered for this URL; slow storefronts
// yield all-or-nothing, never partial data. The budget is checked once per
// iteration, before each fetch, so a single slow in-flight request can
// overshoot it.
//
// Failed or timed-out pages end pagination the same way an empty page does;
// the distinction surfaces only in the log.
func (c *Collector) Collect(ctx context.Context, baseURL string) []Record {
	var records []Record
	start := c.clock.Now()

	for page := 1; ; page++ {
		if elapsed := c.clock.Now().Sub(start); elapsed > c.budget {
			c.logger.Warn("url budget exceeded, discarding accumulated records",
				zap.String("url", baseURL),
				zap.Duration("budget", c.budget),
				zap.Duration("elapsed", elapsed),
				zap.Int("pages_fetched", page-1),
				zap.Int("records_discarded", len(records)),
			)
			return nil
		}

		pageRecords, err := c.fetcher.FetchPage(ctx, baseURL, page)
		if err != nil {
			if IsTimeout(err) {
				c.logger.Warn("page request timed out, skipping",
					zap.String("url", baseURL),
					zap.Int("page", page),
					zap.Error(err),
				)
			} else {
				c.logger.Error("page request failed",
					zap.String("url", baseURL),
					zap.Int("page", page),
					zap.Error(err),
				)
			}
			pageRecords = nil
		}
		if len(pageRecords) == 0 {
			break
		}
		records = append(records, pageRecords...)
	}

	for _, record := range records {
		record[SourceURLField] = baseURL
	}
	return records
}
