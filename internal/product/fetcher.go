package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// FetcherConfig controls the page fetch transport.
type FetcherConfig struct {
	UserAgent string
	// Timeout bounds each individual page request.
	Timeout time.Duration
}

// CollyFetcher implements PageFetcher using the Colly collector.
type CollyFetcher struct {
	cfg           FetcherConfig
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollyFetcher builds a CollyFetcher. Each FetchPage call clones the base
// collector so per-request state never leaks between pages.
func NewCollyFetcher(cfg FetcherConfig, logger *zap.Logger) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPageTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Clones share the base collector's visited-URL store; without revisits a
	// duplicate base URL, or a second run in the same process, would hit
	// AlreadyVisitedError and read as end-of-pagination.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &CollyFetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// PageURL builds the listing URL for one page of a storefront.
func PageURL(baseURL string, page int) string {
	return fmt.Sprintf("%s/products.json?page=%d", baseURL, page)
}

// FetchPage executes a single GET against the storefront listing endpoint and
// decodes the products array. A missing or empty products key yields an empty
// slice, which callers treat as the end of pagination.
func (f *CollyFetcher) FetchPage(ctx context.Context, baseURL string, page int) ([]Record, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			status = r.StatusCode
		}
	})

	pageURL := PageURL(baseURL, page)
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch page %d of %s: %w", page, baseURL, ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("fetch page %d of %s: %w", page, baseURL, err)
		}
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch page %d of %s: %w", page, baseURL, fetchErr)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("fetch page %d of %s: unexpected status %d", page, baseURL, status)
	}

	var payload struct {
		Products []Record `json:"products"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode page %d of %s: %w", page, baseURL, err)
	}
	// A JSON null in the products array decodes to a nil map; drop those so
	// downstream stamping never writes into a nil record.
	records := make([]Record, 0, len(payload.Products))
	for _, record := range payload.Products {
		if record == nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// IsTimeout reports whether a fetch error was caused by the per-request
// timeout rather than some other request-level failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
