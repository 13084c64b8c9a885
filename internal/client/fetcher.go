package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/metrics"
)

const (
	defaultUserAgent = "idgames/1.0 (https://github.com/pders01/idgames)"
	defaultTimeout   = 30 * time.Second
)

// Fetcher performs the HTTP side of a request.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	timeout := defaultTimeout
	ua := defaultUserAgent
	if cfg != nil {
		if cfg.API.HTTPTimeout > 0 {
			timeout = cfg.API.HTTPTimeout
		}
		if cfg.API.UserAgent != "" {
			ua = cfg.API.UserAgent
		}
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: ua,
	}
}

// Fetch issues a GET for url. The caller closes the body of a successful
// response; any status outside 2xx is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml, text/xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordFetch(0, time.Since(start))
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	metrics.RecordFetch(resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	return resp, nil
}
