// Package scrape collects listing rows from the fang.com portal pages. The
// portal tolerates slow, browser-looking traffic; the fetcher paces itself,
// sends desktop headers and treats verification interstitials as a hard
// stop rather than something to fight through.
package scrape

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrBlocked is returned when the portal serves an anti-bot interstitial.
// Continuing would only dig the hole deeper, so the whole scrape stops.
var ErrBlocked = errors.New("scrape: blocked by portal")

// minPageBytes guards against truncated responses; a real listing page is
// far larger.
const minPageBytes = 1000

// Fetcher downloads portal pages at a polite pace.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	referer string
}

// NewFetcher creates a Fetcher that spaces page fetches at least interval
// apart.
func NewFetcher(interval time.Duration, referer string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		referer: referer,
	}
}

// WithHTTPClient swaps the underlying HTTP client, used by tests.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// Fetch downloads one page. Returns ErrBlocked when the portal serves an
// interstitial instead of listings.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "scrape: pacing interrupted")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %s", pageURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: read %s", pageURL)
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Wrapf(ErrBlocked, "scrape: %s (%s)", pageURL, blockType)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("scrape: status %d from %s", resp.StatusCode, pageURL)
	}
	if len(body) < minPageBytes {
		return nil, eris.Errorf("scrape: truncated page %s (%d bytes)", pageURL, len(body))
	}
	return body, nil
}
