// Package amap is a client for the Amap (Gaode) Web Service REST API. It
// wraps the two operations the pipeline consumes, POI text search (v5) and
// address geocoding (v3), behind a single paced, quota-tracked, retrying
// client instance.
package amap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/bozhu/estatemap/internal/resilience"
)

const (
	defaultBaseURL = "https://restapi.amap.com"

	poiSearchPath = "/v5/place/text"
	geocodePath   = "/v3/geocode/geo"

	// Amap POI category for residential communities (商务住宅/住宅区).
	residentialPOIType = "120000"
)

// Client issues paced calls against the Amap REST API. All calls, for either
// endpoint, share one cadence, one retry bound and one daily quota counter.
// The pipeline runs batches strictly sequentially through a single Client.
type Client struct {
	key        string
	baseURL    string
	httpClient *http.Client
	pacer      *Pacer
	maxRetries int

	mu      sync.Mutex
	used    int
	quota   int // 0 = unlimited
	blocked bool
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (tests point it at a local server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPacer replaces the default pacer.
func WithPacer(p *Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// WithMaxRetries bounds retries of a single call on transient failure.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithDailyQuota caps cumulative outbound calls for the process lifetime.
// Zero means unlimited.
func WithDailyQuota(n int) Option {
	return func(c *Client) { c.quota = n }
}

// NewClient creates a Client with the given API key.
func NewClient(key string, opts ...Option) *Client {
	c := &Client{
		key:        key,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		pacer:      NewPacer(time.Second),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallsUsed returns the cumulative number of outbound calls issued.
func (c *Client) CallsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// SearchPOI searches the residential POI index for a place name within the
// given region (city). An empty result set is a legitimate no-match, not an
// error.
func (c *Client) SearchPOI(ctx context.Context, keywords, region string) (*Result, error) {
	params := url.Values{
		"key":         {c.key},
		"keywords":    {keywords},
		"region":      {region},
		"types":       {residentialPOIType},
		"show_fields": {"geo"},
	}

	var resp poiResponse
	if err := c.call(ctx, poiSearchPath, params, &resp); err != nil {
		return nil, err
	}

	for _, p := range resp.POIs {
		if p.Location.Valid {
			return &Result{Lng: p.Location.Lng, Lat: p.Location.Lat, Matched: true}, nil
		}
	}
	return &Result{}, nil
}

// GeocodeAddress geocodes a free-text address within the given city.
func (c *Client) GeocodeAddress(ctx context.Context, address, city string) (*Result, error) {
	params := url.Values{
		"key":     {c.key},
		"address": {address},
		"city":    {city},
	}

	var resp geocodeResponse
	if err := c.call(ctx, geocodePath, params, &resp); err != nil {
		return nil, err
	}

	for _, g := range resp.Geocodes {
		if g.Location.Valid {
			return &Result{Lng: g.Location.Lng, Lat: g.Location.Lat, Matched: true}, nil
		}
	}
	return &Result{}, nil
}

// call runs one logical API call: pace, count quota, fetch, classify, and
// retry transient failures up to the bound. Retries carry no extra backoff;
// the pacer re-spaces every attempt at the same cadence. Blocked and quota
// conditions short-circuit and poison the client for further calls.
func (c *Client) call(ctx context.Context, path string, params url.Values, out any) error {
	err := resilience.Do(ctx, resilience.RetryConfig{MaxAttempts: c.maxRetries + 1}, func(ctx context.Context) error {
		if err := c.admit(); err != nil {
			return err
		}

		if err := c.pacer.Wait(ctx); err != nil {
			return eris.Wrap(err, "amap: pacing interrupted")
		}
		err := c.fetch(ctx, path, params, out)
		c.pacer.Done()

		if eris.Is(err, ErrBlocked) {
			c.markBlocked()
		}
		if eris.Is(err, ErrQuotaExhausted) {
			c.exhaustQuota()
		}
		return err
	})
	if err != nil && resilience.IsTransient(err) {
		return eris.Wrapf(err, "amap: %s retries exhausted", path)
	}
	return err
}

// admit checks the blocked flag and takes one unit of quota.
func (c *Client) admit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blocked {
		return ErrBlocked
	}
	if c.quota > 0 && c.used >= c.quota {
		return ErrQuotaExhausted
	}
	c.used++
	return nil
}

func (c *Client) markBlocked() {
	c.mu.Lock()
	c.blocked = true
	c.mu.Unlock()
}

func (c *Client) exhaustQuota() {
	c.mu.Lock()
	if c.quota == 0 || c.quota > c.used {
		c.quota = c.used
	}
	c.mu.Unlock()
}

// fetch performs one HTTP round trip and classifies the outcome.
func (c *Client) fetch(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "amap: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "amap: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "amap: read body"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := eris.Errorf("amap: http %d from %s", resp.StatusCode, path)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(httpErr, resp.StatusCode)
		}
		return httpErr
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return eris.Wrap(err, "amap: parse envelope")
	}
	if env.Status != "1" {
		if err := classifyInfocode(env); err != nil {
			return err
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "amap: parse response")
	}
	return nil
}

// classifyInfocode maps a business failure to the error taxonomy.
func classifyInfocode(env envelope) error {
	apiErr := &APIError{InfoCode: env.InfoCode, Info: env.Info}
	switch {
	case quotaInfocodes[env.InfoCode]:
		return eris.Wrap(ErrQuotaExhausted, apiErr.Error())
	case blockedInfocodes[env.InfoCode]:
		return eris.Wrap(ErrBlocked, apiErr.Error())
	case throttleInfocodes[env.InfoCode]:
		return resilience.NewTransientError(apiErr, http.StatusOK)
	default:
		return apiErr
	}
}
