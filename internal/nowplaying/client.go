package nowplaying

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrEnvelope means the endpoint answered but the response is not usable
	// (success was not true, or no title/track/song was present).
	ErrEnvelope = errors.New("nowplaying: response not usable")
	// ErrStatus wraps non-success HTTP statuses.
	ErrStatus = errors.New("nowplaying: unexpected status")
)

// Result is the outcome of one successful poll. Playing is false when the
// payload was usable but announced no displayable track (dead air).
type Result struct {
	Track   Track
	Playing bool
}

// Fetcher is implemented by *Client and by test doubles.
type Fetcher interface {
	Fetch(ctx context.Context) (Result, error)
}

var _ Fetcher = (*Client)(nil)

// Client polls a now-playing endpoint.
type Client struct {
	endpoint  *url.URL
	http      *http.Client
	userAgent string
}

const (
	DefaultEndpoint  = "/api/now-playing"
	defaultUserAgent = "nowcard/0.1"
	requestTimeout   = 8 * time.Second
)

// NewClient resolves endpoint against baseURL. An absolute endpoint ignores
// baseURL. A nil httpClient gets a default with an 8 second timeout.
func NewClient(baseURL, endpoint string, httpClient *http.Client) (*Client, error) {
	u, err := ResolveURL(baseURL, endpoint)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{endpoint: u, http: httpClient, userAgent: defaultUserAgent}, nil
}

// Endpoint returns the resolved URL being polled.
func (c *Client) Endpoint() string { return c.endpoint.String() }

// Fetch performs one poll. Transport and status failures return errors so the
// caller can keep its previous state.
func (c *Client) Fetch(ctx context.Context) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("client is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: %s returned %d", ErrStatus, c.endpoint.Path, resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if !Usable(payload) {
		return Result{}, ErrEnvelope
	}
	track, ok := Normalize(payload)
	return Result{Track: track, Playing: ok}, nil
}

// ResolveURL joins a site base URL and a path or absolute URL.
func ResolveURL(baseURL, ref string) (*url.URL, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = DefaultEndpoint
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", ref, err)
	}
	if refURL.IsAbs() {
		return refURL, nil
	}
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return nil, fmt.Errorf("relative endpoint %q needs a base url", ref)
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	baseU, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return baseU.ResolveReference(refURL), nil
}
