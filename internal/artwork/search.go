package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultSearchURL    = "https://itunes.apple.com/search"
	DefaultFallbackPath = "/api/itunes-search"
	defaultUserAgent    = "nowcard/0.1"
	searchTimeout       = 8 * time.Second

	// maxSearchBytes bounds a search response body.
	maxSearchBytes = 1 << 20
)

// Searcher queries the primary search endpoint and, when that fails, the
// same-origin proxy. Either URL may be empty to skip that tier.
type Searcher struct {
	PrimaryURL  string
	FallbackURL string
	HTTP        *http.Client
	UserAgent   string
}

// NewSearcher builds a Searcher with a default HTTP client when none is given.
func NewSearcher(primaryURL, fallbackURL string, httpClient *http.Client) *Searcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: searchTimeout}
	}
	return &Searcher{
		PrimaryURL:  primaryURL,
		FallbackURL: fallbackURL,
		HTTP:        httpClient,
		UserAgent:   defaultUserAgent,
	}
}

// Search returns the record for term. The error reports the last tier's
// failure when no tier answered; a tier that answers with zero results is a
// success with an empty record.
func (s *Searcher) Search(ctx context.Context, term string) (Record, error) {
	if term == "" {
		return Record{}, nil
	}
	query := searchQuery(term)

	var lastErr error
	for _, endpoint := range []string{s.PrimaryURL, s.FallbackURL} {
		if endpoint == "" {
			continue
		}
		resp, err := s.fetch(ctx, endpoint, query)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return recordFrom(resp), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no search endpoint configured")
	}
	return Record{}, lastErr
}

func searchQuery(term string) string {
	values := url.Values{}
	values.Set("term", term)
	values.Set("entity", "song")
	values.Set("limit", "1")
	return values.Encode()
}

func (s *Searcher) fetch(ctx context.Context, endpoint, query string) (searchResponse, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return searchResponse{}, fmt.Errorf("parse search url %q: %w", endpoint, err)
	}
	u.RawQuery = query

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return searchResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return searchResponse{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return searchResponse{}, fmt.Errorf("search %s returned status %d", u.Host+u.Path, resp.StatusCode)
	}
	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSearchBytes)).Decode(&payload); err != nil {
		return searchResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}
