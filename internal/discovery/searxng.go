package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// SearXNG queries a SearXNG-compatible JSON search endpoint.
type SearXNG struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewSearXNG builds a client for endpoint, e.g. "http://localhost:8888".
func NewSearXNG(endpoint, userAgent string, timeout time.Duration) (*SearXNG, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid search endpoint %q", endpoint)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearXNG{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type searxResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements crawler.SearchEngine.
func (s *SearXNG) Search(ctx context.Context, query, lang string, limit int) ([]crawler.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if lang != "" {
		params.Set("language", lang)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: unexpected status %d", query, resp.StatusCode)
	}

	var payload searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]crawler.SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, crawler.SearchResult{URL: r.URL, Title: r.Title})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
