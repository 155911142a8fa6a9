package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

type mockEngine struct{ mock.Mock }

func (m *mockEngine) Search(ctx context.Context, query, lang string, limit int) ([]crawler.SearchResult, error) {
	args := m.Called(ctx, query, lang, limit)
	res, _ := args.Get(0).([]crawler.SearchResult)
	return res, args.Error(1)
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	require.Equal(t, "example.com", NormalizeDomain("https://WWW.Example.com/path"))
	require.Equal(t, "example.com:8080", NormalizeDomain("http://example.com:8080/"))
	require.Empty(t, NormalizeDomain("::bad"))
}

func TestBuildSeedsDedupesConfiguredSeeds(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{}
	b := NewBuilder(engine, zap.NewNop())
	cfg := config.JobConfig{Seeds: []string{
		"https://www.news.test/a",
		"https://news.test/b",
		" ",
		"https://stats.test/",
	}}
	seeds, err := b.BuildSeeds(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.news.test/a", "https://stats.test/"}, seeds)
	engine.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuildSeedsFallsBackToSearch(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{}
	engine.On("Search", mock.Anything, "inflation", "en", 5).Return([]crawler.SearchResult{
		{URL: "https://a.test/1"},
		{URL: "https://www.a.test/2"},
		{URL: "https://b.test/"},
	}, nil)
	engine.On("Search", mock.Anything, "prices", "en", 5).Return(nil, errors.New("rate limited"))
	engine.On("Search", mock.Anything, "inflation", "fr", 5).Return([]crawler.SearchResult{
		{URL: "https://c.test/"},
		{URL: "https://d.test/"},
	}, nil)

	cfg := config.JobConfig{
		Keywords:  []string{"inflation", "prices", ""},
		Languages: []string{"en", "fr"},
		Limits:    config.LimitsConfig{MaxDomains: 3},
		Search:    config.SearchConfig{ResultsPerQuery: 5},
	}
	seeds, err := NewBuilder(engine, zap.NewNop()).BuildSeeds(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.test/1", "https://b.test/", "https://c.test/"}, seeds)
	engine.AssertNumberOfCalls(t, "Search", 3)
}

func TestBuildSeedsWithNoopEngine(t *testing.T) {
	t.Parallel()

	cfg := config.JobConfig{Keywords: []string{"x"}, Languages: []string{"en"}, Limits: config.LimitsConfig{MaxDomains: 5}}
	seeds, err := NewBuilder(nil, nil).BuildSeeds(context.Background(), cfg)
	require.NoError(t, err)
	require.Empty(t, seeds)
}

func TestSearXNGSearch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("format") != "json" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("q") != "inflation" || r.URL.Query().Get("language") != "de" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"url":"https://a.test/","title":"A"},{"url":""},{"url":"https://b.test/","title":"B"},{"url":"https://c.test/"}]}`)
	}))
	defer server.Close()

	engine, err := NewSearXNG(server.URL+"/", "test-agent", time.Second)
	require.NoError(t, err)
	results, err := engine.Search(context.Background(), "inflation", "de", 2)
	require.NoError(t, err)
	require.Equal(t, []crawler.SearchResult{
		{URL: "https://a.test/", Title: "A"},
		{URL: "https://b.test/", Title: "B"},
	}, results)
}

func TestSearXNGErrors(t *testing.T) {
	t.Parallel()

	_, err := NewSearXNG("not a url", "", 0)
	require.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "garbage" {
			fmt.Fprint(w, "<html>")
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	engine, err := NewSearXNG(server.URL, "", time.Second)
	require.NoError(t, err)
	_, err = engine.Search(context.Background(), "inflation", "", 10)
	require.ErrorContains(t, err, "unexpected status 429")
	_, err = engine.Search(context.Background(), "garbage", "", 10)
	require.ErrorContains(t, err, "decode search response")
}
