package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

type mockProber struct{ mock.Mock }

func (m *mockProber) Probe(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(crawler.FetchResponse), args.Error(1)
}

type mockRenderer struct{ mock.Mock }

func (m *mockRenderer) Render(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(crawler.FetchResponse), args.Error(1)
}

func (m *mockRenderer) Close() { m.Called() }

type stubDetector bool

func (s stubDetector) ShouldPromote(crawler.FetchResponse) bool { return bool(s) }

const pageURL = "https://example.com/a"

func TestPromotingReturnsProbeBodyWithoutPromotion(t *testing.T) {
	t.Parallel()

	prober := &mockProber{}
	prober.On("Probe", mock.Anything, pageURL).
		Return(crawler.FetchResponse{StatusCode: 200, Body: []byte("<p>hi</p>")}, nil)

	built := false
	f := NewPromoting(prober, stubDetector(false), func() (Renderer, error) {
		built = true
		return nil, errors.New("unused")
	}, zap.NewNop())

	body, err := f.Fetch(context.Background(), pageURL)
	require.NoError(t, err)
	require.Equal(t, "<p>hi</p>", body)
	require.False(t, built, "renderer is built lazily")
	f.Close()
}

func TestPromotingUsesRenderedBody(t *testing.T) {
	t.Parallel()

	prober := &mockProber{}
	prober.On("Probe", mock.Anything, pageURL).
		Return(crawler.FetchResponse{StatusCode: 200, Body: []byte(`<div id="root"></div>`)}, nil)
	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything, pageURL).
		Return(crawler.FetchResponse{StatusCode: 200, Body: []byte("<p>rendered</p>"), UsedHeadless: true}, nil).Twice()
	renderer.On("Close").Once()

	calls := 0
	f := NewPromoting(prober, stubDetector(true), func() (Renderer, error) {
		calls++
		return renderer, nil
	}, nil)

	for range 2 {
		body, err := f.Fetch(context.Background(), pageURL)
		require.NoError(t, err)
		require.Equal(t, "<p>rendered</p>", body)
	}
	require.Equal(t, 1, calls)
	f.Close()
	renderer.AssertExpectations(t)
}

func TestPromotingFallsBackOnRenderFailure(t *testing.T) {
	t.Parallel()

	prober := &mockProber{}
	prober.On("Probe", mock.Anything, pageURL).
		Return(crawler.FetchResponse{StatusCode: 200, Body: []byte("shell")}, nil)
	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything, pageURL).
		Return(crawler.FetchResponse{}, errors.New("navigation timeout"))

	f := NewPromoting(prober, stubDetector(true), func() (Renderer, error) { return renderer, nil }, zap.NewNop())
	body, err := f.Fetch(context.Background(), pageURL)
	require.NoError(t, err)
	require.Equal(t, "shell", body)
}

func TestPromotingFallsBackWhenRendererUnavailable(t *testing.T) {
	t.Parallel()

	prober := &mockProber{}
	prober.On("Probe", mock.Anything, pageURL).
		Return(crawler.FetchResponse{StatusCode: 200}, nil)

	calls := 0
	f := NewPromoting(prober, stubDetector(true), func() (Renderer, error) {
		calls++
		return nil, errors.New("no chrome")
	}, zap.NewNop())

	for range 2 {
		_, err := f.Fetch(context.Background(), pageURL)
		require.ErrorIs(t, err, ErrEmptyBody)
	}
	require.Equal(t, 1, calls, "construction is attempted once")
	f.Close()
}

func TestPromotingPropagatesProbeError(t *testing.T) {
	t.Parallel()

	prober := &mockProber{}
	probeErr := errors.New("dial tcp: refused")
	prober.On("Probe", mock.Anything, pageURL).Return(crawler.FetchResponse{}, probeErr)

	f := NewPromoting(prober, nil, nil, nil)
	_, err := f.Fetch(context.Background(), pageURL)
	require.ErrorIs(t, err, probeErr)
}
