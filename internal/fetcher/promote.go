package fetcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// Prober performs the cheap first fetch of a URL.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (crawler.FetchResponse, error)
}

// Renderer executes a full browser render of a URL.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (crawler.FetchResponse, error)
	Close()
}

// RendererFactory builds the renderer on first use.
type RendererFactory func() (Renderer, error)

// Promoting is a crawler.Fetcher that probes with a plain HTTP transport and
// re-fetches through a renderer when the detector flags the page. The renderer
// is started lazily and any render failure falls back to the probe body.
type Promoting struct {
	prober   Prober
	detector crawler.HeadlessDetector
	factory  RendererFactory
	logger   *zap.Logger

	once     sync.Once
	renderer Renderer
	initErr  error
}

// NewPromoting wires a promoting fetcher. A nil detector or factory disables
// rendering.
func NewPromoting(
	prober Prober,
	detector crawler.HeadlessDetector,
	factory RendererFactory,
	logger *zap.Logger,
) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{
		prober:   prober,
		detector: detector,
		factory:  factory,
		logger:   logger,
	}
}

// Fetch implements crawler.Fetcher.
func (p *Promoting) Fetch(ctx context.Context, rawURL string) (string, error) {
	resp, err := p.prober.Probe(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if p.detector != nil && p.factory != nil && p.detector.ShouldPromote(resp) {
		if rendered, ok := p.render(ctx, rawURL); ok {
			resp = rendered
		}
	}
	if len(resp.Body) == 0 {
		return "", ErrEmptyBody
	}
	return string(resp.Body), nil
}

func (p *Promoting) render(ctx context.Context, rawURL string) (crawler.FetchResponse, bool) {
	r, err := p.ensureRenderer()
	if err != nil {
		return crawler.FetchResponse{}, false
	}
	resp, err := r.Render(ctx, rawURL)
	if err != nil {
		p.logger.Debug("render failed; using probe body", zap.String("url", rawURL), zap.Error(err))
		return crawler.FetchResponse{}, false
	}
	if resp.StatusCode >= 400 || len(resp.Body) == 0 {
		p.logger.Debug("render returned no usable body",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return crawler.FetchResponse{}, false
	}
	return resp, true
}

func (p *Promoting) ensureRenderer() (Renderer, error) {
	p.once.Do(func() {
		r, err := p.factory()
		if err != nil {
			p.initErr = fmt.Errorf("start renderer: %w", err)
			p.logger.Warn("headless renderer unavailable; continuing without rendering", zap.Error(err))
			return
		}
		p.renderer = r
	})
	return p.renderer, p.initErr
}

// Close releases the renderer if one was started.
func (p *Promoting) Close() {
	if p.renderer != nil {
		p.renderer.Close()
	}
}
