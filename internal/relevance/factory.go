package relevance

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// ErrUnknownModel is returned for a relevance.model name with no scorer.
var ErrUnknownModel = errors.New("unknown relevance model")

type options struct {
	embedder Embedder
	logger   *zap.Logger
}

// Option customizes New.
type Option func(*options)

// WithEmbedder replaces the Ollama embedder built from the config.
func WithEmbedder(e Embedder) Option {
	return func(o *options) {
		o.embedder = e
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New builds the scorer named by cfg.Relevance.Model. Model loading and the
// keyword query embedding happen here so failures surface before crawling.
func New(ctx context.Context, cfg config.JobConfig, opts ...Option) (crawler.RelevanceScorer, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	switch cfg.Relevance.Model {
	case config.ModelKeyword:
		return NewKeyword(cfg.Keywords), nil
	case config.ModelEmbedding:
		return buildEmbedding(ctx, cfg, o)
	case config.ModelClassifier:
		return LoadClassifier(cfg.Relevance.ClassifierModelPath)
	case config.ModelHybrid:
		emb, err := buildEmbedding(ctx, cfg, o)
		if err != nil {
			return nil, err
		}
		clf, err := LoadClassifier(cfg.Relevance.ClassifierModelPath)
		if err != nil {
			return nil, err
		}
		o.logger.Info("hybrid relevance scorer ready",
			zap.Float64("alpha_embedding", cfg.Relevance.HybridAlpha),
			zap.Float64("alpha_classifier", 1-cfg.Relevance.HybridAlpha),
		)
		return NewHybrid(emb, clf, cfg.Relevance.HybridAlpha), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, cfg.Relevance.Model)
	}
}

func buildEmbedding(ctx context.Context, cfg config.JobConfig, o options) (*Embedding, error) {
	embedder := o.embedder
	if embedder == nil {
		var err error
		embedder, err = newOllamaEmbedder(cfg.Relevance)
		if err != nil {
			return nil, err
		}
	}
	var truncator Truncator
	if cfg.Relevance.EmbeddingMaxTokens > 0 {
		tt, err := NewTokenTruncator(cfg.Relevance.EmbeddingMaxTokens)
		if err != nil {
			o.logger.Warn("tokenizer unavailable; truncating by characters", zap.Error(err))
		} else {
			truncator = tt
		}
	}
	return NewEmbedding(ctx, embedder, cfg.Keywords, truncator)
}

func newOllamaEmbedder(cfg config.RelevanceConfig) (Embedder, error) {
	if cfg.EmbeddingModelName == "" {
		return nil, errors.New("relevance.embedding_model_name must be set for embedding scoring")
	}
	llmOpts := []ollama.Option{ollama.WithModel(cfg.EmbeddingModelName)}
	if cfg.EmbeddingServerURL != "" {
		llmOpts = append(llmOpts, ollama.WithServerURL(cfg.EmbeddingServerURL))
	}
	client, err := ollama.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}
