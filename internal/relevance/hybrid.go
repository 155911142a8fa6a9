package relevance

import (
	"context"
	"fmt"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// Hybrid blends two scorers as alpha*first + (1-alpha)*second.
type Hybrid struct {
	embedding  crawler.RelevanceScorer
	classifier crawler.RelevanceScorer
	alpha      float64
}

// NewHybrid weights the embedding score by alpha and the classifier by 1-alpha.
func NewHybrid(embedding, classifier crawler.RelevanceScorer, alpha float64) *Hybrid {
	return &Hybrid{embedding: embedding, classifier: classifier, alpha: alpha}
}

// Score implements crawler.RelevanceScorer.
func (h *Hybrid) Score(ctx context.Context, text string) (float64, error) {
	se, err := h.embedding.Score(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("hybrid embedding score: %w", err)
	}
	sc, err := h.classifier.Score(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("hybrid classifier score: %w", err)
	}
	return h.alpha*se + (1-h.alpha)*sc, nil
}
