package relevance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// maxSnippetRunes caps the text sent for embedding when no tokenizer is set.
const maxSnippetRunes = 3000

// Embedder turns a text into a vector. langchaingo's embeddings.Embedder
// satisfies it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Truncator shortens text to the embedder's input budget.
type Truncator interface {
	Truncate(text string) string
}

// Embedding scores text by cosine similarity with the keyword query.
type Embedding struct {
	embedder  Embedder
	truncator Truncator
	query     []float32
}

// NewEmbedding embeds the joined keywords once and keeps the vector.
func NewEmbedding(ctx context.Context, embedder Embedder, keywords []string, truncator Truncator) (*Embedding, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	query := strings.TrimSpace(strings.Join(keywords, " "))
	if query == "" {
		return nil, errors.New("keywords are required for embedding scoring")
	}
	vec, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed keyword query: %w", err)
	}
	if len(vec) == 0 {
		return nil, errors.New("embed keyword query: empty vector")
	}
	if truncator == nil {
		truncator = RuneTruncator{Max: maxSnippetRunes}
	}
	return &Embedding{embedder: embedder, truncator: truncator, query: vec}, nil
}

// Score returns the cosine similarity in [-1, 1] between text and the query.
func (e *Embedding) Score(ctx context.Context, text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	vec, err := e.embedder.EmbedQuery(ctx, e.truncator.Truncate(text))
	if err != nil {
		return 0, fmt.Errorf("embed text: %w", err)
	}
	return cosine(e.query, vec)
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// RuneTruncator keeps the first Max runes.
type RuneTruncator struct {
	Max int
}

// Truncate implements Truncator.
func (r RuneTruncator) Truncate(text string) string {
	if r.Max <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == r.Max {
			return text[:i]
		}
		n++
	}
	return text
}

// TokenTruncator keeps the first Max tokens under a tiktoken encoding.
type TokenTruncator struct {
	codec tokenizer.Codec
	max   int
}

// NewTokenTruncator loads the cl100k_base codec.
func NewTokenTruncator(maxTokens int) (*TokenTruncator, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &TokenTruncator{codec: codec, max: maxTokens}, nil
}

// Truncate implements Truncator. Encoding failures fall back to a rune cut.
func (t *TokenTruncator) Truncate(text string) string {
	if t.max <= 0 {
		return text
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return RuneTruncator{Max: maxSnippetRunes}.Truncate(text)
	}
	if len(ids) <= t.max {
		return text
	}
	out, err := t.codec.Decode(ids[:t.max])
	if err != nil {
		return RuneTruncator{Max: maxSnippetRunes}.Truncate(text)
	}
	return out
}
