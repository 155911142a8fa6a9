package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// ClassifierModel is a logistic model over stemmed term frequencies.
type ClassifierModel struct {
	PositiveLabel string             `json:"positive_label"`
	Language      string             `json:"language"`
	Bias          float64            `json:"bias"`
	Weights       map[string]float64 `json:"weights"`
}

// Classifier scores text with the probability of the model's positive label.
type Classifier struct {
	model ClassifierModel
}

// LoadClassifier reads a ClassifierModel from a JSON file.
func LoadClassifier(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from job config
	if err != nil {
		return nil, fmt.Errorf("read classifier model %s: %w", path, err)
	}
	var model ClassifierModel
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("decode classifier model %s: %w", path, err)
	}
	return NewClassifier(model)
}

// NewClassifier validates model and returns a scorer for it.
func NewClassifier(model ClassifierModel) (*Classifier, error) {
	if len(model.Weights) == 0 {
		return nil, fmt.Errorf("classifier model has no weights")
	}
	if model.Language == "" {
		model.Language = "english"
	}
	if _, err := snowball.Stem("test", model.Language, true); err != nil {
		return nil, fmt.Errorf("classifier language %q: %w", model.Language, err)
	}
	return &Classifier{model: model}, nil
}

// Score returns sigmoid(bias + sum(weight * tf)) where tf is the stemmed term
// count divided by the number of tokens.
func (c *Classifier) Score(_ context.Context, text string) (float64, error) {
	tokens := c.tokens(text)
	if len(tokens) == 0 {
		return 0, nil
	}
	z := c.model.Bias
	total := float64(len(tokens))
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	for term, n := range counts {
		if w, ok := c.model.Weights[term]; ok {
			z += w * float64(n) / total
		}
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (c *Classifier) tokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		stemmed, err := snowball.Stem(w, c.model.Language, true)
		if err != nil || stemmed == "" {
			stemmed = w
		}
		out = append(out, stemmed)
	}
	return out
}
