package relevance

import (
	"context"
	"strings"
)

// keywordSaturation is the occurrence count at which the keyword score reaches 1.
const keywordSaturation = 10.0

// Keyword scores text by how often the job keywords occur in it.
type Keyword struct {
	keywords []string
}

// NewKeyword lowercases keywords once; blank entries are ignored.
func NewKeyword(keywords []string) *Keyword {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Keyword{keywords: lowered}
}

// Score returns min(1, occurrences/10) over case-insensitive substring matches.
func (k *Keyword) Score(_ context.Context, text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range k.keywords {
		count += strings.Count(lower, kw)
	}
	return min(1.0, float64(count)/keywordSaturation), nil
}
