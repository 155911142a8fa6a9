// Package relevance provides the RelevanceScorer variants: keyword counting,
// embedding similarity, a linear document classifier and their hybrid.
package relevance
