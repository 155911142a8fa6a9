package relevance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/corpus-crawler/internal/config"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Error(1)
}

type fixedScorer float64

func (f fixedScorer) Score(context.Context, string) (float64, error) { return float64(f), nil }

func TestKeywordScore(t *testing.T) {
	t.Parallel()

	k := NewKeyword([]string{"Wine", " ", "vin"})
	ctx := context.Background()

	score, err := k.Score(ctx, "")
	require.NoError(t, err)
	require.Zero(t, score)

	score, err = k.Score(ctx, "WINE and wine, no beer")
	require.NoError(t, err)
	require.InDelta(t, 0.2, score, 1e-9)

	// "vin" also matches inside "vinyl"
	score, err = k.Score(ctx, "vinyl")
	require.NoError(t, err)
	require.InDelta(t, 0.1, score, 1e-9)

	score, err = k.Score(ctx, strings.Repeat("wine ", 25))
	require.NoError(t, err)
	require.Equal(t, 1.0, score)
}

func TestEmbeddingScoreUsesQueryVector(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	emb := &mockEmbedder{}
	emb.On("EmbedQuery", ctx, "wine grapes").Return([]float32{1, 0}, nil).Once()
	emb.On("EmbedQuery", ctx, "same").Return([]float32{2, 0}, nil).Once()
	emb.On("EmbedQuery", ctx, "orthogonal").Return([]float32{0, 3}, nil).Once()

	scorer, err := NewEmbedding(ctx, emb, []string{"wine", "grapes"}, nil)
	require.NoError(t, err)

	score, err := scorer.Score(ctx, "same")
	require.NoError(t, err)
	require.InDelta(t, 1.0, score, 1e-9)

	score, err = scorer.Score(ctx, "orthogonal")
	require.NoError(t, err)
	require.InDelta(t, 0.0, score, 1e-9)

	score, err = scorer.Score(ctx, "")
	require.NoError(t, err)
	require.Zero(t, score)
	emb.AssertExpectations(t)
}

func TestEmbeddingErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := NewEmbedding(ctx, nil, []string{"wine"}, nil)
	require.Error(t, err)

	emb := &mockEmbedder{}
	_, err = NewEmbedding(ctx, emb, nil, nil)
	require.Error(t, err)

	failing := &mockEmbedder{}
	failing.On("EmbedQuery", ctx, "wine").Return(nil, errors.New("offline")).Once()
	_, err = NewEmbedding(ctx, failing, []string{"wine"}, nil)
	require.ErrorContains(t, err, "offline")

	mismatched := &mockEmbedder{}
	mismatched.On("EmbedQuery", ctx, "wine").Return([]float32{1, 0}, nil).Once()
	mismatched.On("EmbedQuery", ctx, "text").Return([]float32{1, 0, 0}, nil).Once()
	scorer, err := NewEmbedding(ctx, mismatched, []string{"wine"}, nil)
	require.NoError(t, err)
	_, err = scorer.Score(ctx, "text")
	require.ErrorContains(t, err, "dimensions")
}

func TestRuneTruncator(t *testing.T) {
	t.Parallel()

	require.Equal(t, "châ", RuneTruncator{Max: 3}.Truncate("château"))
	require.Equal(t, "vin", RuneTruncator{Max: 10}.Truncate("vin"))
	require.Equal(t, "vin", RuneTruncator{}.Truncate("vin"))
}

func TestClassifierScore(t *testing.T) {
	t.Parallel()

	clf, err := NewClassifier(ClassifierModel{
		PositiveLabel: "wine",
		Language:      "english",
		Bias:          -1,
		Weights:       map[string]float64{"wine": 4, "vineyard": 4},
	})
	require.NoError(t, err)
	ctx := context.Background()

	neutral, err := clf.Score(ctx, "the stock market fell today")
	require.NoError(t, err)
	positive, err := clf.Score(ctx, "Wines from the vineyards")
	require.NoError(t, err)
	empty, err := clf.Score(ctx, "  ")
	require.NoError(t, err)

	require.Less(t, neutral, 0.5)
	require.Greater(t, positive, neutral)
	require.Zero(t, empty)
}

func TestLoadClassifier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"positive_label":"wine","language":"french","bias":0,"weights":{"vin":2}}`), 0o600))
	clf, err := LoadClassifier(good)
	require.NoError(t, err)
	score, err := clf.Score(context.Background(), "le vin rouge")
	require.NoError(t, err)
	require.Greater(t, score, 0.5)

	_, err = LoadClassifier(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"weights":{"a":1},"language":"klingon"}`), 0o600))
	_, err = LoadClassifier(bad)
	require.ErrorContains(t, err, "klingon")

	_, err = NewClassifier(ClassifierModel{})
	require.Error(t, err)
}

func TestHybridBlendsScores(t *testing.T) {
	t.Parallel()

	h := NewHybrid(fixedScorer(1), fixedScorer(0), 0.25)
	score, err := h.Score(context.Background(), "x")
	require.NoError(t, err)
	require.InDelta(t, 0.25, score, 1e-9)
}

func TestNewSelectsModel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.JobConfig{Keywords: []string{"wine"}}

	cfg.Relevance.Model = config.ModelKeyword
	scorer, err := New(ctx, cfg)
	require.NoError(t, err)
	require.IsType(t, &Keyword{}, scorer)

	cfg.Relevance.Model = "bm25"
	_, err = New(ctx, cfg)
	require.ErrorIs(t, err, ErrUnknownModel)

	emb := &mockEmbedder{}
	emb.On("EmbedQuery", ctx, "wine").Return([]float32{1}, nil)
	cfg.Relevance.Model = config.ModelEmbedding
	scorer, err = New(ctx, cfg, WithEmbedder(emb))
	require.NoError(t, err)
	require.IsType(t, &Embedding{}, scorer)

	modelPath := filepath.Join(t.TempDir(), "clf.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(`{"weights":{"wine":1}}`), 0o600))
	cfg.Relevance.Model = config.ModelHybrid
	cfg.Relevance.ClassifierModelPath = modelPath
	cfg.Relevance.HybridAlpha = 0.5
	scorer, err = New(ctx, cfg, WithEmbedder(emb))
	require.NoError(t, err)
	require.IsType(t, &Hybrid{}, scorer)

	cfg.Relevance.Model = config.ModelClassifier
	scorer, err = New(ctx, cfg)
	require.NoError(t, err)
	require.IsType(t, &Classifier{}, scorer)
}
