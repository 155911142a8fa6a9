package cli

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/runner"
)

type scoreOutput struct {
	URL       string  `json:"url"`
	Chars     int     `json:"chars"`
	Lang      string  `json:"lang"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Kept      bool    `json:"kept"`
	Reason    string  `json:"reason,omitempty"`
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <url>",
		Short: "Run the filter pipeline on a single URL and print the verdict",
		Args:  cobra.ExactArgs(1),
		RunE:  runScoreCommand,
	}
}

func runScoreCommand(cmd *cobra.Command, args []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	collab, closeFetcher, err := buildCollaborators(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	out, err := scoreURL(cmd, a.cfg, collab, args[0])
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, out)
}

// scoreURL applies the same gates as the runner to one page, without robots
// or quota checks and without writing anything.
func scoreURL(cmd *cobra.Command, cfg config.JobConfig, collab runner.Collaborators, rawURL string) (scoreOutput, error) {
	out := scoreOutput{URL: rawURL, Threshold: cfg.Relevance.RelevanceThreshold}
	html, err := collab.Fetcher.Fetch(cmd.Context(), rawURL)
	if err != nil {
		return out, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	text, err := collab.Extractor.Extract(html, rawURL)
	if err != nil {
		out.Reason = "extract: " + err.Error()
		return out, nil
	}
	out.Chars = utf8.RuneCountInString(text)
	out.Lang = collab.Detector.Detect(text)
	score, err := collab.Scorer.Score(cmd.Context(), text)
	if err != nil {
		return out, fmt.Errorf("score: %w", err)
	}
	out.Score = score

	switch {
	case out.Chars < cfg.Relevance.MinChars:
		out.Reason = fmt.Sprintf("text shorter than min_chars (%d)", cfg.Relevance.MinChars)
	case !cfg.LanguageAllowed(out.Lang):
		out.Reason = "language not allowed"
	case score < cfg.Relevance.RelevanceThreshold:
		out.Reason = "below relevance threshold"
	default:
		out.Kept = true
	}
	return out, nil
}
