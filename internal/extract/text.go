// Package extract turns fetched HTML into corpus text and follow-up links.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
)

// ErrNoContent is returned when a page yields no usable text.
var ErrNoContent = errors.New("no extractable content")

var (
	jsonLineRE   = regexp.MustCompile(`^\s*[\{\[].*[\}\]]\s*$`)
	base64LineRE = regexp.MustCompile(`^[A-Za-z0-9+/=]{40,}$`)
)

// Trafilatura extracts the main content of a page and drops noise lines.
type Trafilatura struct {
	logger *zap.Logger
}

// NewTrafilatura creates the extractor.
func NewTrafilatura(logger *zap.Logger) *Trafilatura {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trafilatura{logger: logger}
}

// Extract implements crawler.Extractor.
func (t *Trafilatura) Extract(html, pageURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", ErrNoContent
	}
	opts := trafilatura.Options{
		ExcludeComments: true,
		ExcludeTables:   true,
		Deduplicate:     true,
	}
	if parsed, err := url.Parse(pageURL); err == nil {
		opts.OriginalURL = parsed
	}
	result, err := trafilatura.Extract(strings.NewReader(html), opts)
	if err != nil {
		return "", fmt.Errorf("trafilatura extract: %w", err)
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		t.logger.Debug("trafilatura returned no content", zap.String("url", pageURL))
		return "", ErrNoContent
	}
	cleaned := CleanText(result.ContentText)
	if cleaned == "" {
		t.logger.Debug("cleaning removed all content", zap.String("url", pageURL))
		return "", ErrNoContent
	}
	return cleaned, nil
}

// CleanText drops blank lines, whole-line JSON fragments and long
// base64-looking blobs, keeping the remaining lines unchanged.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		s := strings.TrimSpace(line)
		switch {
		case s == "":
		case jsonLineRE.MatchString(s):
		case base64LineRE.MatchString(s):
		default:
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
