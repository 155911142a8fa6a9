// Package detector decides when a fetched page needs a headless render.
package detector

import (
	"bytes"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

const (
	defaultBodyThreshold = 2048
	// minVisibleRunes is the amount of body text below which a page is considered a shell.
	minVisibleRunes     = 200
	scriptCoveragePct   = 25
)

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. A zero threshold uses the default.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultBodyThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMountSelectors = []string{
	"#__next",
	"#root",
	"#app",
	"[data-reactroot]",
	"[ng-app]",
	"[data-server-rendered]",
}

// ShouldPromote reports whether resp looks like a client-rendered shell.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	if !hasSPAMount(doc) {
		return false
	}
	return visibleRunes(doc) < minVisibleRunes
}

func hasSPAMount(doc *goquery.Document) bool {
	for _, sel := range spaMountSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func visibleRunes(doc *goquery.Document) int {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return utf8.RuneCountInString(strings.TrimSpace(body.Text()))
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// malformed tag swallows the rest of the document
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1
		end := strings.Index(lower[contentStart:], closeTag)
		next := total
		if end != -1 {
			next = contentStart + end + len(closeTag)
		}
		coverage += next - start
		pos = next
	}
	return coverage*100/total >= scriptCoveragePct
}
