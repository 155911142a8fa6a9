package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var skippedHrefPrefixes = []string{"#", "mailto:", "tel:", "javascript:"}

// Links returns the absolute http(s) links of html that share base's host,
// with fragments removed, in document order and without duplicates.
type Links struct{}

// NewLinks creates the link extractor.
func NewLinks() Links {
	return Links{}
}

// Links implements crawler.LinkExtractor.
func (Links) Links(html, baseURL string) []string {
	if html == "" {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || hasSkippedPrefix(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if abs.Host != base.Host {
			return
		}
		abs.Fragment = ""
		abs.RawFragment = ""
		link := abs.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	return out
}

func hasSkippedPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range skippedHrefPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
