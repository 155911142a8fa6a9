package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL strips the fragment and lowercases the host. Scheme, path and
// query are kept as given, so two URLs differing only there stay distinct.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// Origin returns scheme://host[:port] for rawURL. Unparseable input is
// returned unchanged so it still maps to a stable key.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// Domain returns the host[:port] written into output records.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
