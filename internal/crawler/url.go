package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL so the visited set treats trivially
// different spellings as one page. It lowercases the scheme and host,
// removes default ports, drops the fragment, and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("not an absolute url: %q", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ResolveURL resolves href against base using standard resolution rules.
// Already-absolute hrefs come back unchanged; relative, protocol-relative,
// and fragment-only hrefs resolve against the base.
func ResolveURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	abs := base.ResolveReference(ref)
	if !abs.IsAbs() || abs.Host == "" {
		return "", fmt.Errorf("unresolvable href: %q", href)
	}
	return abs.String(), nil
}
