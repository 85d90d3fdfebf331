package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parser turns raw HTML into a ParsedPage. It is a pure transformation:
// malformed input degrades to missing fields, never to an error.
type Parser struct{}

// NewParser constructs a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts the title, outbound links, and visible body text from the
// document. Links appear in document order, resolved against baseURL;
// hrefs that do not resolve to an absolute URL are dropped silently.
func (p *Parser) Parse(html string, baseURL string) ParsedPage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ParsedPage{}
	}

	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		base = nil
	}

	page := ParsedPage{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		abs, err := resolveHref(base, href)
		if err != nil {
			return
		}
		page.Links = append(page.Links, abs)
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find("script,style").Remove()
	page.TextContent = collapseWhitespace(body.Text())

	return page
}

func resolveHref(base *url.URL, href string) (string, error) {
	if base != nil {
		return ResolveURL(base, href)
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", errNotAbsolute
	}
	return u.String(), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
