package marketplace

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// findPermalink scrapes html for the first link to a published item and
// resolves it against base.
func findPermalink(html, selector, base string) (string, bool) {
	if strings.TrimSpace(selector) == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref.String(), ref.IsAbs()
	}
	return baseURL.ResolveReference(ref).String(), true
}
