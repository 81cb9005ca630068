package crawler

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// assetExtensions are link targets that cannot contain rendered code blocks.
var assetExtensions = map[string]bool{
	".css": true, ".js": true, ".json": true, ".xml": true, ".rss": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".pdf": true, ".zip": true, ".woff": true,
	".woff2": true, ".mp4": true,
}

// LinkSelector picks the links an audit follows from a page.
type LinkSelector struct {
	// CSSSelector selects link elements. Empty means a[href].
	CSSSelector string

	// URLPattern, when set, must match the absolute link URL.
	URLPattern *regexp.Regexp
}

// NewLinkSelector creates a link selector. An empty urlPattern accepts
// every page link.
func NewLinkSelector(cssSelector string, urlPattern string) (*LinkSelector, error) {
	ls := &LinkSelector{CSSSelector: cssSelector}
	if urlPattern == "" {
		return ls, nil
	}
	pattern, err := regexp.Compile(urlPattern)
	if err != nil {
		return nil, err
	}
	ls.URLPattern = pattern
	return ls, nil
}

// ExtractLinks returns the page links in html, resolved against baseURL,
// in document order and without duplicates. Links to stylesheets, scripts,
// feeds, images and other assets are skipped.
func (ls *LinkSelector) ExtractLinks(html string, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	selector := ls.CSSSelector
	if selector == "" {
		selector = "a[href]"
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := pageLink(base, href)
		if !ok || seen[link] {
			return
		}
		if ls.URLPattern != nil && !ls.URLPattern.MatchString(link) {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links, nil
}

// pageLink resolves href against base and reports whether it points at an
// http(s) page rather than an anchor, another scheme or an asset.
func pageLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if assetExtensions[strings.ToLower(path.Ext(u.Path))] {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
