package khinsider

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imageURLs collects the gallery links of an album page, resolved against
// the album URL. Duplicates are dropped.
func imageURLs(doc *goquery.Document, albumURL string) []string {
	base, err := url.Parse(albumURL)
	if err != nil {
		base = &url.URL{}
	}

	seen := make(map[string]bool)
	var urls []string
	doc.Find(".albumImage a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		abs, err := resolve(base, href)
		if err != nil || seen[abs] {
			return
		}
		seen[abs] = true
		urls = append(urls, abs)
	})
	return urls
}

// ImageFileName returns the local file name for a gallery image URL: the
// last path segment, query-unescaped so "+" becomes a space.
func ImageFileName(imageURL string) string {
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.EscapedPath()
	}
	name := path.Base(p)
	if unescaped, err := url.QueryUnescape(name); err == nil {
		name = unescaped
	}
	return name
}
