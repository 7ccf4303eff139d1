package khinsider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/handiism/vgm-downloader/internal/model"
)

// songLinks are the download targets found on one song page.
type songLinks struct {
	lossy    string
	lossless string // empty when the page has a single link
	extra    int    // links beyond the second, ignored
}

// extractDownloadLinks reads the download anchors of a song page.
//
// Each link is a .songDownloadLink element inside an <a>. The first anchor is
// the lossy file and the second, when present, the lossless file. Relative
// targets are resolved against pageURL.
func extractDownloadLinks(doc *goquery.Document, pageURL *url.URL) (songLinks, error) {
	var links songLinks
	elems := doc.Find(".songDownloadLink")
	if elems.Length() == 0 {
		return links, ErrLinkNotFound
	}

	first, ok := parentHref(elems.Eq(0), pageURL)
	if !ok {
		return links, ErrLinkNotFound
	}
	links.lossy = first

	if elems.Length() > 1 {
		if second, ok := parentHref(elems.Eq(1), pageURL); ok {
			links.lossless = second
		}
	}
	if elems.Length() > 2 {
		links.extra = elems.Length() - 2
	}
	return links, nil
}

func parentHref(elem *goquery.Selection, base *url.URL) (string, bool) {
	parent := elem.Parent()
	if goquery.NodeName(parent) != "a" {
		return "", false
	}
	href, ok := parent.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	abs, err := resolve(base, href)
	if err != nil {
		return "", false
	}
	return abs, true
}

// buildRecords emits one record per planned codec for the track at the given
// 1-based position.
func buildRecords(position int, stub model.TrackStub, links songLinks, plan model.Plan, notify func(string)) model.TrackLinks {
	number := stub.Number(position)
	records := make(model.TrackLinks, 0, len(plan))

	for _, codec := range plan {
		rec := model.DownloadRecord{DiscNumber: stub.DiscNumber}

		switch {
		case model.IsLossy(codec):
			rec.NameWithCodec = model.FileName(number, stub.Name, codec)
			rec.URL = strPtr(links.lossy)
		case model.IsLossless(codec) && links.lossless != "":
			rec.NameWithCodec = model.FileName(number, stub.Name, codec)
			rec.URL = strPtr(links.lossless)
		case model.IsLossless(codec):
			notify(fmt.Sprintf("Lossless song url not found, falling back to lossy for the song: %s", stub.Name))
			rec.NameWithCodec = model.FileName(number, stub.Name, model.LossyExtension())
			rec.URL = strPtr(links.lossy)
		default:
			rec.NameWithCodec = model.FileName(number, stub.Name, codec)
		}

		records = append(records, rec)
	}
	return records
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
