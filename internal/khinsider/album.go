package khinsider

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	ioutils "github.com/handiism/vgm-downloader/internal/io"
	"github.com/handiism/vgm-downloader/internal/model"
)

var (
	// ErrStructureNotFound is returned when a page does not match the site
	// template (song table or header missing, row without a link).
	ErrStructureNotFound = errors.New("page structure not found")

	// ErrLinkNotFound is returned when a song page has no download link.
	ErrLinkNotFound = errors.New("download link not found")
)

const (
	discHeaderLabel  = "CD"
	trackHeaderLabel = "#"
)

// AlbumPage is what the album page tells about the whole album.
type AlbumPage struct {
	// Name is the sanitized album name.
	Name string

	// HasDiscColumn is true when the song table has a "CD" column.
	HasDiscColumn bool

	// HasTrackColumn is true when the song table has a "#" column.
	HasTrackColumn bool

	// Codecs are the codec labels advertised in the table header.
	Codecs model.CodecAvailability

	// ImageURLs are the absolute URLs of the album gallery images.
	ImageURLs []string

	rows *goquery.Selection
}

// ReadAlbumPage extracts the album name, the table layout and the advertised
// codecs from a parsed album page.
//
// Returns ErrStructureNotFound if the song table or its header row is missing.
func ReadAlbumPage(doc *goquery.Document, albumURL string) (*AlbumPage, error) {
	songlist := doc.Find("#songlist").First()
	if songlist.Length() == 0 {
		return nil, ErrStructureNotFound
	}
	header := doc.Find("#songlist_header").First()
	if header.Length() == 0 {
		return nil, ErrStructureNotFound
	}

	labels := headerLabels(header)
	page := &AlbumPage{
		Name:           albumName(doc, albumURL),
		HasDiscColumn:  hasLabel(labels, discHeaderLabel),
		HasTrackColumn: hasLabel(labels, trackHeaderLabel),
		Codecs: model.CodecAvailability{
			Lossy:    firstInFamily(labels, model.LossyCodecs),
			Lossless: firstInFamily(labels, model.LosslessCodecs),
		},
		ImageURLs: imageURLs(doc, albumURL),
		rows:      songlist.Find("tr"),
	}
	return page, nil
}

// headerLabels returns the trimmed, non-empty text nodes under the header row.
func headerLabels(header *goquery.Selection) []string {
	var labels []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				labels = append(labels, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range header.Nodes {
		walk(n)
	}
	return labels
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, want) {
			return true
		}
	}
	return false
}

// firstInFamily returns the first label, in page order, naming a member of family.
func firstInFamily(labels []string, family []string) string {
	for _, l := range labels {
		for _, codec := range family {
			if strings.EqualFold(l, codec) {
				return l
			}
		}
	}
	return ""
}

// albumName reads the page heading, falling back to the URL's last segment.
func albumName(doc *goquery.Document, albumURL string) string {
	heading := strings.TrimSpace(doc.Find("#pageContent h2").First().Text())
	if heading != "" {
		return ioutils.SanitizeFileName(strings.ReplaceAll(heading, ":", " -"))
	}
	return AlbumNameFromURL(albumURL)
}

// AlbumNameFromURL returns the sanitized last non-empty path segment of an album URL.
func AlbumNameFromURL(albumURL string) string {
	p := albumURL
	if u, err := url.Parse(albumURL); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	name := path.Base(p)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "." || name == "/" {
		name = "album"
	}
	return ioutils.SanitizeFileName(name)
}
