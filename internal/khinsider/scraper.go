package khinsider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/vgm-downloader/internal/model"
)

// DefaultOrigin is the site song links are resolved against.
const DefaultOrigin = "https://downloads.khinsider.com"

// PageFetcher fetches and parses an HTML page.
//
// *http.Client from the internal http package satisfies it.
type PageFetcher interface {
	GetDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Scraper reads an album page and resolves the download links of its songs.
//
// Example usage:
//
//	scraper, err := khinsider.NewScraper(client, khinsider.DefaultOrigin)
//	page, stubs, err := scraper.ScrapeAlbum(ctx, albumURL)
//	plan, _ := khinsider.SelectCodecs(intent, page.Codecs)
//	links, err := scraper.ResolveAll(ctx, stubs, plan)
type Scraper struct {
	fetcher PageFetcher
	origin  *url.URL

	// Concurrency is the number of song pages fetched at once. Values below 1 mean 1.
	Concurrency int

	// Notify receives non-fatal notices such as codec fallbacks. May be nil.
	Notify func(string)
}

// NewScraper creates a Scraper that resolves relative song links against origin.
func NewScraper(fetcher PageFetcher, origin string) (*Scraper, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse site origin: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("site origin %q is not an absolute URL", origin)
	}
	return &Scraper{fetcher: fetcher, origin: u, Concurrency: 1}, nil
}

func (s *Scraper) notify(msg string) {
	if s.Notify != nil {
		s.Notify(msg)
	}
}

// ScrapeAlbum fetches the album page and returns its metadata and the song
// rows in table order.
func (s *Scraper) ScrapeAlbum(ctx context.Context, albumURL string) (*AlbumPage, []model.TrackStub, error) {
	page, err := s.FetchAlbumPage(ctx, albumURL)
	if err != nil {
		return nil, nil, err
	}

	stubs, err := s.ParseRows(page)
	if err != nil {
		return nil, nil, fmt.Errorf("read album page %s: %w", albumURL, err)
	}
	return page, stubs, nil
}

// ParseRows decodes the song rows of an album page.
func (s *Scraper) ParseRows(page *AlbumPage) ([]model.TrackStub, error) {
	layout := layoutFor(page.HasDiscColumn, page.HasTrackColumn)

	var stubs []model.TrackStub
	var rowErr error
	page.rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		stub, skip, err := parseRow(row, layout, s.origin)
		if err != nil {
			rowErr = err
			return false
		}
		if !skip {
			stubs = append(stubs, stub)
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return stubs, nil
}

// FetchAlbumPage fetches and reads the album page without decoding its rows.
func (s *Scraper) FetchAlbumPage(ctx context.Context, albumURL string) (*AlbumPage, error) {
	doc, err := s.fetcher.GetDocument(ctx, albumURL)
	if err != nil {
		return nil, fmt.Errorf("fetch album page %s: %w", albumURL, err)
	}
	page, err := ReadAlbumPage(doc, albumURL)
	if err != nil {
		return nil, fmt.Errorf("read album page %s: %w", albumURL, err)
	}
	return page, nil
}

// AlbumName fetches the album page only for its name.
//
// When the page cannot be fetched the name is taken from the URL.
func (s *Scraper) AlbumName(ctx context.Context, albumURL string) string {
	doc, err := s.fetcher.GetDocument(ctx, albumURL)
	if err != nil {
		return AlbumNameFromURL(albumURL)
	}
	return albumName(doc, albumURL)
}

// ResolveLinks fetches one song page and builds its records.
// position is the song's 1-based index in the table.
func (s *Scraper) ResolveLinks(ctx context.Context, position int, stub model.TrackStub, plan model.Plan) (model.TrackLinks, error) {
	pageURL, err := url.Parse(stub.PageURL)
	if err != nil {
		return nil, fmt.Errorf("parse song page url %q: %w", stub.PageURL, err)
	}

	doc, err := s.fetcher.GetDocument(ctx, stub.PageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch song page %s: %w", stub.PageURL, err)
	}

	links, err := extractDownloadLinks(doc, pageURL)
	if err != nil {
		return nil, fmt.Errorf("song %q (%s): %w", stub.Name, stub.PageURL, err)
	}
	if links.extra > 0 {
		s.notify(fmt.Sprintf("Song page has %d more download links than expected, ignoring them: %s", links.extra, stub.Name))
	}

	return buildRecords(position, stub, links, plan, s.notify), nil
}

// ResolveAll resolves every stub with up to Concurrency page fetches at once.
//
// The result is in stub order. The first error cancels the remaining fetches
// and is returned.
func (s *Scraper) ResolveAll(ctx context.Context, stubs []model.TrackStub, plan model.Plan) (model.LinkList, error) {
	results := make(model.LinkList, len(stubs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Concurrency))

	for i, stub := range stubs {
		i, stub := i, stub
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			links, err := s.ResolveLinks(ctx, i+1, stub, plan)
			if err != nil {
				return err
			}
			results[i] = links
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
