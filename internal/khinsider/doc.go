// Package khinsider scrapes album and song pages of downloads.khinsider.com.
//
// The package handles three steps of a run:
//
//  1. Reading the album page: name, table layout, codecs and gallery
//  2. Decoding each row of the song table into a model.TrackStub
//  3. Resolving each song page into download records for the chosen codecs
//
// # Album Page
//
// The song table is #songlist, its header row #songlist_header. The header
// tells which optional columns exist ("CD" for the disc, "#" for the track
// number) and which codecs the album offers:
//
//	scraper, err := khinsider.NewScraper(client, khinsider.DefaultOrigin)
//	page, stubs, err := scraper.ScrapeAlbum(ctx, albumURL)
//	fmt.Println(page.Name, page.Codecs.Lossless)
//
// # Codec Selection
//
// SelectCodecs decides which codecs to fetch from what the user wants and
// what the album has:
//
//	plan, downgraded := khinsider.SelectCodecs(model.CodecIntent{}, page.Codecs)
//
// # Song Pages
//
// Every song page carries one or two .songDownloadLink anchors, the first
// for the lossy file and the second for the lossless file. ResolveAll visits
// all pages and returns a model.LinkList in table order:
//
//	links, err := scraper.ResolveAll(ctx, stubs, plan)
//
// A page that does not match the template fails with ErrStructureNotFound or
// ErrLinkNotFound.
package khinsider
