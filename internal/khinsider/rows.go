package khinsider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	ioutils "github.com/handiism/vgm-downloader/internal/io"
	"github.com/handiism/vgm-downloader/internal/model"
)

// noCell marks a column the layout does not have.
const noCell = 0

type rowLayoutKey struct {
	disc  bool
	track bool
}

// rowLayout holds how many cells before the song link cell the optional
// columns sit. Cells in front of them (the play button) are not counted.
type rowLayout struct {
	discBack  int
	trackBack int
}

var rowLayouts = map[rowLayoutKey]rowLayout{
	{disc: false, track: false}: {discBack: noCell, trackBack: noCell},
	{disc: false, track: true}:  {discBack: noCell, trackBack: 1},
	{disc: true, track: false}:  {discBack: 1, trackBack: noCell},
	{disc: true, track: true}:   {discBack: 2, trackBack: 1},
}

func layoutFor(hasDisc, hasTrack bool) rowLayout {
	return rowLayouts[rowLayoutKey{disc: hasDisc, track: hasTrack}]
}

// parseRow decodes one song table row.
//
// skip is true for rows that carry no song: rows with any attribute (the
// header and footer rows) and rows without content.
func parseRow(row *goquery.Selection, layout rowLayout, origin *url.URL) (stub model.TrackStub, skip bool, err error) {
	if len(row.Nodes) == 0 || len(row.Nodes[0].Attr) > 0 {
		return stub, true, nil
	}

	anchor := row.Find("a").First()
	if anchor.Length() == 0 && strings.TrimSpace(row.Text()) == "" {
		return stub, true, nil
	}
	if anchor.Length() == 0 {
		return stub, false, fmt.Errorf("song row without link: %w", ErrStructureNotFound)
	}
	href, ok := anchor.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return stub, false, fmt.Errorf("song link without href: %w", ErrStructureNotFound)
	}

	pageURL, err := resolve(origin, href)
	if err != nil {
		return stub, false, fmt.Errorf("parse song link %q: %w", href, err)
	}

	cells := row.ChildrenFiltered("td")
	linkCell := cells.IndexOfSelection(anchor.Closest("td"))
	stub = model.TrackStub{
		DiscNumber:  cellNumber(cells, linkCell, layout.discBack),
		TrackNumber: cellNumber(cells, linkCell, layout.trackBack),
		Name:        ioutils.SanitizeFileName(strings.TrimSpace(anchor.Text())),
		PageURL:     pageURL,
	}
	return stub, false, nil
}

// cellNumber parses the number back cells before the link cell, or returns
// nil when the layout has no such column or the text is not a number.
func cellNumber(cells *goquery.Selection, linkCell, back int) *int {
	i := linkCell - back
	if back == noCell || linkCell < 0 || i < 0 {
		return nil
	}
	return parseNumber(cells.Eq(i).Text())
}

// parseNumber parses "3", "03" or "03." (one trailing non-digit is dropped).
func parseNumber(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if last := runes[len(runes)-1]; !unicode.IsDigit(last) {
		text = strings.TrimSpace(string(runes[:len(runes)-1]))
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil
	}
	return &n
}

func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}
