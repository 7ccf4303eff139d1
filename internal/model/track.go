package model

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// TrackStub is one row of the album's song table.
//
// DiscNumber and TrackNumber are nil when the table has no such column or
// the cell could not be parsed. Name is already sanitized for use in file
// names, and PageURL is the absolute URL of the track's detail page.
type TrackStub struct {
	DiscNumber  *int
	TrackNumber *int
	Name        string
	PageURL     string
}

// Number returns the track number used in file names.
//
// A missing or non-positive TrackNumber falls back to position, the 1-based
// index of the row in the table.
func (s TrackStub) Number(position int) int {
	if s.TrackNumber != nil && *s.TrackNumber > 0 {
		return *s.TrackNumber
	}
	return position
}

// DownloadRecord is one file to fetch: a track in one codec.
//
// URL is nil when no link exists for the codec. Such records are kept so the
// link list shows what could not be resolved.
//
// The JSON form is the link-list file format:
//
//	{"disc_number": 1, "name_with_codec": "01. Title.flac", "url": "https://..."}
type DownloadRecord struct {
	DiscNumber    *int    `json:"disc_number"`
	NameWithCodec string  `json:"name_with_codec"`
	URL           *string `json:"url"`
}

// TrackLinks holds the records of one track, one per planned codec.
type TrackLinks []DownloadRecord

// LinkList holds the records of a whole album in table order.
type LinkList []TrackLinks

// Count returns the total number of records.
func (l LinkList) Count() int {
	n := 0
	for _, track := range l {
		n += len(track)
	}
	return n
}

// FileName formats the file name of a track in the given codec.
//
// The number is zero-padded to two digits and the codec is lower-cased:
//
//	FileName(3, "Battle", "FLAC") // "03. Battle.flac"
func FileName(number int, name, codec string) string {
	return fmt.Sprintf("%02d. %s.%s", number, name, strings.ToLower(codec))
}

// ParseFileName splits a name produced by FileName back into its parts.
//
// It returns ok=false for names that do not start with "<digits>. ".
func ParseFileName(fileName string) (number int, title, ext string, ok bool) {
	ext = strings.TrimPrefix(filepath.Ext(fileName), ".")
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	numPart, title, found := strings.Cut(base, ". ")
	if !found {
		return 0, "", "", false
	}
	number, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, "", "", false
	}
	return number, title, ext, true
}

// DiscDirName returns the directory name for disc n, e.g. "Disc 01".
func DiscDirName(n int) string {
	return fmt.Sprintf("Disc %02d", n)
}
