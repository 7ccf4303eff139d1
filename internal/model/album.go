package model

import (
	"path/filepath"

	ioutils "github.com/handiism/vgm-downloader/internal/io"
)

// Album represents one khinsider album and where its files are written.
//
// The Name is the sanitized display name from the album page heading, and
// every output path of a run is derived from it:
//
//	<output-root>/<Name>/              tracks without a disc number
//	<output-root>/<Name>/Disc NN/      tracks with disc number NN
//	<output-root>/<Name>/images/       album gallery
//
// Example:
//
//	album := NewAlbum("Chrono Trigger - Original Soundtrack", url, "downloads")
//	// album.Path = "downloads/Chrono Trigger - Original Soundtrack"
//	// album.DiscPath(2) = "downloads/Chrono Trigger - Original Soundtrack/Disc 02"
type Album struct {
	// Name is the sanitized album name used as the directory name.
	Name string

	// URL is the album page the run started from.
	URL string

	// Path is the album output directory.
	Path string
}

// NewAlbum creates an Album rooted under outputRoot.
//
// The name is sanitized again here so callers can pass raw page text.
func NewAlbum(name, url, outputRoot string) *Album {
	name = ioutils.SanitizeFileName(name)
	return &Album{
		Name: name,
		URL:  url,
		Path: filepath.Join(outputRoot, name),
	}
}

// ImagesPath returns the directory where gallery images are saved.
func (a *Album) ImagesPath() string {
	return filepath.Join(a.Path, "images")
}

// DiscPath returns the subdirectory for disc n.
func (a *Album) DiscPath(n int) string {
	return filepath.Join(a.Path, DiscDirName(n))
}

// TrackPath returns the output path of a download record.
//
// Records with a disc number go into that disc's subdirectory, others
// directly into the album directory. The file name is sanitized, so a record
// never resolves outside its directory.
func (a *Album) TrackPath(rec DownloadRecord) string {
	name := ioutils.SanitizeFileName(rec.NameWithCodec)
	if name == "" {
		name = "_"
	}
	if rec.DiscNumber != nil {
		return filepath.Join(a.DiscPath(*rec.DiscNumber), name)
	}
	return filepath.Join(a.Path, name)
}

// PlaylistPath returns the playlist file path for the given format.
func (a *Album) PlaylistPath(format PlaylistFormat) string {
	return filepath.Join(a.Path, a.Name+format.Extension())
}

// CoverPath returns the path of the saved cover art. fileName is given without extension.
func (a *Album) CoverPath(fileName string) string {
	if fileName == "" {
		fileName = "cover"
	}
	return filepath.Join(a.Path, ioutils.SanitizeFileName(fileName)+".jpg")
}

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// PlaylistFormatM3U creates .m3u playlist files (most widely supported).
	PlaylistFormatM3U PlaylistFormat = iota

	// PlaylistFormatPLS creates .pls playlist files (used by Winamp).
	PlaylistFormatPLS
)

// Extension returns the file extension for the playlist format, including the dot.
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatPLS:
		return ".pls"
	default:
		return ".m3u"
	}
}

// String returns the config name of the format ("m3u" or "pls").
func (pf PlaylistFormat) String() string {
	return pf.Extension()[1:]
}

// ParsePlaylistFormat maps a config value to a PlaylistFormat.
func ParsePlaylistFormat(s string) (PlaylistFormat, bool) {
	switch s {
	case "m3u", "M3U", "":
		return PlaylistFormatM3U, true
	case "pls", "PLS":
		return PlaylistFormatPLS, true
	default:
		return PlaylistFormatM3U, false
	}
}
