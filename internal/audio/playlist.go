package audio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/handiism/vgm-downloader/internal/model"
)

// PlaylistEntry is one downloaded file in a playlist.
type PlaylistEntry struct {
	// Path is relative to the playlist file, e.g. "Disc 01/01. Title.flac".
	Path string

	// Title is the display title.
	Title string
}

// EntryFromRecord builds a playlist entry for a downloaded record.
func EntryFromRecord(rec model.DownloadRecord) PlaylistEntry {
	path := rec.NameWithCodec
	if rec.DiscNumber != nil {
		path = filepath.ToSlash(filepath.Join(model.DiscDirName(*rec.DiscNumber), rec.NameWithCodec))
	}
	title := strings.TrimSuffix(rec.NameWithCodec, filepath.Ext(rec.NameWithCodec))
	if _, t, _, ok := model.ParseFileName(rec.NameWithCodec); ok {
		title = t
	}
	return PlaylistEntry{Path: path, Title: title}
}

// PlaylistCreator generates playlist files.
//
// The output lists entries in the given order with paths relative to the
// album directory, where the playlist is written.
//
// Example:
//
//	creator := NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(entries)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,Title
//	// Disc 01/01. Title.flac
type PlaylistCreator struct {
	format   model.PlaylistFormat
	extended bool // For M3U: include #EXTM3U header and #EXTINF lines
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// extended only affects M3U output.
func NewPlaylistCreator(format model.PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist generates playlist content for entries.
func (p *PlaylistCreator) CreatePlaylist(entries []PlaylistEntry) string {
	switch p.format {
	case model.PlaylistFormatPLS:
		return p.createPLS(entries)
	default:
		return p.createM3U(entries)
	}
}

// createM3U generates an M3U playlist. Durations are unknown and written as -1.
func (p *PlaylistCreator) createM3U(entries []PlaylistEntry) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, e := range entries {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:-1,%s\n", e.Title)
		}
		sb.WriteString(e.Path + "\n")
	}
	return sb.String()
}

// createPLS generates a PLS playlist.
//
//	[playlist]
//	File1=Disc 01/01. Title.flac
//	Title1=Title
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(entries []PlaylistEntry) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, e := range entries {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, e.Path)
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, e.Title)
		fmt.Fprintf(&sb, "Length%d=-1\n", idx)
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(entries))
	sb.WriteString("Version=2\n")

	return sb.String()
}
