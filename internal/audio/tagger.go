package audio

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/handiism/vgm-downloader/internal/model"
)

// Tag is the metadata written into a downloaded file.
//
// Zero values are not written.
type Tag struct {
	Title       string
	Album       string
	TrackNumber int
	DiscNumber  int

	// Cover is image data to embed as the front cover. Nil skips artwork.
	Cover []byte
}

// TagFromRecord builds a Tag from a download record and its album name.
//
// The title and track number come from the record's file name
// ("03. Title.flac"). When the name does not have that shape the whole name
// without extension is used as the title.
func TagFromRecord(rec model.DownloadRecord, albumName string) Tag {
	tag := Tag{Album: albumName}
	if number, title, _, ok := model.ParseFileName(rec.NameWithCodec); ok {
		tag.TrackNumber = number
		tag.Title = title
	} else {
		tag.Title = strings.TrimSuffix(rec.NameWithCodec, filepath.Ext(rec.NameWithCodec))
	}
	if rec.DiscNumber != nil {
		tag.DiscNumber = *rec.DiscNumber
	}
	return tag
}

// Tagger writes tags to downloaded audio files.
//
// Supported formats:
//   - .mp3: ID3v2 frames TIT2, TALB, TRCK, TPOS and APIC (github.com/bogem/id3v2)
//   - .flac: Vorbis comments TITLE, ALBUM, TRACKNUMBER, DISCNUMBER and a
//     PICTURE block (github.com/go-flac)
//
// Other extensions are left untouched.
//
// Example:
//
//	tagger := NewTagger()
//	written, err := tagger.SaveTags("/music/Album/Disc 01/01. Title.flac", tag)
type Tagger struct{}

// NewTagger creates a new Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// Supports reports whether the tagger can write tags to path.
func (t *Tagger) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac":
		return true
	default:
		return false
	}
}

// SaveTags writes tag to the file at path.
//
// Returns false without error for unsupported formats.
func (t *Tagger) SaveTags(path string, tag Tag) (bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return true, t.saveID3(path, tag)
	case ".flac":
		return true, t.saveFLAC(path, tag)
	default:
		return false, nil
	}
}

// saveID3 writes ID3v2 frames, replacing existing ones.
func (t *Tagger) saveID3(path string, tag Tag) error {
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer id3.Close()

	if tag.Title != "" {
		id3.SetTitle(tag.Title)
	}
	if tag.Album != "" {
		id3.SetAlbum(tag.Album)
	}
	if tag.TrackNumber > 0 {
		id3.DeleteFrames("TRCK")
		id3.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(tag.TrackNumber))
	}
	if tag.DiscNumber > 0 {
		id3.DeleteFrames("TPOS")
		id3.AddTextFrame("TPOS", id3v2.EncodingUTF8, strconv.Itoa(tag.DiscNumber))
	}

	if len(tag.Cover) > 0 {
		id3.DeleteFrames(id3.CommonID("Attached picture"))
		id3.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    http.DetectContentType(tag.Cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     tag.Cover,
		})
	}

	if err := id3.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}

// saveFLAC replaces the Vorbis comment block, and the picture blocks when a
// cover is given.
func (t *Tagger) saveFLAC(path string, tag Tag) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	cmts := flacvorbis.New()
	add := func(key, value string) error {
		if value == "" {
			return nil
		}
		return cmts.Add(key, value)
	}
	addInt := func(key string, value int) error {
		if value <= 0 {
			return nil
		}
		return cmts.Add(key, strconv.Itoa(value))
	}

	if err := add("TITLE", tag.Title); err != nil {
		return fmt.Errorf("add title: %w", err)
	}
	if err := add("ALBUM", tag.Album); err != nil {
		return fmt.Errorf("add album: %w", err)
	}
	if err := addInt("TRACKNUMBER", tag.TrackNumber); err != nil {
		return fmt.Errorf("add track number: %w", err)
	}
	if err := addInt("DISCNUMBER", tag.DiscNumber); err != nil {
		return fmt.Errorf("add disc number: %w", err)
	}

	cmtBlock := cmts.Marshal()
	replaced := false
	for i, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			f.Meta[i] = &cmtBlock
			replaced = true
			break
		}
	}
	if !replaced {
		f.Meta = append(f.Meta, &cmtBlock)
	}

	if len(tag.Cover) > 0 {
		kept := make([]*flac.MetaDataBlock, 0, len(f.Meta))
		for _, meta := range f.Meta {
			if meta.Type != flac.Picture {
				kept = append(kept, meta)
			}
		}
		f.Meta = kept

		pic, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover,
			"Front Cover",
			tag.Cover,
			http.DetectContentType(tag.Cover),
		)
		if err != nil {
			return fmt.Errorf("create picture: %w", err)
		}
		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}
