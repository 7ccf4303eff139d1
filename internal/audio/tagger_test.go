package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/handiism/vgm-downloader/internal/model"
)

func TestTagFromRecord(t *testing.T) {
	disc := 2
	tag := TagFromRecord(model.DownloadRecord{DiscNumber: &disc, NameWithCodec: "07. Boss Battle.mp3"}, "Album")

	if tag.Title != "Boss Battle" || tag.TrackNumber != 7 || tag.DiscNumber != 2 || tag.Album != "Album" {
		t.Errorf("TagFromRecord() = %+v", tag)
	}

	odd := TagFromRecord(model.DownloadRecord{NameWithCodec: "intro.mp3"}, "Album")
	if odd.Title != "intro" || odd.TrackNumber != 0 {
		t.Errorf("TagFromRecord(intro) = %+v", odd)
	}
}

func TestTagger_Supports(t *testing.T) {
	tagger := NewTagger()
	tests := []struct {
		path string
		want bool
	}{
		{"a.mp3", true},
		{"a.FLAC", true},
		{"a.ogg", false},
		{"a.m4a", false},
	}
	for _, tt := range tests {
		if got := tagger.Supports(tt.path); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestTagger_MP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01. Title.mp3")
	frames := bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x00}, 64)
	if err := os.WriteFile(path, frames, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	written, err := NewTagger().SaveTags(path, Tag{Title: "Title", Album: "Album", TrackNumber: 1, DiscNumber: 2})
	if err != nil {
		t.Fatalf("SaveTags() error = %v", err)
	}
	if !written {
		t.Fatal("SaveTags() written = false for mp3")
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("id3v2.Open() error = %v", err)
	}
	defer tag.Close()

	if tag.Title() != "Title" {
		t.Errorf("Title() = %q, want %q", tag.Title(), "Title")
	}
	if tag.Album() != "Album" {
		t.Errorf("Album() = %q, want %q", tag.Album(), "Album")
	}
	if got := tag.GetTextFrame("TRCK").Text; got != "1" {
		t.Errorf("TRCK = %q, want 1", got)
	}
	if got := tag.GetTextFrame("TPOS").Text; got != "2" {
		t.Errorf("TPOS = %q, want 2", got)
	}
}

// minimalFLAC returns a FLAC stream with only an empty STREAMINFO block
// followed by a few stand-in frame bytes.
func minimalFLAC() []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, 0x22}) // last block, STREAMINFO, 34 bytes
	buf.Write(make([]byte, 34))
	buf.Write([]byte{0xff, 0xf8, 0x00, 0x00})
	return buf.Bytes()
}

func TestTagger_FLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01. Title.flac")
	if err := os.WriteFile(path, minimalFLAC(), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tagger := NewTagger()
	if _, err := tagger.SaveTags(path, Tag{Title: "Old", TrackNumber: 9}); err != nil {
		t.Fatalf("SaveTags() error = %v", err)
	}
	if _, err := tagger.SaveTags(path, Tag{Title: "Title", Album: "Album", TrackNumber: 1, DiscNumber: 2}); err != nil {
		t.Fatalf("SaveTags() second error = %v", err)
	}

	f, err := flac.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	var blocks int
	var cmts *flacvorbis.MetaDataBlockVorbisComment
	for _, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			blocks++
			cmts, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				t.Fatalf("ParseFromMetaDataBlock() error = %v", err)
			}
		}
	}
	if blocks != 1 {
		t.Fatalf("found %d comment blocks, want 1", blocks)
	}

	for key, want := range map[string]string{"TITLE": "Title", "ALBUM": "Album", "TRACKNUMBER": "1", "DISCNUMBER": "2"} {
		got, err := cmts.Get(key)
		if err != nil || len(got) != 1 || got[0] != want {
			t.Errorf("%s = %v (err %v), want %q", key, got, err, want)
		}
	}
}

func TestTagger_SkipsOtherFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01. Title.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	written, err := NewTagger().SaveTags(path, Tag{Title: "Title"})
	if err != nil || written {
		t.Errorf("SaveTags(ogg) = %v, %v, want false, nil", written, err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "OggS" {
		t.Error("ogg file was modified")
	}
}
