// Package linklist persists the resolved download records of an album so a
// later run can download them without scraping the site again.
//
// The file is a JSON array of tracks, each an array of records:
//
//	[
//	    [
//	        {
//	            "disc_number": 1,
//	            "name_with_codec": "01. Title.flac",
//	            "url": "https://..."
//	        }
//	    ]
//	]
//
// Saving what was loaded reproduces the file byte for byte.
package linklist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	ioutils "github.com/handiism/vgm-downloader/internal/io"
	"github.com/handiism/vgm-downloader/internal/model"
)

// DefaultPath is the link-list file used when none is configured.
const DefaultPath = "link_list.json"

// Store reads and writes a link-list file.
type Store struct {
	Path string
}

// NewStore returns a Store for path, or for DefaultPath when path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// Save writes list to the store's file, replacing it atomically.
func (s *Store) Save(list model.LinkList) error {
	data, err := Marshal(list)
	if err != nil {
		return err
	}
	if err := ioutils.WriteFileAtomic(s.Path, data); err != nil {
		return fmt.Errorf("save link list %s: %w", s.Path, err)
	}
	return nil
}

// Load reads the store's file. Unknown fields are an error.
func (s *Store) Load() (model.LinkList, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("load link list: %w", err)
	}
	list, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load link list %s: %w", s.Path, err)
	}
	return list, nil
}

// Marshal encodes list with four-space indentation and a trailing newline.
func Marshal(list model.LinkList) ([]byte, error) {
	if list == nil {
		list = model.LinkList{}
	}
	for i := range list {
		if list[i] == nil {
			list[i] = model.TrackLinks{}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(list); err != nil {
		return nil, fmt.Errorf("encode link list: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a link list.
func Unmarshal(data []byte) (model.LinkList, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var list model.LinkList
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("decode link list: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode link list: trailing data")
	}
	if list == nil {
		list = model.LinkList{}
	}
	return list, nil
}
