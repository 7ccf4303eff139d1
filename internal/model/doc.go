// Package model defines the core data structures used throughout
// the vgm-downloader application.
//
// # Album
//
// Album holds the sanitized album name and computes every output path:
//
//	album := model.NewAlbum("Album Name", albumURL, "downloads")
//	fmt.Println(album.Path)        // downloads/Album Name
//	fmt.Println(album.DiscPath(1)) // downloads/Album Name/Disc 01
//
// # Tracks and Records
//
// A TrackStub is one row of the song table. Resolving its detail page turns
// it into TrackLinks, one DownloadRecord per planned codec:
//
//	rec := model.DownloadRecord{
//	    DiscNumber:    &disc,
//	    NameWithCodec: model.FileName(1, "Title", "FLAC"), // "01. Title.flac"
//	    URL:           &link,
//	}
//
// A LinkList of all tracks is what gets persisted for resuming.
//
// # Codecs
//
// LossyCodecs and LosslessCodecs define the two codec families. CodecIntent
// and CodecAvailability feed codec selection, which produces a Plan.
package model
