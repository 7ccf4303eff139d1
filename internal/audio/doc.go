// Package audio provides audio file services: tag writing and playlist
// generation.
//
// # Tagging
//
// Use the Tagger to write tags to downloaded MP3 and FLAC files:
//
//	tagger := audio.NewTagger()
//	tag := audio.TagFromRecord(rec, album.Name)
//	tag.Cover = coverJPEG
//	written, err := tagger.SaveTags(path, tag)
//
// The tagger supports:
//   - Track Title, Album Title
//   - Track Number, Disc Number
//   - Cover Art (embedded)
//
// MP3 files get ID3v2 frames, FLAC files get Vorbis comments and a picture
// block. Other formats (OGG, M4A) are skipped.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(model.PlaylistFormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(entries)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
package audio
