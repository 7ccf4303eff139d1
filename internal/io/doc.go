// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation
//   - Atomic file writes
//   - Cover art resizing
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from track and album names:
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Atomic Writes
//
// WriteFileAtomic writes through a temporary file and a rename, so a crash
// never leaves a half-written link list or playlist behind:
//
//	err := ioutils.WriteFileAtomic("link_list.json", data)
//
// # Image Processing
//
//	svc := ioutils.NewImageService()
//	cover, err := svc.FitJPEG(ctx, galleryImage, 1000)
package ioutils
