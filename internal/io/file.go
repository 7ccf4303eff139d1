package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	trailingDots   = regexp.MustCompile(`\.+$`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// This function ensures names can be used directly as a path component on every
// supported operating system, Windows being the most restrictive.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) → underscore
//   - Multiple whitespace → single space
//   - Leading/trailing whitespace → removed
//   - Trailing dots → removed (Windows limitation)
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")      // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")            // Returns "Track"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")
	return strings.TrimRight(name, " ")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory, so readers never observe a partially written file.
//
// The parent directory is created if needed. The final file has mode 0644.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
