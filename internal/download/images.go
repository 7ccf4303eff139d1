package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ioutils "github.com/handiism/vgm-downloader/internal/io"
	"github.com/handiism/vgm-downloader/internal/khinsider"
)

// downloadImages saves the album gallery into the images directory.
// Broken links and failed downloads are warnings.
func (m *Manager) downloadImages(ctx context.Context) error {
	if len(m.imageURLs) == 0 {
		return nil
	}
	if err := ioutils.EnsureDir(m.album.ImagesPath()); err != nil {
		return fmt.Errorf("create images directory: %w", err)
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %d images", len(m.imageURLs)), Level: LevelInfo})
	for _, imageURL := range m.imageURLs {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := ioutils.SanitizeFileName(khinsider.ImageFileName(imageURL))
		if name == "" || name == "." || name == "_" {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Image link is invalid: %s. Skipping...", imageURL), Level: LevelWarning})
			continue
		}

		dest := filepath.Join(m.album.ImagesPath(), name)
		if _, err := m.downloadWithRetry(ctx, imageURL, dest, name); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("Download failed for image: %s (%v)", name, err), Level: LevelWarning})
			continue
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded image: %s", name), Level: LevelVerbose})
	}
	return nil
}

// prepareCover fetches the first gallery image as JPEG cover art when the
// settings ask for a cover file or embedded artwork. It returns nil when no
// cover is needed or available.
func (m *Manager) prepareCover(ctx context.Context) []byte {
	wantFile := m.settings.SaveCoverArt
	wantTags := m.settings.EmbedCoverArt && m.settings.ModifyTags
	if (!wantFile && !wantTags) || len(m.imageURLs) == 0 {
		return nil
	}

	data, err := m.httpClient.Get(ctx, m.imageURLs[0])
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading cover art: %v", err), Level: LevelWarning})
		return nil
	}

	cover, err := m.imageService.FitJPEG(ctx, data, m.settings.CoverArtMaxSize)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error converting cover art: %v", err), Level: LevelWarning})
		return nil
	}

	if wantFile {
		path := m.album.CoverPath(m.settings.CoverArtFileName)
		if err := os.WriteFile(path, cover, 0644); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving cover art: %v", err), Level: LevelWarning})
		} else {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Saved cover art: %s", filepath.Base(path)), Level: LevelVerbose})
		}
	}
	return cover
}
