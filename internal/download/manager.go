package download

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/vgm-downloader/internal/audio"
	"github.com/handiism/vgm-downloader/internal/config"
	"github.com/handiism/vgm-downloader/internal/http"
	ioutils "github.com/handiism/vgm-downloader/internal/io"
	"github.com/handiism/vgm-downloader/internal/khinsider"
	"github.com/handiism/vgm-downloader/internal/linklist"
	"github.com/handiism/vgm-downloader/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// ErrNotInitialized is returned by StartDownloads before a successful Initialize.
var ErrNotInitialized = errors.New("manager not initialized")

// Options describes one run.
type Options struct {
	// AlbumURL is the album page to download.
	AlbumURL string

	// Intent selects the codecs.
	Intent model.CodecIntent

	// LoadFromFile reads the link list instead of scraping song pages.
	LoadFromFile bool

	// OnlyImages downloads the gallery and nothing else.
	OnlyImages bool

	// NoImages skips the gallery.
	NoImages bool

	// DryRun resolves and saves the link list, then stops.
	DryRun bool
}

// Stats are the file counters of a run.
type Stats struct {
	Total      int32
	Downloaded int32
	Skipped    int32
	Failed     int32
	Bytes      int64
}

// Manager coordinates an album download.
type Manager struct {
	settings     *config.Settings
	opts         Options
	httpClient   *http.Client
	scraper      *khinsider.Scraper
	store        *linklist.Store
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService

	album     *model.Album
	links     model.LinkList
	imageURLs []string

	totalFiles      int32
	downloadedFiles int32
	skippedFiles    int32
	failedFiles     int32
	receivedBytes   int64

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, opts Options, onProgress func(ProgressEvent)) (*Manager, error) {
	client := http.NewClient(settings.HTTPOptions())

	scraper, err := khinsider.NewScraper(client, settings.SiteOrigin)
	if err != nil {
		return nil, err
	}
	scraper.Concurrency = settings.MaxConcurrentPages

	m := &Manager{
		settings:     settings,
		opts:         opts,
		httpClient:   client,
		scraper:      scraper,
		store:        linklist.NewStore(settings.LinkListPath),
		tagger:       audio.NewTagger(),
		playlist:     audio.NewPlaylistCreator(settings.Playlist(), settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		onProgress:   onProgress,
	}
	scraper.Notify = func(msg string) {
		m.progress(ProgressEvent{Message: msg, Level: LevelWarning})
	}
	return m, nil
}

// Initialize reads the album and prepares the download records.
//
// Song links are scraped from the site and saved to the link list, or read
// from the link list when Options.LoadFromFile is set. Nothing is written to
// the output directory here.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.opts.LoadFromFile {
		if err := m.initFromFile(ctx); err != nil {
			return err
		}
	} else {
		if err := m.initFromSite(ctx); err != nil {
			return err
		}
	}

	m.totalFiles = int32(m.links.Count())
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Found album: %s (%d tracks, %d files)", m.album.Name, len(m.links), m.totalFiles),
		Level:   LevelInfo,
	})
	return nil
}

func (m *Manager) initFromSite(ctx context.Context) error {
	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching album info: %s", m.opts.AlbumURL), Level: LevelVerbose})

	page, stubs, err := m.scraper.ScrapeAlbum(ctx, m.opts.AlbumURL)
	if err != nil {
		return err
	}
	m.album = model.NewAlbum(page.Name, m.opts.AlbumURL, m.settings.OutputPath)
	m.imageURLs = page.ImageURLs

	if m.opts.OnlyImages {
		return nil
	}

	plan, downgraded := khinsider.SelectCodecs(m.opts.Intent, page.Codecs)
	if downgraded {
		m.progress(ProgressEvent{Message: "Lossless codec option not found in album page, falling back to Lossy codec.", Level: LevelWarning})
	}
	if len(plan) == 0 {
		m.progress(ProgressEvent{Message: "No codec selected for this album, no songs will be downloaded.", Level: LevelWarning})
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Resolving %d songs (codecs: %v)", len(stubs), plan), Level: LevelVerbose})

	links, err := m.scraper.ResolveAll(ctx, stubs, plan)
	if err != nil {
		return err
	}
	m.links = links

	if err := m.store.Save(links); err != nil {
		return err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved link list: %s", m.store.Path), Level: LevelVerbose})
	return nil
}

func (m *Manager) initFromFile(ctx context.Context) error {
	links, err := m.store.Load()
	if err != nil {
		return err
	}
	m.links = links
	m.progress(ProgressEvent{Message: fmt.Sprintf("Loaded link list: %s", m.store.Path), Level: LevelVerbose})

	page, err := m.scraper.FetchAlbumPage(ctx, m.opts.AlbumURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not read album page, naming album from URL: %v", err), Level: LevelWarning})
		m.album = model.NewAlbum(khinsider.AlbumNameFromURL(m.opts.AlbumURL), m.opts.AlbumURL, m.settings.OutputPath)
		return nil
	}
	m.album = model.NewAlbum(page.Name, m.opts.AlbumURL, m.settings.OutputPath)
	m.imageURLs = page.ImageURLs
	return nil
}

// StartDownloads writes the gallery, the cover, the songs and the playlist
// into the album directory.
//
// Single file failures are reported as events and counted; they do not stop
// the run. The returned error is for failures affecting the whole run, such
// as cancellation or an unwritable album directory.
func (m *Manager) StartDownloads(ctx context.Context) error {
	if m.album == nil {
		return ErrNotInitialized
	}
	if m.opts.DryRun {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Dry run, %d files not downloaded", m.totalFiles), Level: LevelInfo})
		return nil
	}

	if err := ioutils.EnsureDir(m.album.Path); err != nil {
		return fmt.Errorf("create album directory: %w", err)
	}

	if !m.opts.NoImages {
		if err := m.downloadImages(ctx); err != nil {
			return err
		}
	}
	if m.opts.OnlyImages {
		return nil
	}

	cover := m.prepareCover(ctx)

	downloaded, err := m.downloadSongs(ctx, cover)
	if err != nil {
		return err
	}

	if m.settings.CreatePlaylist {
		m.writePlaylist(downloaded)
	}

	stats := m.GetProgress()
	if stats.Failed == 0 && stats.Skipped == 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded album: %s", m.album.Name), Level: LevelSuccess})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, some files were not downloaded", m.album.Name), Level: LevelWarning})
	}
	return nil
}

// downloadSongs fetches every record. The result marks which records were
// written, by flat record index.
func (m *Manager) downloadSongs(ctx context.Context, cover []byte) ([]bool, error) {
	var records []model.DownloadRecord
	for _, track := range m.links {
		records = append(records, track...)
	}
	downloaded := make([]bool, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.settings.MaxConcurrentDownloads))

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			downloaded[i] = m.downloadRecord(gctx, rec, cover)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return downloaded, nil
}

// downloadRecord fetches one record and reports whether the file was written.
func (m *Manager) downloadRecord(ctx context.Context, rec model.DownloadRecord, cover []byte) bool {
	if rec.URL == nil {
		atomic.AddInt32(&m.skippedFiles, 1)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Download link is invalid for file: %s. Skipping...", rec.NameWithCodec), Level: LevelWarning})
		return false
	}

	if rec.DiscNumber != nil {
		if err := ioutils.EnsureDir(m.album.DiscPath(*rec.DiscNumber)); err != nil {
			atomic.AddInt32(&m.failedFiles, 1)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating disc directory for %s: %v", rec.NameWithCodec, err), Level: LevelError})
			return false
		}
	}

	dest := m.album.TrackPath(rec)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading: %s", rec.NameWithCodec), Level: LevelVerbose})

	if _, err := m.downloadWithRetry(ctx, *rec.URL, dest, rec.NameWithCodec); err != nil {
		if ctx.Err() == nil {
			atomic.AddInt32(&m.failedFiles, 1)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Download failed for file: %s (%v)", rec.NameWithCodec, err), Level: LevelError})
		}
		return false
	}
	atomic.AddInt32(&m.downloadedFiles, 1)

	if m.settings.ModifyTags && m.tagger.Supports(dest) {
		tag := audio.TagFromRecord(rec, m.album.Name)
		if m.settings.EmbedCoverArt {
			tag.Cover = cover
		}
		if _, err := m.tagger.SaveTags(dest, tag); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", rec.NameWithCodec, err), Level: LevelWarning})
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", rec.NameWithCodec), Level: LevelVerbose})
	return true
}

// downloadWithRetry retries transport errors and 5xx/429 responses up to
// DownloadMaxRetries times.
func (m *Manager) downloadWithRetry(ctx context.Context, url, dest, label string) (int64, error) {
	maxRetries := m.settings.DownloadMaxRetries

	var err error
	for tries := 0; ; tries++ {
		var n int64
		n, err = m.httpClient.DownloadFile(ctx, url, dest, nil)
		if err == nil {
			atomic.AddInt64(&m.receivedBytes, n)
			return n, nil
		}
		if tries >= maxRetries || !http.Retryable(err) || ctx.Err() != nil {
			return 0, err
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s: %v", tries+1, maxRetries, label, err), Level: LevelWarning})
		m.waitForRetry(ctx, tries)
	}
}

func (m *Manager) writePlaylist(downloaded []bool) {
	var entries []audio.PlaylistEntry
	i := 0
	for _, track := range m.links {
		for _, rec := range track {
			if downloaded[i] {
				entries = append(entries, audio.EntryFromRecord(rec))
			}
			i++
		}
	}

	path := m.album.PlaylistPath(m.settings.Playlist())
	content := m.playlist.CreatePlaylist(entries)
	if err := ioutils.WriteFileAtomic(path, []byte(content)); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist for %s", m.album.Name), Level: LevelSuccess})
}

func (m *Manager) waitForRetry(ctx context.Context, tries int) {
	cooldown := m.settings.RetryCooldown().Seconds() * math.Pow(m.settings.DownloadRetryExponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
	}
}

// GetProgress returns current download counters.
func (m *Manager) GetProgress() Stats {
	return Stats{
		Total:      m.totalFiles,
		Downloaded: atomic.LoadInt32(&m.downloadedFiles),
		Skipped:    atomic.LoadInt32(&m.skippedFiles),
		Failed:     atomic.LoadInt32(&m.failedFiles),
		Bytes:      atomic.LoadInt64(&m.receivedBytes),
	}
}

// Album returns the album being downloaded, or nil before Initialize.
func (m *Manager) Album() *model.Album {
	return m.album
}

// Links returns the download records of the run.
func (m *Manager) Links() model.LinkList {
	return m.links
}

// LinkListPath returns where the link list is read from and saved to.
func (m *Manager) LinkListPath() string {
	return m.store.Path
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
