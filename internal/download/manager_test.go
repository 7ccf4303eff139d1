package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/handiism/vgm-downloader/internal/config"
	"github.com/handiism/vgm-downloader/internal/khinsider"
	"github.com/handiism/vgm-downloader/internal/linklist"
	"github.com/handiism/vgm-downloader/internal/model"
)

const albumPath = "/game-soundtracks/album/test-album"

type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) add(e ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) contains(level ProgressLevel, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// fakeSite serves fixed pages; unknown paths are 404.
type fakeSite struct {
	pages map[string]string
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func testSettings(t *testing.T, origin string) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	s := config.DefaultSettings()
	s.OutputPath = filepath.Join(dir, "out")
	s.LinkListPath = filepath.Join(dir, "link_list.json")
	s.SiteOrigin = origin
	s.RequestsPerSecond = 0
	s.DownloadRetryCooldown = 0
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return s
}

func newTestManager(t *testing.T, s *config.Settings, opts Options) (*Manager, *eventLog) {
	t.Helper()
	log := &eventLog{}
	m, err := NewManager(s, opts, log.add)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, log
}

// twoDiscAlbum builds a site with 2 discs of 3 FLAC-only tracks and one gallery image.
func twoDiscAlbum() *fakeSite {
	site := &fakeSite{pages: map[string]string{}}

	var rows strings.Builder
	for disc := 1; disc <= 2; disc++ {
		for track := 1; track <= 3; track++ {
			songPath := fmt.Sprintf("%s/%d-%d.mp3", albumPath, disc, track)
			fmt.Fprintf(&rows, `<tr><td>&#9654;</td><td>%d</td><td>%d.</td><td><a href="%s">Song %d-%d</a></td><td>1:00</td></tr>`,
				disc, track, songPath, disc, track)
			site.pages[songPath] = fmt.Sprintf(`<html><body>
				<p><a href="/files/%d-%d.mp3"><span class="songDownloadLink">MP3</span></a></p>
				<p><a href="/files/%d-%d.flac"><span class="songDownloadLink">FLAC</span></a></p>
				</body></html>`, disc, track, disc, track)
			site.pages[fmt.Sprintf("/files/%d-%d.flac", disc, track)] = fmt.Sprintf("flac %d-%d", disc, track)
		}
	}

	site.pages[albumPath] = `<html><body><div id="pageContent"><h2>Test Album</h2>
		<div class="albumImage"><a href="/images/Front+Cover.jpg">cover</a></div>
		<table id="songlist">
		<tr id="songlist_header"><th>&nbsp;</th><th>CD</th><th>#</th><th>Song Name</th><th>Time</th><th><b>FLAC</b></th></tr>` +
		rows.String() +
		`<tr id="songlist_footer"><th>Total</th></tr></table></div></body></html>`
	site.pages["/images/Front+Cover.jpg"] = "jpegdata"
	return site
}

func TestManager_EndToEndTwoDiscs(t *testing.T) {
	srv := httptest.NewServer(twoDiscAlbum())
	defer srv.Close()

	s := testSettings(t, srv.URL)
	s.CreatePlaylist = true
	m, log := newTestManager(t, s, Options{AlbumURL: srv.URL + albumPath})

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := m.Links().Count(); got != 6 {
		t.Fatalf("records = %d, want 6", got)
	}
	if err := m.StartDownloads(context.Background()); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	albumDir := filepath.Join(s.OutputPath, "Test Album")
	for disc := 1; disc <= 2; disc++ {
		for track := 1; track <= 3; track++ {
			path := filepath.Join(albumDir, fmt.Sprintf("Disc %02d", disc), fmt.Sprintf("%02d. Song %d-%d.flac", track, disc, track))
			got, err := os.ReadFile(path)
			if err != nil {
				t.Errorf("missing %s: %v", path, err)
				continue
			}
			if want := fmt.Sprintf("flac %d-%d", disc, track); string(got) != want {
				t.Errorf("%s = %q, want %q", path, got, want)
			}
		}
	}

	if _, err := os.Stat(filepath.Join(albumDir, "images", "Front Cover.jpg")); err != nil {
		t.Errorf("gallery image not saved: %v", err)
	}

	playlist, err := os.ReadFile(filepath.Join(albumDir, "Test Album.m3u"))
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if !strings.Contains(string(playlist), "Disc 02/03. Song 2-3.flac\n") {
		t.Errorf("playlist missing last track:\n%s", playlist)
	}

	saved, err := linklist.NewStore(s.LinkListPath).Load()
	if err != nil {
		t.Fatalf("link list not saved: %v", err)
	}
	if saved.Count() != 6 {
		t.Errorf("saved records = %d, want 6", saved.Count())
	}

	stats := m.GetProgress()
	if stats.Downloaded != 6 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 6 downloaded", stats)
	}
	if !log.contains(LevelSuccess, "Successfully downloaded album") {
		t.Error("missing success event")
	}
}

func TestManager_ResumeFromLinkList(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		"/files/a.mp3": "a",
		"/files/b.mp3": "b",
		"/files/c.mp3": "c",
	}}
	srv := httptest.NewServer(site)
	defer srv.Close()

	s := testSettings(t, srv.URL)
	s.MaxConcurrentDownloads = 3

	one, two := 1, 2
	url := func(p string) *string { u := srv.URL + p; return &u }
	list := model.LinkList{
		{{DiscNumber: &one, NameWithCodec: "01. A.mp3", URL: url("/files/a.mp3")}},
		{{DiscNumber: &one, NameWithCodec: "02. B.mp3", URL: url("/files/b.mp3")}},
		{{DiscNumber: &two, NameWithCodec: "01. C.mp3", URL: url("/files/c.mp3")}},
		{{DiscNumber: &two, NameWithCodec: "02. Gone.mp3", URL: url("/files/gone.mp3")}},
		{{DiscNumber: &two, NameWithCodec: "03. Nothing.wav", URL: nil}},
	}
	if err := linklist.NewStore(s.LinkListPath).Save(list); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The album page is missing, so the name comes from the URL.
	m, log := newTestManager(t, s, Options{AlbumURL: srv.URL + albumPath, LoadFromFile: true})
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if m.Album().Name != "test-album" {
		t.Errorf("album name = %q, want %q", m.Album().Name, "test-album")
	}
	if err := m.StartDownloads(context.Background()); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	albumDir := filepath.Join(s.OutputPath, "test-album")
	entries, err := os.ReadDir(albumDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) != 2 || dirs[0] != "Disc 01" || dirs[1] != "Disc 02" {
		t.Errorf("album dirs = %v, want [Disc 01 Disc 02]", dirs)
	}

	for _, p := range []string{"Disc 01/01. A.mp3", "Disc 01/02. B.mp3", "Disc 02/01. C.mp3"} {
		if _, err := os.Stat(filepath.Join(albumDir, filepath.FromSlash(p))); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
	for _, p := range []string{"Disc 02/02. Gone.mp3", "Disc 02/02. Gone.mp3.part", "Disc 02/03. Nothing.wav"} {
		if _, err := os.Stat(filepath.Join(albumDir, filepath.FromSlash(p))); !os.IsNotExist(err) {
			t.Errorf("%s should not exist", p)
		}
	}

	stats := m.GetProgress()
	if stats.Downloaded != 3 || stats.Failed != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 3 downloaded, 1 failed, 1 skipped", stats)
	}
	if !log.contains(LevelWarning, "Download link is invalid for file: 03. Nothing.wav. Skipping...") {
		t.Error("missing invalid link warning")
	}
	if !log.contains(LevelError, "Download failed for file: 02. Gone.mp3") {
		t.Error("missing download failure event")
	}
}

func TestManager_StructureErrorCreatesNothing(t *testing.T) {
	site := &fakeSite{pages: map[string]string{albumPath: "<html><body><h2>Not an album</h2></body></html>"}}
	srv := httptest.NewServer(site)
	defer srv.Close()

	s := testSettings(t, srv.URL)
	m, _ := newTestManager(t, s, Options{AlbumURL: srv.URL + albumPath})

	err := m.Initialize(context.Background())
	if !errors.Is(err, khinsider.ErrStructureNotFound) {
		t.Fatalf("Initialize() error = %v, want ErrStructureNotFound", err)
	}
	if _, err := os.Stat(s.OutputPath); !os.IsNotExist(err) {
		t.Error("output directory should not be created")
	}
	if err := m.StartDownloads(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("StartDownloads() error = %v, want ErrNotInitialized", err)
	}
}

func TestManager_RetriesServerErrors(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/files/flaky.mp3", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "ok")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := testSettings(t, srv.URL)
	u := srv.URL + "/files/flaky.mp3"
	if err := linklist.NewStore(s.LinkListPath).Save(model.LinkList{{{NameWithCodec: "01. Flaky.mp3", URL: &u}}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m, log := newTestManager(t, s, Options{AlbumURL: srv.URL + albumPath, LoadFromFile: true})
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := m.StartDownloads(context.Background()); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if m.GetProgress().Downloaded != 1 {
		t.Errorf("stats = %+v, want 1 downloaded", m.GetProgress())
	}
	if !log.contains(LevelWarning, "Retry 2/3") {
		t.Error("missing retry warning")
	}
}

func TestManager_DryRunWritesOnlyLinkList(t *testing.T) {
	srv := httptest.NewServer(twoDiscAlbum())
	defer srv.Close()

	s := testSettings(t, srv.URL)
	m, _ := newTestManager(t, s, Options{AlbumURL: srv.URL + albumPath, DryRun: true})

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := m.StartDownloads(context.Background()); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}

	if _, err := os.Stat(s.LinkListPath); err != nil {
		t.Errorf("link list not written: %v", err)
	}
	if _, err := os.Stat(s.OutputPath); !os.IsNotExist(err) {
		t.Error("dry run should not create the output directory")
	}
}

func TestManager_LossyFallbackWarns(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		albumPath: `<html><body><div id="pageContent"><h2>Lossy</h2><table id="songlist">
			<tr id="songlist_header"><th></th><th>Song Name</th><th>MP3</th></tr>
			<tr><td></td><td><a href="/s/1">One</a></td><td>1 MB</td></tr>
			</table></div></body></html>`,
		"/s/1":     `<html><body><a href="/f/1.mp3"><span class="songDownloadLink">x</span></a></body></html>`,
		"/f/1.mp3": "mp3",
	}}
	srv := httptest.NewServer(site)
	defer srv.Close()

	s := testSettings(t, srv.URL)
	m, log := newTestManager(t, s, Options{AlbumURL: srv.URL + albumPath, NoImages: true})
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !log.contains(LevelWarning, "falling back to Lossy codec") {
		t.Error("missing downgrade warning")
	}
	if err := m.StartDownloads(context.Background()); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.OutputPath, "Lossy", "01. One.mp3")); err != nil {
		t.Errorf("lossy file missing: %v", err)
	}
}

func TestManager_EmptyPlanDownloadsNothing(t *testing.T) {
	srv := httptest.NewServer(twoDiscAlbum())
	defer srv.Close()

	s := testSettings(t, srv.URL)
	m, log := newTestManager(t, s, Options{
		AlbumURL: srv.URL + albumPath,
		Intent:   model.CodecIntent{SuppressLossless: true},
		NoImages: true,
	})
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if m.Links().Count() != 0 {
		t.Errorf("records = %d, want 0", m.Links().Count())
	}
	if !log.contains(LevelWarning, "No codec selected") {
		t.Error("missing empty plan warning")
	}
}
