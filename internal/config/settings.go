package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/handiism/vgm-downloader/internal/http"
	"github.com/handiism/vgm-downloader/internal/khinsider"
	"github.com/handiism/vgm-downloader/internal/model"
)

// AppName names the configuration directory.
const AppName = "vgm-downloader"

// Settings holds all configuration options.
type Settings struct {
	// Paths
	OutputPath   string `koanf:"output_path"`
	LinkListPath string `koanf:"link_list_path"`

	// Site and transport
	SiteOrigin        string        `koanf:"site_origin"`
	UserAgent         string        `koanf:"user_agent"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	DownloadTimeout   time.Duration `koanf:"download_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`

	// Concurrency and retries
	MaxConcurrentPages     int     `koanf:"max_concurrent_pages"`
	MaxConcurrentDownloads int     `koanf:"max_concurrent_downloads"`
	DownloadMaxRetries     int     `koanf:"download_max_retries"`
	DownloadRetryCooldown  float64 `koanf:"download_retry_cooldown"` // seconds
	DownloadRetryExponent  float64 `koanf:"download_retry_exponent"`

	// Tag settings
	ModifyTags bool `koanf:"modify_tags"`

	// Cover art settings
	SaveCoverArt     bool   `koanf:"save_cover_art"`
	CoverArtFileName string `koanf:"cover_art_file_name"`
	CoverArtMaxSize  int    `koanf:"cover_art_max_size"`
	EmbedCoverArt    bool   `koanf:"embed_cover_art"`

	// Playlist settings
	CreatePlaylist bool   `koanf:"create_playlist"`
	PlaylistFormat string `koanf:"playlist_format"` // m3u, pls
	M3UExtended    bool   `koanf:"m3u_extended"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputPath:   "downloads",
		LinkListPath: "link_list.json",

		SiteOrigin:        khinsider.DefaultOrigin,
		UserAgent:         http.DefaultUserAgent,
		RequestTimeout:    30 * time.Second,
		DownloadTimeout:   10 * time.Minute,
		RequestsPerSecond: 4,

		MaxConcurrentPages:     1,
		MaxConcurrentDownloads: 1,
		DownloadMaxRetries:     3,
		DownloadRetryCooldown:  0.5,
		DownloadRetryExponent:  2.0,

		ModifyTags: false,

		SaveCoverArt:     false,
		CoverArtFileName: "cover",
		CoverArtMaxSize:  1000,
		EmbedCoverArt:    false,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,
	}
}

// ConfigPaths returns the candidate config files in load order. Later files
// override earlier ones.
func ConfigPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, AppName, "config.toml"),
		"config.toml",
	}
}

// Load reads settings from TOML files on top of the defaults.
//
// With an empty explicitPath every file from ConfigPaths that exists is
// loaded, last wins. Otherwise only explicitPath is read and it must exist.
// The result is validated.
func Load(explicitPath string) (*Settings, error) {
	paths := ConfigPaths()
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		paths = []string{explicitPath}
	}

	k := koanf.New(".")
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	settings := DefaultSettings()
	if err := k.Unmarshal("", settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate clamps out-of-range values and rejects unusable ones.
func (s *Settings) Validate() error {
	s.MaxConcurrentPages = max(1, s.MaxConcurrentPages)
	s.MaxConcurrentDownloads = max(1, s.MaxConcurrentDownloads)
	s.DownloadMaxRetries = max(0, s.DownloadMaxRetries)
	if s.DownloadRetryExponent < 1 {
		s.DownloadRetryExponent = 1
	}
	if s.DownloadRetryCooldown < 0 {
		s.DownloadRetryCooldown = 0
	}

	u, err := url.Parse(s.SiteOrigin)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid site_origin %q: must be an absolute URL", s.SiteOrigin)
	}
	if _, ok := model.ParsePlaylistFormat(s.PlaylistFormat); !ok {
		return fmt.Errorf("invalid playlist_format %q: want m3u or pls", s.PlaylistFormat)
	}
	if s.OutputPath == "" {
		return errors.New("output_path must not be empty")
	}
	return nil
}

// HTTPOptions converts settings to http.Options.
func (s *Settings) HTTPOptions() http.Options {
	return http.Options{
		UserAgent:         s.UserAgent,
		RequestTimeout:    s.RequestTimeout,
		DownloadTimeout:   s.DownloadTimeout,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}

// Playlist returns the configured playlist format. Validate guarantees it is known.
func (s *Settings) Playlist() model.PlaylistFormat {
	pf, _ := model.ParsePlaylistFormat(s.PlaylistFormat)
	return pf
}

// RetryCooldown is the base delay before the first retry.
func (s *Settings) RetryCooldown() time.Duration {
	return time.Duration(s.DownloadRetryCooldown * float64(time.Second))
}
