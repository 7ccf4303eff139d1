// Package download provides the download orchestration logic for
// fetching an album from the archive.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Read the album page and decode the song table
//  2. Select codecs and resolve every song page (or load the link list)
//  3. Save the link list
//  4. Download the image gallery
//  5. Download songs, one Disc NN directory per disc
//  6. Tag MP3/FLAC files (optional)
//  7. Generate a playlist (optional)
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, download.Options{
//	    AlbumURL: "https://downloads.khinsider.com/game-soundtracks/album/name",
//	}, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	if err := manager.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := manager.StartDownloads(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// The Manager uses configurable concurrency limits, both 1 by default:
//   - MaxConcurrentPages: How many song pages are resolved in parallel
//   - MaxConcurrentDownloads: How many files are downloaded in parallel
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// The callback may be called from several goroutines at once.
//
// # Retry Logic
//
// Network errors and 5xx/429 responses are retried with exponential backoff,
// configurable via settings.DownloadMaxRetries, DownloadRetryCooldown and
// DownloadRetryExponent. A file that still fails is skipped.
package download
