// Package http provides the HTTP client used to talk to the music archive.
//
// The Client in this package handles:
//   - User-Agent headers the site accepts
//   - Request pacing (golang.org/x/time/rate)
//   - Timeouts for page fetches and for long file downloads
//   - HTML parsing with goquery
//   - File downloads with progress tracking
//
// # Basic Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Fetch and parse an HTML page
//	doc, err := client.GetDocument(ctx, albumURL)
//
//	// Download file with progress callback
//	n, err := client.DownloadFile(ctx, fileURL, "/path/to/file.flac", func(written, total int64) {
//	    fmt.Printf("%d bytes\n", written)
//	})
//
// # Errors
//
// A response other than 200 OK is reported as *StatusError. Retryable tells
// the caller whether trying again makes sense:
//
//	if http.Retryable(err) {
//	    // back off and retry
//	}
package http
