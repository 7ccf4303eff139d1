package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X)"

// Options configures a Client.
type Options struct {
	// UserAgent is sent with every request.
	UserAgent string

	// RequestTimeout bounds page and small file fetches (Get, GetDocument).
	RequestTimeout time.Duration

	// DownloadTimeout bounds a single DownloadFile call.
	DownloadTimeout time.Duration

	// RequestsPerSecond paces all requests. Zero or less disables pacing.
	RequestsPerSecond float64
}

// DefaultOptions returns the options used by the CLI when nothing is configured.
func DefaultOptions() Options {
	return Options{
		UserAgent:         DefaultUserAgent,
		RequestTimeout:    30 * time.Second,
		DownloadTimeout:   10 * time.Minute,
		RequestsPerSecond: 4,
	}
}

// Client wraps HTTP operations against the archive.
//
// Client provides:
//   - A browser-like User-Agent header, which the site expects
//   - Request pacing with a token-bucket limiter
//   - Separate timeouts for page fetches and file downloads
//   - HTML parsing into goquery documents
//   - File download with progress tracking
//
// A single Client is shared by a whole run so all requests reuse one
// connection pool. It is safe for concurrent use.
//
// Example usage:
//
//	client := NewClient(DefaultOptions())
//
//	// Fetch and parse an album page
//	doc, err := client.GetDocument(ctx, "https://downloads.khinsider.com/game-soundtracks/album/name")
//
//	// Download file with progress
//	n, err := client.DownloadFile(ctx, flacURL, "/path/to/01. Title.flac", func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
type Client struct {
	httpClient      *http.Client
	userAgent       string
	limiter         *rate.Limiter
	requestTimeout  time.Duration
	downloadTimeout time.Duration
}

// NewClient creates a new HTTP client from opts.
//
// Zero values in opts fall back to DefaultOptions, except RequestsPerSecond
// where zero means unlimited.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = def.DownloadTimeout
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 8
	transport.ResponseHeaderTimeout = opts.RequestTimeout

	return &Client{
		httpClient:      &http.Client{Transport: transport},
		userAgent:       opts.UserAgent,
		limiter:         rate.NewLimiter(limit, 1),
		requestTimeout:  opts.RequestTimeout,
		downloadTimeout: opts.DownloadTimeout,
	}
}

// StatusError is returned when the server answers with a status other than 200 OK.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Code, e.Status, e.URL)
}

// Retryable reports whether a failed request may succeed when tried again.
//
// Network errors, 5xx responses and 429 Too Many Requests are retryable.
// Other status errors, cancellation and local file errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// It is -1 when the server did not send a length.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// do waits for the limiter, sends a GET and checks the status.
// The caller owns the returned body.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// Get performs a GET request and returns the response body as bytes.
//
// The request is bounded by the request timeout.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 200 OK (*StatusError)
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// GetDocument fetches an HTML page and parses it.
//
// Example:
//
//	doc, err := client.GetDocument(ctx, albumURL)
//	name := doc.Find("#pageContent h2").First().Text()
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// DownloadFile downloads a file to destPath with optional progress callback.
//
// The content is streamed to destPath+".part" and renamed to destPath only
// after the whole body was written, so an interrupted download never leaves
// a truncated file under the final name. An existing file at destPath is
// replaced.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to download from
//   - destPath: Local file path to save to
//   - onProgress: Optional callback called with (bytesWritten, totalBytes)
//     Pass nil to disable progress tracking
//
// Returns the number of bytes written.
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	resp, err := c.do(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	partPath := destPath + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return 0, err
	}

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	n, err := io.Copy(writer, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		os.Remove(partPath)
		return n, err
	}

	if err := os.Rename(partPath, destPath); err != nil {
		os.Remove(partPath)
		return n, err
	}
	return n, nil
}
