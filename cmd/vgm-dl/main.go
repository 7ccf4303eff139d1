package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/handiism/vgm-downloader/internal/config"
	"github.com/handiism/vgm-downloader/internal/download"
	"github.com/handiism/vgm-downloader/internal/model"
)

func main() {
	var (
		outputFlag     = flag.StringP("output-path", "o", "downloads", "Output directory (overrides config)")
		fromFileFlag   = flag.BoolP("load-from-file", "f", false, "Read song links from the link list instead of the site")
		linkListFlag   = flag.String("link-list", "", "Link list path (overrides config)")
		lossyFlag      = flag.BoolP("lossy", "l", false, "Also download the lossy (MP3) files")
		noLosslessFlag = flag.BoolP("no-lossless", "n", false, "Do not download lossless files")
		onlyImagesFlag = flag.Bool("only-images", false, "Download only the album images")
		noImagesFlag   = flag.Bool("no-images", false, "Do not download the album images")
		configFlag     = flag.StringP("config", "c", "", "Path to config file")
		tagFlag        = flag.Bool("tag", false, "Write tags to MP3 and FLAC files")
		playlistFlag   = flag.Bool("playlist", false, "Create playlist file")
		coverFlag      = flag.Bool("cover", false, "Save the first album image as cover art")
		jobsFlag       = flag.IntP("jobs", "j", 1, "Number of files downloaded at once")
		verboseFlag    = flag.BoolP("verbose", "v", false, "Show verbose output")
		dryRunFlag     = flag.Bool("dry-run", false, "Resolve and save the link list without downloading")
	)

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "VGM Downloader - Download video game soundtracks from khinsider")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  vgm-dl [options] <album_page_url>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "For interactive mode, use: vgm-tui")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	albumURL := flag.Arg(0)

	settings, err := config.Load(*configFlag)
	if err != nil {
		fatal(err)
	}

	// Flags override config values only when given.
	if flag.CommandLine.Changed("output-path") {
		settings.OutputPath = *outputFlag
	}
	if *linkListFlag != "" {
		settings.LinkListPath = *linkListFlag
	}
	if *tagFlag {
		settings.ModifyTags = true
	}
	if *playlistFlag {
		settings.CreatePlaylist = true
	}
	if *coverFlag {
		settings.SaveCoverArt = true
	}
	if flag.CommandLine.Changed("jobs") {
		settings.MaxConcurrentDownloads = *jobsFlag
	}
	if err := settings.Validate(); err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := download.Options{
		AlbumURL: albumURL,
		Intent: model.CodecIntent{
			WantLossy:        *lossyFlag,
			SuppressLossless: *noLosslessFlag,
		},
		LoadFromFile: *fromFileFlag,
		OnlyImages:   *onlyImagesFlag,
		NoImages:     *noImagesFlag,
		DryRun:       *dryRunFlag,
	}

	manager, err := download.NewManager(settings, opts, newPrinter(*verboseFlag).print)
	if err != nil {
		fatal(err)
	}

	color.New(color.Bold).Println("♪ VGM Downloader")
	fmt.Println()

	if err := manager.Initialize(ctx); err != nil {
		exitOnCancel(ctx)
		fatal(err)
	}

	if *dryRunFlag {
		fmt.Printf("\n[Dry run - link list saved to %s]\n", manager.LinkListPath())
		return
	}

	fmt.Println()
	if err := manager.StartDownloads(ctx); err != nil {
		exitOnCancel(ctx)
		fatal(err)
	}

	stats := manager.GetProgress()
	fmt.Println()
	color.New(color.FgGreen).Print("==> ")
	fmt.Printf("Complete! Downloaded %d/%d files (%s)", stats.Downloaded, stats.Total, humanize.Bytes(uint64(stats.Bytes)))
	if stats.Skipped > 0 || stats.Failed > 0 {
		fmt.Printf(", %d skipped, %d failed", stats.Skipped, stats.Failed)
	}
	fmt.Printf("\n    %s\n", manager.Album().Path)
}

// printer writes progress events to stdout. Events can arrive from several
// download goroutines.
type printer struct {
	mu      sync.Mutex
	verbose bool
}

func newPrinter(verbose bool) *printer {
	return &printer{verbose: verbose}
}

func (p *printer) print(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !p.verbose {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Level {
	case download.LevelError:
		color.Red("### %s", event.Message)
	case download.LevelWarning:
		color.Yellow("!!! %s", event.Message)
	case download.LevelSuccess:
		color.Green("==> %s", event.Message)
	case download.LevelInfo:
		color.New(color.FgCyan).Print(">>> ")
		fmt.Println(event.Message)
	default:
		color.New(color.Faint).Printf("    %s\n", event.Message)
	}
}

func exitOnCancel(ctx context.Context) {
	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nDownload cancelled.")
		os.Exit(130)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
