package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/handiism/vgm-downloader/internal/config"
	"github.com/handiism/vgm-downloader/internal/tui"
)

func main() {
	configFlag := flag.StringP("config", "c", "", "Path to config file")
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
