// Package config manages application settings.
//
// Settings are read from TOML files with koanf. Every key is optional and
// missing keys keep their default:
//
//	# $XDG_CONFIG_HOME/vgm-downloader/config.toml
//	output_path = "/home/user/Music/VGM"
//	max_concurrent_downloads = 4
//	request_timeout = "45s"
//	modify_tags = true
//	create_playlist = true
//	playlist_format = "pls"
//
// # Loading Settings
//
//	settings, err := config.Load("") // XDG config, then ./config.toml
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Pass a path to read only that file:
//
//	settings, err := config.Load("/etc/vgm.toml")
//
// # Default Settings
//
// DefaultSettings downloads into ./downloads, one file and one page at a
// time, with up to 3 retries on network and server errors.
package config
