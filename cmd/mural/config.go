package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration, read from ~/.mural/config.toml.
// Missing file or fields fall back to defaults; flags override both.
type Config struct {
	Window struct {
		Width  int `toml:"width"`
		Height int `toml:"height"`
	} `toml:"window"`
	Storage struct {
		Path string `toml:"path"`
	} `toml:"storage"`
	Backend struct {
		BaseURL string `toml:"base_url"`
		Model   string `toml:"model"`
		Size    int    `toml:"size"`
	} `toml:"backend"`
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".mural")
}

func loadConfig() Config {
	var cfg Config
	cfg.Window.Width = 1280
	cfg.Window.Height = 800
	cfg.Storage.Path = filepath.Join(configDir(), "mural.db")

	path := filepath.Join(configDir(), "config.toml")
	if _, err := os.Stat(path); err != nil {
		return cfg
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		log.Printf("mural: config %s unreadable, using defaults: %v", path, err)
	}
	return cfg
}
