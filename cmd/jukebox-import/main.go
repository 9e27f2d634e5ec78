// Package main is the library import tool for jukeboxd.
// It scans one or more music directories and fills the record store the
// daemon serves from.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"jukeboxd/internal/config"
	"jukeboxd/internal/scanner"
	"jukeboxd/internal/store"
)

func main() {
	var configPath, databaseURL string
	pflag.StringVarP(&configPath, "config", "c", "", "configuration file (default: ~/.config/jukeboxd/config.json)")
	pflag.StringVarP(&databaseURL, "database", "d", "", "database URL, overrides the config file")
	pflag.Parse()

	dirs := pflag.Args()
	if len(dirs) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <music directory>...\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(configPath, databaseURL, dirs); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath, databaseURL string, dirs []string) error {
	if databaseURL == "" {
		if configPath == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			configPath = homeDir + "/.config/jukeboxd/config.json"
		}
		configMgr := config.NewManager(configPath)
		if err := configMgr.Load(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		databaseURL = configMgr.Get().DatabaseURL
	}

	st, err := store.Open(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	sc := scanner.NewScanner(st)
	for _, dir := range dirs {
		if _, err := sc.ScanDir(context.Background(), dir); err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	return nil
}
