// Package main is the entry point for the jukeboxd daemon.
// jukeboxd is a multi-user network jukebox: clients connect over TCP,
// authenticate and manage a shared playback queue, while the daemon
// drives external decoder processes to actually play the music.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"jukeboxd/internal/auth"
	"jukeboxd/internal/config"
	"jukeboxd/internal/player"
	"jukeboxd/internal/queue"
	"jukeboxd/internal/server"
	"jukeboxd/internal/store"
	"jukeboxd/internal/volume"
)

// Version is set at build time via ldflags
var Version = "dev"

// Options holds the command line settings
type Options struct {
	ConfigPath string
	Listen     string
	Verbose    bool
}

func main() {
	opts := parseFlags()

	if opts.Verbose {
		log.Printf("jukeboxd version %s starting...", Version)
	}

	// Create context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() *Options {
	opts := &Options{}

	pflag.StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default: ~/.config/jukeboxd/config.json)")
	pflag.StringVarP(&opts.Listen, "listen", "l", "", "listen address, overrides the config file")
	pflag.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
	pflag.Parse()

	if opts.ConfigPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		opts.ConfigPath = homeDir + "/.config/jukeboxd/config.json"
	}

	return opts
}

func run(ctx context.Context, opts *Options) error {
	configMgr := config.NewManager(opts.ConfigPath)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()

	listen := cfg.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	users, err := buildAuthChain(cfg, st)
	if err != nil {
		return err
	}

	var vol volume.Manager = volume.Unavailable{}
	if cfg.Mixer.GetCommand != "" && cfg.Mixer.SetCommand != "" {
		vol = volume.NewMixerCmd(cfg.Mixer.GetCommand, cfg.Mixer.SetCommand)
		log.Printf("[VOLUME] Mixer commands configured")
	}

	queueMgr := queue.NewManager(st)
	supervisor := player.NewSupervisor(player.ExecRunner{}, queueMgr, st, configMgr)

	srv := server.NewServer(listen, configMgr, st, queueMgr, supervisor, users, vol)

	err = srv.Start(ctx)

	// the decoder must not outlive the daemon
	supervisor.Stop()

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildAuthChain assembles the user database backends in the configured
// order.
func buildAuthChain(cfg *config.Config, st *store.Store) (auth.Chain, error) {
	var chain auth.Chain
	for _, backend := range cfg.AuthBackends {
		switch backend {
		case "sql":
			chain = append(chain, auth.NewSQLProvider(st.DB()))
		case "static":
			chain = append(chain, auth.NewStaticProvider(cfg.StaticAuthUsers()))
		default:
			return nil, fmt.Errorf("unknown auth backend %q", backend)
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no auth backends configured")
	}
	return chain, nil
}
