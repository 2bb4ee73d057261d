// Package main provides the playlist daemon entry point.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/playlistd/internal/api/httpapi"
	"github.com/osa030/playlistd/internal/app/notification"
	"github.com/osa030/playlistd/internal/app/playlist"
	"github.com/osa030/playlistd/internal/app/source"
	"github.com/osa030/playlistd/internal/infra/config"
	"github.com/osa030/playlistd/internal/infra/logger"
	"github.com/osa030/playlistd/internal/infra/store"
)

var (
	app        = kingpin.New("playlistd", "Playlist cache daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/playlistd.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: from config)").String()
	background = app.Flag("background", "Start in the background instead of the foreground").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		app.Fatalf("failed to load config %s: %v", *configPath, err)
	}

	// Command-line flags take precedence over the log section
	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		app.Fatalf("failed to initialize logger: %v", err)
	}
	defer closer.Close()

	zlog.Info().Msgf("Loaded config from %s", *configPath)

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	src, err := source.NewFromConfig(ctx, cfg.Source)
	if err != nil {
		return errors.Wrap(err, "failed to create playlist source")
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return errors.Wrap(err, "failed to create playlist store")
	}
	defer st.Close()

	bus := notification.NewManager()
	defer bus.Close()

	switches := config.NewSwitches(cfg.Playlist)

	manager := playlist.NewManager(switches, src, source.StoreFor(cfg.Source, src, st), bus)
	defer manager.Close()

	subscriptionID := bus.Subscribe(manager)
	defer bus.Unsubscribe(subscriptionID)

	playlistLog := logger.Component("playlist")
	changesID := bus.Subscribe(notification.StreamFunc(func(e *notification.Event) error {
		if e.Type == notification.EventPlaylistChanged {
			playlistLog.Info().Msgf("Playlist changed: seq=%d origin=%s", e.SequenceNo, e.Playlist.Origin())
		}
		return nil
	}))
	defer bus.Unsubscribe(changesID)

	timeout := cfg.FirstDownloadTimeout()
	err = manager.RegisterFirstDownloadCallback(func() {
		p := manager.CurrentPlaylist()
		if p == nil {
			playlistLog.Info().Msg("First download callback: no playlist available yet")
			return
		}
		playlistLog.Info().Msgf("First download callback: playlist ready (origin=%s)", p.Origin())
	}, timeout)
	if err != nil {
		return errors.Wrap(err, "failed to register first download callback")
	}

	api := httpapi.NewServer(manager, bus, switches, cfg.Admin.Token)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(api.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting control API: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	if !*background {
		broadcast(bus, notification.Foregrounded())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

loop:
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR1:
				zlog.Info().Msg("Received SIGUSR1, moving to background")
				broadcast(bus, notification.Backgrounded())
			case syscall.SIGUSR2:
				zlog.Info().Msg("Received SIGUSR2, moving to foreground")
				broadcast(bus, notification.Foregrounded())
			default:
				zlog.Info().Msgf("Received %s, shutting down...", sig)
				break loop
			}
		case err := <-serverErrCh:
			return errors.Wrap(err, "control API server error")
		}
	}

	broadcast(bus, notification.Backgrounded())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown control API: %v", err)
	}

	zlog.Info().Msg("Daemon stopped")
	return nil
}

func broadcast(bus *notification.Manager, event *notification.Event) {
	if err := bus.Broadcast(event); err != nil {
		zlog.Error().Msgf("Failed to broadcast %s: %v", event.Type, err)
	}
}
