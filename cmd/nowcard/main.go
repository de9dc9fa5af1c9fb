package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tunez/nowcard/internal/app"
	"github.com/tunez/nowcard/internal/artwork"
	"github.com/tunez/nowcard/internal/config"
	"github.com/tunez/nowcard/internal/logging"
	"github.com/tunez/nowcard/internal/nowplaying"
	"github.com/tunez/nowcard/internal/poller"
	"github.com/tunez/nowcard/internal/probe"
	"github.com/tunez/nowcard/internal/state"
	"github.com/tunez/nowcard/internal/storage"
	"github.com/tunez/nowcard/internal/ui"
)

var version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `nowcard - now-playing card for internet radio stations

Usage: nowcard [options]

Options:
  -config string
        Path to config file (default: ~/.config/nowcard/config.toml)
  -version
        Print version and exit
  -debug
        Write debug-level logs

One-shot:
  -once
        Poll once, resolve artwork and print the snapshot as JSON
  -probe string
        Read tags from a local audio file and resolve its artwork
  -doctor
        Check configuration, endpoint and storage

Examples:
  nowcard                                  # Start the card
  nowcard -once | jq .track                # Current track as JSON
  nowcard -probe ~/Music/song.mp3          # Cover lookup for a file

`)
	}

	cfgPath := flag.String("config", "", "")
	showVersion := flag.Bool("version", false, "")
	debug := flag.Bool("debug", false, "")
	once := flag.Bool("once", false, "")
	probePath := flag.String("probe", "", "")
	doctor := flag.Bool("doctor", false, "")
	flag.Parse()

	if *showVersion {
		fmt.Println("nowcard", version)
		return
	}

	cfg, resolvedPath, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger, logFile, err := logging.Setup(level)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer logFile.Close()
	logger.Info("starting nowcard", slog.String("config", resolvedPath), slog.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *doctor {
		runDoctor(ctx, cfg, resolvedPath, logger)
		return
	}

	deps, err := build(cfg, logger)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer deps.Close()

	switch {
	case *probePath != "":
		if err := runProbe(ctx, deps, *probePath); err != nil {
			log.Fatalf("probe: %v", err)
		}
	case *once:
		if err := runOnce(ctx, deps); err != nil {
			os.Exit(1)
		}
	default:
		runCard(ctx, cfg, deps, logger)
	}
}

// deps is the wired program.
type deps struct {
	client   *nowplaying.Client
	resolver *artwork.Resolver
	store    *state.Store
	poller   *poller.Poller
	db       *storage.SQLite
}

func (d *deps) Close() {
	if d.db != nil {
		_ = d.db.Close()
	}
}

func build(cfg *config.Config, logger *slog.Logger) (*deps, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	client, err := nowplaying.NewClient(cfg.NowPlaying.BaseURL, cfg.EndpointPath(), httpClient)
	if err != nil {
		return nil, err
	}

	d := &deps{client: client, store: &state.Store{}}
	var kv storage.Store = storage.Nop{}
	var plays storage.PlayLog = storage.Nop{}
	if cfg.Artwork.Persist {
		db, err := openStore(cfg.Artwork.CacheDB)
		if err != nil {
			logger.Warn("persistence unavailable", slog.Any("err", err))
		} else {
			d.db = db
			kv, plays = db, db
		}
	}

	var resolver poller.Resolver
	if cfg.Artwork.Enabled {
		cache := artwork.NewCoverCache(kv, cfg.CacheTTL(), logger)
		searcher := artwork.NewSearcher(cfg.Artwork.SearchURL, cfg.FallbackURL(), httpClient)
		d.resolver = artwork.NewResolver(cache, searcher, logger)
		resolver = d.resolver
	}

	d.poller = poller.New(client, resolver, d.store, poller.Options{
		Interval:    cfg.PollInterval(),
		Refresh:     cfg.Card.Refresh,
		HistorySize: cfg.History.Size,
		MockFile:    cfg.NowPlaying.MockFile,
		KV:          kv,
		Plays:       plays,
		Logger:      logger,
	})
	return d, nil
}

func openStore(path string) (*storage.SQLite, error) {
	if path == "" {
		var err error
		path, err = storage.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return storage.OpenSQLite(path)
}

func runCard(ctx context.Context, cfg *config.Config, d *deps, logger *slog.Logger) {
	go d.poller.Run(ctx)

	var covers *artwork.RenderCache
	if cfg.Artwork.Enabled {
		var err error
		covers, err = artwork.NewRenderCache("", cfg.Artwork.RenderCacheDays)
		if err != nil {
			logger.Warn("cover render cache unavailable", slog.Any("err", err))
		}
	}

	// NO_COLOR env var support
	noColor := os.Getenv("NO_COLOR") != ""
	model := app.New(app.Options{
		Store:       d.store,
		Refresher:   d.poller,
		Covers:      covers,
		Downloader:  artwork.Downloader{HTTP: &http.Client{Timeout: cfg.RequestTimeout()}},
		ShowArtwork: cfg.Artwork.Enabled,
		CoverWidth:  cfg.Artwork.Width,
		CoverHeight: cfg.Artwork.Height,
		Placeholder: cfg.Card.Placeholder,
		Theme:       ui.GetTheme(cfg.UI.Theme, noColor),
		Glyphs:      ui.GetGlyphs(cfg.UI.NoEmoji),
		Timeout:     cfg.RequestTimeout(),
		Logger:      logger,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
		logger.Error("run tui", slog.Any("err", err))
		log.Fatalf("tui: %v", err)
	}
}

func runOnce(ctx context.Context, d *deps) error {
	d.poller.Seed(ctx)
	err := d.poller.Tick(ctx)
	d.poller.Wait()

	snap := d.store.Snapshot()
	out := struct {
		state.Snapshot
		Error string `json:"error,omitempty"`
	}{Snapshot: snap}
	if err != nil {
		out.Error = err.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return encErr
	}
	if err != nil && !snap.HasTrack {
		return err
	}
	return nil
}

func runProbe(ctx context.Context, d *deps, path string) error {
	res, err := probe.ReadFile(path)
	if err != nil {
		return err
	}
	out := struct {
		Track    nowplaying.Track `json:"track"`
		Key      nowplaying.Key   `json:"key"`
		Format   string           `json:"format,omitempty"`
		FromTags bool             `json:"fromTags"`
		Tagged   artwork.Record   `json:"tagged"`
		Artwork  artwork.Record   `json:"artwork"`
	}{
		Track:    res.Track,
		Key:      res.Track.Key(),
		Format:   res.Format,
		FromTags: res.FromTags,
		Tagged:   artwork.Record{Album: res.Album, Year: res.Year},
	}
	if d.resolver != nil {
		out.Artwork = d.resolver.Resolve(ctx, out.Key, res.Track.Artist, res.Track.Track)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runDoctor(ctx context.Context, cfg *config.Config, cfgPath string, logger *slog.Logger) {
	fmt.Println("nowcard doctor")
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Printf("Config file (%s): not found, using defaults\n", cfgPath)
	} else {
		fmt.Printf("Config file: OK (%s)\n", cfgPath)
	}

	client, err := nowplaying.NewClient(cfg.NowPlaying.BaseURL, cfg.EndpointPath(), &http.Client{Timeout: cfg.RequestTimeout()})
	if err != nil {
		fmt.Printf("Endpoint: ERROR - %v\n", err)
	} else {
		reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
		res, err := client.Fetch(reqCtx)
		cancel()
		switch {
		case err != nil:
			fmt.Printf("Endpoint (%s): ERROR - %v\n", client.Endpoint(), err)
		case !res.Playing:
			fmt.Printf("Endpoint (%s): OK, nothing on air\n", client.Endpoint())
		default:
			fmt.Printf("Endpoint (%s): OK, %q by %q\n", client.Endpoint(), res.Track.Track, res.Track.Artist)
		}
	}

	if !cfg.Artwork.Enabled {
		fmt.Println("Artwork: disabled")
	} else {
		fmt.Printf("Artwork search: %s (fallback %s)\n", cfg.Artwork.SearchURL, orNone(cfg.FallbackURL()))
	}

	if !cfg.Artwork.Persist {
		fmt.Println("Storage: disabled")
	} else if db, err := openStore(cfg.Artwork.CacheDB); err != nil {
		fmt.Printf("Storage: ERROR - %v\n", err)
	} else {
		plays, _ := db.RecentPlays(ctx, cfg.History.Size)
		fmt.Printf("Storage: OK (%d recent plays)\n", len(plays))
		_ = db.Close()
	}

	logger.Info("doctor complete")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
