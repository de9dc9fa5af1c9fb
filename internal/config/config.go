package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tunez/nowcard/internal/artwork"
	"github.com/tunez/nowcard/internal/nowplaying"
	"github.com/tunez/nowcard/internal/ui"
)

// Config holds nowcard runtime configuration loaded from TOML.
type Config struct {
	NowPlaying NowPlayingConfig `toml:"now_playing"`
	Artwork    ArtworkConfig    `toml:"artwork"`
	Card       CardConfig       `toml:"card"`
	History    HistoryConfig    `toml:"history"`
	UI         UIConfig         `toml:"ui"`
}

// NowPlayingConfig describes the station endpoint being polled.
type NowPlayingConfig struct {
	BaseURL     string `toml:"base_url"`
	Endpoint    string `toml:"endpoint"`
	PollSeconds int    `toml:"poll_seconds"`
	TimeoutMS   int    `toml:"timeout_ms"`
	MockFile    string `toml:"mock_file"` // payload shown until the first live poll
}

// ArtworkConfig holds cover lookup, cache and rendering settings.
type ArtworkConfig struct {
	Enabled         bool   `toml:"enabled"`
	SearchURL       string `toml:"search_url"`
	FallbackPath    string `toml:"fallback_path"` // resolved against now_playing.base_url
	TTLDays         int    `toml:"ttl_days"`
	Persist         bool   `toml:"persist"`
	CacheDB         string `toml:"cache_db"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	RenderCacheDays int    `toml:"render_cache_days"`
}

// CardConfig mirrors the attributes a page sets on its now-playing card.
type CardConfig struct {
	Refresh     bool   `toml:"refresh"`
	Endpoint    string `toml:"endpoint"`
	Placeholder string `toml:"placeholder"`
}

type HistoryConfig struct {
	Size int `toml:"size"`
}

type UIConfig struct {
	Theme   string `toml:"theme"`
	NoEmoji bool   `toml:"no_emoji"`
}

// Default returns the configuration used when no file exists. Values set
// here survive decoding when the file omits them.
func Default() Config {
	return Config{
		NowPlaying: NowPlayingConfig{
			BaseURL:     "http://localhost:8000",
			Endpoint:    nowplaying.DefaultEndpoint,
			PollSeconds: 60,
			TimeoutMS:   8000,
		},
		Artwork: ArtworkConfig{
			Enabled:         true,
			SearchURL:       artwork.DefaultSearchURL,
			FallbackPath:    artwork.DefaultFallbackPath,
			TTLDays:         7,
			Persist:         true,
			Width:           20,
			Height:          10,
			RenderCacheDays: 30,
		},
		History: HistoryConfig{Size: 30},
		UI:      UIConfig{Theme: "rainbow"},
	}
}

// Load reads configuration from disk. If path is empty, a default OS-specific
// location is used. A missing file yields the defaults.
func Load(path string) (*Config, string, error) {
	cfgPath := path
	if cfgPath == "" {
		var err error
		cfgPath, err = defaultPath()
		if err != nil {
			return nil, "", fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg := Default()
	data, err := os.ReadFile(cfgPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, cfgPath, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, cfgPath, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return nil, cfgPath, err
	}

	return &cfg, cfgPath, nil
}

func defaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	name := "nowcard"
	if runtime.GOOS == "windows" {
		name = "Nowcard"
	}
	return filepath.Join(dir, name, "config.toml"), nil
}

// applyDefaults fills values an explicit file left at zero.
func applyDefaults(cfg *Config) {
	cfg.NowPlaying.BaseURL = strings.TrimSpace(cfg.NowPlaying.BaseURL)
	if strings.TrimSpace(cfg.NowPlaying.Endpoint) == "" {
		cfg.NowPlaying.Endpoint = nowplaying.DefaultEndpoint
	}
	if cfg.NowPlaying.PollSeconds == 0 {
		cfg.NowPlaying.PollSeconds = 60
	}
	if cfg.NowPlaying.TimeoutMS == 0 {
		cfg.NowPlaying.TimeoutMS = 8000
	}
	if cfg.Artwork.TTLDays == 0 {
		cfg.Artwork.TTLDays = 7
	}
	if cfg.Artwork.Width == 0 {
		cfg.Artwork.Width = 20
	}
	if cfg.Artwork.Height == 0 {
		cfg.Artwork.Height = 10
	}
	if cfg.Artwork.RenderCacheDays == 0 {
		cfg.Artwork.RenderCacheDays = 30
	}
	if cfg.History.Size == 0 {
		cfg.History.Size = 30
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = "rainbow"
	}
}

// Validate performs semantic validation of cfg.
func Validate(cfg Config) error {
	if _, err := nowplaying.ResolveURL(cfg.NowPlaying.BaseURL, cfg.EndpointPath()); err != nil {
		return fmt.Errorf("now_playing endpoint: %w", err)
	}
	if cfg.NowPlaying.PollSeconds < 1 {
		return fmt.Errorf("now_playing.poll_seconds must be positive")
	}
	if cfg.NowPlaying.TimeoutMS < 1 {
		return fmt.Errorf("now_playing.timeout_ms must be positive")
	}
	if cfg.Artwork.SearchURL != "" {
		u, err := url.Parse(cfg.Artwork.SearchURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("artwork.search_url %q is not an absolute url", cfg.Artwork.SearchURL)
		}
	}
	if cfg.Artwork.TTLDays < 0 {
		return fmt.Errorf("artwork.ttl_days must not be negative")
	}
	if cfg.Artwork.Width < 3 || cfg.Artwork.Height < 3 {
		return fmt.Errorf("artwork.width and artwork.height must be at least 3")
	}
	if cfg.History.Size < 1 {
		return fmt.Errorf("history.size must be positive")
	}
	if !ui.ValidTheme(cfg.UI.Theme) {
		return fmt.Errorf("unknown ui.theme %q (available: %s)", cfg.UI.Theme, strings.Join(ui.ThemeNames(), ", "))
	}
	if cfg.Card.Placeholder != "" {
		if _, err := os.Stat(cfg.Card.Placeholder); err != nil {
			return fmt.Errorf("card.placeholder: %w", err)
		}
	}
	return nil
}

// EndpointPath returns the card's endpoint override, else the station endpoint.
func (c Config) EndpointPath() string {
	if ep := strings.TrimSpace(c.Card.Endpoint); ep != "" {
		return ep
	}
	return strings.TrimSpace(c.NowPlaying.Endpoint)
}

// FallbackURL resolves the same-origin search proxy. It is empty when no
// base url is configured.
func (c Config) FallbackURL() string {
	if c.Artwork.FallbackPath == "" {
		return ""
	}
	u, err := nowplaying.ResolveURL(c.NowPlaying.BaseURL, c.Artwork.FallbackPath)
	if err != nil {
		return ""
	}
	return u.String()
}

// PollInterval is the refresh cadence.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.NowPlaying.PollSeconds) * time.Second
}

// CacheTTL is the artwork cache lifetime. Zero ttl_days falls back to seven days.
func (c Config) CacheTTL() time.Duration {
	if c.Artwork.TTLDays <= 0 {
		return artwork.DefaultTTL
	}
	return time.Duration(c.Artwork.TTLDays) * 24 * time.Hour
}

// RequestTimeout bounds a single HTTP request.
func (c Config) RequestTimeout() time.Duration {
	d := time.Duration(c.NowPlaying.TimeoutMS) * time.Millisecond
	if d == 0 {
		d = 8 * time.Second
	}
	return d
}

// DeadlineContext returns a context bounded by the request timeout.
func (c Config) DeadlineContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.RequestTimeout())
}
