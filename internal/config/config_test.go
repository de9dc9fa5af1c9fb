package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if !cfg.Artwork.Enabled || !cfg.Artwork.Persist {
		t.Errorf("artwork defaults = %+v", cfg.Artwork)
	}
	if cfg.Card.Refresh {
		t.Error("refresh must be opt-in")
	}
	if cfg.PollInterval() != 60*time.Second || cfg.CacheTTL() != 7*24*time.Hour || cfg.History.Size != 30 {
		t.Errorf("defaults: poll=%v ttl=%v history=%d", cfg.PollInterval(), cfg.CacheTTL(), cfg.History.Size)
	}
	if cfg.FallbackURL() != "http://localhost:8000/api/itunes-search" {
		t.Errorf("FallbackURL = %q", cfg.FallbackURL())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[now_playing]
base_url = "https://radio.example"
poll_seconds = 15

[artwork]
persist = false
ttl_days = 2

[card]
refresh = true
endpoint = "/status-json.xsl"

[history]
size = 5

[ui]
theme = "green"
`)
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Artwork.Persist {
		t.Error("explicit persist = false was overridden")
	}
	if !cfg.Artwork.Enabled {
		t.Error("omitted artwork.enabled should keep its default")
	}
	if !cfg.Card.Refresh || cfg.EndpointPath() != "/status-json.xsl" {
		t.Errorf("card = %+v", cfg.Card)
	}
	if cfg.PollInterval() != 15*time.Second || cfg.CacheTTL() != 48*time.Hour || cfg.History.Size != 5 {
		t.Errorf("poll=%v ttl=%v history=%d", cfg.PollInterval(), cfg.CacheTTL(), cfg.History.Size)
	}
	if cfg.FallbackURL() != "https://radio.example/api/itunes-search" {
		t.Errorf("FallbackURL = %q", cfg.FallbackURL())
	}
	if cfg.Artwork.Width != 20 {
		t.Errorf("width default = %d", cfg.Artwork.Width)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", "[now_playing\n"},
		{"unknown theme", "[ui]\ntheme = \"vaporwave\"\n"},
		{"relative endpoint without base", "[now_playing]\nbase_url = \"\"\n"},
		{"negative poll", "[now_playing]\npoll_seconds = -1\n"},
		{"relative search url", "[artwork]\nsearch_url = \"/search\"\n"},
		{"tiny cover", "[artwork]\nwidth = 2\n"},
		{"missing placeholder", "[card]\nplaceholder = \"/nonexistent/cover.png\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateAbsoluteEndpointNeedsNoBase(t *testing.T) {
	cfg := Default()
	cfg.NowPlaying.BaseURL = ""
	cfg.Card.Endpoint = "https://radio.example/api/now-playing"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.FallbackURL() != "" {
		t.Errorf("FallbackURL without base = %q, want empty", cfg.FallbackURL())
	}
}

func TestDeadlineContext(t *testing.T) {
	cfg := Default()
	cfg.NowPlaying.TimeoutMS = 1500
	ctx, cancel := cfg.DeadlineContext()
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline")
	}
	if d := time.Until(deadline); d > 1500*time.Millisecond || d < time.Second {
		t.Errorf("deadline in %v, want about 1.5s", d)
	}
}
