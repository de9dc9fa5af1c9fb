package artwork

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func redPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRenderCacheGetSet(t *testing.T) {
	cache, err := NewRenderCache(t.TempDir(), 30)
	if err != nil {
		t.Fatalf("NewRenderCache: %v", err)
	}

	if _, ok := cache.Get("https://img/a.jpg", 20, 10); ok {
		t.Error("expected cache miss")
	}
	if err := cache.Set("https://img/a.jpg", 20, 10, "test ansi art"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ansi, ok := cache.Get("https://img/a.jpg", 20, 10)
	if !ok || ansi != "test ansi art" {
		t.Errorf("Get = %q, %v", ansi, ok)
	}
	if _, ok := cache.Get("https://img/a.jpg", 10, 5); ok {
		t.Error("expected cache miss for different size")
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := cache.Get("https://img/a.jpg", 20, 10); ok {
		t.Error("expected cache miss after clear")
	}
}

func TestRenderCacheExpires(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewRenderCache(dir, 1)
	if err != nil {
		t.Fatalf("NewRenderCache: %v", err)
	}
	if err := cache.Set("ref", 20, 10, "old"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	path := cache.path("ref", 20, 10)
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if _, ok := cache.Get("ref", 20, 10); ok {
		t.Fatal("expected expired entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, renderKey("ref", 20, 10)+".ansi")); !os.IsNotExist(err) {
		t.Fatalf("expired entry not removed: %v", err)
	}
}

func TestConvertToANSI(t *testing.T) {
	ansi, err := ConvertToANSI(context.Background(), redPNG(t, 10, 10), 8, 4)
	if err != nil {
		t.Fatalf("ConvertToANSI: %v", err)
	}
	if !strings.Contains(ansi, "\x1b[38;5;196m") {
		t.Error("expected red foreground escape in output")
	}
	if lines := strings.Count(ansi, "\n") + 1; lines != 4 {
		t.Errorf("expected 4 rows, got %d", lines)
	}
}

func TestConvertToANSI_InvalidData(t *testing.T) {
	if _, err := ConvertToANSI(context.Background(), []byte("not an image"), 10, 10); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestPlaceholder(t *testing.T) {
	ph := Placeholder(20, 10)
	if !strings.Contains(ph, "♪") {
		t.Error("expected music note in placeholder")
	}
	if !strings.Contains(ph, "┌") {
		t.Error("expected border in placeholder")
	}
	if lines := strings.Count(ph, "\n") + 1; lines != 10 {
		t.Errorf("expected 10 lines, got %d", lines)
	}
}

func TestRgbTo256(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    int
	}{
		{0, 0, 0, 16},
		{255, 255, 255, 231},
		{248, 248, 248, 231},
		{247, 247, 247, 255},
		{8, 8, 8, 232},
		{255, 0, 0, 196},
		{0, 255, 0, 46},
		{0, 0, 255, 21},
	}
	for _, tt := range tests {
		if got := rgbTo256(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("rgbTo256(%d,%d,%d) = %d, want %d", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
	for v := 0; v <= 255; v++ {
		if got := rgbTo256(uint8(v), uint8(v), uint8(v)); got < 16 || got > 255 {
			t.Fatalf("rgbTo256(%d,%d,%d) = %d, outside the 256-colour palette", v, v, v, got)
		}
	}
}

func TestDownloaderFetch(t *testing.T) {
	img := redPNG(t, 4, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer server.Close()

	data, err := Downloader{}.Fetch(context.Background(), server.URL+"/cover.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(data, img) {
		t.Error("downloaded bytes differ")
	}
	if _, err := (Downloader{}).Fetch(context.Background(), server.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}
