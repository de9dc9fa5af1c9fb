package artwork

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid artwork data")

// maxImageBytes bounds cover downloads.
const maxImageBytes = 4 << 20

// RenderCache keeps converted ANSI covers on disk, keyed by image URL and size.
type RenderCache struct {
	baseDir   string
	cacheDays int
}

// NewRenderCache creates the cache directory. Empty baseDir uses the user
// cache dir.
func NewRenderCache(baseDir string, cacheDays int) (*RenderCache, error) {
	if baseDir == "" {
		var err error
		baseDir, err = defaultRenderDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
	}
	if cacheDays <= 0 {
		cacheDays = 30
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &RenderCache{baseDir: baseDir, cacheDays: cacheDays}, nil
}

func defaultRenderDir() (string, error) {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Caches", "nowcard", "covers"), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nowcard", "covers"), nil
}

func renderKey(ref string, width, height int) string {
	h := sha256.New()
	h.Write([]byte(ref))
	h.Write([]byte(fmt.Sprintf(":%dx%d", width, height)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (c *RenderCache) path(ref string, width, height int) string {
	return filepath.Join(c.baseDir, renderKey(ref, width, height)+".ansi")
}

// Get returns a cached rendering. Expired files are removed.
func (c *RenderCache) Get(ref string, width, height int) (string, bool) {
	path := c.path(ref, width, height)
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > time.Duration(c.cacheDays)*24*time.Hour {
		os.Remove(path)
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set stores a rendering.
func (c *RenderCache) Set(ref string, width, height int, ansi string) error {
	return os.WriteFile(c.path(ref, width, height), []byte(ansi), 0o644)
}

// Clear removes all cached renderings.
func (c *RenderCache) Clear() error {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".ansi") {
			os.Remove(filepath.Join(c.baseDir, e.Name()))
		}
	}
	return nil
}

// Downloader fetches cover images.
type Downloader struct {
	HTTP *http.Client
}

// Fetch downloads the image at url.
func (d Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", defaultUserAgent)

	client := d.HTTP
	if client == nil {
		client = &http.Client{Timeout: searchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cover download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read cover: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("cover exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}

// ConvertToANSI renders image data as 256-colour half blocks: each character
// cell shows two vertically stacked pixels.
func ConvertToANSI(ctx context.Context, data []byte, width, height int) (string, error) {
	if width <= 0 {
		width = 20
	}
	if height <= 0 {
		height = 10
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	if imgW == 0 || imgH == 0 {
		return "", ErrInvalid
	}

	// Two pixel rows per cell; keep the aspect ratio inside width x height.
	rows := height
	cols := width
	if fitRows := (cols*imgH/imgW + 1) / 2; fitRows < rows {
		rows = fitRows
	} else if fitCols := rows * 2 * imgW / imgH; fitCols < cols {
		cols = fitCols
	}
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	pixelRows := rows * 2

	sample := func(x, y int) int {
		sx := x * imgW / cols
		sy := y * imgH / pixelRows
		r, g, b, _ := img.At(bounds.Min.X+sx, bounds.Min.Y+sy).RGBA()
		return rgbTo256(uint8(r>>8), uint8(g>>8), uint8(b>>8))
	}

	var out strings.Builder
	for y := 0; y < rows; y++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for x := 0; x < cols; x++ {
			top := sample(x, 2*y)
			bottom := sample(x, 2*y+1)
			fmt.Fprintf(&out, "\x1b[38;5;%dm\x1b[48;5;%dm▀", top, bottom)
		}
		out.WriteString("\x1b[0m")
		if y < rows-1 {
			out.WriteString("\n")
		}
	}
	return out.String(), nil
}

// rgbTo256 maps a colour onto the xterm 256-colour palette.
func rgbTo256(r, g, b uint8) int {
	if r == g && g == b {
		if r < 8 {
			return 16
		}
		if r >= 248 {
			return 231
		}
		return int((r-8)/10) + 232
	}
	ri := int(r) * 5 / 255
	gi := int(g) * 5 / 255
	bi := int(b) * 5 / 255
	return 16 + 36*ri + 6*gi + bi
}

// Placeholder draws the neutral cover shown when no artwork is available.
func Placeholder(width, height int) string {
	if width < 3 {
		width = 20
	}
	if height < 3 {
		height = 10
	}
	inner := width - 2

	var out strings.Builder
	out.WriteString("┌" + strings.Repeat("─", inner) + "┐\n")
	for y := 1; y < height-1; y++ {
		out.WriteString("│")
		if y == height/2 {
			pad := (inner - 1) / 2
			out.WriteString(strings.Repeat(" ", pad) + "♪" + strings.Repeat(" ", inner-pad-1))
		} else {
			out.WriteString(strings.Repeat(" ", inner))
		}
		out.WriteString("│\n")
	}
	out.WriteString("└" + strings.Repeat("─", inner) + "┘")
	return out.String()
}
