// Package probe reads the artist and title of a local audio file so its
// artwork can be resolved without a running station.
package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/tunez/nowcard/internal/nowplaying"
)

// Result is what a probe found. FromTags is false when the file carried no
// readable tags and the filename was used instead.
type Result struct {
	Track    nowplaying.Track
	Album    string
	Year     string
	Format   string
	FromTags bool
}

// ReadFile reads tags from path. Untagged files fall back to the file name,
// split like a composite stream title ("Artist - Title").
func ReadFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var res Result
	meta, err := tag.ReadFrom(f)
	if err == nil {
		res.Track = nowplaying.Track{
			Artist: strings.TrimSpace(meta.Artist()),
			Track:  strings.TrimSpace(meta.Title()),
		}
		res.Album = strings.TrimSpace(meta.Album())
		if y := meta.Year(); y > 0 {
			res.Year = strconv.Itoa(y)
		}
		res.Format = fmt.Sprint(meta.Format())
		res.FromTags = res.Track.Track != ""
	}
	if res.Track.Track == "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		track, ok := nowplaying.Normalize(map[string]any{"title": name})
		if !ok {
			return Result{}, fmt.Errorf("%s: no usable title", path)
		}
		if res.Track.Artist != "" && track.Artist == "" {
			track.Artist = res.Track.Artist
		}
		res.Track = track
	}
	return res, nil
}
