// Package nowplaying turns streaming-server now-playing payloads into a
// canonical Track and derives the identity key used to detect track changes.
package nowplaying

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Track is the canonical now-playing record. It is rebuilt on every poll and
// never mutated afterwards.
type Track struct {
	Track     string `json:"track"`
	Artist    string `json:"artist"`
	URL       string `json:"url,omitempty"`
	StartedAt string `json:"startedAt,omitempty"`
}

// Key returns the identity key of the track.
func (t Track) Key() Key {
	return BuildKey(t.Artist, t.Track)
}

// sourceStrategy yields zero or more candidate source objects from a payload.
type sourceStrategy struct {
	name    string
	extract func(payload map[string]any) []map[string]any
}

// sourceStrategies are tried in order and their candidates concatenated.
// Supporting another server format means adding an entry here.
var sourceStrategies = []sourceStrategy{
	{name: "sources", extract: func(p map[string]any) []map[string]any { return objects(p["sources"]) }},
	{name: "mounts", extract: func(p map[string]any) []map[string]any { return objects(p["mounts"]) }},
	{name: "icestats", extract: func(p map[string]any) []map[string]any {
		stats, ok := p["icestats"].(map[string]any)
		if !ok {
			return nil
		}
		return objects(stats["source"])
	}},
}

var (
	titleFields     = []string{"title"}
	trackFields     = []string{"track", "song"}
	artistFields    = []string{"artist", "server_name", "dj"}
	urlFields       = []string{"url", "listen_url", "listenurl", "stream_url", "link"}
	startedAtFields = []string{"started_at", "startedAt", "stream_start_iso8601", "stream_start", "played_at"}
)

var deadAir = map[string]struct{}{
	"silence":  {},
	"silencio": {},
}

// titleSeparator matches a hyphen, en dash or em dash surrounded by whitespace.
var titleSeparator = regexp.MustCompile(`\s+[-\x{2013}\x{2014}]\s+`)

// NormalizeJSON decodes data and normalizes the result. Invalid JSON yields false.
func NormalizeJSON(data []byte) (Track, bool) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Track{}, false
	}
	return Normalize(raw)
}

// Normalize converts a decoded now-playing payload into a Track. It returns
// false when the payload is not an object, carries no track title, or only
// announces dead air.
func Normalize(raw any) (Track, bool) {
	payload, ok := raw.(map[string]any)
	if !ok {
		return Track{}, false
	}

	selected := selectSource(payload)

	title := pick(selected, payload, titleFields)
	track := pick(selected, payload, trackFields)
	artist := pick(selected, payload, artistFields)

	if title != "" && (track == "" || artist == "") {
		left, right, found := splitTitle(title)
		if found {
			if artist == "" {
				artist = left
			}
			if track == "" {
				track = right
			}
		} else if track == "" {
			track = title
		}
	}
	if track == "" {
		track = title
	}

	if track == "" {
		return Track{}, false
	}
	if _, silent := deadAir[strings.ToLower(track)]; silent {
		return Track{}, false
	}

	return Track{
		Track:     track,
		Artist:    artist,
		URL:       pick(selected, payload, urlFields),
		StartedAt: pick(selected, payload, startedAtFields),
	}, true
}

// Usable reports whether an endpoint response should be considered at all:
// success must be true and a title, track or song must be present at the top
// level or under "now".
func Usable(payload map[string]any) bool {
	if success, ok := payload["success"].(bool); !ok || !success {
		return false
	}
	if hasAny(payload, titleFields, trackFields) {
		return true
	}
	if now, ok := payload["now"].(map[string]any); ok {
		return hasAny(now, titleFields, trackFields)
	}
	return false
}

func selectSource(payload map[string]any) map[string]any {
	var candidates []map[string]any
	for _, strategy := range sourceStrategies {
		candidates = append(candidates, strategy.extract(payload)...)
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	if now, ok := payload["now"].(map[string]any); ok {
		return now
	}
	return payload
}

// splitTitle splits "Artist - Track" on the first separator. Everything after
// the first separator is kept verbatim as the track.
func splitTitle(title string) (artist, track string, found bool) {
	loc := titleSeparator.FindStringIndex(title)
	if loc == nil {
		return "", title, false
	}
	artist = strings.TrimSpace(title[:loc[0]])
	track = strings.TrimSpace(title[loc[1]:])
	if artist == "" || track == "" {
		return "", title, false
	}
	return artist, track, true
}

func pick(primary, fallback map[string]any, fields []string) string {
	if v := firstString(primary, fields); v != "" {
		return v
	}
	return firstString(fallback, fields)
}

func firstString(obj map[string]any, fields []string) string {
	for _, field := range fields {
		if v := stringValue(obj[field]); v != "" {
			return v
		}
	}
	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func hasAny(obj map[string]any, groups ...[]string) bool {
	for _, fields := range groups {
		if firstString(obj, fields) != "" {
			return true
		}
	}
	return false
}

func objects(v any) []map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return []map[string]any{val}
	case []any:
		out := make([]map[string]any, 0, len(val))
		for _, item := range val {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	default:
		return nil
	}
}
