// Package artwork resolves cover art for a now-playing track: cache first,
// then a public search API, then a same-origin proxy of that API.
package artwork

import (
	"regexp"
	"strings"
)

// Record is the cover metadata applied to the card. Every field is optional;
// a record with an empty URL but a known album or year is still displayable.
type Record struct {
	URL   string `json:"url"`
	Album string `json:"album"`
	Year  string `json:"year"`
}

// IsEmpty reports whether no field is set.
func (r Record) IsEmpty() bool {
	return r.URL == "" && r.Album == "" && r.Year == ""
}

// searchResponse mirrors the search API payload.
type searchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []searchResult `json:"results"`
}

type searchResult struct {
	ArtworkURL100          string `json:"artworkUrl100"`
	ArtworkURL60           string `json:"artworkUrl60"`
	CollectionName         string `json:"collectionName"`
	CollectionCensoredName string `json:"collectionCensoredName"`
	ReleaseDate            string `json:"releaseDate"`
}

// recordFrom takes the first result only.
func recordFrom(resp searchResponse) Record {
	if len(resp.Results) == 0 {
		return Record{}
	}
	first := resp.Results[0]
	return Record{
		URL:   NormalizeURL(firstNonEmpty(first.ArtworkURL100, first.ArtworkURL60)),
		Album: firstNonEmpty(first.CollectionName, first.CollectionCensoredName),
		Year:  yearPattern.FindString(first.ReleaseDate),
	}
}

var (
	yearPattern = regexp.MustCompile(`\d{4}`)
	sizePattern = regexp.MustCompile(`/\d+x\d+bb\.`)
)

// NormalizeURL upsizes search thumbnails to 300x300 and forces https.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	u = sizePattern.ReplaceAllString(u, "/300x300bb.")
	switch {
	case strings.HasPrefix(u, "//"):
		u = "https:" + u
	case strings.HasPrefix(u, "http://"):
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// Query builds the free-text search term: artist and track joined, trimmed,
// with internal whitespace collapsed.
func Query(artist, track string) string {
	return strings.Join(strings.Fields(artist+" "+track), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
