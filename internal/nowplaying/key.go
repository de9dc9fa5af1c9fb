package nowplaying

import "strings"

// Key identifies a playing track. The empty key means "no identity": it never
// matches another key and never triggers an artwork lookup.
type Key string

// Empty reports whether k carries no identity.
func (k Key) Empty() bool { return k == "" }

func (k Key) String() string { return string(k) }

var unavailable = map[string]struct{}{
	"no disponible": {},
	"not available": {},
}

// BuildKey derives the identity key from artist and track. Both are trimmed
// and lower-cased, so casing and surrounding whitespace never change the key.
func BuildKey(artist, track string) Key {
	a := strings.ToLower(strings.TrimSpace(artist))
	t := strings.ToLower(strings.TrimSpace(track))
	if t == "" {
		return ""
	}
	if _, ok := unavailable[t]; ok {
		return ""
	}
	return Key(a + "|" + t)
}
