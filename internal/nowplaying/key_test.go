package nowplaying

import "testing"

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		track  string
		want   Key
	}{
		{"basic", "Daft Punk", "One More Time", "daft punk|one more time"},
		{"case and whitespace", " DAFT PUNK ", "one more time", "daft punk|one more time"},
		{"no artist", "", "x", "|x"},
		{"unavailable sentinel", "", "No disponible", ""},
		{"unavailable english", "Station", "  NOT AVAILABLE ", ""},
		{"empty track", "Artist", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildKey(tt.artist, tt.track); got != tt.want {
				t.Fatalf("BuildKey(%q, %q) = %q, want %q", tt.artist, tt.track, got, tt.want)
			}
		})
	}
}

func TestBuildKey_ArtistIsSignificant(t *testing.T) {
	if BuildKey("", "x") == BuildKey("a", "x") {
		t.Fatalf("keys with different artists must differ")
	}
}

func TestTrackKey(t *testing.T) {
	tr := Track{Artist: "Daft Punk", Track: "One More Time"}
	if tr.Key() != BuildKey(" daft punk", "ONE MORE TIME ") {
		t.Fatalf("Track.Key = %q", tr.Key())
	}
	if !(Track{Track: "not available"}).Key().Empty() {
		t.Fatalf("unavailable track should have an empty key")
	}
}
