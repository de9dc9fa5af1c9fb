// Package state holds the now-playing snapshot shared between the poller and
// the UI. The poller is the only writer of track data; artwork lookups apply
// their results through a Token so stale answers are discarded.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/tunez/nowcard/internal/artwork"
	"github.com/tunez/nowcard/internal/nowplaying"
	"github.com/tunez/nowcard/internal/storage"
)

// Source describes where the displayed track came from.
type Source string

const (
	SourceNone  Source = ""
	SourceLive  Source = "live"
	SourceStale Source = "stale"
	SourceMock  Source = "mock"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Track      nowplaying.Track `json:"track"`
	HasTrack   bool             `json:"hasTrack"`
	Key        nowplaying.Key   `json:"key"`
	Generation uint64           `json:"generation"`
	Source     Source           `json:"source,omitempty"`

	Artwork        artwork.Record `json:"artwork"`
	ArtworkApplied bool           `json:"artworkApplied"`

	History             []storage.Play `json:"history,omitempty"`
	LastUpdated         time.Time      `json:"lastUpdated"`
	LastError           error          `json:"-"`
	ConsecutiveFailures int            `json:"consecutiveFailures"`
}

// IsOffline returns true when the endpoint has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Token identifies the track an artwork lookup was started for.
type Token struct {
	Key        nowplaying.Key
	Generation uint64
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetTrack records the result of a successful poll. When the identity key
// differs from the current one the generation advances, any applied artwork
// is cleared and changed is true. playing=false clears the track (dead air).
// Re-observing the same key only refreshes the non-identity fields.
func (s *Store) SetTrack(track nowplaying.Track, playing bool, source Source) (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nowplaying.Key("")
	if playing {
		key = track.Key()
	} else {
		track = nowplaying.Track{}
	}

	snap := &s.snapshot
	changed := key != snap.Key || playing != snap.HasTrack || snap.Generation == 0
	if changed {
		snap.Generation++
		snap.Key = key
		snap.Artwork = artwork.Record{}
		snap.ArtworkApplied = false
	}
	snap.Track = track
	snap.HasTrack = playing
	snap.Source = source
	snap.LastError = nil
	snap.LastUpdated = time.Now()
	snap.ConsecutiveFailures = 0
	return Token{Key: snap.Key, Generation: snap.Generation}, changed
}

// CurrentToken returns the token of the displayed track.
func (s *Store) CurrentToken() Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Token{Key: s.snapshot.Key, Generation: s.snapshot.Generation}
}

// ApplyArtwork stores rec when tok still names the displayed track and no
// artwork has been applied for it yet. It reports whether rec was applied.
func (s *Store) ApplyArtwork(tok Token, rec artwork.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &s.snapshot
	if tok.Key.Empty() || tok.Key != snap.Key || tok.Generation != snap.Generation || snap.ArtworkApplied {
		return false
	}
	snap.Artwork = rec
	snap.ArtworkApplied = true
	return true
}

// RecordError keeps the previous track data but records err for visibility.
func (s *Store) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
}

// SetHistory replaces the recent plays list.
func (s *Store) SetHistory(plays []storage.Play) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.History = clonePlays(plays)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.History = clonePlays(s.snapshot.History)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func clonePlays(plays []storage.Play) []storage.Play {
	if len(plays) == 0 {
		return nil
	}
	dup := make([]storage.Play, len(plays))
	copy(dup, plays)
	return dup
}
