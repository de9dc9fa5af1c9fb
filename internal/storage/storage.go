// Package storage is the best-effort key/value and play-history store behind
// the artwork cache. Callers treat every error as a miss.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: not found")

// Store is a string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Play is one observed track change.
type Play struct {
	Key        string    `json:"key"`
	Artist     string    `json:"artist"`
	Track      string    `json:"track"`
	URL        string    `json:"url,omitempty"`
	StartedAt  string    `json:"startedAt,omitempty"`
	ObservedAt time.Time `json:"observedAt"`
}

// PlayLog records and lists recent plays.
type PlayLog interface {
	AppendPlay(ctx context.Context, p Play, keep int) error
	RecentPlays(ctx context.Context, limit int) ([]Play, error)
}

// Nop stores nothing. It is selected when persistence is disabled or the
// database cannot be opened.
type Nop struct{}

var (
	_ Store   = Nop{}
	_ PlayLog = Nop{}
)

func (Nop) Get(context.Context, string) (string, error) { return "", ErrNotFound }
func (Nop) Set(context.Context, string, string) error { return nil }
func (Nop) Delete(context.Context, string) error { return nil }
func (Nop) AppendPlay(context.Context, Play, int) error { return nil }
func (Nop) RecentPlays(context.Context, int) ([]Play, error) { return nil, nil }
