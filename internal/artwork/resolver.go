package artwork

import (
	"context"
	"io"
	"log/slog"

	"github.com/tunez/nowcard/internal/nowplaying"
)

// Finder looks up a record for a free-text term. *Searcher implements it.
type Finder interface {
	Search(ctx context.Context, term string) (Record, error)
}

var _ Finder = (*Searcher)(nil)

// Resolver produces cover records cache-first. It never returns an error:
// the empty record means "render the placeholder".
type Resolver struct {
	cache  *CoverCache
	finder Finder
	logger *slog.Logger
}

// NewResolver wires a cache and a finder. A nil cache disables caching.
func NewResolver(cache *CoverCache, finder Finder, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewCoverCache(nil, 0, logger)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{cache: cache, finder: finder, logger: logger}
}

// Resolve returns the record for key. Cached records are returned without
// network access; fresh non-empty lookups are cached under key.
func (r *Resolver) Resolve(ctx context.Context, key nowplaying.Key, artist, track string) Record {
	if key.Empty() {
		return Record{}
	}
	if rec, ok := r.cache.Get(ctx, key); ok {
		r.logger.Debug("cover cache hit", slog.String("key", key.String()))
		return rec
	}

	term := Query(artist, track)
	if term == "" || r.finder == nil {
		return Record{}
	}

	rec, err := r.finder.Search(ctx, term)
	if err != nil {
		r.logger.Warn("cover lookup failed", slog.String("key", key.String()), slog.Any("err", err))
		return Record{}
	}
	if rec.IsEmpty() {
		r.logger.Debug("cover lookup empty", slog.String("key", key.String()))
		return Record{}
	}
	r.cache.Put(ctx, key, rec)
	return rec
}
