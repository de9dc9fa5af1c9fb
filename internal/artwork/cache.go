package artwork

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tunez/nowcard/internal/nowplaying"
	"github.com/tunez/nowcard/internal/storage"
)

// DefaultTTL is how long a cached cover stays valid.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "cover|"

// entry is the persisted form: {url, album, year, ts} with ts in epoch ms.
type entry struct {
	URL   string `json:"url"`
	Album string `json:"album"`
	Year  string `json:"year"`
	TS    int64  `json:"ts"`
}

// CoverCache stores records keyed by now-playing key. Storage failures are
// logged and read as misses.
type CoverCache struct {
	store  storage.Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewCoverCache wraps store. A nil store behaves as storage.Nop and a
// non-positive ttl uses DefaultTTL.
func NewCoverCache(store storage.Store, ttl time.Duration, logger *slog.Logger) *CoverCache {
	if store == nil {
		store = storage.Nop{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CoverCache{store: store, ttl: ttl, now: time.Now, logger: logger}
}

// StorageKey returns the storage key for a now-playing key.
func StorageKey(key nowplaying.Key) string {
	return keyPrefix + string(key)
}

// Get returns a fresh, non-empty record. Expired and unreadable entries are
// deleted.
func (c *CoverCache) Get(ctx context.Context, key nowplaying.Key) (Record, bool) {
	if key.Empty() {
		return Record{}, false
	}
	skey := StorageKey(key)
	raw, err := c.store.Get(ctx, skey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Debug("cover cache read failed", slog.String("key", skey), slog.Any("err", err))
		}
		return Record{}, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Debug("cover cache entry corrupt", slog.String("key", skey), slog.Any("err", err))
		c.purge(ctx, skey)
		return Record{}, false
	}
	if c.now().Sub(time.UnixMilli(e.TS)) > c.ttl {
		c.purge(ctx, skey)
		return Record{}, false
	}

	rec := Record{URL: e.URL, Album: e.Album, Year: e.Year}
	if rec.IsEmpty() {
		return Record{}, false
	}
	return rec, true
}

// Put stores rec under key with the current time. Empty records and empty
// keys are never stored.
func (c *CoverCache) Put(ctx context.Context, key nowplaying.Key, rec Record) {
	if key.Empty() || rec.IsEmpty() {
		return
	}
	data, err := json.Marshal(entry{URL: rec.URL, Album: rec.Album, Year: rec.Year, TS: c.now().UnixMilli()})
	if err != nil {
		return
	}
	skey := StorageKey(key)
	if err := c.store.Set(ctx, skey, string(data)); err != nil {
		c.logger.Debug("cover cache write failed", slog.String("key", skey), slog.Any("err", err))
	}
}

func (c *CoverCache) purge(ctx context.Context, skey string) {
	if err := c.store.Delete(ctx, skey); err != nil {
		c.logger.Debug("cover cache purge failed", slog.String("key", skey), slog.Any("err", err))
	}
}
