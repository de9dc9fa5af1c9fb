// Package poller drives the now-playing refresh cycle: fetch, update the
// shared snapshot, record history and start artwork lookups for new tracks.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tunez/nowcard/internal/artwork"
	"github.com/tunez/nowcard/internal/nowplaying"
	"github.com/tunez/nowcard/internal/state"
	"github.com/tunez/nowcard/internal/storage"
)

const (
	DefaultInterval       = 60 * time.Second
	DefaultHistorySize    = 30
	defaultResolveTimeout = 20 * time.Second

	// lastTrackKey stores the most recent live track for the stale tier.
	lastTrackKey = "now|last"
)

// Resolver produces artwork for a track. *artwork.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, key nowplaying.Key, artist, track string) artwork.Record
}

var _ Resolver = (*artwork.Resolver)(nil)

// Options configures a Poller. Zero values select defaults.
type Options struct {
	Interval       time.Duration
	Refresh        bool
	HistorySize    int
	ResolveTimeout time.Duration
	MockFile       string
	KV             storage.Store
	Plays          storage.PlayLog
	Logger         *slog.Logger
}

// Poller is the only writer of track data in the state store.
type Poller struct {
	fetcher  nowplaying.Fetcher
	resolver Resolver
	store    *state.Store
	kv       storage.Store
	plays    storage.PlayLog
	logger   *slog.Logger

	interval       time.Duration
	refresh        bool
	historySize    int
	resolveTimeout time.Duration
	mockFile       string

	// polls serializes Seed and Tick so responses land in the order their
	// fetches started.
	polls   sync.Mutex
	lookups sync.WaitGroup
	now     func() time.Time
}

// New builds a Poller. A nil resolver disables artwork lookups.
func New(fetcher nowplaying.Fetcher, resolver Resolver, store *state.Store, opts Options) *Poller {
	p := &Poller{
		fetcher:        fetcher,
		resolver:       resolver,
		store:          store,
		kv:             opts.KV,
		plays:          opts.Plays,
		logger:         opts.Logger,
		interval:       opts.Interval,
		refresh:        opts.Refresh,
		historySize:    opts.HistorySize,
		resolveTimeout: opts.ResolveTimeout,
		mockFile:       opts.MockFile,
		now:            time.Now,
	}
	if p.kv == nil {
		p.kv = storage.Nop{}
	}
	if p.plays == nil {
		p.plays = storage.Nop{}
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.historySize <= 0 {
		p.historySize = DefaultHistorySize
	}
	if p.resolveTimeout <= 0 {
		p.resolveTimeout = defaultResolveTimeout
	}
	return p
}

// Run seeds the snapshot, polls once and, when refresh is enabled, keeps
// polling at the configured interval until ctx is done. Failed polls are
// retried on the next tick with no backoff.
func (p *Poller) Run(ctx context.Context) {
	p.Seed(ctx)
	_ = p.Tick(ctx)
	if !p.refresh {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Tick(ctx)
		}
	}
}

// Seed shows something before the first live poll completes: the last
// persisted live track, else the mock payload file. It also loads history.
func (p *Poller) Seed(ctx context.Context) {
	p.polls.Lock()
	defer p.polls.Unlock()

	if plays, err := p.plays.RecentPlays(ctx, p.historySize); err != nil {
		p.logger.Debug("load history failed", slog.Any("err", err))
	} else {
		p.store.SetHistory(plays)
	}

	if p.store.Snapshot().HasTrack {
		return
	}
	if track, ok := p.lastTrack(ctx); ok {
		p.logger.Info("seeded from last track", slog.String("key", track.Key().String()))
		p.apply(track, true, state.SourceStale)
		return
	}
	if p.mockFile == "" {
		return
	}
	track, err := loadMock(p.mockFile)
	if err != nil {
		p.logger.Warn("mock payload unusable", slog.String("path", p.mockFile), slog.Any("err", err))
		return
	}
	p.logger.Info("seeded from mock payload", slog.String("path", p.mockFile))
	p.apply(track, true, state.SourceMock)
}

// Tick performs one poll. Errors are recorded in the store and returned;
// the displayed track is left untouched. Concurrent calls run one at a time.
func (p *Poller) Tick(ctx context.Context) error {
	p.polls.Lock()
	defer p.polls.Unlock()

	res, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.store.RecordError(err)
		if errors.Is(err, nowplaying.ErrEnvelope) {
			p.logger.Debug("now-playing response ignored", slog.Any("err", err))
		} else {
			p.logger.Warn("now-playing poll failed", slog.Any("err", err))
		}
		return err
	}

	tok, changed := p.apply(res.Track, res.Playing, state.SourceLive)
	if !changed || tok.Key.Empty() {
		return nil
	}
	p.remember(ctx, res.Track, tok.Key)
	return nil
}

// Wait blocks until in-flight artwork lookups have finished.
func (p *Poller) Wait() {
	p.lookups.Wait()
}

func (p *Poller) apply(track nowplaying.Track, playing bool, source state.Source) (state.Token, bool) {
	tok, changed := p.store.SetTrack(track, playing, source)
	if changed {
		p.logger.Debug("track changed",
			slog.String("key", tok.Key.String()),
			slog.Uint64("generation", tok.Generation),
			slog.String("source", string(source)),
		)
		if !tok.Key.Empty() {
			p.lookup(tok, track)
		}
	}
	return tok, changed
}

// lookup resolves artwork in the background. The lookup is never cancelled by
// later track changes; the token decides whether its result is still shown.
func (p *Poller) lookup(tok state.Token, track nowplaying.Track) {
	if p.resolver == nil {
		return
	}
	p.lookups.Add(1)
	go func() {
		defer p.lookups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.resolveTimeout)
		defer cancel()

		start := p.now()
		rec := p.resolver.Resolve(ctx, tok.Key, track.Artist, track.Track)
		applied := p.store.ApplyArtwork(tok, rec)
		p.logger.Debug("artwork resolved",
			slog.String("key", tok.Key.String()),
			slog.Bool("applied", applied),
			slog.Bool("empty", rec.IsEmpty()),
			slog.Duration("took", p.now().Sub(start)),
		)
	}()
}

// remember persists the live track for the stale tier and appends it to the
// play history.
func (p *Poller) remember(ctx context.Context, track nowplaying.Track, key nowplaying.Key) {
	if data, err := json.Marshal(track); err == nil {
		if err := p.kv.Set(ctx, lastTrackKey, string(data)); err != nil {
			p.logger.Debug("persist last track failed", slog.Any("err", err))
		}
	}

	play := storage.Play{
		Key:        key.String(),
		Artist:     track.Artist,
		Track:      track.Track,
		URL:        track.URL,
		StartedAt:  track.StartedAt,
		ObservedAt: p.now(),
	}
	if err := p.plays.AppendPlay(ctx, play, p.historySize); err != nil {
		p.logger.Debug("append play failed", slog.Any("err", err))
		return
	}
	plays, err := p.plays.RecentPlays(ctx, p.historySize)
	if err != nil {
		p.logger.Debug("load history failed", slog.Any("err", err))
		return
	}
	p.store.SetHistory(plays)
}

func (p *Poller) lastTrack(ctx context.Context) (nowplaying.Track, bool) {
	raw, err := p.kv.Get(ctx, lastTrackKey)
	if err != nil {
		return nowplaying.Track{}, false
	}
	var track nowplaying.Track
	if err := json.Unmarshal([]byte(raw), &track); err != nil || track.Key().Empty() {
		_ = p.kv.Delete(ctx, lastTrackKey)
		return nowplaying.Track{}, false
	}
	return track, true
}

func loadMock(path string) (nowplaying.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nowplaying.Track{}, fmt.Errorf("read mock: %w", err)
	}
	track, ok := nowplaying.NormalizeJSON(data)
	if !ok || track.Key().Empty() {
		return nowplaying.Track{}, fmt.Errorf("mock %s has no track", path)
	}
	return track, nil
}
