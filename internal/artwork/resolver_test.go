package artwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tunez/nowcard/internal/nowplaying"
)

const discoveryJSON = `{"resultCount":1,"results":[{"artworkUrl100":"http://is1.example/img/100x100bb.jpg","collectionName":"Discovery","releaseDate":"2001-03-12T08:00:00Z"}]}`

type searchServer struct {
	*httptest.Server
	primaryHits  atomic.Int32
	fallbackHits atomic.Int32
	lastQuery    atomic.Value
}

// newSearchServer serves /search as the primary tier and /api/itunes-search
// as the fallback. primaryStatus != 200 makes the primary tier fail.
func newSearchServer(t *testing.T, primaryStatus int, body string) *searchServer {
	t.Helper()
	s := &searchServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lastQuery.Store(r.URL.RawQuery)
		switch r.URL.Path {
		case "/search":
			s.primaryHits.Add(1)
			if primaryStatus != http.StatusOK {
				http.Error(w, "down", primaryStatus)
				return
			}
		case DefaultFallbackPath:
			s.fallbackHits.Add(1)
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *searchServer) searcher() *Searcher {
	return NewSearcher(s.URL+"/search", s.URL+DefaultFallbackPath, s.Client())
}

func TestResolve_CachesAndSkipsNetworkOnSecondCall(t *testing.T) {
	ctx := context.Background()
	srv := newSearchServer(t, http.StatusOK, discoveryJSON)
	r := NewResolver(NewCoverCache(newTestStore(t), DefaultTTL, nil), srv.searcher(), nil)
	key := nowplaying.BuildKey("Daft Punk", "One More Time")

	want := Record{URL: "https://is1.example/img/300x300bb.jpg", Album: "Discovery", Year: "2001"}
	if got := r.Resolve(ctx, key, "Daft Punk", "One More Time"); got != want {
		t.Fatalf("first Resolve = %+v, want %+v", got, want)
	}
	if got := r.Resolve(ctx, key, "Daft Punk", "One More Time"); got != want {
		t.Fatalf("second Resolve = %+v, want %+v", got, want)
	}
	if n := srv.primaryHits.Load(); n != 1 {
		t.Fatalf("primary hits = %d, want 1", n)
	}
	if n := srv.fallbackHits.Load(); n != 0 {
		t.Fatalf("fallback hits = %d, want 0", n)
	}
	if q, _ := srv.lastQuery.Load().(string); q != "entity=song&limit=1&term=Daft+Punk+One+More+Time" {
		t.Fatalf("query = %q", q)
	}
}

func TestResolve_FallsBackWhenPrimaryFails(t *testing.T) {
	srv := newSearchServer(t, http.StatusServiceUnavailable, discoveryJSON)
	r := NewResolver(NewCoverCache(newTestStore(t), DefaultTTL, nil), srv.searcher(), nil)

	got := r.Resolve(context.Background(), nowplaying.BuildKey("a", "b"), "a", "b")
	if got.Album != "Discovery" {
		t.Fatalf("Resolve = %+v, want fallback result", got)
	}
	if srv.primaryHits.Load() != 1 || srv.fallbackHits.Load() != 1 {
		t.Fatalf("hits primary=%d fallback=%d, want 1/1", srv.primaryHits.Load(), srv.fallbackHits.Load())
	}
}

func TestResolve_FallsBackOnTransportFailure(t *testing.T) {
	srv := newSearchServer(t, http.StatusOK, discoveryJSON)
	s := NewSearcher("http://127.0.0.1:1/search", srv.URL+DefaultFallbackPath, srv.Client())
	r := NewResolver(nil, s, nil)

	if got := r.Resolve(context.Background(), nowplaying.BuildKey("a", "b"), "a", "b"); got.Album != "Discovery" {
		t.Fatalf("Resolve = %+v, want fallback result", got)
	}
}

func TestResolve_NegativeResultsAreNotCached(t *testing.T) {
	ctx := context.Background()
	srv := newSearchServer(t, http.StatusOK, `{"resultCount":0,"results":[]}`)
	store := newTestStore(t)
	r := NewResolver(NewCoverCache(store, DefaultTTL, nil), srv.searcher(), nil)
	key := nowplaying.BuildKey("a", "b")

	if got := r.Resolve(ctx, key, "a", "b"); !got.IsEmpty() {
		t.Fatalf("Resolve = %+v, want empty", got)
	}
	r.Resolve(ctx, key, "a", "b")
	if n := srv.primaryHits.Load(); n != 2 {
		t.Fatalf("primary hits = %d, want 2 (miss must not be cached)", n)
	}
}

func TestResolve_AllTiersFailingYieldsEmpty(t *testing.T) {
	srv := newSearchServer(t, http.StatusInternalServerError, `not json`)
	r := NewResolver(nil, srv.searcher(), nil)
	if got := r.Resolve(context.Background(), nowplaying.BuildKey("a", "b"), "a", "b"); !got.IsEmpty() {
		t.Fatalf("Resolve = %+v, want empty", got)
	}
	if srv.fallbackHits.Load() != 1 {
		t.Fatalf("fallback hits = %d, want 1", srv.fallbackHits.Load())
	}
}

func TestResolve_NoNetworkForEmptyKeyOrQuery(t *testing.T) {
	srv := newSearchServer(t, http.StatusOK, discoveryJSON)
	r := NewResolver(nil, srv.searcher(), nil)
	ctx := context.Background()

	if got := r.Resolve(ctx, "", "Daft Punk", "One More Time"); !got.IsEmpty() {
		t.Fatalf("Resolve(empty key) = %+v", got)
	}
	if got := r.Resolve(ctx, "x|y", "  ", " "); !got.IsEmpty() {
		t.Fatalf("Resolve(blank query) = %+v", got)
	}
	if n := srv.primaryHits.Load() + srv.fallbackHits.Load(); n != 0 {
		t.Fatalf("requests = %d, want 0", n)
	}
}

func TestResolve_PartialRecordIsCached(t *testing.T) {
	ctx := context.Background()
	srv := newSearchServer(t, http.StatusOK, `{"resultCount":1,"results":[{"collectionName":"Only Album","releaseDate":"1997"}]}`)
	r := NewResolver(NewCoverCache(newTestStore(t), DefaultTTL, nil), srv.searcher(), nil)
	key := nowplaying.BuildKey("a", "b")

	want := Record{Album: "Only Album", Year: "1997"}
	if got := r.Resolve(ctx, key, "a", "b"); got != want {
		t.Fatalf("Resolve = %+v, want %+v", got, want)
	}
	r.Resolve(ctx, key, "a", "b")
	if n := srv.primaryHits.Load(); n != 1 {
		t.Fatalf("primary hits = %d, want 1", n)
	}
}
