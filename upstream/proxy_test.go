package upstream

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/opscore/cache"
)

type fakeFetcher struct {
	configured bool
	calls      atomic.Int32
	FetchFunc  func(ctx context.Context, req Request) (Data, error)
}

func (f *fakeFetcher) Configured() bool { return f.configured }

func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (Data, error) {
	f.calls.Add(1)
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, req)
	}
	return Data{Kind: req.Kind, User: &User{Login: "octocat"}}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newProxy(f Fetcher, opts ...cache.Option) *Proxy {
	return NewProxy(f, cache.New[Data](opts...))
}

func userRequest() Request {
	return Request{Kind: KindUser, Params: url.Values{"type": {"user"}}}
}

func TestProxy_CachesWithinTTL(t *testing.T) {
	f := &fakeFetcher{configured: true}
	p := newProxy(f)
	ctx := context.Background()

	first, err := p.Fetch(ctx, userRequest(), false)
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	second, err := p.Fetch(ctx, userRequest(), false)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}

	if first.CacheHit || !second.CacheHit {
		t.Errorf("CacheHit = %v then %v, want false then true", first.CacheHit, second.CacheHit)
	}
	if second.Data.User.Login != "octocat" {
		t.Errorf("cached data = %+v", second.Data.User)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestProxy_ForceBypass(t *testing.T) {
	f := &fakeFetcher{configured: true}
	p := newProxy(f)
	ctx := context.Background()

	_, _ = p.Fetch(ctx, userRequest(), false)
	res, err := p.Fetch(ctx, userRequest(), true)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("forced fetch reported a cache hit")
	}
	if n := f.calls.Load(); n != 2 {
		t.Errorf("upstream called %d times, want 2", n)
	}

	// the forced result refreshes the entry
	res, _ = p.Fetch(ctx, userRequest(), false)
	if !res.CacheHit || f.calls.Load() != 2 {
		t.Errorf("after force: hit=%v calls=%d", res.CacheHit, f.calls.Load())
	}
}

func TestProxy_ExpiresAfterKindTTL(t *testing.T) {
	c := &clock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	f := &fakeFetcher{configured: true}
	p := newProxy(f, cache.WithClock(c.Now))
	ctx := context.Background()

	_, _ = p.Fetch(ctx, userRequest(), false)
	c.Advance(KindUser.DefaultTTL())
	if res, _ := p.Fetch(ctx, userRequest(), false); !res.CacheHit {
		t.Error("entry expired at exactly its TTL")
	}
	c.Advance(time.Millisecond)
	if res, _ := p.Fetch(ctx, userRequest(), false); res.CacheHit {
		t.Error("entry served after its TTL")
	}
	if n := f.calls.Load(); n != 2 {
		t.Errorf("upstream called %d times, want 2", n)
	}
}

func TestProxy_ParameterOrderSharesEntry(t *testing.T) {
	f := &fakeFetcher{configured: true, FetchFunc: func(_ context.Context, req Request) (Data, error) {
		return Data{Kind: req.Kind, Repos: []Repo{{Name: "a"}}}, nil
	}}
	p := newProxy(f)
	ctx := context.Background()

	a, _ := url.ParseQuery("type=repos&sort=updated&per_page=10")
	b, _ := url.ParseQuery("per_page=10&type=repos&sort=updated&force=false")
	_, _ = p.Fetch(ctx, Request{Kind: KindRepos, Params: a}, false)
	res, _ := p.Fetch(ctx, Request{Kind: KindRepos, Params: b}, false)

	if !res.CacheHit {
		t.Error("reordered parameters missed the cache")
	}
}

func TestProxy_Errors(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		req     Request
		want    error
		calls   int32
	}{
		{"not configured", &fakeFetcher{}, userRequest(), ErrNotConfigured, 0},
		{"unknown kind", &fakeFetcher{configured: true}, Request{Kind: "bogus"}, ErrUnknownKind, 0},
		{"no data", &fakeFetcher{configured: true, FetchFunc: func(context.Context, Request) (Data, error) {
			return Data{Kind: KindUser}, nil
		}}, userRequest(), ErrNoData, 1},
		{"upstream failure", &fakeFetcher{configured: true, FetchFunc: func(context.Context, Request) (Data, error) {
			return Data{}, boom
		}}, userRequest(), boom, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProxy(tt.fetcher)
			_, err := p.Fetch(context.Background(), tt.req, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if n := tt.fetcher.calls.Load(); n != tt.calls {
				t.Errorf("upstream called %d times, want %d", n, tt.calls)
			}
			if p.Stats().TotalEntries != 0 {
				t.Error("failure was cached")
			}
		})
	}
}

func TestProxy_ClearAllAndStats(t *testing.T) {
	f := &fakeFetcher{configured: true}
	p := newProxy(f)
	ctx := context.Background()

	_, _ = p.Fetch(ctx, userRequest(), false)
	stats := p.Stats()
	if stats.TotalEntries != 1 || stats.Entries[0].Key != "github:user:" {
		t.Fatalf("Stats = %+v", stats)
	}
	if stats.Entries[0].TTLMs != KindUser.DefaultTTL().Milliseconds() {
		t.Errorf("TTLMs = %d", stats.Entries[0].TTLMs)
	}

	p.ClearAll()
	if p.Stats().TotalEntries != 0 {
		t.Error("ClearAll left entries")
	}
	if res, _ := p.Fetch(ctx, userRequest(), false); res.CacheHit {
		t.Error("hit after ClearAll")
	}
}

func TestProxy_TTLOverrides(t *testing.T) {
	p := NewProxy(&fakeFetcher{configured: true}, cache.New[Data](), WithTTL(KindUser, 2*time.Minute))
	_, _ = p.Fetch(context.Background(), userRequest(), false)
	if got := p.Stats().Entries[0].TTLMs; got != (2 * time.Minute).Milliseconds() {
		t.Errorf("TTLMs = %d, want 120000", got)
	}

	req := userRequest()
	req.Params = url.Values{"v": {"2"}}
	req.TTL = 30 * time.Second
	_, _ = p.Fetch(context.Background(), req, false)
	for _, e := range p.Stats().Entries {
		if e.Key == "github:user:v=2" && e.TTLMs != 30000 {
			t.Errorf("request TTL ignored: %d", e.TTLMs)
		}
	}
}
