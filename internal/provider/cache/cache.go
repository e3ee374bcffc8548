// Package cache wraps market data sources with a TTL cache. Only successful
// results are stored, so a failing upstream is retried on the next call and
// never masked by a stale value beyond its TTL.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"finadvisor/internal/provider"
)

type Options struct {
	Store Store
	TTL   time.Duration
	// FetchTimeout bounds a shared upstream fetch, default 10s. The fetch
	// outlives any single waiter, so it does not inherit a caller's
	// cancellation.
	FetchTimeout time.Duration
	Logger       zerolog.Logger
}

type core struct {
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	log          zerolog.Logger
	sf           singleflight.Group
}

func newCore(opts Options) *core {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &core{store: opts.Store, ttl: opts.TTL, fetchTimeout: timeout, log: opts.Logger}
}

// shared runs fn once per key across concurrent callers. fn gets a context
// detached from ctx; a caller whose ctx ends stops waiting while the others
// still receive the result.
func (c *core) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.sf.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return fn(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *core) enabled() bool { return c.store != nil && c.ttl > 0 }

// lookup decodes a cached value into dst. Store or decode failures count as
// a miss.
func (c *core) lookup(ctx context.Context, key string, dst any) bool {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return false
	}
	return true
}

func (c *core) save(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.store.Set(ctx, key, b, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// load returns the cached value for key or calls fetch once per key across
// concurrent callers and stores its result.
func load[T any](ctx context.Context, c *core, key string, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		fresh, err := fetch(ctx)
		if err != nil {
			return fresh, err
		}
		c.save(ctx, key, fresh)
		return fresh, nil
	})
	out, _ := v.(T)
	return out, err
}

// Quotes caches equity quotes per symbol.
type Quotes struct {
	P provider.QuoteSource
	c *core
}

func NewQuotes(p provider.QuoteSource, opts Options) *Quotes {
	return &Quotes{P: p, c: newCore(opts)}
}

func (q *Quotes) Name() string { return q.P.Name() }

func (q *Quotes) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	if !q.c.enabled() {
		return q.P.Quote(ctx, symbol)
	}
	key := "quote:" + strings.ToUpper(strings.TrimSpace(symbol))
	return load(ctx, q.c, key, func(ctx context.Context) (provider.Quote, error) {
		return q.P.Quote(ctx, symbol)
	})
}

// Rates caches exchange rates per currency pair.
type Rates struct {
	P provider.FXSource
	c *core
}

func NewRates(p provider.FXSource, opts Options) *Rates {
	return &Rates{P: p, c: newCore(opts)}
}

func (r *Rates) Name() string { return r.P.Name() }

func (r *Rates) Rate(ctx context.Context, from, to string) (provider.ForexRate, error) {
	if !r.c.enabled() {
		return r.P.Rate(ctx, from, to)
	}
	key := "fx:" + provider.PairKey(strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to)))
	return load(ctx, r.c, key, func(ctx context.Context) (provider.ForexRate, error) {
		return r.P.Rate(ctx, from, to)
	})
}

// Crypto caches coin prices per id. It requests only missing ids from the
// underlying source and combines cached and fresh entries.
type Crypto struct {
	P provider.CryptoSource
	c *core
}

func NewCrypto(p provider.CryptoSource, opts Options) *Crypto {
	return &Crypto{P: p, c: newCore(opts)}
}

func (cr *Crypto) Name() string { return cr.P.Name() }

func (cr *Crypto) Prices(ctx context.Context, ids []string) (map[string]provider.CryptoEntry, error) {
	if !cr.c.enabled() {
		return cr.P.Prices(ctx, ids)
	}

	out := make(map[string]provider.CryptoEntry, len(ids))
	missing := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		var e provider.CryptoEntry
		if cr.c.lookup(ctx, "crypto:"+id, &e) {
			out[id] = e
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)
	v, err := cr.c.shared(ctx, "crypto:"+strings.Join(sorted, ","), func(ctx context.Context) (any, error) {
		fresh, err := cr.P.Prices(ctx, missing)
		if err != nil {
			return nil, err
		}
		for id, e := range fresh {
			cr.c.save(ctx, "crypto:"+id, e)
		}
		return fresh, nil
	})
	if err != nil {
		// cached entries are still within their TTL
		if len(out) > 0 {
			return out, nil
		}
		return nil, err
	}
	fresh, _ := v.(map[string]provider.CryptoEntry)
	for id, e := range fresh {
		out[id] = e
	}
	return out, nil
}
