package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finadvisor/internal/provider"
)

type countingQuotes struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (c *countingQuotes) Name() string { return "fake" }

func (c *countingQuotes) Quote(_ context.Context, symbol string) (provider.Quote, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return provider.Quote{}, c.err
	}
	return provider.Quote{Symbol: symbol, Price: 101.5}, nil
}

type countingRates struct{ calls atomic.Int32 }

func (c *countingRates) Name() string { return "fake" }

func (c *countingRates) Rate(_ context.Context, from, to string) (provider.ForexRate, error) {
	c.calls.Add(1)
	return provider.ForexRate{FromCurrency: from, ToCurrency: to, ExchangeRate: 83.2}, nil
}

type countingCrypto struct {
	mu        sync.Mutex
	requested [][]string
	err       error
}

func (c *countingCrypto) Name() string { return "fake" }

func (c *countingCrypto) Prices(_ context.Context, ids []string) (map[string]provider.CryptoEntry, error) {
	c.mu.Lock()
	c.requested = append(c.requested, append([]string(nil), ids...))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]provider.CryptoEntry, len(ids))
	for _, id := range ids {
		out[id] = provider.CryptoEntry{Name: id, PriceUSD: 1}
	}
	return out, nil
}

func memoryOptions(ttl time.Duration) (Options, *MemoryStore) {
	store := NewMemoryStore(100)
	return Options{Store: store, TTL: ttl, Logger: zerolog.Nop()}, store
}

func TestQuotes_CachesWithinTTL(t *testing.T) {
	opts, store := memoryOptions(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	src := &countingQuotes{}
	q := NewQuotes(src, opts)

	for i := 0; i < 3; i++ {
		got, err := q.Quote(context.Background(), "aapl")
		require.NoError(t, err)
		assert.InDelta(t, 101.5, got.Price, 1e-9)
	}
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, "fake", q.Name())

	now = now.Add(2 * time.Minute)
	_, err := q.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestQuotes_ErrorsAreNotCached(t *testing.T) {
	opts, store := memoryOptions(time.Minute)
	src := &countingQuotes{err: provider.ErrRateLimited}
	q := NewQuotes(src, opts)

	_, err := q.Quote(context.Background(), "AAPL")
	require.ErrorIs(t, err, provider.ErrRateLimited)
	_, err = q.Quote(context.Background(), "AAPL")
	require.ErrorIs(t, err, provider.ErrRateLimited)

	assert.Equal(t, int32(2), src.calls.Load())
	assert.Zero(t, store.Len())
}

func TestQuotes_DisabledPassesThrough(t *testing.T) {
	opts, _ := memoryOptions(0)
	src := &countingQuotes{}
	q := NewQuotes(src, opts)

	for i := 0; i < 2; i++ {
		_, err := q.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestQuotes_ConcurrentCallsCoalesce(t *testing.T) {
	opts, _ := memoryOptions(time.Minute)
	src := &countingQuotes{block: make(chan struct{})}
	q := NewQuotes(src, opts)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Quote(context.Background(), "MSFT")
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	// give the remaining goroutines time to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(src.block)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestRates_CachesPerPair(t *testing.T) {
	opts, _ := memoryOptions(time.Minute)
	src := &countingRates{}
	r := NewRates(src, opts)

	_, err := r.Rate(context.Background(), "USD", "INR")
	require.NoError(t, err)
	_, err = r.Rate(context.Background(), "usd", "inr")
	require.NoError(t, err)
	_, err = r.Rate(context.Background(), "EUR", "INR")
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCrypto_FetchesOnlyMissing(t *testing.T) {
	opts, _ := memoryOptions(time.Minute)
	src := &countingCrypto{}
	c := NewCrypto(src, opts)

	got, err := c.Prices(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = c.Prices(context.Background(), []string{"Ethereum", "solana", "solana"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "ethereum")
	assert.Contains(t, got, "solana")

	require.Len(t, src.requested, 2)
	assert.Equal(t, []string{"solana"}, src.requested[1])

	_, err = c.Prices(context.Background(), []string{"bitcoin", "solana"})
	require.NoError(t, err)
	assert.Len(t, src.requested, 2)
}

func TestCrypto_ErrorKeepsCachedEntries(t *testing.T) {
	opts, _ := memoryOptions(time.Minute)
	src := &countingCrypto{}
	c := NewCrypto(src, opts)

	_, err := c.Prices(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)

	src.err = errors.New("upstream down")
	got, err := c.Prices(context.Background(), []string{"bitcoin", "cardano"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "bitcoin")

	_, err = c.Prices(context.Background(), []string{"cardano"})
	require.Error(t, err)
}

func TestMemoryStore_BoundedSize(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, store.Set(ctx, "c", []byte("3"), time.Minute))

	assert.Equal(t, 2, store.Len())
	v, ok, err := store.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("3"), v)
}

func TestMemoryStore_EvictsExpiredFirst(t *testing.T) {
	store := NewMemoryStore(2)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "old", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "keep", []byte("2"), time.Hour))
	now = now.Add(time.Minute)
	require.NoError(t, store.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, store.Len())
	_, ok, _ := store.Get(ctx, "keep")
	assert.True(t, ok)
	_, ok, _ = store.Get(ctx, "new")
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "finadvisor:")
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "quote:AAPL", []byte(`{"symbol":"AAPL"}`), 30*time.Second))
	assert.True(t, mr.Exists("finadvisor:quote:AAPL"))

	v, ok, err := store.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, string(v))

	mr.FastForward(31 * time.Second)
	_, ok, err = store.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuotes_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	src := &countingQuotes{}
	q := NewQuotes(src, Options{Store: NewRedisStore(client, "t:"), TTL: time.Minute, Logger: zerolog.Nop()})

	first, err := q.Quote(context.Background(), "TSLA")
	require.NoError(t, err)
	second, err := q.Quote(context.Background(), "TSLA")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestQuotes_StoreFailureFallsBackToSource(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	src := &countingQuotes{}
	q := NewQuotes(src, Options{Store: NewRedisStore(client, "t:"), TTL: time.Minute, Logger: zerolog.Nop()})

	got, err := q.Quote(context.Background(), "AMZN")
	require.NoError(t, err)
	assert.Equal(t, "AMZN", got.Symbol)
	assert.Equal(t, int32(1), src.calls.Load())
}

type ctxQuotes struct {
	calls atomic.Int32
	block chan struct{}
}

func (c *ctxQuotes) Name() string { return "ctx" }

func (c *ctxQuotes) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	c.calls.Add(1)
	<-c.block
	if err := ctx.Err(); err != nil {
		return provider.Quote{}, err
	}
	return provider.Quote{Symbol: symbol, Price: 42}, nil
}

func TestQuotes_CanceledCallerDoesNotFailWaiters(t *testing.T) {
	opts, _ := memoryOptions(time.Minute)
	src := &ctxQuotes{block: make(chan struct{})}
	q := NewQuotes(src, opts)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := q.Quote(firstCtx, "NVDA")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		quote provider.Quote
		err   error
	}
	second := make(chan result, 1)
	go func() {
		got, err := q.Quote(context.Background(), "NVDA")
		second <- result{got, err}
	}()
	// let the second caller join the in-flight fetch
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(src.block)
	res := <-second
	require.NoError(t, res.err)
	assert.InDelta(t, 42.0, res.quote.Price, 1e-9)
	assert.Equal(t, int32(1), src.calls.Load())

	// the detached fetch still populated the cache
	got, err := q.Quote(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.InDelta(t, 42.0, got.Price, 1e-9)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestQuotes_SharedFetchIsBounded(t *testing.T) {
	opts, _ := memoryOptions(time.Minute)
	opts.FetchTimeout = 20 * time.Millisecond
	q := NewQuotes(&deadlineQuotes{}, opts)

	_, err := q.Quote(context.Background(), "IBM")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type deadlineQuotes struct{}

func (deadlineQuotes) Name() string { return "slow" }

func (deadlineQuotes) Quote(ctx context.Context, _ string) (provider.Quote, error) {
	<-ctx.Done()
	return provider.Quote{}, ctx.Err()
}
