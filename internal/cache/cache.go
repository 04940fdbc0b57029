// Package cache implements the query cache and invalidation layer: every
// gateway read sits behind a canonical key, a staleness policy, a bounded
// retry budget and per-key request de-duplication. The cache is
// memory-resident and lost on process restart; the backend always owns the
// authoritative copy.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/farookquisar/restate-client/pkg/remoteerrors"
)

// Options is the per-key cache policy.
type Options struct {
	// StaleAfter is the freshness window. An entry younger than this is
	// served without re-invoking the gateway; once exceeded, a read serves
	// the stale value and triggers a background refetch.
	StaleAfter time.Duration

	// RetryCount is the number of automatic retries on transient failure
	// before the error is surfaced to subscribers.
	RetryCount int

	// RefetchOnFocus triggers a refetch for subscribed entries when the
	// process regains foreground. Off by default.
	RefetchOnFocus bool
}

// DefaultOptions mirrors the deployment defaults: a five-minute freshness
// window, a single retry, no focus-regain refetch.
func DefaultOptions() Options {
	return Options{
		StaleAfter:     5 * time.Minute,
		RetryCount:     1,
		RefetchOnFocus: false,
	}
}

// FetchFunc performs the underlying gateway call for a key. It returns the
// shaped value, whether the call legitimately matched nothing, or an error.
type FetchFunc func(ctx context.Context) (value any, empty bool, err error)

// Update is delivered to subscribers whenever their key's entry changes.
type Update struct {
	Key   Key
	Value any
	Empty bool
	Err   error
}

type entry struct {
	value     any
	empty     bool
	err       error
	hasValue  bool
	fetchedAt time.Time

	// remembered so invalidation and focus regain can re-run the query
	fetch FetchFunc
	opts  Options

	subs map[int]chan Update
}

// Cache is the process-wide query cache. All entry mutation goes through its
// serialized entry points; consumers never reach into entries directly.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	logger  *slog.Logger
	opts    Options
	nextSub int
}

// New creates a cache with the given default policy.
func New(logger *slog.Logger, opts Options) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		logger:  logger,
		opts:    opts,
	}
}

// Get serves key under the cache's default policy. See GetWithOptions.
func (c *Cache) Get(ctx context.Context, key Key, fetch FetchFunc) (any, bool, error) {
	return c.GetWithOptions(ctx, key, c.opts, fetch)
}

// GetWithOptions serves key under the given policy: a fresh entry is
// returned directly; a stale entry is returned immediately while a refetch
// runs in the background; a missing entry is fetched synchronously. A second
// caller for a key already in flight attaches to the in-flight request
// instead of issuing a duplicate gateway call.
func (c *Cache) GetWithOptions(ctx context.Context, key Key, opts Options, fetch FetchFunc) (any, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		// Keep the policy and fetcher current for invalidation refetches.
		e.fetch = fetch
		e.opts = opts

		if e.hasValue || e.err != nil {
			age := time.Since(e.fetchedAt)
			if age < opts.StaleAfter {
				value, empty, err := e.value, e.empty, e.err
				c.mu.Unlock()
				hitsTotal.Inc()
				return value, empty, err
			}

			if e.hasValue {
				value, empty := e.value, e.empty
				c.mu.Unlock()
				staleServesTotal.Inc()
				c.refetchAsync(ctx, key)
				return value, empty, nil
			}
		}
	}
	c.mu.Unlock()

	missesTotal.Inc()
	return c.fetchThrough(ctx, key, opts, fetch)
}

// Subscribe registers interest in a key. The returned channel receives an
// Update whenever the entry changes; the cancel function detaches the
// subscriber, after which any in-flight resolution for the key is swallowed.
func (c *Cache) Subscribe(key Key) (<-chan Update, func()) {
	ch := make(chan Update, 8)

	c.mu.Lock()
	e := c.ensureEntryLocked(key)
	c.nextSub++
	id := c.nextSub
	e.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[key]; ok {
			delete(e.subs, id)
		}
	}
	return ch, cancel
}

// Invalidate removes every entry matching prefix and schedules a refetch for
// keys that still have live subscribers. Mutations call this on success
// instead of guessing a post-state: a confirmed refetch beats an optimistic
// local write because toggle results depend on server-side arbitration.
func (c *Cache) Invalidate(ctx context.Context, prefix Key) {
	var targets []Key

	c.mu.Lock()
	for key, e := range c.entries {
		if !key.Matches(prefix) {
			continue
		}

		e.value, e.empty, e.err, e.hasValue = nil, false, nil, false

		if len(e.subs) > 0 && e.fetch != nil {
			targets = append(targets, key)
		} else {
			delete(c.entries, key)
			entriesGauge.Dec()
		}
	}
	c.mu.Unlock()

	for _, key := range targets {
		c.refetchAsync(ctx, key)
	}
}

// NotifyFocus triggers a refetch for subscribed entries that opted into
// focus-regain refetching.
func (c *Cache) NotifyFocus(ctx context.Context) {
	var targets []Key

	c.mu.Lock()
	for key, e := range c.entries {
		if e.opts.RefetchOnFocus && len(e.subs) > 0 && e.fetch != nil {
			targets = append(targets, key)
		}
	}
	c.mu.Unlock()

	for _, key := range targets {
		c.refetchAsync(ctx, key)
	}
}

func (c *Cache) ensureEntryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{subs: make(map[int]chan Update), opts: c.opts}
		c.entries[key] = e
		entriesGauge.Inc()
	}
	return e
}

type fetchOutcome struct {
	value any
	empty bool
}

// fetchThrough runs fetch behind the per-key flight with the retry budget.
// The flight owner stores the outcome and notifies subscribers exactly once;
// joined callers only share the return value.
func (c *Cache) fetchThrough(ctx context.Context, key Key, opts Options, fetch FetchFunc) (any, bool, error) {
	out, err, _ := c.group.Do(string(key), func() (any, error) {
		value, empty, err := c.fetchWithRetries(ctx, key, opts, fetch)
		c.store(key, opts, fetch, value, empty, err)
		if err != nil {
			return nil, err
		}
		return fetchOutcome{value: value, empty: empty}, nil
	})

	if err != nil {
		return nil, false, err
	}

	o := out.(fetchOutcome)
	return o.value, o.empty, nil
}

// fetchWithRetries applies the bounded retry budget. Only transient failures
// are retried; deterministic ones (NotFound, AuthFailed) surface immediately.
func (c *Cache) fetchWithRetries(ctx context.Context, key Key, opts Options, fetch FetchFunc) (any, bool, error) {
	var (
		value any
		empty bool
		err   error
	)

	attempts := opts.RetryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		value, empty, err = fetch(ctx)
		if err == nil {
			return value, empty, nil
		}
		if !remoteerrors.Retryable(err) || ctx.Err() != nil {
			return nil, false, err
		}
		if attempt < attempts-1 {
			c.logger.DebugContext(ctx, "retrying query",
				slog.String("key", string(key)),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
		}
	}

	retriesExhaustedTotal.Inc()
	return nil, false, err
}

// store writes the outcome into the entry and notifies subscribers. A failed
// refetch keeps the previous value so stale data remains renderable; the
// error still reaches subscribers.
func (c *Cache) store(key Key, opts Options, fetch FetchFunc, value any, empty bool, err error) {
	c.mu.Lock()
	e := c.ensureEntryLocked(key)
	e.fetch = fetch
	e.opts = opts
	e.fetchedAt = time.Now()
	e.err = err
	if err == nil {
		e.value = value
		e.empty = empty
		e.hasValue = true
	}

	update := Update{Key: key, Value: e.value, Empty: e.empty, Err: err}
	subs := make([]chan Update, 0, len(e.subs))
	for _, ch := range e.subs {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
			// Slow subscriber; the next update supersedes this one anyway.
		}
	}
}

// refetchAsync re-runs a key's remembered fetch in the background. The
// caller's cancellation is deliberately detached: an unmounted subscriber
// abandons the request, but its eventual resolution is stored or swallowed,
// never thrown into the void.
func (c *Cache) refetchAsync(ctx context.Context, key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return
	}
	opts, fetch := e.opts, e.fetch
	c.mu.Unlock()

	refetchesTotal.Inc()
	bg := context.WithoutCancel(ctx)
	go func() {
		_, _, err := c.fetchThrough(bg, key, opts, fetch)
		if err != nil {
			c.logger.WarnContext(bg, "background refetch failed",
				slog.String("key", string(key)),
				slog.String("error", err.Error()),
			)
		}
	}()
}
