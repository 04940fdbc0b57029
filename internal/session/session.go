// Package session tracks the authenticated identity for the lifetime of the
// process: who is signed in, whether that answer is still being resolved, and
// the last failure resolving it. The rest of the code reads the session
// through snapshots instead of calling the auth gateway directly.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/farookquisar/restate-client/internal/cache"
	"github.com/farookquisar/restate-client/internal/domain"
	"github.com/farookquisar/restate-client/pkg/remoteerrors"
)

// ErrNotInitialized is returned by FromContext when no session was installed.
// Reading the session outside its lifetime is a programming error and fails
// fast rather than yielding a zero identity.
var ErrNotInitialized = errors.New("session: not initialized in context")

// Snapshot is one consistent view of the session. A nil User with a nil Err
// means "signed out"; Loading marks the window before the first resolution.
type Snapshot struct {
	User    *domain.UserProfile
	Loading bool
	Err     error
}

// SignedIn reports whether a resolved identity is present.
func (s Snapshot) SignedIn() bool {
	return s.User != nil
}

// Notifier delivers a user-visible notice about a session failure. The
// presentation layer supplies the actual surface.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

// Session binds the cached current-user query to a snapshot consumers can
// poll or watch. Each distinct resolution failure is announced through the
// notifier exactly once; retries of the same failure stay quiet.
type Session struct {
	cache    *cache.Cache
	key      cache.Key
	fetch    cache.FetchFunc
	notifier Notifier
	logger   *slog.Logger

	mu       sync.RWMutex
	snap     Snapshot
	notified map[string]struct{}
	watchers map[int]chan Snapshot
	nextID   int

	cancelSub func()
	done      chan struct{}
}

// New creates a session bound to the given cached query. fetch resolves the
// current user through the auth gateway; key is the cache key the resolution
// lives under, so sign-in and sign-out invalidations reach the session.
func New(c *cache.Cache, key cache.Key, fetch cache.FetchFunc, notifier Notifier, logger *slog.Logger) *Session {
	return &Session{
		cache:    c,
		key:      key,
		fetch:    fetch,
		notifier: notifier,
		logger:   logger,
		snap:     Snapshot{Loading: true},
		notified: make(map[string]struct{}),
		watchers: make(map[int]chan Snapshot),
		done:     make(chan struct{}),
	}
}

// Start subscribes to the identity query and kicks off the initial
// resolution. It returns immediately; the snapshot transitions out of its
// loading state once the first resolution lands.
func (s *Session) Start(ctx context.Context) {
	updates, cancel := s.cache.Subscribe(s.key)
	s.cancelSub = cancel

	go s.watch(ctx, updates)

	go func() {
		if _, _, err := s.cache.Get(ctx, s.key, s.fetch); err != nil {
			s.logger.WarnContext(ctx, "initial session resolution failed",
				slog.String("error", err.Error()))
		}
	}()
}

// Close detaches the session from the cache and stops its watcher.
func (s *Session) Close() {
	if s.cancelSub != nil {
		s.cancelSub()
	}
	close(s.done)
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Refresh forces the identity to be re-resolved, e.g. after a sign-in or
// sign-out performed outside the cached query's own invalidation path.
func (s *Session) Refresh(ctx context.Context) {
	s.cache.Invalidate(ctx, s.key)
}

// Watch returns a channel receiving each snapshot transition and a cancel
// function detaching the watcher.
func (s *Session) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Session) watch(ctx context.Context, updates <-chan cache.Update) {
	for {
		select {
		case u := <-updates:
			s.apply(ctx, u)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) apply(ctx context.Context, u cache.Update) {
	var snap Snapshot
	switch {
	case u.Err != nil:
		snap = Snapshot{Err: u.Err}
	case u.Empty:
		snap = Snapshot{}
	default:
		profile, ok := u.Value.(*domain.UserProfile)
		if !ok || profile == nil {
			s.logger.ErrorContext(ctx, "identity query resolved to unexpected type")
			return
		}
		snap = Snapshot{User: profile}
	}

	s.mu.Lock()
	s.snap = snap
	watchers := make([]chan Snapshot, 0, len(s.watchers))
	for _, ch := range s.watchers {
		watchers = append(watchers, ch)
	}
	var announce bool
	if snap.Err != nil {
		fp := remoteerrors.Fingerprint(snap.Err)
		if _, seen := s.notified[fp]; !seen {
			s.notified[fp] = struct{}{}
			announce = true
		}
	}
	s.mu.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- snap:
		default:
		}
	}

	if announce && s.notifier != nil {
		s.notifier.Notify(ctx, "Failed to load your account. Pull to refresh to try again.")
	}
}

type contextKey struct{}

// NewContext installs the session into ctx.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext extracts the session installed by NewContext. It returns
// ErrNotInitialized when called outside the session's lifetime.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrNotInitialized
	}
	return s, nil
}
