// Package gateway defines the boundary to the remote backend: thin, typed
// operations that each perform exactly one remote call, with no caching and
// no derived fields beyond row-level shaping plus the shared rating average.
package gateway

import (
	"context"

	"github.com/farookquisar/restate-client/internal/domain"
	"github.com/farookquisar/restate-client/pkg/pagination"
)

// SearchParams narrows a property search. Zero values omit the predicate:
// an empty Query skips the substring match, a nil Filter skips the category
// restriction, Limit <= 0 leaves the result uncapped.
type SearchParams struct {
	Query  string
	Filter *domain.Category
	Limit  int
}

// Tables is the read/write surface over the backend's relational tables.
type Tables interface {
	// ListLatest returns up to limit properties ordered newest-first.
	ListLatest(ctx context.Context, limit int) Result[[]domain.Property]

	// Search returns properties matching params; no ordering guarantee
	// beyond the backend default.
	Search(ctx context.Context, params SearchParams) Result[[]domain.Property]

	// GetByID returns exactly one property with its full nested review set,
	// or a Failed result wrapping ErrNotFound.
	GetByID(ctx context.Context, id string) Result[domain.Property]

	// ListReviews returns all reviews for a property. A property with no
	// reviews yields an Empty result, not a failure.
	ListReviews(ctx context.Context, propertyID string) Result[[]domain.Review]

	// ListBookmarked returns the page of properties the user has saved,
	// most recently bookmarked first.
	ListBookmarked(ctx context.Context, userID string, page pagination.Params) Result[[]domain.Property]

	// ToggleBookmark flips the presence of the (propertyID, userID) bookmark
	// and reports the new state: true when now bookmarked. It is idempotent
	// under retries and concurrent callers; the backend's uniqueness
	// constraint on (user_id, property_id) arbitrates races.
	ToggleBookmark(ctx context.Context, propertyID, userID string) (bool, error)
}

// OAuthSession is the start of the provider handshake: the URL the
// presentation layer must open, and the verifier it has to present when the
// provider redirects back.
type OAuthSession struct {
	Provider    string
	RedirectURL string
	Verifier    string
}

// Auth is the session surface of the remote backend.
type Auth interface {
	// SignInWithGoogle initiates the OAuth handshake with Google.
	SignInWithGoogle(ctx context.Context) (*OAuthSession, error)

	// SignOut invalidates the current session.
	SignOut(ctx context.Context) error

	// CurrentUser returns the authenticated identity. No active session is
	// an Empty result, not an error.
	CurrentUser(ctx context.Context) Result[domain.UserProfile]
}
