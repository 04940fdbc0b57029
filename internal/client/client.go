// Package client is the application-facing surface of the data layer. Every
// read goes through the query cache under a canonical key; every mutation
// goes straight to the gateway and invalidates the reads it affects.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/farookquisar/restate-client/internal/cache"
	"github.com/farookquisar/restate-client/internal/domain"
	"github.com/farookquisar/restate-client/internal/gateway"
	"github.com/farookquisar/restate-client/pkg/pagination"
)

// ErrMissingID marks a read or mutation invoked without its identifying
// argument. The call fails before any remote work happens.
var ErrMissingID = errors.New("client: id is required")

// DefaultLatestLimit caps the home-screen "latest properties" rail.
const DefaultLatestLimit = 10

// DefaultBookmarksPerPage is the page size for the saved-properties screen.
const DefaultBookmarksPerPage = 20

// UserKey is the cache key the current-user query lives under. Sign-in and
// sign-out invalidate it; the session subscribes to it.
const UserKey = cache.Key("user")

// AuthGateway is the session surface the client drives: the OAuth handshake
// plus the current-user lookup.
type AuthGateway interface {
	gateway.Auth

	// ExchangeCode completes the OAuth handshake started by SignInWithGoogle.
	ExchangeCode(ctx context.Context, code, verifier string) error
}

// Client combines the table and auth gateways with the query cache.
type Client struct {
	tables gateway.Tables
	auth   AuthGateway
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates the data-layer client.
func New(tables gateway.Tables, auth AuthGateway, c *cache.Cache, logger *slog.Logger) *Client {
	return &Client{tables: tables, auth: auth, cache: c, logger: logger}
}

// CurrentUser returns the authenticated identity, nil when signed out.
func (c *Client) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	key, fetch := c.SessionQuery()
	return getCached[*domain.UserProfile](ctx, c.cache, key, fetch)
}

// SessionQuery exposes the current-user query so the session can subscribe
// to the exact key and fetcher the client reads through.
func (c *Client) SessionQuery() (cache.Key, cache.FetchFunc) {
	return UserKey, func(ctx context.Context) (any, bool, error) {
		res := c.auth.CurrentUser(ctx)
		switch res.Outcome {
		case gateway.Failed:
			return nil, false, res.Err
		case gateway.Empty:
			return nil, true, nil
		default:
			return &res.Value, false, nil
		}
	}
}

// LatestProperties returns up to limit properties ordered newest-first.
// limit <= 0 applies DefaultLatestLimit.
func (c *Client) LatestProperties(ctx context.Context, limit int) ([]domain.Property, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	key := cache.NewKey("properties/latest", map[string]any{"limit": limit})
	return getCached[[]domain.Property](ctx, c.cache, key,
		listFetch(func(ctx context.Context) gateway.Result[[]domain.Property] {
			return c.tables.ListLatest(ctx, limit)
		}))
}

// Properties searches the property catalogue. Logically identical searches
// collide to the same cache key regardless of how params was populated.
func (c *Client) Properties(ctx context.Context, params gateway.SearchParams) ([]domain.Property, error) {
	keyParams := map[string]any{}
	if params.Query != "" {
		keyParams["query"] = params.Query
	}
	if params.Filter != nil {
		keyParams["filter"] = string(*params.Filter)
	}
	if params.Limit > 0 {
		keyParams["limit"] = params.Limit
	}

	key := cache.NewKey("properties", keyParams)
	return getCached[[]domain.Property](ctx, c.cache, key,
		listFetch(func(ctx context.Context) gateway.Result[[]domain.Property] {
			return c.tables.Search(ctx, params)
		}))
}

// Property returns one property with its nested reviews and rating average.
func (c *Client) Property(ctx context.Context, id string) (*domain.Property, error) {
	if id == "" {
		return nil, fmt.Errorf("get property: %w", ErrMissingID)
	}

	key := PropertyKey(id)
	return getCached[*domain.Property](ctx, c.cache, key,
		func(ctx context.Context) (any, bool, error) {
			res := c.tables.GetByID(ctx, id)
			switch res.Outcome {
			case gateway.Failed:
				return nil, false, res.Err
			case gateway.Empty:
				return nil, true, nil
			default:
				return &res.Value, false, nil
			}
		})
}

// PropertyReviews returns all reviews for a property, newest first. A
// property with no reviews yields an empty slice, not an error.
func (c *Client) PropertyReviews(ctx context.Context, propertyID string) ([]domain.Review, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("list reviews: %w", ErrMissingID)
	}

	key := PropertyKey(propertyID).Child("reviews")
	return getCached[[]domain.Review](ctx, c.cache, key,
		listFetch(func(ctx context.Context) gateway.Result[[]domain.Review] {
			return c.tables.ListReviews(ctx, propertyID)
		}))
}

// BookmarkedProperties returns one page of the user's saved properties, most
// recently bookmarked first. page starts at 1.
func (c *Client) BookmarkedProperties(ctx context.Context, userID string, page int) (pagination.Result[domain.Property], error) {
	if userID == "" {
		return pagination.Result[domain.Property]{}, fmt.Errorf("list bookmarks: %w", ErrMissingID)
	}
	params := pagination.Params{Page: page, PerPage: DefaultBookmarksPerPage}.Normalize()

	key := cache.NewKey("bookmarks", map[string]any{"user": userID, "page": params.Page})
	props, err := getCached[[]domain.Property](ctx, c.cache, key,
		listFetch(func(ctx context.Context) gateway.Result[[]domain.Property] {
			return c.tables.ListBookmarked(ctx, userID, params)
		}))
	if err != nil {
		return pagination.Result[domain.Property]{}, err
	}
	return pagination.NewResult(props, params), nil
}

// ToggleBookmark flips the saved state of a property for the user and
// reports the new state: true when now bookmarked. On success it invalidates
// the property detail and every bookmarks page; the confirmed server state
// wins over any optimistic guess, because concurrent toggles are arbitrated
// remotely.
func (c *Client) ToggleBookmark(ctx context.Context, propertyID, userID string) (bool, error) {
	if propertyID == "" || userID == "" {
		return false, fmt.Errorf("toggle bookmark: %w", ErrMissingID)
	}

	bookmarked, err := c.tables.ToggleBookmark(ctx, propertyID, userID)
	if err != nil {
		return false, err
	}

	c.cache.Invalidate(ctx, PropertyKey(propertyID))
	c.cache.Invalidate(ctx, cache.Key("bookmarks"))

	c.logger.InfoContext(ctx, "bookmark toggled",
		slog.String("property_id", propertyID),
		slog.Bool("bookmarked", bookmarked),
	)
	return bookmarked, nil
}

// SignInWithGoogle starts the OAuth handshake. The presentation layer opens
// the returned URL and feeds the callback code to CompleteSignIn.
func (c *Client) SignInWithGoogle(ctx context.Context) (*gateway.OAuthSession, error) {
	return c.auth.SignInWithGoogle(ctx)
}

// CompleteSignIn finishes the handshake and invalidates the identity query
// so the session re-resolves against the new credentials.
func (c *Client) CompleteSignIn(ctx context.Context, code, verifier string) error {
	if err := c.auth.ExchangeCode(ctx, code, verifier); err != nil {
		return err
	}
	c.cache.Invalidate(ctx, UserKey)
	return nil
}

// SignOut ends the session and invalidates the identity query.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.auth.SignOut(ctx); err != nil {
		return err
	}
	c.cache.Invalidate(ctx, UserKey)
	return nil
}

// NotifyFocus forwards a foreground regain to the cache, re-running queries
// that opted into focus refetching.
func (c *Client) NotifyFocus(ctx context.Context) {
	c.cache.NotifyFocus(ctx)
}

// PropertyKey is the cache key for one property's detail query; its
// sub-queries nest under it so invalidating the property takes them along.
func PropertyKey(id string) cache.Key {
	return cache.Key("property").Child(id)
}

// listFetch adapts a slice-returning gateway call to the cache's fetch shape.
func listFetch[T any](call func(ctx context.Context) gateway.Result[[]T]) cache.FetchFunc {
	return func(ctx context.Context) (any, bool, error) {
		res := call(ctx)
		switch res.Outcome {
		case gateway.Failed:
			return nil, false, res.Err
		case gateway.Empty:
			return []T{}, true, nil
		default:
			return res.Value, false, nil
		}
	}
}

// getCached reads key through the cache and narrows the stored value back to
// its static type. An empty outcome yields the type's zero value.
func getCached[T any](ctx context.Context, c *cache.Cache, key cache.Key, fetch cache.FetchFunc) (T, error) {
	var zero T

	v, empty, err := c.Get(ctx, key, fetch)
	if err != nil {
		return zero, err
	}
	if empty {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %q holds %T, not %T", key, v, zero)
	}
	return typed, nil
}
