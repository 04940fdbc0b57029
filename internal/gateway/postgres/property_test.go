package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farookquisar/restate-client/internal/domain"
	"github.com/farookquisar/restate-client/internal/gateway"
	"github.com/farookquisar/restate-client/pkg/pagination"
	"github.com/farookquisar/restate-client/pkg/remoteerrors"
)

var propertyTestColumns = []string{
	"id", "title", "description", "price", "location", "address",
	"bedrooms", "bathrooms", "area", "category", "status",
	"features", "images", "created_at", "updated_at",
}

func strPtr(s string) *string    { return &s }
func intPtr(i int) *int          { return &i }
func f64Ptr(f float64) *float64  { return &f }
func catPtr(c domain.Category) *domain.Category { return &c }

func propertyRow(rows *pgxmock.Rows, id, title string, category domain.Category, at time.Time) *pgxmock.Rows {
	return rows.AddRow(
		id, title, strPtr("A fine place"), 250000.0, "Lisbon", "1 Ocean Dr",
		intPtr(3), intPtr(2), f64Ptr(180.0), category, domain.StatusAvailable,
		[]byte(`{"pool":true,"parking":2}`), []string{"https://img.example/1.jpg"}, at, at,
	)
}

// ---------------------------------------------------------------------------
// ListLatest
// ---------------------------------------------------------------------------

func TestListLatest_Success(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows(propertyTestColumns)
	rows = propertyRow(rows, "p1", "Villa Uno", domain.CategoryVilla, now)
	rows = propertyRow(rows, "p2", "Flat Dois", domain.CategoryApartment, now.Add(-time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM properties ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(rows)

	ratingRows := pgxmock.NewRows([]string{"property_id", "rating"}).
		AddRow("p1", 5).
		AddRow("p1", 4).
		AddRow("p2", 3)
	mock.ExpectQuery("SELECT property_id, rating FROM reviews WHERE property_id = ANY").
		WithArgs([]string{"p1", "p2"}).
		WillReturnRows(ratingRows)

	res := gw.ListLatest(context.Background(), 10)
	require.Equal(t, gateway.Success, res.Outcome)
	require.Len(t, res.Value, 2)

	assert.Equal(t, "p1", res.Value[0].ID)
	require.NotNil(t, res.Value[0].AverageRating)
	assert.InDelta(t, 4.5, *res.Value[0].AverageRating, 1e-9)
	require.NotNil(t, res.Value[0].Features)
	assert.True(t, res.Value[0].Features.Pool)
	assert.Equal(t, 2, res.Value[0].Features.Parking)

	require.NotNil(t, res.Value[1].AverageRating)
	assert.InDelta(t, 3.0, *res.Value[1].AverageRating, 1e-9)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLatest_NoRatingsLeavesAverageAbsent(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := propertyRow(pgxmock.NewRows(propertyTestColumns), "p1", "Villa Uno", domain.CategoryVilla, now)
	mock.ExpectQuery("SELECT (.+) FROM properties ORDER BY created_at DESC").
		WithArgs(5).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT property_id, rating FROM reviews WHERE property_id = ANY").
		WithArgs([]string{"p1"}).
		WillReturnRows(pgxmock.NewRows([]string{"property_id", "rating"}))

	res := gw.ListLatest(context.Background(), 5)
	require.Equal(t, gateway.Success, res.Outcome)
	require.Len(t, res.Value, 1)
	assert.Nil(t, res.Value[0].AverageRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLatest_EmptyTable(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM properties ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(propertyTestColumns))

	res := gw.ListLatest(context.Background(), 10)
	assert.Equal(t, gateway.Empty, res.Outcome)
	assert.NoError(t, res.Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLatest_QueryFailure(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM properties ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnError(errors.New("connection refused"))

	res := gw.ListLatest(context.Background(), 10)
	require.Equal(t, gateway.Failed, res.Outcome)
	assert.True(t, errors.Is(res.Err, remoteerrors.ErrTransport))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLatest_QuarantinesInvalidRows(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := propertyRow(pgxmock.NewRows(propertyTestColumns), "p1", "Villa Uno", domain.CategoryVilla, now)
	// Unknown category fails shape validation and must be dropped, not propagated.
	rows = propertyRow(rows, "p2", "Mystery Castle", domain.Category("castle"), now)
	mock.ExpectQuery("SELECT (.+) FROM properties ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT property_id, rating FROM reviews WHERE property_id = ANY").
		WithArgs([]string{"p1"}).
		WillReturnRows(pgxmock.NewRows([]string{"property_id", "rating"}))

	res := gw.ListLatest(context.Background(), 10)
	require.Equal(t, gateway.Success, res.Outcome)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "p1", res.Value[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearch_QueryFilterAndLimit(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(propertyTestColumns)
	rows = propertyRow(rows, "v1", "Villa Uno", domain.CategoryVilla, now)
	rows = propertyRow(rows, "v2", "Villa Dois", domain.CategoryVilla, now)
	rows = propertyRow(rows, "v3", "Villa Tres", domain.CategoryVilla, now)
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE \\(title ILIKE").
		WithArgs("%villa%", "villa", 5).
		WillReturnRows(rows)

	ratingRows := pgxmock.NewRows([]string{"property_id", "rating"}).
		AddRow("v1", 5).
		AddRow("v2", 4).
		AddRow("v2", 2)
	mock.ExpectQuery("SELECT property_id, rating FROM reviews WHERE property_id = ANY").
		WithArgs([]string{"v1", "v2", "v3"}).
		WillReturnRows(ratingRows)

	res := gw.Search(context.Background(), gateway.SearchParams{
		Query:  "villa",
		Filter: catPtr(domain.CategoryVilla),
		Limit:  5,
	})
	require.Equal(t, gateway.Success, res.Outcome)
	require.Len(t, res.Value, 3)

	require.NotNil(t, res.Value[0].AverageRating)
	assert.InDelta(t, 5.0, *res.Value[0].AverageRating, 1e-9)
	require.NotNil(t, res.Value[1].AverageRating)
	assert.InDelta(t, 3.0, *res.Value[1].AverageRating, 1e-9)
	assert.Nil(t, res.Value[2].AverageRating)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_NoPredicates(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := propertyRow(pgxmock.NewRows(propertyTestColumns), "p1", "Flat", domain.CategoryApartment, now)
	mock.ExpectQuery("SELECT (.+) FROM properties").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT property_id, rating FROM reviews WHERE property_id = ANY").
		WithArgs([]string{"p1"}).
		WillReturnRows(pgxmock.NewRows([]string{"property_id", "rating"}))

	res := gw.Search(context.Background(), gateway.SearchParams{})
	require.Equal(t, gateway.Success, res.Outcome)
	assert.Len(t, res.Value, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_NoMatches(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM properties WHERE \\(title ILIKE").
		WithArgs("%lighthouse%").
		WillReturnRows(pgxmock.NewRows(propertyTestColumns))

	res := gw.Search(context.Background(), gateway.SearchParams{Query: "lighthouse"})
	assert.Equal(t, gateway.Empty, res.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestGetByID_NestsReviewsAndAverage(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := propertyRow(pgxmock.NewRows(propertyTestColumns), "p1", "Villa Uno", domain.CategoryVilla, now)
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id =").
		WithArgs("p1").
		WillReturnRows(rows)

	reviewRows := pgxmock.NewRows([]string{
		"id", "property_id", "user_id", "rating", "comment", "created_at", "updated_at",
	}).
		AddRow("r1", "p1", "u1", 5, strPtr("Loved it"), now, now).
		AddRow("r2", "p1", "u2", 2, (*string)(nil), now, now)
	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE property_id =").
		WithArgs("p1").
		WillReturnRows(reviewRows)

	res := gw.GetByID(context.Background(), "p1")
	require.Equal(t, gateway.Success, res.Outcome)

	assert.Equal(t, "p1", res.Value.ID)
	require.Len(t, res.Value.Reviews, 2)
	require.NotNil(t, res.Value.AverageRating)
	assert.InDelta(t, 3.5, *res.Value.AverageRating, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id =").
		WithArgs("missing-id").
		WillReturnRows(pgxmock.NewRows(propertyTestColumns))

	res := gw.GetByID(context.Background(), "missing-id")
	require.Equal(t, gateway.Failed, res.Outcome)
	assert.True(t, errors.Is(res.Err, remoteerrors.ErrNotFound),
		"a missing property must be a NotFound failure, not a null success")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_MultipleRowsAreNotFound(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := propertyRow(pgxmock.NewRows(propertyTestColumns), "p1", "Villa Uno", domain.CategoryVilla, now)
	rows = propertyRow(rows, "p1", "Villa Uno Copy", domain.CategoryVilla, now)
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id =").
		WithArgs("p1").
		WillReturnRows(rows)

	res := gw.GetByID(context.Background(), "p1")
	require.Equal(t, gateway.Failed, res.Outcome)
	assert.True(t, errors.Is(res.Err, remoteerrors.ErrNotFound),
		"an ambiguous id must fail like a missing one, never pick a row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NoReviewsLeavesAverageAbsent(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := propertyRow(pgxmock.NewRows(propertyTestColumns), "p1", "Villa Uno", domain.CategoryVilla, now)
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id =").
		WithArgs("p1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE property_id =").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "property_id", "user_id", "rating", "comment", "created_at", "updated_at",
		}))

	res := gw.GetByID(context.Background(), "p1")
	require.Equal(t, gateway.Success, res.Outcome)
	assert.Empty(t, res.Value.Reviews)
	assert.Nil(t, res.Value.AverageRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListBookmarked
// ---------------------------------------------------------------------------

func TestListBookmarked_Success(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := propertyRow(pgxmock.NewRows(propertyTestColumns), "p1", "Villa Uno", domain.CategoryVilla, now)
	mock.ExpectQuery("SELECT (.+) FROM properties p JOIN bookmarks b ON").
		WithArgs("u1", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT property_id, rating FROM reviews WHERE property_id = ANY").
		WithArgs([]string{"p1"}).
		WillReturnRows(pgxmock.NewRows([]string{"property_id", "rating"}))

	res := gw.ListBookmarked(context.Background(), "u1", pagination.Params{Page: 1, PerPage: 20})
	require.Equal(t, gateway.Success, res.Outcome)
	assert.Len(t, res.Value, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookmarked_NoneSaved(t *testing.T) {
	gw, mock := newGatewayFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM properties p JOIN bookmarks b ON").
		WithArgs("u1", 20, 0).
		WillReturnRows(pgxmock.NewRows(propertyTestColumns))

	res := gw.ListBookmarked(context.Background(), "u1", pagination.Params{Page: 1, PerPage: 20})
	assert.Equal(t, gateway.Empty, res.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}
