package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/farookquisar/restate-client/internal/domain"
	"github.com/farookquisar/restate-client/internal/gateway"
	"github.com/farookquisar/restate-client/pkg/database"
	"github.com/farookquisar/restate-client/pkg/pagination"
	"github.com/farookquisar/restate-client/pkg/remoteerrors"
	"github.com/farookquisar/restate-client/pkg/validator"
)

const propertyColumns = `id, title, description, price, location, address, bedrooms, bathrooms, area, category, status, features, images, created_at, updated_at`

// ListLatest returns up to limit properties ordered newest-first, each with
// its derived average rating.
func (g *Gateway) ListLatest(ctx context.Context, limit int) gateway.Result[[]domain.Property] {
	const op = "list latest properties"

	query := fmt.Sprintf(`
		SELECT %s
		FROM properties
		ORDER BY created_at DESC
		LIMIT $1`, propertyColumns)

	qctx, end := database.TraceQuery(ctx, "ListLatest", query)
	rows, err := g.db.Query(qctx, query, limit)
	end(err)
	if err != nil {
		return gateway.Fail[[]domain.Property](classify(op, err))
	}

	props, err := g.collectProperties(ctx, rows, op)
	if err != nil {
		return gateway.Fail[[]domain.Property](err)
	}
	if len(props) == 0 {
		return gateway.None[[]domain.Property]()
	}
	return gateway.Ok(props)
}

// Search returns properties matching params. The substring match is
// case-insensitive and OR-combined over title, description and location;
// the category filter is an exact match; each predicate is omitted when its
// parameter is absent.
func (g *Gateway) Search(ctx context.Context, params gateway.SearchParams) gateway.Result[[]domain.Property] {
	const op = "search properties"

	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if params.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR location ILIKE $%d)",
			argIndex, argIndex, argIndex))
		args = append(args, "%"+params.Query+"%")
		argIndex++
	}

	if params.Filter != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, string(*params.Filter))
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limitClause := ""
	if params.Limit > 0 {
		limitClause = fmt.Sprintf("LIMIT $%d", argIndex)
		args = append(args, params.Limit)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM properties
		%s
		%s`, propertyColumns, whereClause, limitClause)

	qctx, end := database.TraceQuery(ctx, "Search", query)
	rows, err := g.db.Query(qctx, query, args...)
	end(err)
	if err != nil {
		return gateway.Fail[[]domain.Property](classify(op, err))
	}

	props, err := g.collectProperties(ctx, rows, op)
	if err != nil {
		return gateway.Fail[[]domain.Property](err)
	}
	if len(props) == 0 {
		return gateway.None[[]domain.Property]()
	}
	return gateway.Ok(props)
}

// GetByID returns exactly one property with its full nested review set.
// Anything other than a single matching row, including duplicates, resolves
// to a not-found failure.
func (g *Gateway) GetByID(ctx context.Context, id string) gateway.Result[domain.Property] {
	const op = "get property by id"

	query := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE id = $1
		LIMIT 2`, propertyColumns)

	qctx, end := database.TraceQuery(ctx, "GetByID", query)
	rows, err := g.db.Query(qctx, query, id)
	end(err)
	if err != nil {
		return gateway.Fail[domain.Property](classify(op, err))
	}

	var (
		p     domain.Property
		count int
	)
	for rows.Next() {
		if count == 0 {
			p, err = scanProperty(rows)
			if err != nil {
				rows.Close()
				return gateway.Fail[domain.Property](classify(op,
					fmt.Errorf("scan property row: %w", err)))
			}
		}
		count++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return gateway.Fail[domain.Property](classify(op, err))
	}
	if count != 1 {
		return gateway.Fail[domain.Property](remoteerrors.NotFound(op,
			fmt.Errorf("want one row for id %q, got %d", id, count)))
	}

	if err := validator.Validate(&p); err != nil {
		return gateway.Fail[domain.Property](remoteerrors.Transport(op,
			fmt.Errorf("row failed shape validation: %w", err)))
	}

	reviews := g.ListReviews(ctx, id)
	if reviews.Outcome == gateway.Failed {
		return gateway.Fail[domain.Property](reviews.Err)
	}
	p.Reviews = reviews.Value
	p = domain.WithAverageRating(p, domain.Ratings(p.Reviews))

	return gateway.Ok(p)
}

// ListBookmarked returns the page of properties the user has saved, most
// recently bookmarked first.
func (g *Gateway) ListBookmarked(ctx context.Context, userID string, page pagination.Params) gateway.Result[[]domain.Property] {
	const op = "list bookmarked properties"

	page = page.Normalize()

	query := fmt.Sprintf(`
		SELECT %s
		FROM properties p
		JOIN bookmarks b ON b.property_id = p.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3`, qualifiedPropertyColumns("p"))

	qctx, end := database.TraceQuery(ctx, "ListBookmarked", query)
	rows, err := g.db.Query(qctx, query, userID, page.PerPage, page.Offset())
	end(err)
	if err != nil {
		return gateway.Fail[[]domain.Property](classify(op, err))
	}

	props, err := g.collectProperties(ctx, rows, op)
	if err != nil {
		return gateway.Fail[[]domain.Property](err)
	}
	if len(props) == 0 {
		return gateway.None[[]domain.Property]()
	}
	return gateway.Ok(props)
}

func qualifiedPropertyColumns(alias string) string {
	cols := strings.Split(propertyColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// collectProperties drains rows into validated Property values and attaches
// the derived average rating. Rows failing shape validation are quarantined
// (logged and dropped) rather than propagated.
func (g *Gateway) collectProperties(ctx context.Context, rows pgx.Rows, op string) ([]domain.Property, error) {
	defer rows.Close()

	var props []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, classify(op, fmt.Errorf("scan property row: %w", err))
		}

		if err := validator.Validate(&p); err != nil {
			g.logger.WarnContext(ctx, "quarantined property row failing shape validation",
				slog.String("op", op),
				slog.String("property_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, fmt.Errorf("iterate property rows: %w", err))
	}

	if err := g.attachRatings(ctx, props, op); err != nil {
		return nil, err
	}

	return props, nil
}

// attachRatings loads the rating sets for the given properties in one query
// and applies the shared aggregation to each.
func (g *Gateway) attachRatings(ctx context.Context, props []domain.Property, op string) error {
	if len(props) == 0 {
		return nil
	}

	ids := make([]string, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}

	rows, err := g.db.Query(ctx,
		`SELECT property_id, rating FROM reviews WHERE property_id = ANY($1)`, ids)
	if err != nil {
		return classify(op, fmt.Errorf("load ratings: %w", err))
	}
	defer rows.Close()

	ratings := make(map[string][]int, len(props))
	for rows.Next() {
		var (
			propertyID string
			rating     int
		)
		if err := rows.Scan(&propertyID, &rating); err != nil {
			return classify(op, fmt.Errorf("scan rating row: %w", err))
		}
		ratings[propertyID] = append(ratings[propertyID], rating)
	}
	if err := rows.Err(); err != nil {
		return classify(op, fmt.Errorf("iterate rating rows: %w", err))
	}

	for i, p := range props {
		props[i] = domain.WithAverageRating(p, ratings[p.ID])
	}

	return nil
}

func scanProperty(row pgx.Row) (domain.Property, error) {
	var (
		p            domain.Property
		featuresJSON []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Location,
		&p.Address,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.Area,
		&p.Category,
		&p.Status,
		&featuresJSON,
		&p.Images,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Property{}, err
	}

	if featuresJSON != nil {
		var f domain.Features
		if err := json.Unmarshal(featuresJSON, &f); err != nil {
			return domain.Property{}, fmt.Errorf("unmarshal features: %w", err)
		}
		p.Features = &f
	}

	return p, nil
}
