package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farookquisar/restate-client/internal/domain"
	"github.com/farookquisar/restate-client/internal/gateway"
	"github.com/farookquisar/restate-client/pkg/database"
	"github.com/farookquisar/restate-client/pkg/validator"
)

// ListReviews returns all reviews for a property, newest first. A property
// with no reviews yields an Empty result; only transport failures fail.
func (g *Gateway) ListReviews(ctx context.Context, propertyID string) gateway.Result[[]domain.Review] {
	const op = "list property reviews"

	query := `
		SELECT id, property_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE property_id = $1
		ORDER BY created_at DESC`

	qctx, end := database.TraceQuery(ctx, "ListReviews", query)
	rows, err := g.db.Query(qctx, query, propertyID)
	end(err)
	if err != nil {
		return gateway.Fail[[]domain.Review](classify(op, err))
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(
			&r.ID,
			&r.PropertyID,
			&r.UserID,
			&r.Rating,
			&r.Comment,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return gateway.Fail[[]domain.Review](classify(op, fmt.Errorf("scan review row: %w", err)))
		}

		if err := validator.Validate(&r); err != nil {
			g.logger.WarnContext(ctx, "quarantined review row failing shape validation",
				slog.String("review_id", r.ID),
				slog.String("property_id", propertyID),
				slog.String("error", err.Error()),
			)
			continue
		}

		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return gateway.Fail[[]domain.Review](classify(op, fmt.Errorf("iterate review rows: %w", err)))
	}

	if len(reviews) == 0 {
		return gateway.None[[]domain.Review]()
	}
	return gateway.Ok(reviews)
}
