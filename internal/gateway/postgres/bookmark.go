package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ToggleBookmark flips the presence of the (propertyID, userID) bookmark and
// reports the new state: true when now bookmarked, false when removed.
//
// The read-then-write sequence is not atomic against a concurrent toggle from
// the same user, so both legs collapse race outcomes into success: a unique
// violation on insert means a concurrent call already created the row ("now
// present"), and zero rows affected on delete means it is already gone ("now
// absent"). The backend's uniqueness constraint on (user_id, property_id)
// arbitrates.
func (g *Gateway) ToggleBookmark(ctx context.Context, propertyID, userID string) (bool, error) {
	const op = "toggle bookmark"

	var id string
	err := g.db.QueryRow(ctx,
		`SELECT id FROM bookmarks WHERE property_id = $1 AND user_id = $2`,
		propertyID, userID,
	).Scan(&id)

	switch {
	case err == nil:
		ct, err := g.db.Exec(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
		if err != nil {
			return false, classify(op, err)
		}
		if ct.RowsAffected() == 0 {
			g.logger.DebugContext(ctx, "bookmark already removed by concurrent toggle",
				slog.String("property_id", propertyID),
				slog.String("user_id", userID),
			)
		}
		return false, nil

	case errors.Is(err, pgx.ErrNoRows):
		_, err := g.db.Exec(ctx,
			`INSERT INTO bookmarks (id, user_id, property_id, created_at) VALUES ($1, $2, $3, $4)`,
			uuid.New().String(), userID, propertyID, time.Now().UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				g.logger.DebugContext(ctx, "bookmark already created by concurrent toggle",
					slog.String("property_id", propertyID),
					slog.String("user_id", userID),
				)
				return true, nil
			}
			return false, classify(op, err)
		}
		return true, nil

	default:
		return false, classify(op, err)
	}
}
