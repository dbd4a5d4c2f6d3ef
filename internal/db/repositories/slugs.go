// slugs.go provides the uniqueness probe slug generation runs against the
// database, shared by the three entity repositories.
package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/telemetry"
)

// slugTaken returns a probe for slug.Generate that checks whether a candidate
// is already used in table. exclude skips one row, so updates do not collide
// with themselves.
func slugTaken(q sqlx.ExtContext, table string, exclude *uuid.UUID) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, candidate string) (bool, error) {
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE slug = $1)`, table)
		args := []interface{}{candidate}
		if exclude != nil {
			query = fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE slug = $1 AND id <> $2)`, table)
			args = append(args, *exclude)
		}

		var exists bool
		if err := sqlx.GetContext(ctx, q, &exists, query, args...); err != nil {
			return false, err
		}
		if exists {
			telemetry.SlugCollisionsTotal.WithLabelValues(table).Inc()
		}
		return exists, nil
	}
}
