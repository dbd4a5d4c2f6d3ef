// errors.go defines sentinel errors and Postgres error translation shared by
// the repositories.
package repositories

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateSlug is returned when an insert or update collides with an
// existing slug. Handlers translate it into a form validation error or a
// 409 response instead of a bare 500.
var ErrDuplicateSlug = errors.New("slug already exists")

// ErrDuplicateUsername is returned when an admin user insert or update
// collides with an existing username.
var ErrDuplicateUsername = errors.New("username already exists")

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
