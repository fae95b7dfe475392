package repository

import (
	"context"
	"errors"
	"fmt"

	"zoning_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
)

// GetUser retrieves an account by id.
func (r *Repo) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, email, role FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
