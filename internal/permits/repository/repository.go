package repository

import (
	"context"
	"errors"
	"fmt"

	"zoning_portal_backend/platform/db"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Repo implements the Repository interface with PostgreSQL. Every method runs
// on the transaction carried by ctx when there is one.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new permits repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func (r *Repo) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}

func toNullableNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return toNumeric(*d)
}

// Numeric columns are selected as text and parsed here.
func parseDecimal(text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", text, err)
	}
	return d, nil
}

func parseNullableDecimal(text *string) (*decimal.Decimal, error) {
	if text == nil {
		return nil, nil
	}
	d, err := parseDecimal(*text)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
