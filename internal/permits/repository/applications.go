package repository

import (
	"context"
	"errors"
	"fmt"

	"zoning_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
)

const applicationColumns = `
	id, corp_id, project_id, applicant_name, applicant_address, authorization_letter_path, created_at`

func scanApplication(row pgx.Row) (Application, error) {
	var app Application
	err := row.Scan(
		&app.ID, &app.CorpID, &app.ProjectID, &app.ApplicantName, &app.ApplicantAddress,
		&app.AuthorizationLetterPath, &app.CreatedAt,
	)
	return app, err
}

func collectApplications(rows pgx.Rows) ([]Application, error) {
	defer rows.Close()
	apps := make([]Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// CreateApplication inserts an application.
func (r *Repo) CreateApplication(ctx context.Context, params CreateApplicationParams) (Application, error) {
	query := `
		INSERT INTO applications (corp_id, project_id, applicant_name, applicant_address, authorization_letter_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING` + applicationColumns

	app, err := scanApplication(r.conn(ctx).QueryRow(ctx, query,
		params.CorpID, params.ProjectID, params.ApplicantName, params.ApplicantAddress, params.AuthorizationLetterPath,
	))
	if err != nil {
		return Application{}, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

// GetApplication retrieves an application by id.
func (r *Repo) GetApplication(ctx context.Context, id int64) (Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, apperr.NotFound(applicationNotFoundMsg)
	}
	if err != nil {
		return Application{}, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

const applicationsByKeysQuery = `
	SELECT` + applicationColumns + `
	FROM applications
	WHERE (applicant_name || '|' || applicant_address) = ANY($1)
	ORDER BY id`

// ListApplicationsByKeys loads every application matching one of the composite
// keys in a single query. Rows are ordered by id so callers that index them
// keep the newest application per key.
func (r *Repo) ListApplicationsByKeys(ctx context.Context, keys []string) ([]Application, error) {
	if len(keys) == 0 {
		return []Application{}, nil
	}

	rows, err := r.conn(ctx).Query(ctx, applicationsByKeysQuery, keys)
	if err != nil {
		return nil, fmt.Errorf("list applications by keys: %w", err)
	}
	apps, err := collectApplications(rows)
	if err != nil {
		return nil, fmt.Errorf("scan applications: %w", err)
	}
	return apps, nil
}

// ListApplicationsByIDs loads applications by id, ordered by id.
func (r *Repo) ListApplicationsByIDs(ctx context.Context, ids []int64) ([]Application, error) {
	if len(ids) == 0 {
		return []Application{}, nil
	}

	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = ANY($1) ORDER BY id`

	rows, err := r.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list applications by ids: %w", err)
	}
	apps, err := collectApplications(rows)
	if err != nil {
		return nil, fmt.Errorf("scan applications: %w", err)
	}
	return apps, nil
}

// ListApplications returns every application ordered by id.
func (r *Repo) ListApplications(ctx context.Context) ([]Application, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT`+applicationColumns+` FROM applications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	apps, err := collectApplications(rows)
	if err != nil {
		return nil, fmt.Errorf("scan applications: %w", err)
	}
	return apps, nil
}

// DeleteApplication removes an application. Its report goes with it through
// the foreign key cascade.
func (r *Repo) DeleteApplication(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(applicationNotFoundMsg)
	}
	return nil
}
