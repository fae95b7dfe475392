package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"zoning_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
)

const (
	requestNotFoundMsg     = "request not found"
	projectNotFoundMsg     = "project not found"
	applicationNotFoundMsg = "application not found"
)

const requestColumns = `
	id, user_id, application_id, applicant_name, applicant_address, contact_number,
	corporation_name, project_type, project_nature, project_location,
	lot_area_sqm::text, project_cost::text, status, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var lotArea, cost string
	if err := row.Scan(
		&req.ID, &req.UserID, &req.ApplicationID, &req.ApplicantName, &req.ApplicantAddress, &req.ContactNumber,
		&req.CorporationName, &req.ProjectType, &req.ProjectNature, &req.ProjectLocation,
		&lotArea, &cost, &req.Status, &req.CreatedAt,
	); err != nil {
		return Request{}, err
	}

	var err error
	if req.LotAreaSqm, err = parseDecimal(lotArea); err != nil {
		return Request{}, err
	}
	if req.ProjectCost, err = parseDecimal(cost); err != nil {
		return Request{}, err
	}
	return req, nil
}

func collectRequests(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()
	requests := make([]Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// CreateRequest inserts a pending request.
func (r *Repo) CreateRequest(ctx context.Context, params CreateRequestParams) (Request, error) {
	query := `
		INSERT INTO requests (
			user_id, application_id, applicant_name, applicant_address, contact_number,
			corporation_name, project_type, project_nature, project_location,
			lot_area_sqm, project_cost, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending')
		RETURNING` + requestColumns

	req, err := scanRequest(r.conn(ctx).QueryRow(ctx, query,
		params.UserID, params.ApplicationID, params.ApplicantName, params.ApplicantAddress, params.ContactNumber,
		params.CorporationName, params.ProjectType, params.ProjectNature, params.ProjectLocation,
		toNumeric(params.LotAreaSqm), toNumeric(params.ProjectCost),
	))
	if err != nil {
		return Request{}, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// GetRequest retrieves a request by id.
func (r *Repo) GetRequest(ctx context.Context, id int64) (Request, error) {
	query := `SELECT` + requestColumns + ` FROM requests WHERE id = $1`

	req, err := scanRequest(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, apperr.NotFound(requestNotFoundMsg)
	}
	if err != nil {
		return Request{}, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ListRequests returns requests newest first.
func (r *Repo) ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error) {
	query := `
		SELECT` + requestColumns + `
		FROM requests
		WHERE ($1::bigint IS NULL OR user_id = $1)
		  AND ($2::text = '' OR applicant_name ILIKE $2 OR applicant_address ILIKE $2 OR project_location ILIKE $2)
		ORDER BY created_at DESC, id DESC`

	search := ""
	if term := strings.TrimSpace(filter.Search); term != "" {
		search = "%" + term + "%"
	}

	rows, err := r.conn(ctx).Query(ctx, query, filter.UserID, search)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	requests, err := collectRequests(rows)
	if err != nil {
		return nil, fmt.Errorf("scan requests: %w", err)
	}
	return requests, nil
}

// ListRequestsByIDs returns the requests among ids that exist, ordered by id.
func (r *Repo) ListRequestsByIDs(ctx context.Context, ids []int64) ([]Request, error) {
	query := `SELECT` + requestColumns + ` FROM requests WHERE id = ANY($1) ORDER BY id`

	rows, err := r.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list requests by ids: %w", err)
	}
	requests, err := collectRequests(rows)
	if err != nil {
		return nil, fmt.Errorf("scan requests: %w", err)
	}
	return requests, nil
}

// ListRequestsByApplicant returns requests sharing an applicant name and
// address, newest first.
func (r *Repo) ListRequestsByApplicant(ctx context.Context, applicantName, applicantAddress string) ([]Request, error) {
	query := `
		SELECT` + requestColumns + `
		FROM requests
		WHERE applicant_name = $1 AND applicant_address = $2
		ORDER BY id DESC`

	rows, err := r.conn(ctx).Query(ctx, query, applicantName, applicantAddress)
	if err != nil {
		return nil, fmt.Errorf("list requests by applicant: %w", err)
	}
	requests, err := collectRequests(rows)
	if err != nil {
		return nil, fmt.Errorf("scan requests: %w", err)
	}
	return requests, nil
}

// DeleteRequest removes a request row.
func (r *Repo) DeleteRequest(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(requestNotFoundMsg)
	}
	return nil
}

// FindOrCreateCorporation returns the corporation with the given name, creating it if needed.
func (r *Repo) FindOrCreateCorporation(ctx context.Context, name string) (Corporation, error) {
	query := `
		INSERT INTO corporations (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`

	var corp Corporation
	if err := r.conn(ctx).QueryRow(ctx, query, name).Scan(&corp.ID, &corp.Name); err != nil {
		return Corporation{}, fmt.Errorf("find or create corporation: %w", err)
	}
	return corp, nil
}

// CreateProject inserts a project.
func (r *Repo) CreateProject(ctx context.Context, params CreateProjectParams) (Project, error) {
	query := `
		INSERT INTO projects (project_type, project_nature, project_location, lot_area_sqm, project_cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	project := Project{
		ProjectType:     params.ProjectType,
		ProjectNature:   params.ProjectNature,
		ProjectLocation: params.ProjectLocation,
		LotAreaSqm:      params.LotAreaSqm,
		ProjectCost:     params.ProjectCost,
	}
	err := r.conn(ctx).QueryRow(ctx, query,
		params.ProjectType, params.ProjectNature, params.ProjectLocation,
		toNumeric(params.LotAreaSqm), toNumeric(params.ProjectCost),
	).Scan(&project.ID)
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// GetProject retrieves a project by id.
func (r *Repo) GetProject(ctx context.Context, id int64) (Project, error) {
	query := `
		SELECT id, project_type, project_nature, project_location, lot_area_sqm::text, project_cost::text
		FROM projects WHERE id = $1`

	var p Project
	var lotArea, cost string
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ProjectType, &p.ProjectNature, &p.ProjectLocation, &lotArea, &cost,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, apperr.NotFound(projectNotFoundMsg)
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	if p.LotAreaSqm, err = parseDecimal(lotArea); err != nil {
		return Project{}, err
	}
	if p.ProjectCost, err = parseDecimal(cost); err != nil {
		return Project{}, err
	}
	return p, nil
}
