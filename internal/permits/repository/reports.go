package repository

import (
	"context"
	"errors"
	"fmt"

	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
)

const reportNotFoundMsg = "report not found"

const reportColumns = `
	id, app_id, evaluation, description, amount::text, date_certified, date_reported, issued_by,
	COALESCE(workflow_status, '')`

func scanReport(row pgx.Row) (Report, error) {
	var rep Report
	var amount *string
	if err := row.Scan(
		&rep.ID, &rep.AppID, &rep.Evaluation, &rep.Description, &amount,
		&rep.DateCertified, &rep.DateReported, &rep.IssuedBy, &rep.WorkflowStatus,
	); err != nil {
		return Report{}, err
	}

	var err error
	if rep.Amount, err = parseNullableDecimal(amount); err != nil {
		return Report{}, err
	}
	return rep, nil
}

func (r *Repo) getReport(ctx context.Context, query string, arg int64) (Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, apperr.NotFound(reportNotFoundMsg)
	}
	if err != nil {
		return Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

// CreateReport inserts the pending report for a new application.
func (r *Repo) CreateReport(ctx context.Context, appID int64) (Report, error) {
	query := `
		INSERT INTO reports (app_id, evaluation) VALUES ($1, 'pending')
		RETURNING` + reportColumns

	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, query, appID))
	if err != nil {
		return Report{}, fmt.Errorf("create report: %w", err)
	}
	return rep, nil
}

// GetReport retrieves a report by id.
func (r *Repo) GetReport(ctx context.Context, id int64) (Report, error) {
	return r.getReport(ctx, `SELECT`+reportColumns+` FROM reports WHERE id = $1`, id)
}

// GetReportForUpdate retrieves a report and locks its row for the enclosing transaction.
func (r *Repo) GetReportForUpdate(ctx context.Context, id int64) (Report, error) {
	return r.getReport(ctx, `SELECT`+reportColumns+` FROM reports WHERE id = $1 FOR UPDATE`, id)
}

// GetReportByApplication retrieves the report of an application.
func (r *Repo) GetReportByApplication(ctx context.Context, appID int64) (Report, error) {
	return r.getReport(ctx, `SELECT`+reportColumns+` FROM reports WHERE app_id = $1 ORDER BY id DESC LIMIT 1`, appID)
}

// ListReportsByApplicationIDs loads the reports of many applications in one query.
func (r *Repo) ListReportsByApplicationIDs(ctx context.Context, appIDs []int64) ([]Report, error) {
	if len(appIDs) == 0 {
		return []Report{}, nil
	}

	query := `SELECT` + reportColumns + ` FROM reports WHERE app_id = ANY($1) ORDER BY id`

	rows, err := r.conn(ctx).Query(ctx, query, appIDs)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// UpdateEvaluation records a staff decision. Optional fields left nil keep
// their stored value.
func (r *Repo) UpdateEvaluation(ctx context.Context, params UpdateEvaluationParams) (Report, error) {
	query := `
		UPDATE reports
		SET evaluation = $2,
		    date_reported = $3,
		    issued_by = $4,
		    description = COALESCE($5, description),
		    amount = COALESCE($6, amount),
		    date_certified = COALESCE($7, date_certified)
		WHERE id = $1
		RETURNING` + reportColumns

	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, query,
		params.ReportID, params.Evaluation, params.DateReported, params.IssuedBy,
		params.Description, toNullableNumeric(params.Amount), params.DateCertified,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, apperr.NotFound(reportNotFoundMsg)
	}
	if err != nil {
		return Report{}, fmt.Errorf("update evaluation: %w", err)
	}
	return rep, nil
}

// SetWorkflowStatus writes the progress marker. Callers decide the forward-only rule.
func (r *Repo) SetWorkflowStatus(ctx context.Context, reportID int64, status workflow.WorkflowStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE reports SET workflow_status = NULLIF($2, '') WHERE id = $1`, reportID, string(status))
	if err != nil {
		return fmt.Errorf("set workflow status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(reportNotFoundMsg)
	}
	return nil
}
