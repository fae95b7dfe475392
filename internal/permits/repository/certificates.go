package repository

import (
	"context"
	"errors"
	"fmt"

	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
)

const (
	certificateNotFoundMsg = "certificate not found"

	constraintCertificatePayment = "certificates_payment_id_key"
	constraintCertificateNumber  = "certificates_certificate_number_key"
)

const certificateColumns = `
	id, request_id, application_id, payment_id, certificate_number, certificate_file_path,
	status, issued_at, valid_until`

func scanCertificate(row pgx.Row) (Certificate, error) {
	var c Certificate
	err := row.Scan(
		&c.ID, &c.RequestID, &c.ApplicationID, &c.PaymentID, &c.CertificateNumber, &c.CertificateFilePath,
		&c.Status, &c.IssuedAt, &c.ValidUntil,
	)
	return c, err
}

func (r *Repo) getCertificate(ctx context.Context, query string, arg int64) (Certificate, error) {
	c, err := scanCertificate(r.conn(ctx).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Certificate{}, apperr.NotFound(certificateNotFoundMsg)
	}
	if err != nil {
		return Certificate{}, fmt.Errorf("get certificate: %w", err)
	}
	return c, nil
}

const nextCertificateSequenceQuery = `
	INSERT INTO certificate_counters (year, last_number)
	VALUES ($1, 1)
	ON CONFLICT (year) DO UPDATE SET last_number = certificate_counters.last_number + 1
	RETURNING last_number`

// NextCertificateSequence atomically increments the per-year counter.
// Concurrent issuers never observe the same value.
func (r *Repo) NextCertificateSequence(ctx context.Context, year int) (int, error) {
	var next int
	if err := r.conn(ctx).QueryRow(ctx, nextCertificateSequenceQuery, year).Scan(&next); err != nil {
		return 0, fmt.Errorf("next certificate sequence: %w", err)
	}
	return next, nil
}

// CreateCertificate inserts a generated certificate.
func (r *Repo) CreateCertificate(ctx context.Context, params CreateCertificateParams) (Certificate, error) {
	query := `
		INSERT INTO certificates (
			request_id, application_id, payment_id, certificate_number, certificate_file_path,
			status, issued_at, valid_until
		) VALUES ($1, $2, $3, $4, $5, 'generated', $6, $7)
		RETURNING` + certificateColumns

	c, err := scanCertificate(r.conn(ctx).QueryRow(ctx, query,
		params.RequestID, params.ApplicationID, params.PaymentID, params.CertificateNumber,
		params.CertificateFilePath, params.IssuedAt, params.ValidUntil,
	))
	if err != nil {
		if isUniqueViolation(err, constraintCertificatePayment) {
			return Certificate{}, apperr.Conflict("certificate already issued for this payment")
		}
		if isUniqueViolation(err, constraintCertificateNumber) {
			return Certificate{}, apperr.Conflict("certificate number already in use")
		}
		return Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	return c, nil
}

// GetCertificate retrieves a certificate by id.
func (r *Repo) GetCertificate(ctx context.Context, id int64) (Certificate, error) {
	return r.getCertificate(ctx, `SELECT`+certificateColumns+` FROM certificates WHERE id = $1`, id)
}

const certificateForUpdateQuery = `SELECT` + certificateColumns + ` FROM certificates WHERE id = $1 FOR UPDATE`

// GetCertificateForUpdate retrieves a certificate and locks its row for the enclosing transaction.
func (r *Repo) GetCertificateForUpdate(ctx context.Context, id int64) (Certificate, error) {
	return r.getCertificate(ctx, certificateForUpdateQuery, id)
}

// GetCertificateByPayment retrieves the certificate issued for a payment.
func (r *Repo) GetCertificateByPayment(ctx context.Context, paymentID int64) (Certificate, error) {
	return r.getCertificate(ctx, `SELECT`+certificateColumns+` FROM certificates WHERE payment_id = $1`, paymentID)
}

// GetCertificateByRequest retrieves the latest certificate of a request.
func (r *Repo) GetCertificateByRequest(ctx context.Context, requestID int64) (Certificate, error) {
	return r.getCertificate(ctx, `SELECT`+certificateColumns+` FROM certificates WHERE request_id = $1 ORDER BY id DESC LIMIT 1`, requestID)
}

// UpdateCertificateStatus sets the certificate status.
func (r *Repo) UpdateCertificateStatus(ctx context.Context, id int64, status workflow.CertificateStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE certificates SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(certificateNotFoundMsg)
	}
	return nil
}
