package repository

import (
	"context"
	"errors"
	"fmt"

	"zoning_portal_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
)

const paymentNotFoundMsg = "payment not found"

const paymentColumns = `
	id, request_id, application_id, amount::text, payment_method, receipt_file_path, payment_date,
	payment_status, verified_by, verified_at, rejection_reason, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var amount string
	if err := row.Scan(
		&p.ID, &p.RequestID, &p.ApplicationID, &amount, &p.PaymentMethod, &p.ReceiptFilePath, &p.PaymentDate,
		&p.PaymentStatus, &p.VerifiedBy, &p.VerifiedAt, &p.RejectionReason, &p.CreatedAt,
	); err != nil {
		return Payment{}, err
	}

	var err error
	if p.Amount, err = parseDecimal(amount); err != nil {
		return Payment{}, err
	}
	return p, nil
}

// CreatePayment inserts a pending payment.
func (r *Repo) CreatePayment(ctx context.Context, params CreatePaymentParams) (Payment, error) {
	query := `
		INSERT INTO payments (request_id, application_id, amount, payment_method, receipt_file_path, payment_date, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING` + paymentColumns

	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, query,
		params.RequestID, params.ApplicationID, toNumeric(params.Amount),
		params.PaymentMethod, params.ReceiptFilePath, params.PaymentDate,
	))
	if err != nil {
		return Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

// GetPayment retrieves a payment by id.
func (r *Repo) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT`+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, apperr.NotFound(paymentNotFoundMsg)
	}
	if err != nil {
		return Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// ListPaymentsByRequest returns the payments of a request, newest first.
func (r *Repo) ListPaymentsByRequest(ctx context.Context, requestID int64) ([]Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT`+paymentColumns+` FROM payments WHERE request_id = $1 ORDER BY id DESC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const decidePaymentQuery = `
	UPDATE payments
	SET payment_status = $2,
	    verified_by = $3,
	    verified_at = $4,
	    rejection_reason = $5
	WHERE id = $1 AND payment_status = 'pending'
	RETURNING` + paymentColumns

// DecidePayment applies a terminal decision only while the row is still
// pending, so two staff members racing on the same payment cannot both win.
func (r *Repo) DecidePayment(ctx context.Context, params DecidePaymentParams) (Payment, error) {
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, decidePaymentQuery,
		params.PaymentID, params.Status, params.DecidedBy, params.DecidedAt, params.RejectionReason,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetPayment(ctx, params.PaymentID); getErr != nil {
			return Payment{}, getErr
		}
		return Payment{}, apperr.Conflict("payment is no longer pending")
	}
	if err != nil {
		return Payment{}, fmt.Errorf("decide payment: %w", err)
	}
	return p, nil
}
