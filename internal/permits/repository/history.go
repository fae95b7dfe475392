package repository

import (
	"context"
	"fmt"

	"zoning_portal_backend/internal/permits/workflow"
)

// AppendHistory inserts an audit row. There is no update or delete counterpart.
func (r *Repo) AppendHistory(ctx context.Context, params AppendHistoryParams) (StatusHistory, error) {
	query := `
		INSERT INTO status_history (entity_type, entity_id, old_status, new_status, changed_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, entity_type, entity_id, old_status, new_status, changed_by, notes, created_at`

	var h StatusHistory
	err := r.conn(ctx).QueryRow(ctx, query,
		params.EntityType, params.EntityID, params.OldStatus, params.NewStatus, params.ChangedBy, params.Notes, params.CreatedAt,
	).Scan(&h.ID, &h.EntityType, &h.EntityID, &h.OldStatus, &h.NewStatus, &h.ChangedBy, &h.Notes, &h.CreatedAt)
	if err != nil {
		return StatusHistory{}, fmt.Errorf("append status history: %w", err)
	}
	return h, nil
}

// ListHistory returns the audit trail of one entity, oldest first.
func (r *Repo) ListHistory(ctx context.Context, entityType workflow.EntityType, entityID int64) ([]StatusHistory, error) {
	query := `
		SELECT id, entity_type, entity_id, old_status, new_status, changed_by, notes, created_at
		FROM status_history
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id`

	rows, err := r.conn(ctx).Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	items := make([]StatusHistory, 0)
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.EntityType, &h.EntityID, &h.OldStatus, &h.NewStatus, &h.ChangedBy, &h.Notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
