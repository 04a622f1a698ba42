package dispatch

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles the append-only delivery audit log
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new dispatch repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateRecord appends one delivery attempt to the audit log
func (r *Repository) CreateRecord(ctx context.Context, groupID, participantID int64, status, rawResponse string) (*DeliveryRecord, error) {
	query := `
		INSERT INTO delivery_records (group_id, participant_id, status, raw_response)
		VALUES ($1, $2, $3, $4)
		RETURNING id, group_id, participant_id, status, raw_response, attempted_at
	`

	record := &DeliveryRecord{}
	err := r.db.QueryRowContext(ctx, query, groupID, participantID, status, rawResponse).Scan(
		&record.ID,
		&record.GroupID,
		&record.ParticipantID,
		&record.Status,
		&record.RawResponse,
		&record.AttemptedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery record: %w", err)
	}

	return record, nil
}

// ListByGroup retrieves a group's delivery attempts, newest first
func (r *Repository) ListByGroup(ctx context.Context, groupID int64) ([]*DeliveryRecord, error) {
	query := `
		SELECT d.id, d.group_id, d.participant_id, d.status, d.raw_response, d.attempted_at, p.name
		FROM delivery_records d
		JOIN participants p ON d.participant_id = p.id
		WHERE d.group_id = $1
		ORDER BY d.attempted_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	defer rows.Close()

	var records []*DeliveryRecord
	for rows.Next() {
		record := &DeliveryRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.GroupID,
			&record.ParticipantID,
			&record.Status,
			&record.RawResponse,
			&record.AttemptedAt,
			&record.ParticipantName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}
