package group

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles group and participant persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new group in drafting status
func (r *Repository) Create(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	query := `
		INSERT INTO groups (name, description, status)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, status, created_at
	`

	group := &Group{}
	err := r.db.QueryRowContext(ctx, query, req.Name, req.Description, StatusDrafting).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.Status,
		&group.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `
		SELECT id, name, description, status, created_at
		FROM groups
		WHERE id = $1
	`

	group := &Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.Status,
		&group.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// List retrieves all groups, newest first
func (r *Repository) List(ctx context.Context) ([]*Group, error) {
	query := `
		SELECT id, name, description, status, created_at
		FROM groups
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group := &Group{}
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.Description,
			&group.Status,
			&group.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// Update modifies a group's name and description
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	query := `
		UPDATE groups
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description)
		WHERE id = $1
		RETURNING id, name, description, status, created_at
	`

	group := &Group{}
	err := r.db.QueryRowContext(ctx, query, id, req.Name, req.Description).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.Status,
		&group.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	return group, nil
}

// UpdateStatus moves a group to a new lifecycle status
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	query := `UPDATE groups SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrGroupNotFound
	}

	return nil
}

// Delete removes a group; participants and assignments cascade
func (r *Repository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM groups WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrGroupNotFound
	}

	return nil
}

// AddParticipant adds a person to a group
func (r *Repository) AddParticipant(ctx context.Context, groupID int64, name, phone string) (*Participant, error) {
	query := `
		INSERT INTO participants (group_id, name, phone)
		VALUES ($1, $2, $3)
		RETURNING id, group_id, name, phone, created_at
	`

	participant := &Participant{}
	err := r.db.QueryRowContext(ctx, query, groupID, name, phone).Scan(
		&participant.ID,
		&participant.GroupID,
		&participant.Name,
		&participant.Phone,
		&participant.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	return participant, nil
}

// GetParticipants retrieves all participants of a group
func (r *Repository) GetParticipants(ctx context.Context, groupID int64) ([]*Participant, error) {
	query := `
		SELECT id, group_id, name, phone, created_at
		FROM participants
		WHERE group_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		participant := &Participant{}
		if err := rows.Scan(
			&participant.ID,
			&participant.GroupID,
			&participant.Name,
			&participant.Phone,
			&participant.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, participant)
	}

	return participants, nil
}

// GetParticipant retrieves a single participant of a group
func (r *Repository) GetParticipant(ctx context.Context, groupID, participantID int64) (*Participant, error) {
	query := `
		SELECT id, group_id, name, phone, created_at
		FROM participants
		WHERE group_id = $1 AND id = $2
	`

	participant := &Participant{}
	err := r.db.QueryRowContext(ctx, query, groupID, participantID).Scan(
		&participant.ID,
		&participant.GroupID,
		&participant.Name,
		&participant.Phone,
		&participant.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return participant, nil
}

// UpdateParticipant modifies a participant's name and phone
func (r *Repository) UpdateParticipant(ctx context.Context, groupID, participantID int64, name, phone string) (*Participant, error) {
	query := `
		UPDATE participants
		SET name = $3, phone = $4
		WHERE group_id = $1 AND id = $2
		RETURNING id, group_id, name, phone, created_at
	`

	participant := &Participant{}
	err := r.db.QueryRowContext(ctx, query, groupID, participantID, name, phone).Scan(
		&participant.ID,
		&participant.GroupID,
		&participant.Name,
		&participant.Phone,
		&participant.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update participant: %w", err)
	}

	return participant, nil
}

// RemoveParticipant removes a person from a group
func (r *Repository) RemoveParticipant(ctx context.Context, groupID, participantID int64) error {
	query := `DELETE FROM participants WHERE group_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, groupID, participantID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrParticipantNotFound
	}

	return nil
}
