package assignment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"secret-santa-backend/internal/group"
)

// Repository handles assignment persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new assignment repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts all assignments of a draw and flips the group from
// drafting to drawn in the same transaction. The conditional status update
// rejects the whole batch when the group is no longer drafting, so a retried
// draw can never stack a second assignment set on top of a committed one.
func (r *Repository) CreateBatch(ctx context.Context, groupID int64, assignments []*Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE groups SET status = $2 WHERE id = $1 AND status = $3`,
		groupID, group.StatusDrawn, group.StatusDrafting,
	)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyDrawn
	}

	query := `
		INSERT INTO assignments (group_id, giver_id, recipient_id, token, reveal_url, view_count)
		VALUES ($1, $2, $3, $4, $5, 0)
	`

	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, query, a.GroupID, a.GiverID, a.RecipientID, a.Token, a.RevealURL); err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignments: %w", err)
	}

	return nil
}

// ListByGroup retrieves a group's assignments with participant names,
// in the order they were created
func (r *Repository) ListByGroup(ctx context.Context, groupID int64) ([]*DrawEntry, error) {
	query := `
		SELECT a.giver_id, g.name, rcpt.name, a.reveal_url, a.view_count, a.viewed_at
		FROM assignments a
		JOIN participants g ON a.giver_id = g.id
		JOIN participants rcpt ON a.recipient_id = rcpt.id
		WHERE a.group_id = $1
		ORDER BY a.id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var entries []*DrawEntry
	for rows.Next() {
		entry := &DrawEntry{}
		if err := rows.Scan(
			&entry.GiverID,
			&entry.GiverName,
			&entry.RecipientName,
			&entry.RevealURL,
			&entry.ViewCount,
			&entry.ViewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ListForDelivery retrieves what the dispatch pipeline needs for each giver,
// in assignment-creation order
func (r *Repository) ListForDelivery(ctx context.Context, groupID int64) ([]*DeliveryTarget, error) {
	query := `
		SELECT a.giver_id, g.name, g.phone, a.reveal_url
		FROM assignments a
		JOIN participants g ON a.giver_id = g.id
		WHERE a.group_id = $1
		ORDER BY a.id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery targets: %w", err)
	}
	defer rows.Close()

	var targets []*DeliveryTarget
	for rows.Next() {
		target := &DeliveryTarget{}
		if err := rows.Scan(
			&target.ParticipantID,
			&target.Name,
			&target.Phone,
			&target.RevealURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, nil
}

// Consume atomically burns a token. The conditional update and the name join
// run as one statement, so under concurrent calls for the same token exactly
// one caller gets a row back; everyone else gets (nil, nil) and must check
// the token's state separately.
func (r *Repository) Consume(ctx context.Context, token string) (*Reveal, error) {
	query := `
		WITH burned AS (
			UPDATE assignments
			SET view_count = view_count + 1, viewed_at = now()
			WHERE token = $1 AND view_count = 0
			RETURNING giver_id, recipient_id, viewed_at
		)
		SELECT g.name, rcpt.name, b.viewed_at
		FROM burned b
		JOIN participants g ON b.giver_id = g.id
		JOIN participants rcpt ON b.recipient_id = rcpt.id
	`

	reveal := &Reveal{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&reveal.GiverName,
		&reveal.RecipientName,
		&reveal.ViewedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	return reveal, nil
}

// GetTokenState reports whether a token exists and, if already viewed, when
func (r *Repository) GetTokenState(ctx context.Context, token string) (bool, *time.Time, error) {
	query := `SELECT viewed_at FROM assignments WHERE token = $1`

	var viewedAt *time.Time
	err := r.db.QueryRowContext(ctx, query, token).Scan(&viewedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("failed to get token state: %w", err)
	}

	return true, viewedAt, nil
}

// CountByGroup returns how many assignments a group has
func (r *Repository) CountByGroup(ctx context.Context, groupID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM assignments WHERE group_id = $1`
	if err := r.db.QueryRowContext(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// ClearByGroup discards all assignments of a group (admin reset path)
func (r *Repository) ClearByGroup(ctx context.Context, groupID int64) error {
	query := `DELETE FROM assignments WHERE group_id = $1`
	if _, err := r.db.ExecContext(ctx, query, groupID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	return nil
}
