package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"secret-santa-backend/internal/assignment"
	"secret-santa-backend/internal/group"
)

// Common errors
var (
	ErrGroupNotDrawn = errors.New("the draw must be performed before dispatching")
	ErrNoAssignments = errors.New("group has no assignments to dispatch")
	ErrJobNotFound   = errors.New("job not found")
)

// AssignmentStore is the slice of the assignment repository dispatch needs
type AssignmentStore interface {
	ListForDelivery(ctx context.Context, groupID int64) ([]*assignment.DeliveryTarget, error)
}

// GroupStore is the slice of the group repository dispatch needs
type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*group.Group, error)
	UpdateStatus(ctx context.Context, id int64, status group.Status) error
}

// RecordLister reads the delivery audit log
type RecordLister interface {
	ListByGroup(ctx context.Context, groupID int64) ([]*DeliveryRecord, error)
}

// Service schedules delivery batches and answers job/record queries
type Service struct {
	queue       Queue
	pacer       *Pacer
	assignments AssignmentStore
	groups      GroupStore
	records     RecordLister
	maxAttempts int
}

// NewService creates a new dispatch service
func NewService(queue Queue, pacer *Pacer, assignments AssignmentStore, groups GroupStore, records RecordLister, maxAttempts int) *Service {
	return &Service{
		queue:       queue,
		pacer:       pacer,
		assignments: assignments,
		groups:      groups,
		records:     records,
		maxAttempts: maxAttempts,
	}
}

// DispatchGroup enqueues one delivery job per assignment and flips the group
// to dispatched. The triggering request never waits on any send: delivery
// outcomes are visible only through job and record queries.
func (s *Service) DispatchGroup(ctx context.Context, groupID int64) (*Batch, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}
	if g.Status != group.StatusDrawn {
		return nil, fmt.Errorf("%w (group is %s)", ErrGroupNotDrawn, g.Status)
	}

	targets, err := s.assignments.ListForDelivery(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoAssignments
	}

	batch := &Batch{
		ID:      uuid.NewString(),
		GroupID: groupID,
	}

	now := time.Now()
	for i, target := range targets {
		payload, err := json.Marshal(&DeliveryPayload{
			GroupID:       groupID,
			ParticipantID: target.ParticipantID,
			Name:          target.Name,
			Phone:         target.Phone,
			Message:       buildRevealMessage(g.Name, target.Name, target.RevealURL),
			LinkPreview:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal job payload: %w", err)
		}

		job := &Job{
			// group+participant+timestamp keys the job so a double dispatch
			// of the same logical batch cannot enqueue duplicates
			ID:          fmt.Sprintf("delivery-%d-%d-%d", groupID, target.ParticipantID, now.UnixMilli()),
			Kind:        JobKindSendMessage,
			Payload:     payload,
			MaxAttempts: s.maxAttempts,
		}

		delay := s.pacer.Delay(i)
		created, err := s.queue.Enqueue(ctx, job, delay)
		if err != nil {
			return nil, err
		}
		if !created {
			log.Printf("[dispatch] job %s already enqueued, skipping", job.ID)
			continue
		}

		batch.Jobs = append(batch.Jobs, &ScheduledJob{
			JobID:        job.ID,
			Participant:  target.Name,
			DelaySeconds: delay.Seconds(),
		})
	}

	// Dispatched means "all jobs enqueued", not "all messages delivered"
	if err := s.groups.UpdateStatus(ctx, groupID, group.StatusDispatched); err != nil {
		return nil, err
	}

	return batch, nil
}

// GetJob retrieves a delivery job's status, attempts and last result
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListDeliveries retrieves a group's delivery audit log
func (s *Service) ListDeliveries(ctx context.Context, groupID int64) ([]*DeliveryRecord, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}

	return s.records.ListByGroup(ctx, groupID)
}
