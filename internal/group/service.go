package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Common errors
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidPhone        = errors.New("invalid phone: use international format (country code + number)")
	ErrGroupLocked         = errors.New("participants can only be changed while the group is drafting")
)

// Store is the persistence surface the service needs
type Store interface {
	Create(ctx context.Context, req *CreateGroupRequest) (*Group, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	List(ctx context.Context) ([]*Group, error)
	Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	AddParticipant(ctx context.Context, groupID int64, name, phone string) (*Participant, error)
	GetParticipants(ctx context.Context, groupID int64) ([]*Participant, error)
	GetParticipant(ctx context.Context, groupID, participantID int64) (*Participant, error)
	UpdateParticipant(ctx context.Context, groupID, participantID int64, name, phone string) (*Participant, error)
	RemoveParticipant(ctx context.Context, groupID, participantID int64) error
}

// AssignmentClearer discards a group's assignments; implemented by the
// assignment repository and used by the admin reset path.
type AssignmentClearer interface {
	ClearByGroup(ctx context.Context, groupID int64) error
}

// Service handles group business logic
type Service struct {
	repo        Store
	assignments AssignmentClearer
}

// NewService creates a new group service
func NewService(repo Store, assignments AssignmentClearer) *Service {
	return &Service{repo: repo, assignments: assignments}
}

// Create creates a new group in drafting status
func (s *Service) Create(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	return s.repo.Create(ctx, req)
}

// GetByID retrieves a group by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Group, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// GetByIDWithParticipants retrieves a group with all its participants
func (s *Service) GetByIDWithParticipants(ctx context.Context, id int64) (*Group, []*Participant, error) {
	group, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	participants, err := s.repo.GetParticipants(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return group, participants, nil
}

// List retrieves all groups
func (s *Service) List(ctx context.Context) ([]*Group, error) {
	return s.repo.List(ctx)
}

// Update modifies a group's name and description
func (s *Service) Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	group, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// Delete removes a group and everything it owns
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Duplicate copies a group and its participants into a fresh drafting group
func (s *Service) Duplicate(ctx context.Context, id int64) (*Group, error) {
	original, participants, err := s.GetByIDWithParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	copyName := fmt.Sprintf("%s (copy)", original.Name)
	duplicate, err := s.repo.Create(ctx, &CreateGroupRequest{
		Name:        copyName,
		Description: original.Description,
	})
	if err != nil {
		return nil, err
	}

	for _, p := range participants {
		if _, err := s.repo.AddParticipant(ctx, duplicate.ID, p.Name, p.Phone); err != nil {
			return nil, err
		}
	}

	return duplicate, nil
}

// Reset forces a drawn or dispatched group back to drafting by discarding
// its assignments. The burned tokens are gone for good.
func (s *Service) Reset(ctx context.Context, id int64) (*Group, error) {
	group, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if group.Status == StatusDrafting {
		return group, nil
	}

	if err := s.assignments.ClearByGroup(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusDrafting); err != nil {
		return nil, err
	}

	group.Status = StatusDrafting
	return group, nil
}

// AddParticipant registers a person in a drafting group
func (s *Service) AddParticipant(ctx context.Context, groupID int64, req *ParticipantRequest) (*Participant, error) {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != StatusDrafting {
		return nil, ErrGroupLocked
	}

	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	return s.repo.AddParticipant(ctx, groupID, req.Name, phone)
}

// UpdateParticipant modifies a participant of a drafting group
func (s *Service) UpdateParticipant(ctx context.Context, groupID, participantID int64, req *ParticipantRequest) (*Participant, error) {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != StatusDrafting {
		return nil, ErrGroupLocked
	}

	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	participant, err := s.repo.UpdateParticipant(ctx, groupID, participantID, req.Name, phone)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrParticipantNotFound
	}
	return participant, nil
}

// RemoveParticipant removes a person from a drafting group
func (s *Service) RemoveParticipant(ctx context.Context, groupID, participantID int64) error {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.Status != StatusDrafting {
		return ErrGroupLocked
	}

	return s.repo.RemoveParticipant(ctx, groupID, participantID)
}

// NormalizePhone strips formatting from an international phone number and
// checks it has a plausible length (country code + number, 10-15 digits).
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}

	return digits, nil
}
