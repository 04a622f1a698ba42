package assignment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"secret-santa-backend/internal/draw"
	"secret-santa-backend/internal/group"
)

// Common errors
var (
	ErrAlreadyDrawn  = errors.New("the draw was already performed for this group")
	ErrTokenNotFound = errors.New("reveal link is invalid or expired")
)

// AlreadyViewedError reports a reveal attempt on a burned token, carrying
// when the token was first consumed so the caller can show it.
type AlreadyViewedError struct {
	ViewedAt time.Time
}

func (e *AlreadyViewedError) Error() string {
	return "this link was already viewed and cannot be opened again"
}

// Store is the persistence surface the service needs. CreateBatch writes the
// assignments and moves the group to drawn as one atomic step.
type Store interface {
	CreateBatch(ctx context.Context, groupID int64, assignments []*Assignment) error
	ListByGroup(ctx context.Context, groupID int64) ([]*DrawEntry, error)
	Consume(ctx context.Context, token string) (*Reveal, error)
	GetTokenState(ctx context.Context, token string) (bool, *time.Time, error)
}

// GroupStore is the slice of the group repository the draw needs
type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*group.Group, error)
	GetParticipants(ctx context.Context, groupID int64) ([]*group.Participant, error)
}

// Service runs draws and consumes reveal tokens
type Service struct {
	repo    Store
	groups  GroupStore
	baseURL string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewService creates a new assignment service. The random source is injected
// so draws are deterministic under test.
func NewService(repo Store, groups GroupStore, appBaseURL string, rnd *rand.Rand) *Service {
	return &Service{
		repo:    repo,
		groups:  groups,
		baseURL: strings.TrimRight(appBaseURL, "/"),
		rnd:     rnd,
	}
}

// RunDraw draws the group's assignments and issues one reveal token per giver.
// The group must be drafting and have at least 3 participants.
func (s *Service) RunDraw(ctx context.Context, groupID int64) ([]*DrawEntry, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}
	if g.Status != group.StatusDrafting {
		return nil, fmt.Errorf("%w (group is %s)", ErrAlreadyDrawn, g.Status)
	}

	participants, err := s.groups.GetParticipants(ctx, groupID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(participants))
	names := make(map[int64]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
		names[p.ID] = p.Name
	}

	s.mu.Lock()
	mapping, err := draw.Draw(s.rnd, ids)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	assignments := make([]*Assignment, 0, len(ids))
	entries := make([]*DrawEntry, 0, len(ids))
	for _, giverID := range ids {
		token, err := NewToken()
		if err != nil {
			return nil, err
		}

		recipientID := mapping[giverID]
		url := s.RevealURL(token)
		assignments = append(assignments, &Assignment{
			GroupID:     groupID,
			GiverID:     giverID,
			RecipientID: recipientID,
			Token:       token,
			RevealURL:   url,
		})
		entries = append(entries, &DrawEntry{
			GiverID:       giverID,
			GiverName:     names[giverID],
			RecipientName: names[recipientID],
			RevealURL:     url,
		})
	}

	if err := s.repo.CreateBatch(ctx, groupID, assignments); err != nil {
		return nil, err
	}

	return entries, nil
}

// ListByGroup retrieves a group's assignments with view status
func (s *Service) ListByGroup(ctx context.Context, groupID int64) ([]*DrawEntry, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}

	return s.repo.ListByGroup(ctx, groupID)
}

// Reveal consumes a token exactly once. The repository performs the burn as a
// single conditional update, so concurrent calls for the same token cannot
// both succeed; losers get AlreadyViewedError with the original viewed_at.
func (s *Service) Reveal(ctx context.Context, token string) (*Reveal, error) {
	reveal, err := s.repo.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	if reveal != nil {
		return reveal, nil
	}

	// Nothing burned: either the token doesn't exist or someone got here first
	exists, viewedAt, err := s.repo.GetTokenState(ctx, token)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTokenNotFound
	}
	if viewedAt == nil {
		// Token rows only lose the burn race after viewed_at is stamped
		return nil, fmt.Errorf("token in inconsistent state")
	}

	return nil, &AlreadyViewedError{ViewedAt: *viewedAt}
}

// RevealURL builds the public one-time link for a token
func (s *Service) RevealURL(token string) string {
	return fmt.Sprintf("%s/reveal/%s", s.baseURL, token)
}
