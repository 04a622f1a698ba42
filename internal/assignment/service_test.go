package assignment

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secret-santa-backend/internal/draw"
	"secret-santa-backend/internal/group"
)

// fakeStore keeps assignments in memory. Consume mirrors the SQL conditional
// update (burn decision and stamp under one lock), and CreateBatch mirrors
// the transactional insert-and-flip: either everything lands or nothing does.
type fakeStore struct {
	mu          sync.Mutex
	groups      *fakeGroups
	created     []*Assignment
	tokens      map[string]*tokenRecord
	failBatches int
}

type tokenRecord struct {
	giverName     string
	recipientName string
	viewedAt      *time.Time
}

func newFakeStore(groups *fakeGroups) *fakeStore {
	return &fakeStore{groups: groups, tokens: make(map[string]*tokenRecord)}
}

func (f *fakeStore) CreateBatch(_ context.Context, groupID int64, assignments []*Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failBatches > 0 {
		f.failBatches--
		return errors.New("connection reset")
	}

	g := f.groups.groups[groupID]
	if g == nil || g.Status != group.StatusDrafting {
		return ErrAlreadyDrawn
	}

	f.created = append(f.created, assignments...)
	g.Status = group.StatusDrawn
	return nil
}

func (f *fakeStore) ListByGroup(_ context.Context, _ int64) ([]*DrawEntry, error) {
	return nil, nil
}

func (f *fakeStore) Consume(_ context.Context, token string) (*Reveal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.tokens[token]
	if !ok || rec.viewedAt != nil {
		return nil, nil
	}

	now := time.Now()
	rec.viewedAt = &now
	return &Reveal{GiverName: rec.giverName, RecipientName: rec.recipientName, ViewedAt: now}, nil
}

func (f *fakeStore) GetTokenState(_ context.Context, token string) (bool, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.tokens[token]
	if !ok {
		return false, nil, nil
	}
	return true, rec.viewedAt, nil
}

type fakeGroups struct {
	groups       map[int64]*group.Group
	participants map[int64][]*group.Participant
}

func (f *fakeGroups) GetByID(_ context.Context, id int64) (*group.Group, error) {
	return f.groups[id], nil
}

func (f *fakeGroups) GetParticipants(_ context.Context, groupID int64) ([]*group.Participant, error) {
	return f.participants[groupID], nil
}

func draftingGroup(participantCount int) *fakeGroups {
	g := &fakeGroups{
		groups: map[int64]*group.Group{
			1: {ID: 1, Name: "Family2024", Status: group.StatusDrafting},
		},
		participants: map[int64][]*group.Participant{1: nil},
	}
	names := []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank"}
	for i := 0; i < participantCount; i++ {
		g.participants[1] = append(g.participants[1], &group.Participant{
			ID:      int64(i + 1),
			GroupID: 1,
			Name:    names[i%len(names)],
			Phone:   "5548999990000",
		})
	}
	return g
}

func newTestService(store Store, groups GroupStore) *Service {
	return NewService(store, groups, "https://santa.example.com/", rand.New(rand.NewSource(99)))
}

func TestRunDrawProducesValidAssignments(t *testing.T) {
	groups := draftingGroup(4)
	store := newFakeStore(groups)
	svc := newTestService(store, groups)

	entries, err := svc.RunDraw(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Len(t, store.created, 4)

	mapping := make(map[int64]int64)
	tokens := make(map[string]bool)
	for _, a := range store.created {
		assert.NotEqual(t, a.GiverID, a.RecipientID)
		assert.False(t, tokens[a.Token], "duplicate token issued")
		tokens[a.Token] = true
		assert.Equal(t, "https://santa.example.com/reveal/"+a.Token, a.RevealURL)
		mapping[a.GiverID] = a.RecipientID
	}

	// Full permutation, no mutual pairs
	require.Len(t, mapping, 4)
	for giver, recipient := range mapping {
		assert.NotEqual(t, giver, mapping[recipient], "mutual pair in draw")
	}

	assert.Equal(t, group.StatusDrawn, groups.groups[1].Status)
}

func TestRunDrawRequiresDraftingStatus(t *testing.T) {
	groups := draftingGroup(4)
	store := newFakeStore(groups)
	groups.groups[1].Status = group.StatusDrawn
	svc := newTestService(store, groups)

	_, err := svc.RunDraw(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	assert.Contains(t, err.Error(), "drawn")
	assert.Empty(t, store.created)
}

func TestRunDrawRequiresThreeParticipants(t *testing.T) {
	groups := draftingGroup(2)
	store := newFakeStore(groups)
	svc := newTestService(store, groups)

	_, err := svc.RunDraw(context.Background(), 1)
	assert.ErrorIs(t, err, draw.ErrInsufficientParticipants)
	assert.Empty(t, store.created)
}

func TestRunDrawUnknownGroup(t *testing.T) {
	groups := draftingGroup(3)
	svc := newTestService(newFakeStore(groups), groups)

	_, err := svc.RunDraw(context.Background(), 42)
	assert.ErrorIs(t, err, group.ErrGroupNotFound)
}

func TestRunDrawRetryAfterFailureDoesNotDuplicate(t *testing.T) {
	groups := draftingGroup(4)
	store := newFakeStore(groups)
	store.failBatches = 1
	svc := newTestService(store, groups)

	// First attempt dies on the storage write: nothing may land, the group
	// must still read drafting so the draw can be retried
	_, err := svc.RunDraw(context.Background(), 1)
	require.Error(t, err)
	assert.Empty(t, store.created)
	assert.Equal(t, group.StatusDrafting, groups.groups[1].Status)

	// The retry succeeds with exactly one assignment per giver
	entries, err := svc.RunDraw(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Len(t, store.created, 4)

	givers := make(map[int64]bool)
	for _, a := range store.created {
		assert.False(t, givers[a.GiverID], "giver %d drew twice", a.GiverID)
		givers[a.GiverID] = true
	}
	assert.Equal(t, group.StatusDrawn, groups.groups[1].Status)

	// And a further draw is rejected outright
	_, err = svc.RunDraw(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	assert.Len(t, store.created, 4)
}

func TestRevealHappyPath(t *testing.T) {
	groups := draftingGroup(3)
	store := newFakeStore(groups)
	store.tokens["tok"] = &tokenRecord{giverName: "Alice", recipientName: "Bob"}
	svc := newTestService(store, groups)

	reveal, err := svc.Reveal(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Alice", reveal.GiverName)
	assert.Equal(t, "Bob", reveal.RecipientName)
	assert.False(t, reveal.ViewedAt.IsZero())
}

func TestRevealUnknownToken(t *testing.T) {
	groups := draftingGroup(3)
	svc := newTestService(newFakeStore(groups), groups)

	reveal, err := svc.Reveal(context.Background(), "nope")
	assert.Nil(t, reveal)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRevealSecondAttemptKeepsOriginalViewTime(t *testing.T) {
	groups := draftingGroup(3)
	store := newFakeStore(groups)
	store.tokens["tok"] = &tokenRecord{giverName: "Alice", recipientName: "Bob"}
	svc := newTestService(store, groups)

	first, err := svc.Reveal(context.Background(), "tok")
	require.NoError(t, err)

	_, err = svc.Reveal(context.Background(), "tok")
	var viewed *AlreadyViewedError
	require.ErrorAs(t, err, &viewed)
	assert.Equal(t, first.ViewedAt, viewed.ViewedAt, "viewed_at changed on second reveal")
}

func TestRevealIsExactlyOnceUnderConcurrency(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		groups := draftingGroup(3)
		store := newFakeStore(groups)
		store.tokens["tok"] = &tokenRecord{giverName: "Alice", recipientName: "Bob"}
		svc := newTestService(store, groups)

		const callers = 50
		var wg sync.WaitGroup
		results := make(chan error, callers)

		wg.Add(callers)
		for i := 0; i < callers; i++ {
			go func() {
				defer wg.Done()
				_, err := svc.Reveal(context.Background(), "tok")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes, alreadyViewed int
		for err := range results {
			switch {
			case err == nil:
				successes++
			default:
				var viewed *AlreadyViewedError
				require.True(t, errors.As(err, &viewed), "unexpected error: %v", err)
				alreadyViewed++
			}
		}

		require.Equal(t, 1, successes, "trial %d: expected exactly one success", trial)
		require.Equal(t, callers-1, alreadyViewed)
	}
}
