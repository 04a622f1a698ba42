package draw

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawRejectsSmallGroups(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for _, ids := range [][]int64{nil, {1}, {1, 2}} {
		result, err := Draw(rnd, ids)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrInsufficientParticipants)
	}
}

func TestDrawConstraintsHold(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for n := 3; n <= 20; n++ {
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = int64(i + 1)
		}

		iterations := 10000 / (20 - 2) // ~10k draws spread over all sizes
		for i := 0; i < iterations; i++ {
			result, err := Draw(rnd, ids)
			require.NoError(t, err, "n=%d iteration=%d", n, i)
			assertValidDraw(t, ids, result)
		}
	}
}

func TestDrawFamilyScenario(t *testing.T) {
	rnd := rand.New(rand.NewSource(2024))

	ids := []int64{1, 2, 3, 4} // A, B, C, D
	result, err := Draw(rnd, ids)
	require.NoError(t, err)
	require.Len(t, result, 4)
	assertValidDraw(t, ids, result)
}

func TestDrawIsDeterministicForSeed(t *testing.T) {
	ids := []int64{10, 20, 30, 40, 50}

	first, err := Draw(rand.New(rand.NewSource(7)), ids)
	require.NoError(t, err)
	second, err := Draw(rand.New(rand.NewSource(7)), ids)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// assertValidDraw checks the bijection, no-self and no-mutual-pair rules.
func assertValidDraw(t *testing.T, ids []int64, result map[int64]int64) {
	t.Helper()

	require.Len(t, result, len(ids))

	seen := make(map[int64]bool, len(result))
	for giver, recipient := range result {
		require.NotEqual(t, giver, recipient, "giver %d drew themself", giver)
		require.NotEqual(t, giver, result[recipient], "mutual pair %d<->%d", giver, recipient)
		require.False(t, seen[recipient], "recipient %d drawn twice", recipient)
		seen[recipient] = true
	}

	for _, id := range ids {
		_, ok := result[id]
		require.True(t, ok, "id %d missing from draw", id)
	}
}
