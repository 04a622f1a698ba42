package draw

import (
	"errors"
	"math/rand"
)

// Common errors
var (
	ErrInsufficientParticipants = errors.New("at least 3 participants are required for a draw")
	ErrInfeasible               = errors.New("could not produce a valid draw after maximum attempts")
)

// maxAttempts bounds the rejection-sampling loop. With the no-self and
// no-mutual-pair rules the expected number of attempts stays small for any
// viable input, so hitting this ceiling means the input is degenerate.
const maxAttempts = 100

// Draw produces a random bijection over ids where nobody is assigned
// themself and no two participants are assigned to each other.
//
// Randomness is injected so callers can seed it for deterministic tests.
func Draw(rnd *rand.Rand, ids []int64) (map[int64]int64, error) {
	if len(ids) < 3 {
		return nil, ErrInsufficientParticipants
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if result := tryDraw(rnd, ids); result != nil {
			return result, nil
		}
	}

	return nil, ErrInfeasible
}

// tryDraw shuffles a copy of ids and zips it against the original order.
// Returns nil if the candidate mapping has a fixed point or a 2-cycle.
func tryDraw(rnd *rand.Rand, ids []int64) map[int64]int64 {
	shuffled := make([]int64, len(ids))
	copy(shuffled, ids)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	result := make(map[int64]int64, len(ids))
	for i, giver := range ids {
		recipient := shuffled[i]

		// Rule 1: nobody draws themself
		if giver == recipient {
			return nil
		}

		result[giver] = recipient
	}

	// Rule 2: no mutual pairs (A drew B and B drew A)
	for giver, recipient := range result {
		if result[recipient] == giver {
			return nil
		}
	}

	return result
}
