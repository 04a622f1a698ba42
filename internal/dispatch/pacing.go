package dispatch

import (
	"math/rand"
	"sync"
	"time"
)

// PacingMode selects how inter-message delays are produced
type PacingMode string

const (
	// PacingDisabled sends every message as soon as a worker is free
	PacingDisabled PacingMode = "disabled"
	// PacingFixed spaces messages by a constant delay
	PacingFixed PacingMode = "fixed"
	// PacingRandomized draws each delay independently from [min,max],
	// avoiding a detectable periodic send pattern
	PacingRandomized PacingMode = "randomized"
)

// Pacer produces the scheduled delay for each job in a dispatch batch.
// The first job of a batch always goes out immediately.
type Pacer struct {
	mode  PacingMode
	fixed time.Duration
	min   time.Duration
	max   time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer creates a pacer. An unknown mode falls back to randomized, the
// safe default for the external channel's anti-abuse heuristics.
func NewPacer(mode PacingMode, fixed, min, max time.Duration, rnd *rand.Rand) *Pacer {
	switch mode {
	case PacingDisabled, PacingFixed, PacingRandomized:
	default:
		mode = PacingRandomized
	}
	if max < min {
		max = min
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pacer{mode: mode, fixed: fixed, min: min, max: max, rnd: rnd}
}

// Delay returns the scheduled delay for the job at the given batch position
func (p *Pacer) Delay(position int) time.Duration {
	if position == 0 || p.mode == PacingDisabled {
		return 0
	}
	if p.mode == PacingFixed {
		return p.fixed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min + time.Duration(p.rnd.Int63n(int64(p.max-p.min)+1))
}
