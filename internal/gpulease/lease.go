// Package gpulease implements the single-slot, process-wide mutual
// exclusion primitive the Render Orchestrator shares with the external
// OCR/capture collaborator (spec §4.10). Acquisition is a scoped
// operation: on every exit path — normal return, error, or cancellation —
// the slot is released exactly once.
package gpulease

import "context"

// Lease is a single-slot, reentrant-free mutual-exclusion primitive.
type Lease interface {
	// Acquire blocks until the slot is free or ctx is cancelled, and
	// returns a release function the caller must invoke exactly once.
	Acquire(ctx context.Context) (release func(), err error)
}

// semaphoreLease is a Lease backed by a size-1 buffered channel, the same
// idiom used elsewhere in the corpus for a bounded-parallelism gate
// narrowed to a single slot.
type semaphoreLease struct {
	slot chan struct{}
}

// New creates a Lease with exactly one slot.
func New() Lease {
	l := &semaphoreLease{slot: make(chan struct{}, 1)}
	l.slot <- struct{}{}
	return l
}

func (l *semaphoreLease) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.slot:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var released bool
	release := func() {
		if released {
			return
		}
		released = true
		l.slot <- struct{}{}
	}
	return release, nil
}

// noOpLease satisfies Lease without ever blocking, for tests and for the
// feature flag spec §4.10 calls out that turns the lease into a no-op.
type noOpLease struct{}

// NoOp returns a Lease that never contends — every Acquire call succeeds
// immediately with a release function that does nothing.
func NoOp() Lease { return noOpLease{} }

func (noOpLease) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
