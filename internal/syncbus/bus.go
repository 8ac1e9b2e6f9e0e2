// Package syncbus is the synchronization bus that lets concurrently running
// unit tasks coordinate without a central scheduler. It offers two
// primitives:
//
//   - named FIFO signals (Claim / Await / Release) that serialize a pipeline
//     checkpoint so at most one unit is past it at a time, and
//   - completion broadcasts (Complete / AwaitCompletion) that gate a
//     dependent's result read until the dependency's task has finished.
//
// Queued release order is FIFO per signal name, in claim order. That is a
// deliberate policy choice: it is the simplest order satisfying "at most one
// holder at a time" and "no starvation while every holder eventually
// releases".
package syncbus

import (
	"context"
	"fmt"
	"sync"
)

// Bus owns all signal and completion state for one run. The zero value is
// not usable; call New.
type Bus struct {
	mu          sync.Mutex
	signals     map[string]*signal
	completions map[string]chan struct{}
}

// signal is one named FIFO queue. The head entry holds the signal; every
// entry owns a channel that is closed when it reaches the head.
type signal struct {
	order []string
	turns map[string]chan struct{}
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		signals:     make(map[string]*signal),
		completions: make(map[string]chan struct{}),
	}
}

// Claim registers that unitName has reached the checkpoint named signalName.
// The first claimant becomes the holder immediately; later claimants queue
// behind it. Claiming twice is a no-op.
func (b *Bus) Claim(signalName, unitName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.claimLocked(signalName, unitName)
}

func (b *Bus) claimLocked(signalName, unitName string) *signal {
	s, ok := b.signals[signalName]
	if !ok {
		s = &signal{turns: make(map[string]chan struct{})}
		b.signals[signalName] = s
	}
	if _, claimed := s.turns[unitName]; claimed {
		return s
	}
	turn := make(chan struct{})
	s.turns[unitName] = turn
	s.order = append(s.order, unitName)
	if len(s.order) == 1 {
		close(turn) // first claimant holds the signal at once
	}
	return s
}

// Await suspends the calling task until unitName holds signalName, claiming
// first if it has not already. It returns early with ctx.Err() on
// cancellation.
func (b *Bus) Await(ctx context.Context, signalName, unitName string) error {
	b.mu.Lock()
	s := b.claimLocked(signalName, unitName)
	turn := s.turns[unitName]
	b.mu.Unlock()

	select {
	case <-turn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release hands the signal to the next queued claimant. Only the current
// holder may release.
func (b *Bus) Release(signalName, unitName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.signals[signalName]
	if !ok || len(s.order) == 0 {
		return fmt.Errorf("signal %q has no claimants", signalName)
	}
	if s.order[0] != unitName {
		return fmt.Errorf("unit %q does not hold signal %q (holder: %q)", unitName, signalName, s.order[0])
	}

	delete(s.turns, unitName)
	s.order = s.order[1:]
	if len(s.order) > 0 {
		close(s.turns[s.order[0]])
	}
	return nil
}

// Complete marks unitName's pipeline as finished and wakes every task
// gated on it. Idempotent: a task's finalizer may fire after the success or
// fail stage already announced completion.
func (b *Bus) Complete(unitName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := b.completionLocked(unitName)
	select {
	case <-ch:
		// already closed
	default:
		close(ch)
	}
}

// Completed reports whether unitName has announced completion.
func (b *Bus) Completed(unitName string) bool {
	b.mu.Lock()
	ch := b.completionLocked(unitName)
	b.mu.Unlock()

	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// AwaitCompletion suspends until unitName completes or ctx is cancelled.
func (b *Bus) AwaitCompletion(ctx context.Context, unitName string) error {
	b.mu.Lock()
	ch := b.completionLocked(unitName)
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// completionLocked lazily creates the broadcast channel for a unit. Channels
// are never removed mid-run; the bus is discarded with the run.
func (b *Bus) completionLocked(unitName string) chan struct{} {
	ch, ok := b.completions[unitName]
	if !ok {
		ch = make(chan struct{})
		b.completions[unitName] = ch
	}
	return ch
}
