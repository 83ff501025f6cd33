package device

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// #region placer
// Placer moves models on and off the shared accelerator.
type Placer interface {
	Activate(ctx context.Context, model string) error
	Offload(ctx context.Context, model string) error
}

// #endregion placer

// #region slot
// Slot guards a single accelerator shared by several models. At most one
// caller holds the slot at a time, and the holder's model is the one placed
// on the accelerator. The previous owner stays resident after release and is
// offloaded only when a different model acquires the slot.
type Slot struct {
	placer Placer
	sem    *semaphore.Weighted

	mu     sync.Mutex
	active string
}

// NewSlot creates an empty slot.
func NewSlot(placer Placer) *Slot {
	return &Slot{placer: placer, sem: semaphore.NewWeighted(1)}
}

// Active returns the model currently placed, or "" if none or unknown.
func (s *Slot) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Acquire waits for exclusive use of the accelerator and places model on it.
// The returned release func must be called exactly once; it is safe to defer
// immediately. On error the slot is not held.
func (s *Slot) Acquire(ctx context.Context, model string) (release func(), err error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire slot for %s: %w", model, err)
	}
	var once sync.Once
	release = func() { once.Do(func() { s.sem.Release(1) }) }

	if err := s.switchTo(ctx, model); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// With runs fn while holding the slot for model.
func (s *Slot) With(ctx context.Context, model string, fn func(context.Context) error) error {
	release, err := s.Acquire(ctx, model)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// switchTo is called with the semaphore held.
func (s *Slot) switchTo(ctx context.Context, model string) error {
	s.mu.Lock()
	prev := s.active
	s.mu.Unlock()
	if prev == model {
		return nil
	}

	if prev != "" {
		// prev stays recorded so the next switch retries the offload.
		if err := s.placer.Offload(ctx, prev); err != nil {
			return fmt.Errorf("offload %s: %w", prev, err)
		}
	}
	s.setActive("")
	if err := s.placer.Activate(ctx, model); err != nil {
		return fmt.Errorf("activate %s: %w", model, err)
	}
	s.setActive(model)
	return nil
}

func (s *Slot) setActive(model string) {
	s.mu.Lock()
	s.active = model
	s.mu.Unlock()
}

// #endregion slot
