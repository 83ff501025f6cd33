package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region fake-placer
type fakePlacer struct {
	mu          sync.Mutex
	log         []string
	activateErr error
	offloadErr  error
}

func (f *fakePlacer) Activate(_ context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "activate:"+model)
	return f.activateErr
}

func (f *fakePlacer) Offload(_ context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "offload:"+model)
	return f.offloadErr
}

func (f *fakePlacer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

// #endregion fake-placer

func TestAcquire_SwitchesOwner(t *testing.T) {
	p := &fakePlacer{}
	s := NewSlot(p)
	ctx := context.Background()

	release, err := s.Acquire(ctx, "planner")
	require.NoError(t, err)
	assert.Equal(t, "planner", s.Active())
	release()

	release, err = s.Acquire(ctx, "realizer")
	require.NoError(t, err)
	assert.Equal(t, "realizer", s.Active())
	release()

	assert.Equal(t, []string{"activate:planner", "offload:planner", "activate:realizer"}, p.calls())
}

func TestAcquire_SameOwnerNoSwitch(t *testing.T) {
	p := &fakePlacer{}
	s := NewSlot(p)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.With(ctx, "planner", func(context.Context) error { return nil }))
	}
	assert.Equal(t, []string{"activate:planner"}, p.calls())
}

func TestRelease_Idempotent(t *testing.T) {
	s := NewSlot(&fakePlacer{})
	release, err := s.Acquire(context.Background(), "planner")
	require.NoError(t, err)
	release()
	release()

	release, err = s.Acquire(context.Background(), "planner")
	require.NoError(t, err)
	release()
}

func TestAcquire_ActivateErrorReleasesSlot(t *testing.T) {
	p := &fakePlacer{activateErr: errors.New("oom")}
	s := NewSlot(p)

	_, err := s.Acquire(context.Background(), "planner")
	require.ErrorIs(t, err, p.activateErr)
	assert.Equal(t, "", s.Active())

	p.mu.Lock()
	p.activateErr = nil
	p.mu.Unlock()
	release, err := s.Acquire(context.Background(), "planner")
	require.NoError(t, err, "slot must be free after a failed switch")
	release()
}

func TestAcquire_OffloadError(t *testing.T) {
	p := &fakePlacer{}
	s := NewSlot(p)
	require.NoError(t, s.With(context.Background(), "planner", func(context.Context) error { return nil }))

	p.mu.Lock()
	p.offloadErr = errors.New("stuck")
	p.mu.Unlock()
	_, err := s.Acquire(context.Background(), "realizer")
	require.ErrorIs(t, err, p.offloadErr)
	assert.Equal(t, "planner", s.Active())

	p.mu.Lock()
	p.offloadErr = nil
	p.mu.Unlock()
	release, err := s.Acquire(context.Background(), "realizer")
	require.NoError(t, err)
	release()
	assert.Equal(t, "realizer", s.Active())
	assert.Equal(t, []string{
		"activate:planner",
		"offload:planner",
		"offload:planner",
		"activate:realizer",
	}, p.calls())
}

func TestWith_ReleasesOnError(t *testing.T) {
	s := NewSlot(&fakePlacer{})
	fnErr := errors.New("generate failed")

	err := s.With(context.Background(), "planner", func(context.Context) error { return fnErr })
	require.ErrorIs(t, err, fnErr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release, err := s.Acquire(ctx, "planner")
	require.NoError(t, err)
	release()
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	s := NewSlot(&fakePlacer{})
	release, err := s.Acquire(context.Background(), "planner")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(ctx, "realizer")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "planner", s.Active())
}

func TestAcquire_Exclusive(t *testing.T) {
	s := NewSlot(&fakePlacer{})
	var holders, maxHolders int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		model := "planner"
		if i%2 == 1 {
			model = "realizer"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.With(context.Background(), model, func(context.Context) error {
				n := atomic.AddInt32(&holders, 1)
				for {
					m := atomic.LoadInt32(&maxHolders)
					if n <= m || atomic.CompareAndSwapInt32(&maxHolders, m, n) {
						break
					}
				}
				if s.Active() != model {
					t.Errorf("holder %s sees active %s", model, s.Active())
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&holders, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxHolders)
}
