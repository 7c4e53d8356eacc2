package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProcessesEveryIndex(t *testing.T) {
	var seen [20]atomic.Int32
	proc := &Processor{Workers: 4}
	sink := NewControlSink()

	err := proc.Run(context.Background(), sink, 3, 17, func(idx int) error {
		seen[idx].Add(1)
		return nil
	})
	require.NoError(t, err)

	for i := range seen {
		want := int32(0)
		if i >= 3 && i <= 17 {
			want = 1
		}
		assert.Equal(t, want, seen[i].Load(), "index %d", i)
	}

	done, total := sink.Progress()
	assert.Equal(t, 15, done)
	assert.Equal(t, 15, total)
}

func TestRunEmptyRange(t *testing.T) {
	proc := &Processor{}
	err := proc.Run(context.Background(), NewControlSink(), 5, 4, func(int) error { return nil })
	assert.Error(t, err)
}

func TestRunFirstErrorAborts(t *testing.T) {
	var calls atomic.Int64
	proc := &Processor{Workers: 1}
	boom := errors.New("boom")

	err := proc.Run(context.Background(), NewControlSink(), 0, 99, func(idx int) error {
		calls.Add(1)
		if idx == 3 {
			return boom
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int64(100), "dispatch must stop after the failure")
}

func TestRunIsolatedFailures(t *testing.T) {
	proc := &Processor{Workers: 3, IsolateFailures: true}
	boom := errors.New("boom")

	err := proc.Run(context.Background(), NewControlSink(), 0, 9, func(idx int) error {
		if idx == 2 || idx == 7 {
			return boom
		}
		return nil
	})
	require.Error(t, err)

	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failed, 2)
	assert.Equal(t, 2, batch.Failed[0].Index)
	assert.Equal(t, 7, batch.Failed[1].Index)
}

func TestRunCancelledSink(t *testing.T) {
	proc := &Processor{Workers: 2}
	sink := NewControlSink()

	var calls atomic.Int64
	err := proc.Run(context.Background(), sink, 0, 999, func(idx int) error {
		if calls.Add(1) == 5 {
			sink.Cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Less(t, calls.Load(), int64(1000), "cancellation must stop dispatch")
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &Processor{Workers: 2}

	var calls atomic.Int64
	err := proc.Run(ctx, NewControlSink(), 0, 999, func(idx int) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		time.Sleep(time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestPauseBlocksWorkers(t *testing.T) {
	sink := NewControlSink()
	sink.Pause()

	proc := &Processor{Workers: 2}
	var calls atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := proc.Run(context.Background(), sink, 0, 9, func(int) error {
			calls.Add(1)
			return nil
		})
		assert.NoError(t, err)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load(), "paused workers must not start work")

	sink.Resume()
	wg.Wait()
	assert.Equal(t, int64(10), calls.Load())
}

func TestCancelReleasesPausedWorkers(t *testing.T) {
	sink := NewControlSink()
	sink.Pause()

	proc := &Processor{Workers: 2}
	done := make(chan error, 1)
	go func() {
		done <- proc.Run(context.Background(), sink, 0, 9, func(int) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	sink.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled run did not finish; paused workers stuck")
	}
}

func TestCancelWakesConcurrentPauseWaiters(t *testing.T) {
	// Workers entering the pause wait while Cancel fires must never
	// miss the broadcast and hang until a Resume that never comes.
	for round := 0; round < 5000; round++ {
		sink := NewControlSink()
		sink.Pause()

		var wg sync.WaitGroup
		start := make(chan struct{})
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				sink.PauseIfRequested()
			}()
		}

		close(start)
		sink.Cancel()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("round %d: paused worker missed the cancel wakeup", round)
		}
	}
}

func TestControlSinkProgress(t *testing.T) {
	sink := NewControlSink()
	sink.Reset("test phase", 42)
	sink.LockAndIncrement()
	sink.LockAndIncrement()

	done, total := sink.Progress()
	assert.Equal(t, 2, done)
	assert.Equal(t, 42, total)
	assert.Equal(t, "test phase", sink.Label())
}
