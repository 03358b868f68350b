package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]domain.StrategyRecord
	err     error
}

func (f *fakeWriter) InsertBatch(_ context.Context, items []domain.StrategyRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]domain.StrategyRecord(nil), items...))
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(items)), nil
}

func (f *fakeWriter) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, b := range f.batches {
		for _, r := range b {
			out = append(out, r.ID)
		}
	}
	return out
}

func (f *fakeWriter) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, b := range f.batches {
		out = append(out, len(b))
	}
	return out
}

func record(i int) domain.StrategyRecord {
	return domain.StrategyRecord{ID: fmt.Sprintf("rec-%d", i), UserID: "user-123"}
}

func start(t *testing.T, rc *Recorder) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, rc.Run(ctx))
	}()
	return func() {
		cancelCtx()
		<-done
	}
}

func TestRecorder_FlushesFullBatches(t *testing.T) {
	w := &fakeWriter{}
	rc := New(w, 10, 2, time.Hour, logger.Nop())
	stop := start(t, rc)

	for i := 0; i < 4; i++ {
		require.True(t, rc.Enqueue(record(i)))
	}
	require.Eventually(t, func() bool { return len(w.ids()) == 4 }, time.Second, 5*time.Millisecond)
	stop()
	assert.Equal(t, []int{2, 2}, w.batchSizes())
	assert.Equal(t, []string{"rec-0", "rec-1", "rec-2", "rec-3"}, w.ids())
}

func TestRecorder_FlushesOnTimer(t *testing.T) {
	w := &fakeWriter{}
	rc := New(w, 10, 100, 20*time.Millisecond, logger.Nop())
	stop := start(t, rc)
	defer stop()

	require.True(t, rc.Enqueue(record(1)))
	require.Eventually(t, func() bool { return len(w.ids()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecorder_FlushesOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	rc := New(w, 10, 100, time.Hour, logger.Nop())
	for i := 0; i < 3; i++ {
		require.True(t, rc.Enqueue(record(i)))
	}
	stop := start(t, rc)
	stop()
	assert.Len(t, w.ids(), 3)
}

func TestRecorder_EnqueueFullQueue(t *testing.T) {
	rc := New(&fakeWriter{}, 1, 10, time.Hour, logger.Nop())
	assert.True(t, rc.Enqueue(record(1)))
	assert.False(t, rc.Enqueue(record(2)))
}

func TestRecorder_WriterErrorsDoNotStopLoop(t *testing.T) {
	w := &fakeWriter{err: errors.New("db down")}
	rc := New(w, 10, 1, time.Hour, logger.Nop())
	stop := start(t, rc)
	defer stop()

	require.True(t, rc.Enqueue(record(1)))
	require.True(t, rc.Enqueue(record(2)))
	require.Eventually(t, func() bool { return len(w.batchSizes()) == 2 }, time.Second, 5*time.Millisecond)
}
