package eventworker

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

func startPool(t *testing.T, workers, queue int) *Pool {
	t.Helper()
	p := NewPool(workers, queue)
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return p
}

func TestPool_DispatchDoesNotBlock(t *testing.T) {
	p := startPool(t, 2, 10)
	start := time.Now()
	p.Dispatch(Job{Key: "a", Kind: "slow", Handler: func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}})
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestPool_SameKeyKeepsOrder(t *testing.T) {
	p := NewPool(4, 100)
	p.Start(context.Background())

	var mu sync.Mutex
	var got []int
	for i := 1; i <= 20; i++ {
		i := i
		require.True(t, p.TryDispatch(Job{Key: "bot-1:whatsapp", Kind: "persist", Handler: func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}}))
	}
	p.Stop()

	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}
}

func TestPool_DropsWhenQueueFull(t *testing.T) {
	p := startPool(t, 1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}}))
	<-started
	require.True(t, p.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error { return nil }}))
	assert.False(t, p.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error { return nil }}))
	close(block)

	assert.Equal(t, int64(1), p.Stats().TotalDropped)
}

func TestPool_CountsErrorsAndPanics(t *testing.T) {
	p := NewPool(2, 10)
	var done int32
	p.OnJobDone = func(job Job, err error) { atomic.AddInt32(&done, 1) }
	p.Start(context.Background())

	p.Dispatch(Job{Key: "a", Handler: func(ctx context.Context) error { return errors.New("boom") }})
	p.Dispatch(Job{Key: "b", Handler: func(ctx context.Context) error { panic("bad") }})
	p.Dispatch(Job{Key: "c", Handler: func(ctx context.Context) error { return nil }})
	p.Stop()

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.TotalProcessed)
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, int32(3), atomic.LoadInt32(&done))
}

func TestPool_RejectsAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Start(context.Background())
	p.Stop()
	assert.False(t, p.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error { return nil }}))
}
