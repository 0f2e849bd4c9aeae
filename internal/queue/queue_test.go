package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryPushPopFIFO(t *testing.T) {
	q := New[int](4)
	for i := 1; i <= 4; i++ {
		require.NoError(t, q.TryPush(i))
	}
	for i := 1; i <= 4; i++ {
		got, err := q.Pop(context.Background())
		require.NoError(t, err)
		require.Equal(t, i, got)
	}
}

func TestTryPushFull(t *testing.T) {
	q := New[string](2)
	require.NoError(t, q.TryPush("a"))
	require.NoError(t, q.TryPush("b"))
	require.ErrorIs(t, q.TryPush("c"), ErrFull)

	// Draining one slot makes room again.
	_, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.NoError(t, q.TryPush("c"))
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New[int](1)
	done := make(chan int, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err == nil {
			done <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.TryPush(42))

	select {
	case v := <-done:
		require.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("pop did not observe push")
	}
}

func TestPopCancelled(t *testing.T) {
	q := New[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEndMarkersTerminateConsumers(t *testing.T) {
	type task struct{ end bool }
	const workers = 3

	q := New[task](workers)
	exited := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			for {
				got, err := q.Pop(context.Background())
				if err != nil || got.end {
					exited <- struct{}{}
					return
				}
			}
		}()
	}

	for i := 0; i < workers; i++ {
		q.PushEndMarker(task{end: true})
	}
	for i := 0; i < workers; i++ {
		select {
		case <-exited:
		case <-time.After(time.Second):
			t.Fatal("worker did not exit on end marker")
		}
	}
}

func TestLenAndCap(t *testing.T) {
	q := New[int](8)
	require.Equal(t, 8, q.Cap())
	require.Equal(t, 0, q.Len())
	require.NoError(t, q.TryPush(1))
	require.Equal(t, 1, q.Len())
}

func TestNewClampsCapacity(t *testing.T) {
	q := New[int](0)
	require.Equal(t, 1, q.Cap())
}
