package rapfiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatch_ReturnsResult(t *testing.T) {
	p := newPool(2)
	got, err := dispatch(context.Background(), p, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestDispatch_PropagatesError(t *testing.T) {
	p := newPool(2)
	sentinel := errors.New("boom")
	_, err := dispatch(context.Background(), p, func() (int, error) {
		return 0, sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestDispatch_CanceledWhileWaitingForSlot(t *testing.T) {
	p := newPool(1)

	// Occupy the only slot.
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = dispatch(context.Background(), p, func() (struct{}, error) {
			close(started)
			<-release
			return struct{}{}, nil
		})
	}()
	<-started

	// A second dispatch never gets a slot; canceling the wait returns
	// the context error without having run anything.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	ran := false
	go func() {
		_, err := dispatch(ctx, p, func() (struct{}, error) {
			ran = true
			return struct{}{}, nil
		})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return after cancel")
	}
	close(release)
	require.False(t, ran, "canceled dispatch must not have started its call")
}

func TestDispatch_AbandonedCallRunsToCompletion(t *testing.T) {
	p := newPool(1)

	started := make(chan struct{})
	release := make(chan struct{})
	completed := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := dispatch(ctx, p, func() (struct{}, error) {
			close(started)
			<-release
			close(completed)
			return struct{}{}, nil
		})
		done <- err
	}()

	// Abandon the wait after the call has been dispatched.
	<-started
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return after cancel")
	}

	// The dispatched call keeps running and finishes.
	close(release)
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("abandoned call did not run to completion")
	}

	// Its slot is released afterwards; the pool is reusable.
	_, err := dispatch(context.Background(), p, func() (struct{}, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)
}

func TestNewPool_DefaultsWorkers(t *testing.T) {
	p := newPool(0)
	require.NotNil(t, p.sem)
	p = newPool(-3)
	require.NotNil(t, p.sem)
}
