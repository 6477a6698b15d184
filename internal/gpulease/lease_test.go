package gpulease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLeaseSerializesAcquisition(t *testing.T) {
	l := New()
	ctx := context.Background()

	release1, err := l.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := l.Acquire(ctx)
		require.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should have blocked while the first held the slot")
	case <-time.After(20 * time.Millisecond):
	}

	release1()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never unblocked after release")
	}
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	l := New()
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	release()
	require.NotPanics(t, func() { release() })
}

func TestLeaseAcquireRespectsCancellation(t *testing.T) {
	l := New()
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNoOpLeaseNeverBlocks(t *testing.T) {
	l := NoOp()
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()
}
