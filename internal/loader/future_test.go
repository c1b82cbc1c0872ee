package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureDeliversValue(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(context.Context) ([]string, error) {
		<-release
		return []string{"a", "b"}, nil
	})

	_, err := f.Result()
	assert.ErrorIs(t, err, ErrPending)
	assert.False(t, f.Ready())

	close(release)
	<-f.Done()
	value, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, value)
}

func TestFutureCancel(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	f.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFutureCancelledAfterSuccessReportsCancel(t *testing.T) {
	started := make(chan struct{})
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 7, nil
	})
	<-started
	f.Cancel()
	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	f := Go(context.Background(), func(context.Context) (int, error) {
		<-block
		return 1, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolved(t *testing.T) {
	boom := errors.New("boom")
	f := Resolved(0, boom)
	require.True(t, f.Ready())
	_, err := f.Result()
	assert.ErrorIs(t, err, boom)
}
