package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoPreparerOnlyCallsInnerOncePerVoice(t *testing.T) {
	calls := 0
	inner := PreparerFunc(func(ctx context.Context, voiceID string) error {
		calls++
		return nil
	})
	p := newMemoPreparer(inner)

	require.NoError(t, p.Prepare(context.Background(), "v1"))
	require.NoError(t, p.Prepare(context.Background(), "v1"))
	require.Equal(t, 1, calls)
}

func TestMemoPreparerMemoizesFailureToo(t *testing.T) {
	calls := 0
	wantErr := errors.New("boom")
	inner := PreparerFunc(func(ctx context.Context, voiceID string) error {
		calls++
		return wantErr
	})
	p := newMemoPreparer(inner)

	require.ErrorIs(t, p.Prepare(context.Background(), "v1"), wantErr)
	require.ErrorIs(t, p.Prepare(context.Background(), "v1"), wantErr)
	require.Equal(t, 1, calls)
}
