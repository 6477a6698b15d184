package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/arksynth/arksynth/internal/rendercache"
	"github.com/stretchr/testify/require"
)

func TestOrchestratorStartRenderRejectsConcurrentJob(t *testing.T) {
	cache := rendercache.New(t.TempDir())
	deps := newTestDeps(t, cache)
	o := New(deps)

	ep1 := sampleEpisode("ep1", 50)
	ep2 := sampleEpisode("ep2", 50)

	require.NoError(t, o.StartRender(context.Background(), ep1, false))
	err := o.StartRender(context.Background(), ep2, false)
	require.ErrorIs(t, err, ErrBusy)
}

func TestOrchestratorSlotFreesAfterCompletion(t *testing.T) {
	cache := rendercache.New(t.TempDir())
	deps := newTestDeps(t, cache)
	o := New(deps)

	ep := sampleEpisode("ep1", 1)
	require.NoError(t, o.StartRender(context.Background(), ep, false))

	require.Eventually(t, func() bool {
		return o.Current() == ""
	}, time.Second, 5*time.Millisecond)
}

func TestOrchestratorCancelStopsInFlightRender(t *testing.T) {
	cache := rendercache.New(t.TempDir())
	deps := newTestDeps(t, cache)
	o := New(deps)

	ep := sampleEpisode("ep1", 1000)
	require.NoError(t, o.StartRender(context.Background(), ep, false))
	o.Cancel()

	require.Eventually(t, func() bool {
		return o.Current() == ""
	}, time.Second, 5*time.Millisecond)
}
