package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/arksynth/arksynth/internal/rendercache"
	"github.com/arksynth/arksynth/internal/story"
	"github.com/stretchr/testify/require"
)

func TestGroupRendererCombinesFractionalProgress(t *testing.T) {
	cache := rendercache.New(t.TempDir())
	deps := newTestDeps(t, cache)
	episodeRenderer := NewEpisodeRenderer(deps, nil)

	bus := NewBroadcaster()
	group := NewGroupRenderer(episodeRenderer, bus)
	sub, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	lengths := map[string]int{"ep1": 10, "ep2": 20, "ep3": 30}
	source := func(ctx context.Context, id string) (*story.Episode, error) {
		return sampleEpisode(id, lengths[id]), nil
	}

	ids := []string{"ep1", "ep2", "ep3"}
	err := group.Render(context.Background(), "grp1", ids, source, false)
	require.NoError(t, err)

	var events []Event
	draining := true
	for draining {
		select {
		case e := <-sub:
			events = append(events, e)
		default:
			draining = false
		}
	}
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, StatusCompleted, last.Status)
	require.Equal(t, 3, last.Completed)

	for _, e := range events {
		require.LessOrEqual(t, e.Completed, e.Total)
	}
}

func TestGroupRendererStopsOnMissingEpisode(t *testing.T) {
	cache := rendercache.New(t.TempDir())
	deps := newTestDeps(t, cache)
	episodeRenderer := NewEpisodeRenderer(deps, nil)
	group := NewGroupRenderer(episodeRenderer, nil)

	source := func(ctx context.Context, id string) (*story.Episode, error) {
		return nil, fmt.Errorf("episode %s not found", id)
	}

	err := group.Render(context.Background(), "grp1", []string{"missing"}, source, false)
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, KindMissingResource, renderErr.Kind)
}

func TestGroupRendererCancelPropagatesToInFlightEpisode(t *testing.T) {
	cache := rendercache.New(t.TempDir())
	deps := newTestDeps(t, cache)
	episodeRenderer := NewEpisodeRenderer(deps, nil)
	group := NewGroupRenderer(episodeRenderer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the group has moved past its own cancellation check and
	// is handing the episode over, so the episode render observes it.
	source := func(ctx context.Context, id string) (*story.Episode, error) {
		cancel()
		return sampleEpisode(id, 5), nil
	}

	err := group.Render(ctx, "grp1", []string{"ep1"}, source, false)
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, KindCancelled, renderErr.Kind)
}
