package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/arksynth/arksynth/internal/story"
)

// GroupSource supplies the parsed episode for an id on demand, inverting
// control so the group driver never depends on the story index directly
// and stays trivial to unit test.
type GroupSource func(ctx context.Context, episodeID string) (*story.Episode, error)

// GroupRenderer sequences episode renders across a group and republishes
// each episode's in-flight progress events under the group id.
type GroupRenderer struct {
	episode *EpisodeRenderer
	bus     *Broadcaster
}

// NewGroupRenderer builds a GroupRenderer over an existing episode
// renderer, reusing its Deps and preparer memoization.
func NewGroupRenderer(episode *EpisodeRenderer, bus *Broadcaster) *GroupRenderer {
	return &GroupRenderer{episode: episode, bus: bus}
}

func (g *GroupRenderer) publish(e Event) {
	if g.bus != nil {
		g.bus.Publish(e)
	}
}

// Render renders every episode id in order, stopping at the first
// failure or cancellation. For each inner event it computes the group
// fraction
//
//	completed_episodes/total + (1/total)*current_episode_fraction
//
// but publishes it as Completed = int(fraction*total), a whole-episode
// count: Completed moves only at episode boundaries, and the fraction
// within the current episode is not carried in the event.
func (g *GroupRenderer) Render(ctx context.Context, groupID string, episodeIDs []string, source GroupSource, force bool) error {
	total := len(episodeIDs)
	started := time.Now()
	g.publish(Event{EpisodeID: groupID, Status: StatusRendering, Total: total, StartedAt: started})

	for epIndex, episodeID := range episodeIDs {
		if err := ctx.Err(); err != nil {
			g.publish(Event{EpisodeID: groupID, Status: StatusCancelled, Total: total, Completed: epIndex, StartedAt: started, FinishedAt: time.Now()})
			return newError(KindCancelled, "group_render", "group render cancelled", err)
		}

		episode, err := source(ctx, episodeID)
		if err != nil {
			renderErr := newError(KindMissingResource, "group_render", fmt.Sprintf("load episode %s", episodeID), err)
			g.publish(Event{EpisodeID: groupID, Status: StatusFailed, Total: total, Completed: epIndex, Error: renderErr.Error(), StartedAt: started, FinishedAt: time.Now()})
			return renderErr
		}

		baseFraction := float64(epIndex) / float64(total)
		onEvent := func(inner Event) {
			fraction := baseFraction
			if inner.Total > 0 {
				fraction += (float64(inner.Completed) / float64(inner.Total)) / float64(total)
			}
			g.publish(Event{
				EpisodeID:    groupID,
				Status:       StatusRendering,
				Total:        total,
				Completed:    int(fraction * float64(total)),
				CurrentIndex: epIndex,
				CurrentText:  fmt.Sprintf("%s: %s", episodeID, inner.CurrentText),
				StartedAt:    started,
			})
		}

		if err := g.episode.Render(ctx, episode, force, onEvent); err != nil {
			status := StatusFailed
			if renderErr, ok := err.(*RenderError); ok && renderErr.Kind == KindCancelled {
				status = StatusCancelled
			}
			g.publish(Event{EpisodeID: groupID, Status: status, Total: total, Completed: epIndex, Error: err.Error(), StartedAt: started, FinishedAt: time.Now()})
			return err
		}
	}

	g.publish(Event{EpisodeID: groupID, Status: StatusCompleted, Total: total, Completed: total, StartedAt: started, FinishedAt: time.Now()})
	return nil
}
