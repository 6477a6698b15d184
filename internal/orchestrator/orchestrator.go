// Package orchestrator implements the Render Orchestrator (spec §4.9):
// the single entry point that turns a parsed episode or group into
// rendered, cached audio, enforcing at most one in-flight job and
// publishing progress to any number of subscribers.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/arksynth/arksynth/internal/story"
)

// Orchestrator owns the job slot and progress broadcaster shared across
// every render started through it.
type Orchestrator struct {
	episode *EpisodeRenderer
	group   *GroupRenderer
	bus     *Broadcaster

	slot jobSlot

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds an Orchestrator over deps, constructing its own progress
// broadcaster.
func New(deps Deps) *Orchestrator {
	bus := NewBroadcaster()
	episode := NewEpisodeRenderer(deps, bus)
	return &Orchestrator{
		episode: episode,
		group:   NewGroupRenderer(episode, bus),
		bus:     bus,
	}
}

// Subscribe registers a new progress subscriber.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	return o.bus.Subscribe()
}

// StartRender launches a single-episode render in the background,
// returning ErrBusy if a different job already occupies the slot.
// Re-issuing the same episode id while it's already rendering is not an
// error: the caller just gets back the job already in flight.
func (o *Orchestrator) StartRender(ctx context.Context, episode *story.Episode, force bool) error {
	if ok, current := o.slot.Claim(episode.ID); !ok {
		if current == episode.ID {
			return nil
		}
		return ErrBusy
	}

	jobCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	runID := uuid.NewString()
	slog.Info("render job started", "run_id", runID, "episode_id", episode.ID, "force", force)

	go func() {
		defer o.slot.Release(episode.ID)
		defer cancel()
		err := o.episode.Render(jobCtx, episode, force, nil)
		slog.Info("render job finished", "run_id", runID, "episode_id", episode.ID, "err", err)
	}()
	return nil
}

// StartGroupRender launches a sequential group render in the background.
func (o *Orchestrator) StartGroupRender(ctx context.Context, groupID string, episodeIDs []string, source GroupSource, force bool) error {
	if ok, current := o.slot.Claim(groupID); !ok {
		if current == groupID {
			return nil
		}
		return ErrBusy
	}

	jobCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	runID := uuid.NewString()
	slog.Info("group render job started", "run_id", runID, "group_id", groupID, "episode_count", len(episodeIDs), "force", force)

	go func() {
		defer o.slot.Release(groupID)
		defer cancel()
		err := o.group.Render(jobCtx, groupID, episodeIDs, source, force)
		slog.Info("group render job finished", "run_id", runID, "group_id", groupID, "err", err)
	}()
	return nil
}

// Cancel cancels whatever job currently occupies the slot, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Current returns the id of the job currently occupying the slot, or ""
// when idle.
func (o *Orchestrator) Current() string {
	return o.slot.Current()
}
