package orchestrator

import (
	"context"
	"sync"
)

// VoicePreparer trains or otherwise readies a voice id that exists as a
// model folder but has never been loaded by the active engine, the
// "prepare on demand" step of the control flow (spec §4.9). Concrete
// implementations drive ttsface.Trainer or an engine's own warm-up call.
type VoicePreparer interface {
	Prepare(ctx context.Context, voiceID string) error
}

// PreparerFunc adapts a plain function to VoicePreparer.
type PreparerFunc func(ctx context.Context, voiceID string) error

func (f PreparerFunc) Prepare(ctx context.Context, voiceID string) error { return f(ctx, voiceID) }

// memoPreparer wraps a VoicePreparer so that a voice id already prepared
// (or already failed) once during a render is never retried mid-episode;
// the fallback chain only needs to absorb the cost of a failed prepare
// once per voice id per run.
type memoPreparer struct {
	inner VoicePreparer
	mu    sync.Mutex
	done  map[string]error
}

func newMemoPreparer(inner VoicePreparer) *memoPreparer {
	return &memoPreparer{inner: inner, done: make(map[string]error)}
}

func (p *memoPreparer) Prepare(ctx context.Context, voiceID string) error {
	p.mu.Lock()
	if err, ok := p.done[voiceID]; ok {
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	err := p.inner.Prepare(ctx, voiceID)

	p.mu.Lock()
	p.done[voiceID] = err
	p.mu.Unlock()
	return err
}
