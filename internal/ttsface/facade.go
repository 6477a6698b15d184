// Package ttsface defines the uniform contract the orchestrator drives
// every text-to-speech backend through, plus the shared retry, text
// segmentation, and WAV-concatenation helpers every concrete engine uses.
package ttsface

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// SynthesisRequest carries everything an Engine needs to render one
// segment of text.
type SynthesisRequest struct {
	Text             string
	VoiceID          string
	Language         string
	Speed            float64
	RefAudioPath     string
	AuxRefAudioPaths []string
	PromptText       string
	PromptLang       string
}

// SynthesisResult is the raw output of a successful synthesis call.
type SynthesisResult struct {
	Audio      []byte
	SampleRate int
	Duration   time.Duration
	Engine     string
}

// ProgressFunc reports fractional [0,1] progress during a long-running
// operation such as training.
type ProgressFunc func(fraction float64, message string)

// Engine is the uniform contract over one or more synthesis backends.
type Engine interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	EnsureReady(ctx context.Context) error
	Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error)
	GetAvailableVoices(ctx context.Context) ([]string, error)
	IsVoiceAvailable(ctx context.Context, voiceID string) (bool, error)
}

// Trainer is the optional fine-tuning extension an Engine may also
// implement.
type Trainer interface {
	Train(ctx context.Context, config TrainConfig, progress ProgressFunc) (bool, error)
	Cancel()
}

// TrainConfig names everything the training worker subprocess needs.
type TrainConfig struct {
	CharacterID string
	CharacterNm string
	AudioDir    string
	OutputDir   string
	GameDataDir string
	EngineDir   string
	Language    string
	Epochs      int
	Mode        string
}

// Retry constants shared by every concrete Engine's HTTP calls.
const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	defaultBackoffMulti   = 2
	defaultMaxBackoff     = 10 * time.Second
)

// RetryableError signals an engine call that's worth retrying: a
// transient HTTP status or a read timeout.
type RetryableError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("tts engine error (status %d): %s", e.StatusCode, e.Body)
}

func isRetryable(ctx context.Context, err error) bool {
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	if ctx.Err() == nil && (os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded)) {
		return true
	}
	return false
}

// WithRetry runs fn with exponential backoff on retryable errors,
// honoring a RetryableError's RetryAfter when present. Per the error
// handling design, a segment is retried zero times by the orchestrator
// itself — this helper exists for the engine's own transport-level
// hiccups, not for orchestrator-level resume semantics.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else if !isRetryable(ctx, err) {
			return err
		} else {
			lastErr = err
		}

		if attempt < defaultMaxAttempts {
			wait := backoff
			var re *RetryableError
			if errors.As(lastErr, &re) && re.RetryAfter > wait {
				wait = re.RetryAfter
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			backoff *= time.Duration(defaultBackoffMulti)
			if backoff > defaultMaxBackoff {
				backoff = defaultMaxBackoff
			}
		}
	}

	return lastErr
}

// EngineSet is a lazy pool of engines, each created on first use; Get
// does not probe availability.
type EngineSet struct {
	mu       sync.Mutex
	engines  map[string]Engine
	builders map[string]func() (Engine, error)
}

// NewEngineSet creates an empty engine pool.
func NewEngineSet() *EngineSet {
	return &EngineSet{
		engines:  make(map[string]Engine),
		builders: make(map[string]func() (Engine, error)),
	}
}

// Register associates a name with a constructor, invoked lazily by Get.
func (es *EngineSet) Register(name string, build func() (Engine, error)) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.builders[name] = build
}

// Get returns the named engine, constructing it on first call.
func (es *EngineSet) Get(name string) (Engine, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if e, ok := es.engines[name]; ok {
		return e, nil
	}
	build, ok := es.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown tts engine %q", name)
	}
	e, err := build()
	if err != nil {
		return nil, err
	}
	es.engines[name] = e
	return e, nil
}

// Names lists every registered engine name, constructed or not.
func (es *EngineSet) Names() []string {
	es.mu.Lock()
	defer es.mu.Unlock()
	names := make([]string, 0, len(es.builders))
	for name := range es.builders {
		names = append(names, name)
	}
	return names
}
