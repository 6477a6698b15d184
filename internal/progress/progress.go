// Package progress renders the orchestrator's render progress events to
// a terminal, either as a live two-line bar on a TTY or as timestamped
// single lines otherwise.
package progress

import "github.com/arksynth/arksynth/internal/orchestrator"

// Callback is an alias for orchestrator.Callback so callers that only
// need a renderer don't have to import the orchestrator package
// directly.
type Callback = orchestrator.Callback

// NopCallback discards every event; used for silent mode and tests.
func NopCallback(orchestrator.Event) {}
