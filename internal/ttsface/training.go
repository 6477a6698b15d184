package ttsface

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
)

// trainingMessage is one line of the training worker's stdout protocol
// (spec §6, "Training worker protocol"): a subprocess emits one JSON
// object per line, each carrying a type the caller dispatches on.
type trainingMessage struct {
	Type     string  `json:"type"` // progress | error | complete
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
	Success  bool    `json:"success"`
}

// SubprocessTrainer drives a character-training worker binary as a
// subprocess, parsing its one-JSON-object-per-line stdout protocol. The
// child's exit code is authoritative only when no complete/error message
// was seen on stdout, mirroring the teacher's ffprobe-shelling pattern in
// ProbeDuration generalized from a single parse to a streaming scan.
type SubprocessTrainer struct {
	binaryPath string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSubprocessTrainer builds a Trainer that invokes binaryPath.
func NewSubprocessTrainer(binaryPath string) *SubprocessTrainer {
	return &SubprocessTrainer{binaryPath: binaryPath}
}

// Train runs the training worker to completion, reporting progress via
// progress and returning the worker's own success flag.
func (t *SubprocessTrainer) Train(ctx context.Context, config TrainConfig, progress ProgressFunc) (bool, error) {
	childCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	args := []string{
		"--character-id", config.CharacterID,
		"--character-name", config.CharacterNm,
		"--audio-dir", config.AudioDir,
		"--output-dir", config.OutputDir,
		"--game-data-dir", config.GameDataDir,
		"--engine-dir", config.EngineDir,
		"--language", config.Language,
		"--epochs", fmt.Sprint(config.Epochs),
		"--mode", config.Mode,
	}

	cmd := exec.CommandContext(childCtx, t.binaryPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, fmt.Errorf("open training worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start training worker: %w", err)
	}

	var (
		seenTerminal bool
		success      bool
		terminalErr  error
	)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg trainingMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "progress":
			if progress != nil {
				progress(msg.Fraction, msg.Message)
			}
		case "error":
			seenTerminal = true
			success = false
			terminalErr = fmt.Errorf("training worker reported error: %s", msg.Message)
		case "complete":
			seenTerminal = true
			success = msg.Success
		}
	}

	waitErr := cmd.Wait()
	if seenTerminal {
		return success, terminalErr
	}
	if waitErr != nil {
		return false, fmt.Errorf("training worker exited without a terminal message: %w", waitErr)
	}
	return true, nil
}

// Cancel stops the in-flight training run, if any.
func (t *SubprocessTrainer) Cancel() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
