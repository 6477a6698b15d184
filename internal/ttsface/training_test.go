package ttsface

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFakeWorker(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestSubprocessTrainerReportsCompleteSuccess(t *testing.T) {
	path := writeFakeWorker(t, `echo '{"type":"progress","fraction":0.5,"message":"halfway"}'
echo '{"type":"complete","success":true}'
`)
	trainer := NewSubprocessTrainer(path)

	var fractions []float64
	ok, err := trainer.Train(context.Background(), TrainConfig{CharacterID: "char_002_amiya"}, func(f float64, msg string) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{0.5}, fractions)
}

func TestSubprocessTrainerReportsErrorMessage(t *testing.T) {
	path := writeFakeWorker(t, `echo '{"type":"error","message":"out of memory"}'
exit 1
`)
	trainer := NewSubprocessTrainer(path)

	ok, err := trainer.Train(context.Background(), TrainConfig{}, nil)
	require.Error(t, err)
	require.False(t, ok)
}

func TestSubprocessTrainerFailsOnNonzeroExitWithoutTerminalMessage(t *testing.T) {
	path := writeFakeWorker(t, `echo 'not json'
exit 1
`)
	trainer := NewSubprocessTrainer(path)

	ok, err := trainer.Train(context.Background(), TrainConfig{}, nil)
	require.Error(t, err)
	require.False(t, ok)
}
