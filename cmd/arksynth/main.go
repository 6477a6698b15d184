package main

import (
	"log/slog"
	"os"

	"github.com/arksynth/arksynth/internal/cli"
	"github.com/arksynth/arksynth/internal/observability"
)

func main() {
	slog.SetDefault(observability.InitLogger())

	if err := cli.Execute(); err != nil {
		slog.Error("arksynth exited with an error", "err", err)
		os.Exit(1)
	}
}
