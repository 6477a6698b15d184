// Package cli implements the arksynth command-line entry point: render a
// single episode or a whole story group through the render orchestrator,
// list registered TTS engines, or launch the interactive episode picker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arksynth/arksynth/internal/appconfig"
	"github.com/arksynth/arksynth/internal/gpulease"
	"github.com/arksynth/arksynth/internal/httpapi"
	"github.com/arksynth/arksynth/internal/loaders"
	"github.com/arksynth/arksynth/internal/observability"
	"github.com/arksynth/arksynth/internal/orchestrator"
	"github.com/arksynth/arksynth/internal/progress"
	"github.com/arksynth/arksynth/internal/rendercache"
	"github.com/arksynth/arksynth/internal/story"
	"github.com/arksynth/arksynth/internal/ttsface"
	"github.com/arksynth/arksynth/internal/ttsface/gptsovits"
	"github.com/arksynth/arksynth/internal/voice"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "arksynth",
	Short: "Render Arknights story dialogue into synthesized voice lines",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("arksynth %s\n", Version)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one episode or a whole story group to the audio cache",
	RunE:  runRender,
}

var listEnginesCmd = &cobra.Command{
	Use:   "list-engines",
	Short: "List the registered TTS engine names",
	RunE:  runListEngines,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP boundary (render start/progress/cancel, alias edits)",
	RunE:  runServe,
}

var (
	flagListenAddr string
)

var (
	flagConfig      string
	flagGameData    string
	flagVoiceMap    string
	flagScriptIDMap string
	flagModelsRoot  string
	flagCacheDir    string
	flagEpisode     string
	flagGroup       string
	flagForce       bool
	flagTUI         bool
	flagNoGPULease  bool
	flagTTSURL      string
	flagEngineName  string
	flagVerbose     bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(listEnginesCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Path to the application configuration document")
	rootCmd.PersistentFlags().StringVar(&flagGameData, "game-data", "", "Path to the per-language game-data directory")
	rootCmd.PersistentFlags().StringVar(&flagVoiceMap, "voice-map", "", "Path to the voice map JSON document")
	rootCmd.PersistentFlags().StringVar(&flagScriptIDMap, "script-id-map", "", "Path to the script-id remap JSON document (optional)")
	rootCmd.PersistentFlags().StringVar(&flagModelsRoot, "models-root", "", "Path to the voice models directory (reference clips + weights)")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "Path to the rendered-audio cache directory")
	rootCmd.PersistentFlags().StringVar(&flagTTSURL, "tts-url", "http://127.0.0.1:9880", "Base URL of the GPT-SoVITS runtime")
	rootCmd.PersistentFlags().BoolVar(&flagNoGPULease, "no-gpu-lease", false, "Disable the single-slot GPU lease (use when the runtime has its own queueing)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print one plain line per event (status, counts, current text) instead of using the progress renderer")

	renderCmd.Flags().StringVar(&flagEpisode, "episode", "", "Episode id to render")
	renderCmd.Flags().StringVar(&flagGroup, "group", "", "Story group id to render (every episode in order)")
	renderCmd.Flags().BoolVar(&flagForce, "force", false, "Wipe any cached lines and re-render from scratch")
	renderCmd.Flags().BoolVarP(&flagTUI, "tui", "t", false, "Pick an episode interactively instead of passing --episode/--group")
	renderCmd.Flags().StringVar(&flagEngineName, "engine", "", "TTS engine name (defaults to the configuration document's default_engine)")

	serveCmd.Flags().StringVar(&flagListenAddr, "listen", "127.0.0.1:8421", "Address the HTTP boundary listens on")
}

func Execute() error {
	return rootCmd.Execute()
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "arksynth.json"
	}
	return dir + "/arksynth/config.json"
}

// buildOrchestrator wires the configuration document, shared loaders, the
// registered TTS engines, and the render cache into one Orchestrator,
// exactly the set of collaborators internal/orchestrator.Deps names.
func buildOrchestrator(cfg *appconfig.Config) (*orchestrator.Orchestrator, *loaders.Loaders, error) {
	if flagGameData == "" {
		return nil, nil, fmt.Errorf("--game-data is required")
	}
	if flagVoiceMap == "" {
		return nil, nil, fmt.Errorf("--voice-map is required")
	}
	if flagCacheDir == "" {
		return nil, nil, fmt.Errorf("--cache-dir is required")
	}

	l := loaders.New(flagGameData, flagVoiceMap, flagModelsRoot)
	resolver, err := l.VoiceResolver()
	if err != nil {
		return nil, nil, fmt.Errorf("load voice map: %w", err)
	}

	var scriptIDs *voice.ScriptIDMap
	if flagScriptIDMap != "" {
		scriptIDs, err = voice.LoadScriptIDMap(flagScriptIDMap)
		if err != nil {
			return nil, nil, err
		}
	}

	engines := ttsface.NewEngineSet()
	engines.Register("gpt-sovits", func() (ttsface.Engine, error) {
		return gptsovits.New("gpt-sovits", flagTTSURL), nil
	})

	engineName := flagEngineName
	if engineName == "" {
		engineName = cfg.DefaultEngine
	}

	lease := gpulease.New()
	if flagNoGPULease {
		lease = gpulease.NoOp()
	}

	cache := rendercache.New(flagCacheDir)

	deps := orchestrator.Deps{
		Cache:      cache,
		Resolver:   resolver,
		ScriptIDs:  scriptIDs,
		Engines:    engines,
		EngineName: engineName,
		Lease:      lease,
		ModelsRoot: flagModelsRoot,
		Language:   cfg.VoiceLanguage,
		Overrides:  cfg.VoiceOverrides,
	}

	return orchestrator.New(deps), l, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load(flagConfig)
	if err != nil {
		return err
	}

	if flagTUI {
		episodeID, groupID, err := runInteractivePicker(flagGameData, flagVoiceMap, flagModelsRoot)
		if err != nil {
			return err
		}
		flagEpisode, flagGroup = episodeID, groupID
	}

	if flagEpisode == "" && flagGroup == "" {
		return fmt.Errorf("either --episode or --group is required (or pass --tui to pick one)")
	}
	if flagEpisode != "" && flagGroup != "" {
		return fmt.Errorf("--episode and --group are mutually exclusive")
	}

	orch, l, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	var renderer *progress.BarRenderer
	if !flagVerbose {
		renderer = progress.NewBarRenderer(os.Stdout)
		defer renderer.Finish()
	}

	ctx := cmd.Context()
	sub, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	jobID := flagEpisode
	if flagGroup != "" {
		jobID = flagGroup
	}

	if flagEpisode != "" {
		episode, err := l.Index().Episode(flagEpisode)
		if err != nil {
			return err
		}
		if err := orch.StartRender(ctx, episode, flagForce); err != nil {
			return err
		}
	} else {
		episodeIDs, err := l.Index().EpisodesInGroup(flagGroup)
		if err != nil {
			return err
		}
		source := orchestrator.GroupSource(func(ctx context.Context, episodeID string) (*story.Episode, error) {
			return l.Index().Episode(episodeID)
		})
		if err := orch.StartGroupRender(ctx, flagGroup, episodeIDs, source, flagForce); err != nil {
			return err
		}
	}

	return waitForCompletion(sub, jobID, renderer)
}

// waitForCompletion drains sub until an Event for jobID reaches a terminal
// status, forwarding every event to renderer (nil is accepted for
// --verbose mode, where each event is printed here as one plain line).
func waitForCompletion(sub <-chan orchestrator.Event, jobID string, renderer *progress.BarRenderer) error {
	for e := range sub {
		if e.EpisodeID != jobID {
			continue
		}
		if renderer != nil {
			renderer.Handle(e)
		} else {
			fmt.Printf("[%s] %s: %d/%d %s\n", e.Status, e.EpisodeID, e.Completed, e.Total, e.CurrentText)
		}
		if e.Status.Terminal() {
			if e.Status == orchestrator.StatusFailed {
				return fmt.Errorf("render failed: %s", e.Error)
			}
			if e.Status == orchestrator.StatusCancelled {
				return fmt.Errorf("render cancelled")
			}
			return nil
		}
	}
	return fmt.Errorf("progress stream closed before job %q completed", jobID)
}

// runServe installs the stdout tracer provider and the Prometheus-backed
// meter provider alongside the render orchestrator, then blocks serving
// HTTP until interrupted. The HTTP boundary serves no metrics scrape
// route, and the Metrics instruments are not recorded to.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load(flagConfig)
	if err != nil {
		return err
	}

	orch, l, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracer(ctx, "arksynth", Version)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer tp.Shutdown(ctx)

	_, shutdownMetrics, err := observability.InitMetrics(ctx, "arksynth")
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer shutdownMetrics(ctx)

	server := httpapi.New(orch, l)
	httpServer := &http.Server{Addr: flagListenAddr, Handler: server.Router()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http boundary listening", "addr", flagListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func runListEngines(cmd *cobra.Command, args []string) error {
	engines := ttsface.NewEngineSet()
	engines.Register("gpt-sovits", func() (ttsface.Engine, error) {
		return gptsovits.New("gpt-sovits", flagTTSURL), nil
	})
	for _, name := range engines.Names() {
		fmt.Println(name)
	}
	return nil
}
