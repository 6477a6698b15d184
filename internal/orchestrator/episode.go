package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/arksynth/arksynth/internal/gpulease"
	"github.com/arksynth/arksynth/internal/ident"
	"github.com/arksynth/arksynth/internal/rendercache"
	"github.com/arksynth/arksynth/internal/story"
	"github.com/arksynth/arksynth/internal/ttsface"
	"github.com/arksynth/arksynth/internal/voice"
)

// Deps wires every collaborator the per-episode render driver needs.
type Deps struct {
	Cache           *rendercache.Cache
	Resolver        *voice.Resolver
	ScriptIDs       *voice.ScriptIDMap
	Engines         *ttsface.EngineSet
	EngineName      string
	Lease           gpulease.Lease
	ModelsRoot      string
	GenderPools     voice.GenderPools
	NarratorVoiceID string
	DefaultVoiceID  string
	// Overrides is the render job's explicit name->voice map (spec §3,
	// "Render job"), keyed by table-id when one is known or by
	// voice.DisplayNameKey(speakerName) otherwise. It is consulted as
	// its own precedence tier ahead of the gendered default (spec
	// §4.9 step 3), same as the original's speaker_voice_map
	// (render_manager.py:92,413-417,447-451).
	Overrides map[string]string
	Preparer  VoicePreparer
	Language  string
}

// EpisodeRenderer drives one episode through the full control flow: skip
// already-cached lines, resolve each remaining line's voice, prepare it
// on demand if needed, select a reference clip, synthesize, and commit
// to the cache, publishing an Event after every line.
type EpisodeRenderer struct {
	deps     Deps
	preparer *memoPreparer
	bus      *Broadcaster
}

// NewEpisodeRenderer builds a renderer over deps, publishing progress to
// bus (nil is accepted for tests that don't care about progress).
func NewEpisodeRenderer(deps Deps, bus *Broadcaster) *EpisodeRenderer {
	r := &EpisodeRenderer{deps: deps, bus: bus}
	if deps.Preparer != nil {
		r.preparer = newMemoPreparer(deps.Preparer)
	}
	return r
}

// inheritSpeakerNames folds forward: a dialogue line with no speaker name
// (a continuation line in the source script) inherits the most recent
// non-empty speaker name among preceding dialogue lines. Narration lines
// neither inherit nor seed inheritance for what follows.
func inheritSpeakerNames(dialogues []story.Dialogue) []story.Dialogue {
	out := make([]story.Dialogue, len(dialogues))
	copy(out, dialogues)
	last := ""
	for i := range out {
		if out[i].Kind != story.KindDialogue {
			continue
		}
		if out[i].SpeakerName == "" {
			out[i].SpeakerName = last
		} else {
			last = out[i].SpeakerName
		}
	}
	return out
}

// buildNameVoiceMap implements the spec's tier-3 in-episode name->voice
// inheritance (spec §4.9 step 3): the first dialogue line that carries
// both a speaker name and a table id whose override resolves to a voice
// seeds that name's inherited voice for every later line sharing the
// name but missing its own id. Built from the job's overrides map, same
// as the original's name_to_voice (render_manager.py:327-334), which is
// populated only when the line's resolved id is itself present in
// speaker_voice_map.
func (r *EpisodeRenderer) buildNameVoiceMap(dialogues []story.Dialogue) map[string]string {
	out := make(map[string]string)
	if len(r.deps.Overrides) == 0 {
		return out
	}
	for _, d := range dialogues {
		if d.Kind != story.KindDialogue || d.SpeakerName == "" {
			continue
		}
		if _, seen := out[d.SpeakerName]; seen {
			continue
		}
		charID := r.deps.ScriptIDs.Resolve(ident.Normalize(d.SpeakerName))
		if charID == "" {
			continue
		}
		if voiceID, ok := r.deps.Overrides[charID]; ok {
			out[d.SpeakerName] = voiceID
		}
	}
	return out
}

// overrideVoice looks up the job's explicit overrides (spec §4.9 tier 2:
// "explicit override keyed by table-id or by name:<speaker>"), keyed by
// charID when known, else by voice.DisplayNameKey(speakerName) — the
// same mapping_key convention the original builds before consulting
// speaker_voice_map (render_manager.py:413-417,447-451).
func (r *EpisodeRenderer) overrideVoice(charID, speakerName string) (string, bool) {
	if len(r.deps.Overrides) == 0 {
		return "", false
	}
	key := charID
	if key == "" {
		if speakerName == "" {
			return "", false
		}
		key = voice.DisplayNameKey(speakerName)
	}
	voiceID, ok := r.deps.Overrides[key]
	return voiceID, ok
}

func (r *EpisodeRenderer) publish(e Event, onEvent Callback) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
	if onEvent != nil {
		onEvent(e)
	}
}

// Render runs episode's full dialogue sequence to completion, skipping
// lines already present in the cache unless force wipes it first. ctx
// cancellation is observed between lines; a cancelled render reports
// StatusCancelled rather than StatusFailed. onEvent, if non-nil, receives
// every event alongside whatever is published to the shared broadcaster —
// GroupRenderer uses it to fold per-line progress into group-relative
// progress without itself subscribing to the broadcaster.
func (r *EpisodeRenderer) Render(ctx context.Context, episode *story.Episode, force bool, onEvent Callback) error {
	if force {
		if err := r.deps.Cache.DeleteEpisode(episode.ID); err != nil {
			return newError(KindFatal, "cache", "clear episode cache for re-render", err)
		}
	}

	dialogues := inheritSpeakerNames(episode.Dialogues)
	nameVoices := r.buildNameVoiceMap(dialogues)
	total := len(dialogues)
	started := time.Now()

	r.publish(Event{EpisodeID: episode.ID, Status: StatusRendering, Total: total, StartedAt: started}, onEvent)

	engine, err := r.deps.Engines.Get(r.deps.EngineName)
	if err != nil {
		renderErr := newError(KindFatal, "engine", "resolve tts engine", err)
		r.publish(Event{EpisodeID: episode.ID, Status: StatusFailed, Total: total, Error: renderErr.Error(), StartedAt: started, FinishedAt: time.Now()}, onEvent)
		return renderErr
	}

	completed := 0
	for i, d := range dialogues {
		if err := ctx.Err(); err != nil {
			r.publish(Event{EpisodeID: episode.ID, Status: StatusCancelled, Total: total, Completed: completed, StartedAt: started, FinishedAt: time.Now()}, onEvent)
			return newError(KindCancelled, "render", "render cancelled", err)
		}

		has, err := r.deps.Cache.Has(episode.ID, i)
		if err != nil {
			return newError(KindFatal, "cache", fmt.Sprintf("check cache for line %d", i), err)
		}
		if has {
			completed++
			r.publish(Event{EpisodeID: episode.ID, Status: StatusRendering, Total: total, Completed: completed, CurrentIndex: i, CurrentText: d.Text, StartedAt: started}, onEvent)
			continue
		}

		audio, effectiveVoice, speakerID, dur, err := r.renderLine(ctx, engine, d, i, nameVoices)
		if err != nil {
			var renderErr *RenderError
			if !errors.As(err, &renderErr) {
				renderErr = newError(KindTransient, "synthesis", fmt.Sprintf("render line %d", i), err)
			}
			r.publish(Event{EpisodeID: episode.ID, Status: StatusFailed, Total: total, Completed: completed, CurrentIndex: i, CurrentText: d.Text, Error: renderErr.Error(), StartedAt: started, FinishedAt: time.Now()}, onEvent)
			return renderErr
		}

		entry := rendercache.AudioEntry{
			Index:          i,
			SpeakerID:      speakerID,
			Text:           d.Text,
			Duration:       dur.Seconds(),
			EffectiveVoice: effectiveVoice,
		}
		if err := r.deps.Cache.Put(episode.ID, total, entry, audio); err != nil {
			return newError(KindFatal, "cache", fmt.Sprintf("commit line %d", i), err)
		}

		completed++
		r.publish(Event{EpisodeID: episode.ID, Status: StatusRendering, Total: total, Completed: completed, CurrentIndex: i, CurrentText: d.Text, StartedAt: started}, onEvent)
	}

	r.publish(Event{EpisodeID: episode.ID, Status: StatusCompleted, Total: total, Completed: completed, StartedAt: started, FinishedAt: time.Now()}, onEvent)
	return nil
}

// renderLine resolves the voice for d, synthesizes every text segment
// under a single GPU lease acquisition per segment, and concatenates the
// results into one clip.
func (r *EpisodeRenderer) renderLine(ctx context.Context, engine ttsface.Engine, d story.Dialogue, index int, nameVoices map[string]string) (audio []byte, effectiveVoice, speakerID string, dur time.Duration, err error) {
	voiceID, charID, err := r.resolveVoice(ctx, engine, d, nameVoices)
	if err != nil {
		return nil, "", "", 0, err
	}

	refAudio, auxRefs, promptText, refErr := r.selectReference(voiceID)
	if refErr != nil {
		// A voice with no sidecar descriptor still synthesizes; many
		// engines work from the voice id alone and treat an empty
		// reference as "use this voice's default".
		refAudio, auxRefs, promptText = "", nil, ""
	}

	text := ttsface.NormalizeKoreanNumerals(d.Text)
	segments := ttsface.SplitSegments(text)
	if len(segments) == 0 {
		segments = []string{text}
	}

	clips := make([][]byte, 0, len(segments))
	var total time.Duration
	for _, seg := range segments {
		req := ttsface.SynthesisRequest{
			Text:             seg,
			VoiceID:          voiceID,
			Language:         r.deps.Language,
			Speed:            1.0,
			RefAudioPath:     refAudio,
			AuxRefAudioPaths: auxRefs,
			PromptText:       promptText,
			PromptLang:       r.deps.Language,
		}

		release, leaseErr := r.deps.Lease.Acquire(ctx)
		if leaseErr != nil {
			return nil, "", "", 0, newError(KindCancelled, "gpu_lease", "acquire synthesis lease", leaseErr)
		}
		result, synthErr := engine.Synthesize(ctx, req)
		release()
		if synthErr != nil {
			return nil, "", "", 0, newError(KindTransient, "synthesis", fmt.Sprintf("synthesize line %d", index), synthErr)
		}
		clips = append(clips, result.Audio)
		total += result.Duration
	}

	out, err := ttsface.ConcatenateSegments(clips, segments)
	if err != nil {
		return nil, "", "", 0, newError(KindMalformed, "synthesis", "concatenate segments", err)
	}
	return out, voiceID, charID, total, nil
}

// resolveVoice implements the full precedence chain (spec §4.9 step 3):
// narrator/default for narration; for dialogue, alias-resolved voice id
// (tier 1, via Resolver.Resolve's own alias -> official table -> voice
// map -> folder-existence layering) -> explicit override keyed by
// table-id or name:<speaker> (tier 2) -> in-episode name->voice
// inheritance (tier 3) -> gendered hash fallback (tier 4) -> narrator or
// global default (tier 5).
func (r *EpisodeRenderer) resolveVoice(ctx context.Context, engine ttsface.Engine, d story.Dialogue, nameVoices map[string]string) (voiceID, charID string, err error) {
	if d.Kind != story.KindDialogue {
		if r.deps.NarratorVoiceID != "" {
			return r.deps.NarratorVoiceID, "", nil
		}
		if r.deps.DefaultVoiceID == "" {
			return "", "", newError(KindMissingResource, "voice_resolution", "no narrator or default voice configured", nil)
		}
		return r.deps.DefaultVoiceID, "", nil
	}

	charID = r.deps.ScriptIDs.Resolve(ident.Normalize(d.SpeakerName))

	if res, ok := r.deps.Resolver.Resolve(d.SpeakerName, charID); ok {
		voiceID = res.VoiceID
	} else if ov, ok := r.overrideVoice(charID, d.SpeakerName); ok {
		voiceID = ov
	} else if inherited, ok := nameVoices[d.SpeakerName]; ok && d.SpeakerName != "" {
		voiceID = inherited
	} else if gendered, ok := voice.GenderedDefault(r.deps.GenderPools, d.SpeakerName); ok {
		voiceID = gendered
	} else if r.deps.NarratorVoiceID != "" {
		voiceID = r.deps.NarratorVoiceID
	} else {
		voiceID = r.deps.DefaultVoiceID
	}

	if voiceID == "" {
		return "", charID, newError(KindMissingResource, "voice_resolution", fmt.Sprintf("no voice available for speaker %q", d.SpeakerName), nil)
	}

	ready, err := r.ensurePrepared(ctx, engine, voiceID)
	return ready, charID, err
}

// ensurePrepared falls back from voiceID to the narrator then the global
// default if the engine doesn't already have it loaded and preparing it
// fails, rather than aborting the whole episode over one unready
// character.
func (r *EpisodeRenderer) ensurePrepared(ctx context.Context, engine ttsface.Engine, voiceID string) (string, error) {
	chain := []string{voiceID}
	if r.deps.NarratorVoiceID != "" && r.deps.NarratorVoiceID != voiceID {
		chain = append(chain, r.deps.NarratorVoiceID)
	}
	if r.deps.DefaultVoiceID != "" && r.deps.DefaultVoiceID != voiceID && r.deps.DefaultVoiceID != r.deps.NarratorVoiceID {
		chain = append(chain, r.deps.DefaultVoiceID)
	}

	for _, candidate := range chain {
		if available, err := engine.IsVoiceAvailable(ctx, candidate); err == nil && available {
			return candidate, nil
		}
		if r.preparer != nil {
			if err := r.preparer.Prepare(ctx, candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", newError(KindMissingResource, "voice_resolution", fmt.Sprintf("no usable voice in fallback chain %v", chain), nil)
}

// selectReference picks a primary and auxiliary reference clip for
// voiceID from its model directory's sidecar descriptor, scoring
// candidates per the title/duration/text-length formula unless the
// descriptor marks the voice ICL-sensitive.
func (r *EpisodeRenderer) selectReference(voiceID string) (audioPath string, aux []string, promptText string, err error) {
	if r.deps.ModelsRoot == "" || voiceID == "" {
		return "", nil, "", fmt.Errorf("no models root configured")
	}
	cands, mode, err := voice.LoadReferenceInfo(filepath.Join(r.deps.ModelsRoot, voiceID))
	if err != nil {
		return "", nil, "", err
	}

	if mode == "icl" {
		best, ok := voice.SelectICL(cands)
		if !ok {
			return "", nil, "", fmt.Errorf("no eligible icl reference for %s", voiceID)
		}
		return best.Candidate.Audio, nil, best.Candidate.Text, nil
	}

	scored := voice.ScoreCandidates(cands, 3, 10)
	best, ok := voice.SelectBest(scored, 3, 10)
	if !ok {
		return "", nil, "", fmt.Errorf("no eligible reference for %s", voiceID)
	}
	auxScored := voice.SelectMultiTone(scored, 3)
	auxPaths := make([]string, 0, len(auxScored))
	for _, s := range auxScored {
		if s.Candidate.Audio == best.Candidate.Audio {
			continue
		}
		auxPaths = append(auxPaths, s.Candidate.Audio)
	}
	return best.Candidate.Audio, auxPaths, best.Candidate.Text, nil
}
