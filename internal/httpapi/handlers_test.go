package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arksynth/arksynth/internal/gpulease"
	"github.com/arksynth/arksynth/internal/loaders"
	"github.com/arksynth/arksynth/internal/orchestrator"
	"github.com/arksynth/arksynth/internal/rendercache"
	"github.com/arksynth/arksynth/internal/story"
	"github.com/arksynth/arksynth/internal/ttsface"
	"github.com/arksynth/arksynth/internal/voice"
)

type fakeEngine struct{}

func (f *fakeEngine) Name() string                         { return "fake" }
func (f *fakeEngine) IsAvailable(ctx context.Context) bool  { return true }
func (f *fakeEngine) EnsureReady(ctx context.Context) error { return nil }
func (f *fakeEngine) GetAvailableVoices(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (f *fakeEngine) IsVoiceAvailable(ctx context.Context, voiceID string) (bool, error) {
	return true, nil
}
func (f *fakeEngine) Synthesize(ctx context.Context, req ttsface.SynthesisRequest) (ttsface.SynthesisResult, error) {
	return ttsface.SynthesisResult{Audio: []byte("RIFFfakewavdata"), Duration: time.Second, Engine: "fake"}, nil
}

// writeEpisodeFile writes a minimal parseable episode script under
// langDir/gamedata/story so the Index can scan and parse it.
func writeEpisodeFile(t *testing.T, langDir, stem, body string) {
	t.Helper()
	dir := filepath.Join(langDir, "gamedata", "story")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, stem+".txt"), []byte(body), 0o644))
}

// writeExcelTables writes the four game-data tables story.LoadTables
// expects, registering stem under groupID so both Index.Episode and
// Index.EpisodesInGroup resolve it.
func writeExcelTables(t *testing.T, langDir, stem, groupID string) {
	t.Helper()
	dir := filepath.Join(langDir, "gamedata", "excel")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "character_table.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handbook_info_table.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "charword_table.json"), []byte(`{}`), 0o644))
	reviews := map[string]map[string]any{
		stem: {
			"id":        stem,
			"storyCode": stem,
			"storyName": stem,
			"storySort": 1,
			"entryType": "MAINLINE",
			"storyGroup": groupID,
		},
	}
	body, err := json.Marshal(reviews)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "story_review_table.json"), body, 0o644))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	langDir := t.TempDir()
	voiceMapPath := filepath.Join(t.TempDir(), "voice_map.json")

	writeEpisodeFile(t, langDir, "ep1", "[name=\"아미야\"]안녕하세요.\n")
	writeExcelTables(t, langDir, "ep1", "grp1")

	l := loaders.New(langDir, voiceMapPath, "")
	cache := rendercache.New(t.TempDir())

	doc := &voice.Document{Aliases: map[string]string{}}
	resolver := voice.NewResolver(doc, voiceMapPath, &story.Tables{}, "")
	engines := ttsface.NewEngineSet()
	engines.Register("fake", func() (ttsface.Engine, error) { return &fakeEngine{}, nil })

	orch := orchestrator.New(orchestrator.Deps{
		Cache:           cache,
		Resolver:        resolver,
		Engines:         engines,
		EngineName:      "fake",
		Lease:           gpulease.NoOp(),
		NarratorVoiceID: "narrator_voice",
		DefaultVoiceID:  "default_voice",
		Language:        "ko",
	})

	return New(orch, l)
}

func TestHandleRenderEpisodeUnknownIDReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/episodes/does-not-exist/render", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRenderEpisodeStartsJobAndFreesSlot(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/episodes/ep1/render", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return s.orch.Current() == ""
	}, time.Second, time.Millisecond)
}

func TestHandleGroupEpisodesReturnsIDs(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/groups/grp1/episodes", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		EpisodeIDs []string `json:"episode_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{"ep1"}, body.EpisodeIDs)
}

func TestHandleGroupEpisodesUnknownGroupReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/groups/does-not-exist/episodes", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCancelAlwaysSucceeds(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/episodes/ep1/cancel", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleAddAndRemoveAlias(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(aliasRequest{Name: "Doctor", CharacterID: "char_002_amiya"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/aliases", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	delReq := httptest.NewRequest(http.MethodDelete, "/aliases/Doctor", nil)
	delRec := httptest.NewRecorder()
	s.Router().ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)
}

func TestHandleAddAliasRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/aliases", strings.NewReader(`{"name":""}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
