// Package rendercache implements the Render Cache (spec §4.8): a durable,
// per-episode on-disk store of synthesized dialogue lines plus a manifest
// that the orchestrator consults to decide what still needs rendering.
package rendercache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const manifestName = "meta.json"

// AudioEntry is one cached dialogue line (spec §3, "Cached audio entry").
// RunID is a sortable-by-time identifier stamped the first time a line is
// synthesized, letting a manifest reader order entries by render attempt
// even after Audios has been re-sorted by Index.
type AudioEntry struct {
	Index          int       `json:"index"`
	RunID          string    `json:"run_id,omitempty"`
	SpeakerID      string    `json:"speaker_id"`
	Text           string    `json:"text"`
	Duration       float64   `json:"duration_seconds"`
	FilePath       string    `json:"file_path"`
	SynthesizedAt  time.Time `json:"synthesized_at"`
	EffectiveVoice string    `json:"effective_voice_id,omitempty"`
}

// Manifest is the on-disk shape of meta.json. Unknown fields a future
// version adds are tolerated by round-tripping through a raw map for
// anything this struct doesn't recognize.
type Manifest struct {
	EpisodeID     string       `json:"episode_id"`
	TotalLines    int          `json:"total_dialogues"`
	RenderedCount int          `json:"rendered_count"`
	Audios        []AudioEntry `json:"audios"`
	CreatedAt     time.Time    `json:"created_at,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at,omitempty"`

	extra map[string]json.RawMessage
}

// Cache is a directory of per-episode render caches rooted at root.
type Cache struct {
	root string
}

// New creates a Cache rooted at root. The directory is created lazily on
// first write.
func New(root string) *Cache {
	return &Cache{root: root}
}

// safeID replaces path separators in an episode id with underscores, so
// an id can never escape the cache root or collide with a reserved path
// component.
func safeID(episodeID string) string {
	r := strings.NewReplacer("/", "_", "\\", "_")
	return r.Replace(episodeID)
}

// EpisodeDir returns the directory a given episode's cache lives under.
func (c *Cache) EpisodeDir(episodeID string) string {
	return filepath.Join(c.root, safeID(episodeID))
}

func (c *Cache) manifestPath(episodeID string) string {
	return filepath.Join(c.EpisodeDir(episodeID), manifestName)
}

// Load reads the manifest for episodeID, returning an empty manifest
// (not an error) if the episode has never been rendered.
func (c *Cache) Load(episodeID string) (*Manifest, error) {
	data, err := os.ReadFile(c.manifestPath(episodeID))
	if os.IsNotExist(err) {
		return &Manifest{EpisodeID: episodeID, extra: map[string]json.RawMessage{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load manifest for %s: %w", episodeID, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest for %s: %w", episodeID, err)
	}

	m := &Manifest{extra: make(map[string]json.RawMessage)}
	for k, v := range raw {
		switch k {
		case "episode_id":
			json.Unmarshal(v, &m.EpisodeID)
		case "total_dialogues":
			json.Unmarshal(v, &m.TotalLines)
		case "rendered_count":
			json.Unmarshal(v, &m.RenderedCount)
		case "audios":
			json.Unmarshal(v, &m.Audios)
		case "created_at":
			json.Unmarshal(v, &m.CreatedAt)
		case "updated_at":
			json.Unmarshal(v, &m.UpdatedAt)
		default:
			m.extra[k] = v
		}
	}
	sort.Slice(m.Audios, func(i, j int) bool { return m.Audios[i].Index < m.Audios[j].Index })
	return m, nil
}

// save writes m atomically: write to a temp file in the same directory,
// then rename over the manifest path, so an aborted write never leaves a
// partially-updated manifest observable to a concurrent reader.
func (c *Cache) save(episodeID string, m *Manifest) error {
	dir := c.EpisodeDir(episodeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir for %s: %w", episodeID, err)
	}

	sort.Slice(m.Audios, func(i, j int) bool { return m.Audios[i].Index < m.Audios[j].Index })
	m.RenderedCount = len(m.Audios)
	m.UpdatedAt = time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}

	out := make(map[string]json.RawMessage, len(m.extra)+6)
	for k, v := range m.extra {
		out[k] = v
	}
	marshal := func(v any) json.RawMessage {
		b, _ := json.Marshal(v)
		return b
	}
	out["episode_id"] = marshal(m.EpisodeID)
	out["total_dialogues"] = marshal(m.TotalLines)
	out["rendered_count"] = marshal(m.RenderedCount)
	out["audios"] = marshal(m.Audios)
	out["created_at"] = marshal(m.CreatedAt)
	out["updated_at"] = marshal(m.UpdatedAt)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest for %s: %w", episodeID, err)
	}

	tmp, err := os.CreateTemp(dir, ".meta-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest for %s: %w", episodeID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp manifest for %s: %w", episodeID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp manifest for %s: %w", episodeID, err)
	}
	if err := os.Rename(tmpName, c.manifestPath(episodeID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp manifest for %s: %w", episodeID, err)
	}
	return nil
}

// Has reports whether index is already present in episodeID's manifest.
func (c *Cache) Has(episodeID string, index int) (bool, error) {
	m, err := c.Load(episodeID)
	if err != nil {
		return false, err
	}
	for _, a := range m.Audios {
		if a.Index == index {
			return true, nil
		}
	}
	return false, nil
}

// Put writes audio to its relative file path under the episode directory
// and appends (or replaces, if index already exists) entry in the
// manifest, then persists the manifest — in that order, so a crash
// between the two leaves an orphaned file, never a manifest entry
// pointing at a missing one.
func (c *Cache) Put(episodeID string, totalLines int, entry AudioEntry, audio []byte) error {
	dir := c.EpisodeDir(episodeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir for %s: %w", episodeID, err)
	}
	if entry.FilePath == "" {
		entry.FilePath = fmt.Sprintf("%04d.wav", entry.Index)
	}
	if entry.SynthesizedAt.IsZero() {
		entry.SynthesizedAt = time.Now()
	}
	if entry.RunID == "" {
		entry.RunID = ulid.Make().String()
	}

	if err := os.WriteFile(filepath.Join(dir, entry.FilePath), audio, 0o644); err != nil {
		return fmt.Errorf("write clip %d for %s: %w", entry.Index, episodeID, err)
	}

	m, err := c.Load(episodeID)
	if err != nil {
		return err
	}
	m.TotalLines = totalLines
	replaced := false
	for i, a := range m.Audios {
		if a.Index == entry.Index {
			m.Audios[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		m.Audios = append(m.Audios, entry)
	}
	return c.save(episodeID, m)
}

// DeleteLine removes one cached clip: its file and its manifest entry.
func (c *Cache) DeleteLine(episodeID string, index int) error {
	m, err := c.Load(episodeID)
	if err != nil {
		return err
	}
	kept := m.Audios[:0]
	var removedPath string
	for _, a := range m.Audios {
		if a.Index == index {
			removedPath = a.FilePath
			continue
		}
		kept = append(kept, a)
	}
	m.Audios = kept
	if removedPath != "" {
		os.Remove(filepath.Join(c.EpisodeDir(episodeID), removedPath))
	}
	return c.save(episodeID, m)
}

// DeleteEpisode removes an episode's entire cache directory.
func (c *Cache) DeleteEpisode(episodeID string) error {
	return os.RemoveAll(c.EpisodeDir(episodeID))
}

// Status classifies an episode's cache completeness.
type Status int

const (
	StatusEmpty Status = iota
	StatusPartial
	StatusComplete
)

// StatusOf reports whether episodeID's manifest is empty, partial, or
// complete relative to totalLines.
func (c *Cache) StatusOf(episodeID string, totalLines int) (Status, error) {
	m, err := c.Load(episodeID)
	if err != nil {
		return StatusEmpty, err
	}
	switch {
	case m.RenderedCount == 0:
		return StatusEmpty, nil
	case totalLines > 0 && m.RenderedCount >= totalLines:
		return StatusComplete, nil
	default:
		return StatusPartial, nil
	}
}
