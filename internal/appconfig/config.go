// Package appconfig persists ArkSynth's small application configuration
// document: display/voice language, game-data source, and TTS/GPU
// defaults (spec §6, "Configuration"). It is JSON, defaults-then-validate
// shaped, and preserves unknown keys across a load/save round trip the
// same way internal/voice's mapping document does.
package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// GameDataSource names where the game-data tree is fetched from.
type GameDataSource string

const (
	SourceGitHub  GameDataSource = "github"
	SourceArkPrts GameDataSource = "arkprts"
)

const (
	DefaultDisplayLanguage = "en_US"
	DefaultVoiceLanguage   = "ko"
	DefaultBranch          = "main"
	DefaultEngine          = "gpt-sovits"
)

// Config is the on-disk shape of the application configuration document.
type Config struct {
	DisplayLanguage string            `json:"display_language"`
	VoiceLanguage   string            `json:"voice_language"`
	GameDataSource  GameDataSource    `json:"game_data_source"`
	Repository      string            `json:"repository,omitempty"`
	Branch          string            `json:"branch,omitempty"`
	DefaultEngine   string            `json:"default_engine"`
	Nicknames       map[string]string `json:"nicknames,omitempty"` // language code -> display nickname
	GPUCompat       GPUCompat         `json:"gpu_compat"`
	UpdateRepo      string            `json:"update_repo,omitempty"`
	// VoiceOverrides is the render job's explicit name->voice map (spec
	// §3, "Render job"): table-id or "name:<speaker>" to voice id,
	// consulted ahead of the gendered default fallback.
	VoiceOverrides map[string]string `json:"voice_overrides,omitempty"`

	extra map[string]json.RawMessage
}

// GPUCompat records the handful of GPU-capability flags the training
// worker and engine selection consult before committing to a backend.
type GPUCompat struct {
	CUDAAvailable bool `json:"cuda_available"`
	ForceCPU      bool `json:"force_cpu"`
	LowVRAM       bool `json:"low_vram"`
}

// Load reads path, applying Validate's defaults on success. A missing
// file is not an error: it returns a Config with every default applied,
// since first-run bootstrap has nothing to load yet.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c := &Config{extra: map[string]json.RawMessage{}}
		c.applyDefaults()
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	c := &Config{extra: make(map[string]json.RawMessage)}
	for k, v := range raw {
		switch k {
		case "display_language":
			json.Unmarshal(v, &c.DisplayLanguage)
		case "voice_language":
			json.Unmarshal(v, &c.VoiceLanguage)
		case "game_data_source":
			json.Unmarshal(v, &c.GameDataSource)
		case "repository":
			json.Unmarshal(v, &c.Repository)
		case "branch":
			json.Unmarshal(v, &c.Branch)
		case "default_engine":
			json.Unmarshal(v, &c.DefaultEngine)
		case "nicknames":
			json.Unmarshal(v, &c.Nicknames)
		case "voice_overrides":
			json.Unmarshal(v, &c.VoiceOverrides)
		case "gpu_compat":
			json.Unmarshal(v, &c.GPUCompat)
		case "update_repo":
			json.Unmarshal(v, &c.UpdateRepo)
		default:
			c.extra[k] = v
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyDefaults fills in every field Validate would otherwise reject as
// missing.
func (c *Config) applyDefaults() {
	if c.DisplayLanguage == "" {
		c.DisplayLanguage = DefaultDisplayLanguage
	}
	if c.VoiceLanguage == "" {
		c.VoiceLanguage = DefaultVoiceLanguage
	}
	if c.GameDataSource == "" {
		c.GameDataSource = SourceGitHub
	}
	if c.GameDataSource == SourceGitHub && c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.DefaultEngine == "" {
		c.DefaultEngine = DefaultEngine
	}
}

// Validate applies defaults in place and rejects a document whose
// game_data_source names a github repository with no owner/name, or
// whose game_data_source is neither recognized value.
func (c *Config) Validate() error {
	c.applyDefaults()

	switch c.GameDataSource {
	case SourceGitHub, SourceArkPrts:
	default:
		return fmt.Errorf("config: game_data_source must be %q or %q, got %q", SourceGitHub, SourceArkPrts, c.GameDataSource)
	}
	if c.GameDataSource == SourceGitHub && c.Repository == "" {
		return fmt.Errorf("config: repository is required when game_data_source is %q", SourceGitHub)
	}
	return nil
}

// Save persists c atomically (temp file + rename in the same directory),
// merging back any unrecognized top-level keys preserved from Load.
func (c *Config) Save(path string) error {
	out := make(map[string]json.RawMessage, len(c.extra)+9)
	for k, v := range c.extra {
		out[k] = v
	}
	marshal := func(v any) json.RawMessage {
		b, _ := json.Marshal(v)
		return b
	}
	out["display_language"] = marshal(c.DisplayLanguage)
	out["voice_language"] = marshal(c.VoiceLanguage)
	out["game_data_source"] = marshal(c.GameDataSource)
	out["default_engine"] = marshal(c.DefaultEngine)
	out["gpu_compat"] = marshal(c.GPUCompat)
	if c.Repository != "" {
		out["repository"] = marshal(c.Repository)
	}
	if c.Branch != "" {
		out["branch"] = marshal(c.Branch)
	}
	if len(c.Nicknames) > 0 {
		out["nicknames"] = marshal(c.Nicknames)
	}
	if len(c.VoiceOverrides) > 0 {
		out["voice_overrides"] = marshal(c.VoiceOverrides)
	}
	if c.UpdateRepo != "" {
		out["update_repo"] = marshal(c.UpdateRepo)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dirOf(path), ".arksynth-config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp config: %w", err)
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
