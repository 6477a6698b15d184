package voice

import (
	"os"
	"path/filepath"

	"github.com/arksynth/arksynth/internal/ident"
	"github.com/arksynth/arksynth/internal/story"
)

// Resolution is the result of resolving a speaker to a voice-capable
// character, along with which step in the precedence chain produced it.
type Resolution struct {
	VoiceID string
	Source  MappingSource
}

// Resolver implements the Identity Resolver: it maps a speaker name and/or
// character id to the id of a voice-capable character, in this order:
// user aliases, the official character table (name or localized
// alternate), the voice map's flat form, and finally whether a voice
// folder exists for the candidate id.
//
// Writes are serialized by the caller (the HTTP boundary dispatches
// single-threaded per the concurrency model), so neither Resolver nor
// Document locks internally.
type Resolver struct {
	doc         *Document
	docPath     string
	tables      *story.Tables
	modelsRoot  string // directory holding one subdirectory per voice id
}

// NewResolver builds a Resolver over an already-loaded voice map document,
// the official tables for the active language, and the root directory of
// per-character model folders.
func NewResolver(doc *Document, docPath string, tables *story.Tables, modelsRoot string) *Resolver {
	return &Resolver{doc: doc, docPath: docPath, tables: tables, modelsRoot: modelsRoot}
}

// Resolve looks up a voice id for a speaker, given an optional display
// name and an optional character id (already normalized via
// internal/ident). Either may be empty.
func (r *Resolver) Resolve(displayName, charID string) (Resolution, bool) {
	if displayName != "" {
		if voiceID, ok := r.doc.Aliases[displayName]; ok {
			return Resolution{VoiceID: voiceID, Source: SourceAlias}, true
		}
	}

	if voiceID, ok := r.lookupOfficial(displayName); ok {
		return Resolution{VoiceID: voiceID, Source: SourceOfficial}, true
	}

	if displayName != "" {
		if voiceID, ok := r.doc.Aliases[DisplayNameKey(displayName)]; ok {
			return Resolution{VoiceID: voiceID, Source: SourceVoiceMap}, true
		}
	}

	if charID != "" && r.HasVoiceFolder(charID) {
		return Resolution{VoiceID: charID, Source: SourceFolder}, true
	}

	return Resolution{}, false
}

// lookupOfficial matches displayName against the canonical character name
// or any localized alternate in the official table.
func (r *Resolver) lookupOfficial(displayName string) (string, bool) {
	if displayName == "" || r.tables == nil {
		return "", false
	}
	for id, c := range r.tables.Characters {
		if c.Name == displayName {
			return id, true
		}
		for _, alt := range c.Alternates {
			if alt == displayName {
				return id, true
			}
		}
	}
	return "", false
}

// HasVoiceFolder reports whether a prepared model directory exists for
// charID, after normalizing it.
func (r *Resolver) HasVoiceFolder(charID string) bool {
	if r.modelsRoot == "" {
		return false
	}
	normalized := ident.Normalize(charID)
	info, err := os.Stat(filepath.Join(r.modelsRoot, normalized))
	return err == nil && info.IsDir()
}

// AddAlias persists a new alias mapping.
func (r *Resolver) AddAlias(name, charID string) error {
	return r.doc.AddAlias(r.docPath, name, charID)
}

// RemoveAlias removes an alias mapping.
func (r *Resolver) RemoveAlias(name string) error {
	return r.doc.RemoveAlias(r.docPath, name)
}
