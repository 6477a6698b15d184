package voice

import (
	"encoding/json"
	"fmt"
	"os"
)

// ScriptIDMap remaps a speaker id as it appears in a story script to the
// id that actually keys the character table. Some sprite ids differ from
// the table id only in their final morphological suffix (e.g. a script
// might reference "char_002_amiya_2" where the table knows "char_002_amiya").
type ScriptIDMap struct {
	entries map[string]string
}

// LoadScriptIDMap reads the remap table from path. A load failure is
// reported as invalid input to the caller: the map is optional
// infrastructure, but once named it must exist and parse.
func LoadScriptIDMap(path string) (*ScriptIDMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load script id map %s: %w", path, err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse script id map %s: %w", path, err)
	}
	return &ScriptIDMap{entries: entries}, nil
}

// Resolve returns the table id for scriptID, or scriptID unchanged if no
// remap entry exists.
func (m *ScriptIDMap) Resolve(scriptID string) string {
	if m == nil {
		return scriptID
	}
	if tableID, ok := m.entries[scriptID]; ok {
		return tableID
	}
	return scriptID
}
