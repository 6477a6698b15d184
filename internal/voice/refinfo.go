package voice

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// refInfoFile is the on-disk shape of a model directory's sidecar
// descriptor (spec §6, "Per-character reference info"): a list of
// reference clips plus an engine-mode marker (ICL-sensitive engines score
// candidates differently, see SelectICL).
type refInfoFile struct {
	RefAudios []refAudioEntry `json:"ref_audios"`
	Mode      string          `json:"engine_mode,omitempty"`
}

type refAudioEntry struct {
	Audio   string  `json:"audio"`
	Text    string  `json:"text"`
	Title   string  `json:"title"`
	Score   float64 `json:"score,omitempty"`
	TextLen int     `json:"text_len,omitempty"`
}

const refInfoFileName = "info.json"

// LoadReferenceInfo reads modelDir's sidecar descriptor and resolves each
// entry's audio path (relative to modelDir, per spec §6) plus its
// duration (format-aware, via ProbeDuration). A clip whose duration
// cannot be determined is excluded from the candidate set entirely,
// following the resolved Open Question rather than estimating duration
// from file size.
func LoadReferenceInfo(modelDir string) ([]Candidate, string, error) {
	data, err := os.ReadFile(filepath.Join(modelDir, refInfoFileName))
	if err != nil {
		return nil, "", fmt.Errorf("load reference info %s: %w", modelDir, err)
	}

	var file refInfoFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, "", fmt.Errorf("parse reference info %s: %w", modelDir, err)
	}

	cands := make([]Candidate, 0, len(file.RefAudios))
	for _, e := range file.RefAudios {
		audioPath := filepath.Join(modelDir, e.Audio)
		dur, err := ProbeDuration(audioPath)
		if err != nil {
			continue
		}
		textLen := e.TextLen
		if textLen == 0 {
			textLen = len([]rune(e.Text))
		}
		cands = append(cands, Candidate{
			Audio:    audioPath,
			Text:     e.Text,
			Title:    e.Title,
			Duration: dur.Seconds(),
			TextLen:  textLen,
		})
	}
	return cands, file.Mode, nil
}
