package story

import "strings"

// SpeakerStat is one speaker's aggregate presence across a group of
// episodes: how many lines they spoke and the display name they should be
// credited under.
type SpeakerStat struct {
	SpeakerID   string
	LineCount   int
	DisplayName string
}

// GroupCharacterStats walks every episode in a group and collates speaker
// ids and names. When a speaker's display name mutates across the group
// (e.g. an initially-anonymous speaker is later named), the DisplayName
// presented is the last non-mystery name observed, computed as a pure
// left-fold over the ordered dialogue list rather than a mutable state
// machine threaded through the scan.
func GroupCharacterStats(episodes []*Episode) map[string]*SpeakerStat {
	stats := make(map[string]*SpeakerStat)
	order := make([]string, 0)

	for _, ep := range episodes {
		for _, d := range ep.Dialogues {
			if d.Kind != KindDialogue || d.SpeakerID == "" {
				continue
			}
			s, ok := stats[d.SpeakerID]
			if !ok {
				s = &SpeakerStat{SpeakerID: d.SpeakerID}
				stats[d.SpeakerID] = s
				order = append(order, d.SpeakerID)
			}
			s.LineCount++
			if !isMysteryName(d.SpeakerName) {
				s.DisplayName = d.SpeakerName
			} else if s.DisplayName == "" {
				s.DisplayName = d.SpeakerName
			}
		}
	}
	return stats
}

// isMysteryName reports whether name is the "unknown speaker" placeholder:
// it ends with "?" or consists entirely of "?" characters.
func isMysteryName(name string) bool {
	if name == "" {
		return false
	}
	trimmed := strings.TrimRight(name, "?")
	return trimmed == "" || strings.HasSuffix(name, "?")
}
