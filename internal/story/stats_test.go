package story

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupCharacterStatsLastNonMysteryName(t *testing.T) {
	ep := &Episode{
		ID: "e1",
		Dialogues: []Dialogue{
			{SpeakerID: "char_001_x", SpeakerName: "???", Kind: KindDialogue},
			{SpeakerID: "char_001_x", SpeakerName: "Exusiai", Kind: KindDialogue},
			{SpeakerID: "char_001_x", SpeakerName: "Exusiai?", Kind: KindDialogue},
		},
	}
	stats := GroupCharacterStats([]*Episode{ep})
	s, ok := stats["char_001_x"]
	require.True(t, ok)
	require.Equal(t, 3, s.LineCount)
	require.Equal(t, "Exusiai", s.DisplayName)
}

func TestIsMysteryName(t *testing.T) {
	require.True(t, isMysteryName("?"))
	require.True(t, isMysteryName("???"))
	require.True(t, isMysteryName("Someone?"))
	require.False(t, isMysteryName("Amiya"))
}
