package story

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEpisodeScenario(t *testing.T) {
	body := `[HEADER(...)] Darkness
[Character(name="char_002_amiya_1")]
[name="Amiya"] The doctor is here.
She paused.`

	ep := ParseEpisode("ep1", body)
	require.Equal(t, "Darkness", ep.Title)
	require.Len(t, ep.Dialogues, 2)

	d0 := ep.Dialogues[0]
	require.Equal(t, "Amiya", d0.SpeakerName)
	require.Equal(t, "The doctor is here.", d0.Text)
	require.Equal(t, KindDialogue, d0.Kind)
	require.Equal(t, "ep1_0000", d0.ID)

	d1 := ep.Dialogues[1]
	require.Equal(t, "", d1.SpeakerID)
	require.Equal(t, "", d1.SpeakerName)
	require.Equal(t, "She paused.", d1.Text)
	require.Equal(t, KindNarration, d1.Kind)
	require.Equal(t, "ep1_0001", d1.ID)
}

func TestParseLineMalformedCommandIsInvalid(t *testing.T) {
	p := ParseLine(`[Audio(path=)]`)
	require.NotEmpty(t, p.Invalid)
	require.Nil(t, p.Cmd)
}

func TestDenseMonotonicIndices(t *testing.T) {
	body := "line one\nline two\nline three"
	ep := ParseEpisode("e", body)
	for i, d := range ep.Dialogues {
		require.Equal(t, dialogueID("e", i), d.ID)
	}
}
