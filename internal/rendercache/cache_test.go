package rendercache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutThenLoadRoundTrips(t *testing.T) {
	c := New(t.TempDir())

	err := c.Put("ep1", 3, AudioEntry{Index: 0, SpeakerID: "char_002_amiya", Text: "hi"}, []byte("RIFF..."))
	require.NoError(t, err)

	m, err := c.Load("ep1")
	require.NoError(t, err)
	require.Equal(t, 1, m.RenderedCount)
	require.Len(t, m.Audios, 1)
	require.Equal(t, "0000.wav", m.Audios[0].FilePath)

	has, err := c.Has("ep1", 0)
	require.NoError(t, err)
	require.True(t, has)
}

func TestManifestInvariantRenderedCountMatchesAudios(t *testing.T) {
	c := New(t.TempDir())
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Put("ep1", 3, AudioEntry{Index: i}, []byte("x")))
	}
	m, err := c.Load("ep1")
	require.NoError(t, err)
	require.Equal(t, len(m.Audios), m.RenderedCount)

	indices := make(map[int]bool)
	for _, a := range m.Audios {
		indices[a.Index] = true
	}
	require.Len(t, indices, 3)
}

func TestDeleteLineRemovesFileAndEntry(t *testing.T) {
	c := New(t.TempDir())
	require.NoError(t, c.Put("ep1", 2, AudioEntry{Index: 0}, []byte("x")))
	require.NoError(t, c.Put("ep1", 2, AudioEntry{Index: 1}, []byte("x")))

	require.NoError(t, c.DeleteLine("ep1", 0))

	m, err := c.Load("ep1")
	require.NoError(t, err)
	require.Len(t, m.Audios, 1)
	require.Equal(t, 1, m.Audios[0].Index)

	has, err := c.Has("ep1", 0)
	require.NoError(t, err)
	require.False(t, has)
}

func TestStatusOfClassifiesCompleteness(t *testing.T) {
	c := New(t.TempDir())

	status, err := c.StatusOf("ep1", 5)
	require.NoError(t, err)
	require.Equal(t, StatusEmpty, status)

	require.NoError(t, c.Put("ep1", 5, AudioEntry{Index: 0}, []byte("x")))
	status, err = c.StatusOf("ep1", 5)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, status)

	for i := 1; i < 5; i++ {
		require.NoError(t, c.Put("ep1", 5, AudioEntry{Index: i}, []byte("x")))
	}
	status, err = c.StatusOf("ep1", 5)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, status)
}

func TestEpisodeIDWithSeparatorsIsSafeOnDisk(t *testing.T) {
	c := New(t.TempDir())
	err := c.Put("group/ep_1", 1, AudioEntry{Index: 0}, []byte("x"))
	require.NoError(t, err)

	m, err := c.Load("group/ep_1")
	require.NoError(t, err)
	require.Len(t, m.Audios, 1)
}

func TestResumeOnlySynthesizesMissingIndices(t *testing.T) {
	c := New(t.TempDir())
	for _, idx := range []int{0, 1, 3} {
		require.NoError(t, c.Put("ep1", 5, AudioEntry{Index: idx}, []byte("x")))
	}

	missing := []int{}
	for i := 0; i < 5; i++ {
		has, err := c.Has("ep1", i)
		require.NoError(t, err)
		if !has {
			missing = append(missing, i)
		}
	}
	require.Equal(t, []int{2, 4}, missing)

	for _, idx := range missing {
		require.NoError(t, c.Put("ep1", 5, AudioEntry{Index: idx}, []byte("x")))
	}

	m, err := c.Load("ep1")
	require.NoError(t, err)
	require.Equal(t, 5, m.RenderedCount)
	seen := make(map[int]bool)
	for _, a := range m.Audios {
		seen[a.Index] = true
	}
	for i := 0; i < 5; i++ {
		require.True(t, seen[i], "index %d missing from final manifest", i)
	}
}
