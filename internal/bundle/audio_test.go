package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractAudioWithoutSamplesMap(t *testing.T) {
	objects := []Object{
		{Name: "clip_a", Kind: KindAudioClip, Data: []byte("aaa")},
		{Name: "tex", Kind: KindTexture2D, Data: []byte("ignored")},
		{Name: "clip_b", Kind: KindAudioClip, Data: []byte("bbb")},
	}
	out := ExtractAudio(objects, nil, "wav")
	require.Len(t, out, 2)
	require.Equal(t, "CN_000.wav", out[0].Filename)
	require.Equal(t, []byte("aaa"), out[0].Data)
	require.Equal(t, "CN_001.wav", out[1].Filename)
	require.Equal(t, []byte("bbb"), out[1].Data)
}

func TestExtractAudioWithSamplesMap(t *testing.T) {
	objects := []Object{
		{Name: "multi", Kind: KindAudioClip, Data: []byte("0123456789")},
	}
	samples := map[string]SamplesMap{
		"multi": {
			"b": {5, 10},
			"a": {0, 5},
		},
	}
	out := ExtractAudio(objects, samples, "ogg")
	require.Len(t, out, 2)
	require.Equal(t, []byte("01234"), out[0].Data)
	require.Equal(t, []byte("56789"), out[1].Data)
}
