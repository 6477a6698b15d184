package bundle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello hello hello hello hello, this repeats a lot a lot a lot"),
		bytes.Repeat([]byte("A"), 4096),
		[]byte("short"),
		[]byte{},
	}
	for _, x := range cases {
		encoded, err := Encode(x)
		require.NoError(t, err)
		if len(x) == 0 {
			continue
		}
		decoded, err := Decode(encoded, len(x))
		require.NoError(t, err)
		require.Equal(t, x, decoded)
	}
}

func TestDecodeTruncatedTokenIsMalformed(t *testing.T) {
	_, err := Decode([]byte{}, 10)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, ErrKindMalformedStream, de.Kind)
}
