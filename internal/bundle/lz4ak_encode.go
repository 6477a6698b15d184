package bundle

import "github.com/pierrec/lz4/v4"

// Encode compresses src into an LZ4AK-format block: a standard LZ4 block
// whose tokens have swapped nibbles and whose match offsets are
// byte-swapped to big-endian, the inverse of the transform Decode performs.
// It exists to support the round-trip property test decode(encode(x)) ==
// x; ArkSynth never writes AssetBundles itself.
func Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible input: pierrec signals this by returning 0. Emit a
		// block consisting of a single literal-only sequence instead of
		// failing the round trip.
		return literalOnlyBlock(src), nil
	}
	block := dst[:n]
	if err := rewriteTokens(block, len(src), false); err != nil {
		return nil, err
	}
	return block, nil
}

// literalOnlyBlock builds an LZ4AK block holding src as a single literal
// run with no match, written directly in LZ4AK order: the literal length
// goes in the token's low nibble and there is no match offset to swap.
func literalOnlyBlock(src []byte) []byte {
	litLen := len(src)
	var out []byte
	if litLen < 15 {
		out = append(out, byte(litLen))
	} else {
		out = append(out, 0x0F)
		n := litLen - 15
		for n >= 255 {
			out = append(out, 255)
			n -= 255
		}
		out = append(out, byte(n))
	}
	return append(out, src...)
}
