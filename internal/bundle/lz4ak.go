package bundle

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Decode rewrites an LZ4AK-compressed block into a standard LZ4 block in
// place and decompresses it into a freshly allocated buffer of
// uncompressedSize bytes.
//
// LZ4AK differs from stock LZ4 in exactly two ways: each sequence token
// carries its literal length in the low nibble and its match length in the
// high nibble (swapped from LZ4's convention), and match offsets are stored
// big-endian instead of little-endian. Decode walks the sequence structure
// fixing both before handing the buffer to the standard block decompressor,
// so the actual LZ4 decode logic is never reimplemented.
//
// Decode mutates src. Callers must pass an owned copy of the compressed
// bytes; the in-place rewrite is not reversible without the original data.
func Decode(src []byte, uncompressedSize int) ([]byte, error) {
	if err := rewriteTokens(src, uncompressedSize, true); err != nil {
		return nil, err
	}
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(src, dst, nil)
	if err != nil {
		return nil, &DecodeError{Kind: ErrKindMalformedStream, Msg: err.Error()}
	}
	if n != uncompressedSize {
		return nil, &DecodeError{
			Kind:   ErrKindBoundsViolation,
			Offset: n,
			Msg:    fmt.Sprintf("decompressed %d bytes, want %d", n, uncompressedSize),
		}
	}
	return dst, nil
}

// rewriteTokens walks the sequence structure of an LZ4-shaped block,
// swapping each token's nibbles and each match offset's byte order in
// place. toStandard selects the direction: true reads LZ4AK-ordered tokens
// (low=literal, high=match) and writes standard ones; false does the
// reverse, used by Encode.
func rewriteTokens(buf []byte, uncompressedSize int, toStandard bool) error {
	pos := 0
	outPos := 0
	for {
		if pos >= len(buf) {
			return &DecodeError{Kind: ErrKindMalformedStream, Offset: pos, Msg: "truncated token"}
		}
		token := buf[pos]
		var litLen, matchLen int
		if toStandard {
			litLen = int(token & 0x0F)
			matchLen = int((token >> 4) & 0x0F)
		} else {
			litLen = int((token >> 4) & 0x0F)
			matchLen = int(token & 0x0F)
		}
		if toStandard {
			buf[pos] = (byte(litLen) << 4) | byte(matchLen)
		} else {
			buf[pos] = (byte(matchLen) << 4) | byte(litLen)
		}
		pos++

		if litLen == 15 {
			extra, newPos, err := readExtraLength(buf, pos)
			if err != nil {
				return err
			}
			litLen += extra
			pos = newPos
		}

		if pos+litLen > len(buf) {
			return &DecodeError{Kind: ErrKindMalformedStream, Offset: pos, Msg: "truncated literal run"}
		}
		pos += litLen
		outPos += litLen

		if outPos >= uncompressedSize {
			return nil
		}

		if pos+2 > len(buf) {
			return &DecodeError{Kind: ErrKindMalformedStream, Offset: pos, Msg: "truncated match offset"}
		}
		buf[pos], buf[pos+1] = buf[pos+1], buf[pos]
		pos += 2

		if matchLen == 15 {
			extra, newPos, err := readExtraLength(buf, pos)
			if err != nil {
				return err
			}
			matchLen += extra
			pos = newPos
		}

		outPos += matchLen + 4
		if outPos > uncompressedSize {
			return &DecodeError{Kind: ErrKindBoundsViolation, Offset: pos, Msg: "match extends past declared size"}
		}
	}
}

// readExtraLength sums successive extra-length bytes starting at pos,
// stopping at (and including) the first byte under 255, per the shared
// LZ4/LZ4AK convention for length fields that overflow their 4-bit nibble.
func readExtraLength(buf []byte, pos int) (sum int, newPos int, err error) {
	for {
		if pos >= len(buf) {
			return 0, pos, &DecodeError{Kind: ErrKindMalformedStream, Offset: pos, Msg: "truncated extra-length byte"}
		}
		b := buf[pos]
		pos++
		sum += int(b)
		if b < 255 {
			return sum, pos, nil
		}
	}
}
