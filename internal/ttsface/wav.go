package ttsface

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Silence gaps inserted between adjacent synthesized segments, sized by
// the preceding segment's trailing punctuation (segment.go splits on
// sentence ends and, for long sentences, on commas).
const (
	gapSentence = 150 * time.Millisecond
	gapComma    = 250 * time.Millisecond
	gapEllipsis = 450 * time.Millisecond
)

// gapFor picks the silence gap to insert after a text segment.
func gapFor(segment string) time.Duration {
	s := strings.TrimSpace(segment)
	switch {
	case strings.HasSuffix(s, "..."), strings.HasSuffix(s, "…"):
		return gapEllipsis
	case strings.HasSuffix(s, ","):
		return gapComma
	default:
		return gapSentence
	}
}

// ConcatenateSegments decodes each raw WAV clip produced from one segment
// of SplitSegments' output, concatenates their PCM frames in order, and
// inserts a silence gap between adjacent clips sized by the preceding
// segment's trailing punctuation. Every clip must share sample rate, bit
// depth, and channel count, which holds in practice since all segments
// of one dialogue line are rendered by the same engine call in the same
// voice.
func ConcatenateSegments(clips [][]byte, texts []string) ([]byte, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("concatenate segments: no clips")
	}
	if len(clips) == 1 {
		return clips[0], nil
	}

	var format *audio.Format
	var sampleRate, bitDepth int
	full := &audio.IntBuffer{}

	for i, clip := range clips {
		dec := wav.NewDecoder(bytes.NewReader(clip))
		buf, err := dec.FullPCMBuffer()
		if err != nil {
			return nil, fmt.Errorf("decode segment %d: %w", i, err)
		}
		if format == nil {
			format = buf.Format
			sampleRate = buf.Format.SampleRate
			bitDepth = int(dec.BitDepth)
			full.Format = format
			full.SourceBitDepth = bitDepth
		}
		full.Data = append(full.Data, buf.Data...)

		if i < len(clips)-1 {
			gap := gapSentence
			if i < len(texts) {
				gap = gapFor(texts[i])
			}
			full.Data = append(full.Data, silenceSamples(gap, sampleRate, format.NumChannels)...)
		}
	}

	var out bytes.Buffer
	enc := wav.NewEncoder(&out, sampleRate, bitDepth, format.NumChannels, 1)
	if err := enc.Write(full); err != nil {
		return nil, fmt.Errorf("encode concatenated clip: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close concatenated clip encoder: %w", err)
	}
	return out.Bytes(), nil
}

func silenceSamples(d time.Duration, sampleRate, channels int) []int {
	n := int(d.Seconds()*float64(sampleRate)) * channels
	if n < 0 {
		n = 0
	}
	return make([]int, n)
}
