package voice

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ProbeDuration measures the duration of an audio reference clip,
// format-aware: WAV files are measured from their header (no decode
// pass), MP3 files are measured frame-accurately by walking frame
// headers. A clip whose duration cannot be determined returns an error;
// per the resolved Open Question, callers must treat that as "excluded
// from selection," not fall back to a file-size/bitrate estimate.
func ProbeDuration(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("probe duration %s: %w", path, err)
	}

	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return probeWAV(data)
	default:
		return probeMP3(data)
	}
}

func probeWAV(data []byte) (time.Duration, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	dur, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("probe wav duration: %w", err)
	}
	return dur, nil
}

// mp3BitrateTable is the MPEG-1 Layer III bitrate table in kbps, indexed
// by the header's 4-bit bitrate field.
var mp3BitrateTable = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}

// mp3SampleRateTable is the MPEG-1 sample rate table in Hz, indexed by
// the header's 2-bit sample rate field.
var mp3SampleRateTable = [4]int{44100, 48000, 32000, 0}

const mp3SamplesPerFrame = 1152

// probeMP3 walks MPEG-1 Layer III frame headers (skipping a leading
// ID3v2 tag if present) and sums each frame's sample count to arrive at
// an exact duration, without decoding audio samples.
func probeMP3(data []byte) (time.Duration, error) {
	pos := 0
	if len(data) >= 10 && bytes.HasPrefix(data, []byte("ID3")) {
		size := int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
		pos = 10 + size
	}

	totalSamples := 0
	framesFound := 0
	lastSampleRate := 0
	for pos+4 <= len(data) {
		if data[pos] != 0xFF || data[pos+1]&0xE0 != 0xE0 {
			pos++
			continue
		}
		header := uint32(data[pos])<<24 | uint32(data[pos+1])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+3])

		versionBits := (header >> 19) & 0x3
		layerBits := (header >> 17) & 0x3
		bitrateIdx := (header >> 12) & 0xF
		sampleRateIdx := (header >> 10) & 0x3
		padding := (header >> 9) & 0x1

		if versionBits != 0x3 || layerBits != 0x1 {
			// Only MPEG-1 Layer III frames are recognized; skip one byte
			// and keep scanning for a valid sync.
			pos++
			continue
		}

		bitrate := mp3BitrateTable[bitrateIdx]
		sampleRate := mp3SampleRateTable[sampleRateIdx]
		if bitrate == 0 || sampleRate == 0 {
			pos++
			continue
		}

		frameSize := 144*bitrate*1000/sampleRate + int(padding)
		if frameSize <= 0 || pos+frameSize > len(data) {
			break
		}

		totalSamples += mp3SamplesPerFrame
		framesFound++
		lastSampleRate = sampleRate
		pos += frameSize
	}

	if framesFound == 0 || lastSampleRate == 0 {
		return 0, fmt.Errorf("probe mp3 duration: no valid frames found")
	}
	seconds := float64(totalSamples) / float64(lastSampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}
