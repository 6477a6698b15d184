package voice

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// buildMP3Frame returns one MPEG-1 Layer III frame header (128 kbps,
// 44100 Hz, no padding) followed by zero-filled frame payload bytes.
func buildMP3Frame() []byte {
	const bitrate = 128
	const sampleRate = 44100
	frameSize := 144*bitrate*1000/sampleRate + 0 // padding = 0

	frame := make([]byte, frameSize)
	frame[0] = 0xFF
	frame[1] = 0xFB // sync + MPEG1 + Layer III + no CRC
	frame[2] = 0x90 // bitrate idx 9 (128kbps), samplerate idx 0 (44100), no padding
	frame[3] = 0x00
	return frame
}

func TestProbeMP3Duration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3")

	var data []byte
	data = append(data, buildMP3Frame()...)
	data = append(data, buildMP3Frame()...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	dur, err := ProbeDuration(path)
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}

	want := time.Duration(float64(1152*2) / 44100 * float64(time.Second))
	delta := dur - want
	if delta < 0 {
		delta = -delta
	}
	if delta > time.Millisecond {
		t.Fatalf("expected ~%v, got %v", want, dur)
	}
}

func TestProbeDurationUnrecognizedFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.bin")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ProbeDuration(path); err == nil {
		t.Fatal("expected an error for a file with no recognizable audio header")
	}
}
