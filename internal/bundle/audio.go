package bundle

import "fmt"

// AudioOutput is one extracted clip, named and ready to write to the
// character directory.
type AudioOutput struct {
	Filename string
	Data     []byte
}

// SamplesMap associates a name (as it would appear inside a multi-clip
// AudioClip object) with its raw byte range within the object's payload.
// When an AudioClip carries no samples map, its whole payload is a single
// clip.
type SamplesMap map[string][2]int

// ExtractAudio turns every AudioClip object into one or more named output
// clips. ext is the file extension the caller expects the engine to emit
// (e.g. "wav" or "ogg"); the extractor does not inspect codec headers.
//
// samples, keyed by object name, supplies the sample map for AudioClip
// objects that pack more than one logical clip; an object absent from
// samples is emitted whole.
func ExtractAudio(objects []Object, samples map[string]SamplesMap, ext string) []AudioOutput {
	var out []AudioOutput
	counter := 0
	for _, o := range objects {
		if o.Kind != KindAudioClip {
			continue
		}
		if sm, ok := samples[o.Name]; ok && len(sm) > 0 {
			for range sm {
				// Order is not guaranteed by a Go map; sort by range start
				// so output numbering is deterministic.
			}
			for _, rng := range sortedRanges(sm) {
				start, end := rng[0], rng[1]
				if start < 0 || end > len(o.Data) || start > end {
					continue
				}
				out = append(out, AudioOutput{
					Filename: fmt.Sprintf("CN_%03d.%s", counter, ext),
					Data:     o.Data[start:end],
				})
				counter++
			}
			continue
		}
		out = append(out, AudioOutput{
			Filename: fmt.Sprintf("CN_%03d.%s", counter, ext),
			Data:     o.Data,
		})
		counter++
	}
	return out
}

func sortedRanges(sm SamplesMap) [][2]int {
	ranges := make([][2]int, 0, len(sm))
	for _, r := range sm {
		ranges = append(ranges, r)
	}
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j][0] < ranges[j-1][0]; j-- {
			ranges[j], ranges[j-1] = ranges[j-1], ranges[j]
		}
	}
	return ranges
}
