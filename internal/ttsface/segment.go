package ttsface

import (
	"strings"
	"unicode"
)

// softSegmentLimit is the length, in runes, past which a sentence is
// further split on commas.
const softSegmentLimit = 80

// minSegmentLength is the shortest a segment may stand alone; anything
// shorter is merged into its neighbor.
const minSegmentLength = 3

// SplitSegments splits text into synthesis-sized segments: first on
// sentence-terminating punctuation, then, only for segments still over
// softSegmentLimit, on commas. Fragments shorter than minSegmentLength are
// merged into the previous segment (or, for a leading fragment, into the
// following one).
func SplitSegments(text string) []string {
	sentences := splitOn(text, isSentenceEnd)

	var segments []string
	for _, s := range sentences {
		if len([]rune(s)) > softSegmentLimit {
			segments = append(segments, splitOn(s, isCommaEnd)...)
		} else {
			segments = append(segments, s)
		}
	}

	return mergeShortFragments(segments)
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isCommaEnd(r rune) bool {
	switch r {
	case ',', '、', '，':
		return true
	}
	return false
}

// splitOn breaks text into pieces ending at each rune matched by isEnd,
// keeping the terminator attached to the piece it ends, and dropping
// empty pieces produced by trimming surrounding whitespace.
func splitOn(text string, isEnd func(rune) bool) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if isEnd(r) {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// mergeShortFragments folds any segment under minSegmentLength runes into
// its neighbor: backward onto the previous segment when one exists, else
// (a leading fragment) forward into the next one.
func mergeShortFragments(segments []string) []string {
	merged := make([]string, 0, len(segments))
	for _, s := range segments {
		if len([]rune(s)) < minSegmentLength && len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + s
			continue
		}
		merged = append(merged, s)
	}

	// A too-short leading segment had no previous segment to merge into;
	// pull it forward into what is now the first segment instead.
	for len(merged) > 1 && len([]rune(merged[0])) < minSegmentLength {
		merged[1] = merged[0] + " " + merged[1]
		merged = merged[1:]
	}

	return merged
}

// koreanNativeCounters are display suffixes implying the native Korean
// numeral reading (하나, 둘, 셋, ...) rather than the Sino-Korean reading
// (일, 이, 삼, ...). This list covers common counter words; anything not
// listed defaults to the Sino-Korean reading.
var koreanNativeCounters = map[string]bool{
	"개": true, "명": true, "살": true, "마리": true, "번째": true, "가지": true,
}

var sinoDigits = [...]string{"영", "일", "이", "삼", "사", "오", "육", "칠", "팔", "구"}
var nativeDigits = [...]string{"", "하나", "둘", "셋", "넷", "다섯", "여섯", "일곱", "여덟", "아홉"}
var nativeTens = [...]string{"", "열", "스물", "서른", "마흔", "쉰", "예순", "일흔", "여든", "아흔"}

// NormalizeKoreanNumerals rewrites bare numerals in text into their
// Korean word form, reading the counter word immediately following a
// number (if any) to decide between the native and Sino-Korean number
// series. Decimal points are read digit-by-digit as "<int>점<digits>".
func NormalizeKoreanNumerals(text string) string {
	runes := []rune(text)
	var out strings.Builder

	i := 0
	for i < len(runes) {
		if !unicode.IsDigit(runes[i]) {
			out.WriteRune(runes[i])
			i++
			continue
		}

		start := i
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			i++
		}
		intPart := string(runes[start:i])

		var fracPart string
		if i < len(runes) && runes[i] == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
			i++ // consume '.'
			fracStart := i
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			fracPart = string(runes[fracStart:i])
		}

		counter := peekWord(runes, i)
		if fracPart != "" {
			out.WriteString(readSinoInt(intPart))
			out.WriteString("점")
			for _, d := range fracPart {
				out.WriteString(sinoDigits[d-'0'])
			}
		} else if koreanNativeCounters[counter] {
			out.WriteString(readNativeInt(intPart))
		} else {
			out.WriteString(readSinoInt(intPart))
		}
	}

	return out.String()
}

// peekWord returns the run of non-space, non-digit runes starting at i,
// used to read the counter word following a number.
func peekWord(runes []rune, i int) string {
	var w strings.Builder
	for i < len(runes) && !unicode.IsSpace(runes[i]) && !unicode.IsDigit(runes[i]) {
		w.WriteRune(runes[i])
		i++
	}
	return w.String()
}

// readSinoInt reads digits one at a time in the Sino-Korean series; it
// does not attempt place-value grouping (만/천/백/십), which this
// facade's numerals never need beyond simple counts and times.
func readSinoInt(digits string) string {
	var out strings.Builder
	for _, d := range digits {
		out.WriteString(sinoDigits[d-'0'])
	}
	return out.String()
}

// readNativeInt reads a value up to 99 using the native counter series,
// honoring the compound tens+ones form (e.g. 21 -> 스물하나).
func readNativeInt(digits string) string {
	n := 0
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	if n <= 0 || n > 99 {
		return readSinoInt(digits)
	}
	tens, ones := n/10, n%10
	var out strings.Builder
	out.WriteString(nativeTens[tens])
	out.WriteString(nativeDigits[ones])
	return out.String()
}
