package ttsface

import (
	"strings"
	"testing"
)

func TestSplitSegmentsSentenceBoundaries(t *testing.T) {
	got := SplitSegments("The doctor is here. She paused. Are you alright?")
	want := []string{"The doctor is here.", "She paused.", "Are you alright?"}
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitSegmentsMergesShortFragments(t *testing.T) {
	got := SplitSegments("Ok. Fine then, really.")
	for _, seg := range got {
		if len([]rune(strings.TrimSpace(seg))) < minSegmentLength {
			t.Fatalf("fragment %q should have been merged into a neighbor", seg)
		}
	}
}

func TestSplitSegmentsBreaksLongSentenceOnCommas(t *testing.T) {
	long := strings.Repeat("a", 90) + ", " + strings.Repeat("b", 10) + "."
	got := SplitSegments(long)
	if len(got) < 2 {
		t.Fatalf("expected the over-limit sentence to split on commas, got %v", got)
	}
}

func TestNormalizeKoreanNumeralsNativeCounter(t *testing.T) {
	got := NormalizeKoreanNumerals("사과 3개")
	if got != "사과 셋개" {
		t.Fatalf("expected native counter reading, got %q", got)
	}
}

func TestNormalizeKoreanNumeralsSinoDefault(t *testing.T) {
	got := NormalizeKoreanNumerals("3호실")
	if got != "삼호실" {
		t.Fatalf("expected sino-korean reading, got %q", got)
	}
}

func TestNormalizeKoreanNumeralsDecimal(t *testing.T) {
	got := NormalizeKoreanNumerals("3.5")
	if got != "삼점오" {
		t.Fatalf("expected decimal reading, got %q", got)
	}
}
