package voice

import (
	"math"
	"testing"
)

func TestScoreCandidatesScenario(t *testing.T) {
	cands := []Candidate{
		{Title: "신뢰도 터치", Duration: 6.0, TextLen: 20},
		{Title: "작전 실패", Duration: 5.0, TextLen: 20},
		{Title: "인사", Duration: 2.0, TextLen: 8},
	}
	scored := ScoreCandidates(cands, 3.0, 8.0)

	if len(scored) != 2 {
		t.Fatalf("expected the excluded title to be dropped, got %d scored candidates", len(scored))
	}

	byTitle := make(map[string]float64, len(scored))
	for _, s := range scored {
		byTitle[s.Candidate.Title] = s.Score
	}

	if math.Abs(byTitle["신뢰도 터치"]-160) > 1e-9 {
		t.Fatalf("expected score 160, got %v", byTitle["신뢰도 터치"])
	}
	if math.Abs(byTitle["인사"]-44) > 1e-9 {
		t.Fatalf("expected score 44, got %v", byTitle["인사"])
	}
	if _, excluded := byTitle["작전 실패"]; excluded {
		t.Fatal("excluded title should not appear in scored output")
	}
}

func TestSelectBestPrefersInRangeOverShortText(t *testing.T) {
	scored := []Scored{
		{Candidate: Candidate{Title: "인사", Duration: 2.0, TextLen: 8}, Score: 44},
		{Candidate: Candidate{Title: "신뢰도 터치", Duration: 6.0, TextLen: 20}, Score: 160},
	}
	best, ok := SelectBest(scored, 3.0, 8.0)
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.Candidate.Title != "신뢰도 터치" {
		t.Fatalf("expected the in-range candidate to win, got %q", best.Candidate.Title)
	}
}

func TestSelectBestFallsBackWhenNoneInRange(t *testing.T) {
	scored := []Scored{
		{Candidate: Candidate{Title: "인사", Duration: 2.0, TextLen: 8}, Score: 44},
	}
	best, ok := SelectBest(scored, 3.0, 8.0)
	if !ok {
		t.Fatal("expected a fallback selection when nothing is in range")
	}
	if best.Candidate.Title != "인사" {
		t.Fatalf("expected the only candidate as fallback, got %q", best.Candidate.Title)
	}
}

func TestSelectMultiToneOrdersByScoreDescending(t *testing.T) {
	scored := []Scored{
		{Candidate: Candidate{Title: "a"}, Score: 10},
		{Candidate: Candidate{Title: "b"}, Score: 90},
		{Candidate: Candidate{Title: "c"}, Score: 50},
	}
	top := SelectMultiTone(scored, 2)
	if len(top) != 2 || top[0].Candidate.Title != "b" || top[1].Candidate.Title != "c" {
		t.Fatalf("unexpected ordering: %+v", top)
	}
}

func TestSelectICLExcludesExcludedTitles(t *testing.T) {
	cands := []Candidate{
		{Title: "작전 실패", Duration: 9.5},
		{Title: "신뢰도 터치", Duration: 9.5},
	}
	best, ok := SelectICL(cands)
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.Candidate.Title != "신뢰도 터치" {
		t.Fatalf("expected the non-excluded title, got %q", best.Candidate.Title)
	}
}
