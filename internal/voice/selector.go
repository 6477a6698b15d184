package voice

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Reference text length bounds used by preferInRange: a candidate
// shorter than the minimum is scored (and penalized) but only returned by
// a selection function when no longer-and-in-duration-range candidate is
// available.
const (
	MinRefTextLength = 10
	MaxRefTextLength = 30
)

// Candidate is one reference clip drawn from a character model directory's
// sidecar descriptor.
type Candidate struct {
	Audio    string
	Text     string
	Title    string
	Duration float64
	TextLen  int
}

// Scored pairs a candidate with its computed score.
type Scored struct {
	Candidate Candidate
	Score     float64
}

// titlePriority is the fixed table the scoring formula reads from. It
// favors naturally-paced, context-neutral lines (greetings,
// assistant-assignment, touches) and excludes combat-operational ones
// (operation start/fail, short selection cries).
var titlePriority = map[string]struct {
	priority int
	excluded bool
}{
	"신뢰도 터치":    {priority: 100},
	"팀장 임명":     {priority: 95},
	"팀 배치":      {priority: 90},
	"어시스턴트 임명":  {priority: 85},
	"인사":        {priority: 80},
	"터치":        {priority: 75},
	"일상 대화":     {priority: 70},
	"오퍼레이터 입사":  {priority: 55},
	"시설에 배치":    {priority: 40},
	"타이틀":       {priority: 30},
	"작전 개시":     {excluded: true},
	"작전 출발":     {excluded: true},
	"작전 실패":     {excluded: true},
	"작전 중":      {excluded: true},
	"오퍼레이터 선택":  {excluded: true},
}

// lookupTitle returns the priority for title and whether it's excluded.
// Unknown titles get a neutral middling priority rather than exclusion,
// since the fixed table cannot enumerate every localized variant.
func lookupTitle(title string) (priority int, excluded bool) {
	if e, ok := titlePriority[title]; ok {
		return e.priority, e.excluded
	}
	return 50, false
}

// score implements the per-clip scoring formula: title priority plus a
// duration-in-range bonus plus a text-length bonus, minus penalties for
// text that's too short or too long.
func score(c Candidate, minDur, maxDur float64) (float64, bool) {
	priority, excluded := lookupTitle(c.Title)
	if excluded {
		return 0, false
	}

	durationBonus := 0.0
	if c.Duration >= minDur && c.Duration <= maxDur {
		durationBonus = 50
	}
	textLengthBonus := math.Min(float64(c.TextLen), 40) / 2
	shortPenalty := math.Max(0, float64(MinRefTextLength-c.TextLen)) * 20
	longPenalty := math.Max(0, float64(c.TextLen-MaxRefTextLength)) * 15

	return float64(priority) + durationBonus + textLengthBonus - shortPenalty - longPenalty, true
}

// ScoreCandidates scores every candidate against [minDur, maxDur], keeping
// excluded-title clips out of the result but otherwise always returning a
// score (short/long text is penalized, not dropped, unless the title
// itself excludes the clip).
func ScoreCandidates(cands []Candidate, minDur, maxDur float64) []Scored {
	out := make([]Scored, 0, len(cands))
	for _, c := range cands {
		s, ok := score(c, minDur, maxDur)
		if !ok {
			continue
		}
		out = append(out, Scored{Candidate: c, Score: s})
	}
	return out
}

// preferInRange narrows scored to candidates with text length at least
// MinRefTextLength and duration within [minDur, maxDur], unless that
// narrows the set to nothing, in which case every scored candidate stays
// eligible as a fallback. This is what keeps a selector from ever
// returning a too-short or out-of-range clip while a better one exists.
func preferInRange(scored []Scored, minDur, maxDur float64) []Scored {
	inRange := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Candidate.TextLen >= MinRefTextLength && s.Candidate.Duration >= minDur && s.Candidate.Duration <= maxDur {
			inRange = append(inRange, s)
		}
	}
	if len(inRange) == 0 {
		return scored
	}
	return inRange
}

// SelectBest returns the single highest-scoring candidate, preferring
// in-range-and-long-enough clips over fallbacks when any exist.
func SelectBest(scored []Scored, minDur, maxDur float64) (Scored, bool) {
	eligible := preferInRange(scored, minDur, maxDur)
	if len(eligible) == 0 {
		return Scored{}, false
	}
	best := eligible[0]
	for _, s := range eligible[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}

// SelectMultiTone returns the top k clips by score, for use as auxiliary
// references that inject character flavor alongside the primary clip.
func SelectMultiTone(scored []Scored, k int) []Scored {
	sorted := append([]Scored(nil), scored...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// SelectHybrid filters to the top-N by score, re-scores survivors by
// adding an input-length proximity bonus and subtracting the long-text
// penalty once more (Score already includes it once), then picks one via
// score-weighted random choice.
// This trades some quality for variety across repeated calls.
func SelectHybrid(scored []Scored, minDur, maxDur float64, topN int, inputTextLen int) (Scored, bool) {
	eligible := preferInRange(scored, minDur, maxDur)
	if len(eligible) == 0 {
		return Scored{}, false
	}
	top := SelectMultiTone(eligible, topN)

	weights := make([]float64, len(top))
	total := 0.0
	for i, s := range top {
		proximity := math.Max(0, 300-math.Abs(float64(s.Candidate.TextLen-inputTextLen))*10)
		longPenalty := math.Max(0, float64(s.Candidate.TextLen-MaxRefTextLength)) * 15
		w := math.Max(0, s.Score+proximity-longPenalty)
		weights[i] = w
		total += w
	}
	if total == 0 {
		return top[0], true
	}

	pick := rand.Float64() * total
	for i, w := range weights {
		pick -= w
		if pick <= 0 {
			return top[i], true
		}
	}
	return top[len(top)-1], true
}

// iclPeakDuration is the duration, in seconds, an ICL-mode engine prefers
// most; its bonus falls off linearly on either side of this peak.
const iclPeakDuration = 9.5

// SelectICL scores candidates for title+duration-sensitive engines only:
// text-length proximity is ignored entirely and the duration bonus peaks
// at iclPeakDuration rather than being a flat in-range/out-of-range gate.
func SelectICL(cands []Candidate) (Scored, bool) {
	var best Scored
	found := false
	for _, c := range cands {
		priority, excluded := lookupTitle(c.Title)
		if excluded {
			continue
		}
		durationBonus := math.Max(0, 50-math.Abs(c.Duration-iclPeakDuration)*10)
		s := float64(priority) + durationBonus
		if !found || s > best.Score {
			best = Scored{Candidate: c, Score: s}
			found = true
		}
	}
	return best, found
}
