package voice

import "strings"

// maleKeywords is a small list of substrings whose presence in a display
// name selects the male default pool instead of the female one. This is a
// heuristic, not a linguistic classifier: game NPC titles often carry an
// explicit honorific or role word, and those are what this list targets.
var maleKeywords = []string{
	"Mr.", "Mr ", "군", "씨", "형", "오빠", "아저씨", "남자",
}

// GenderPools holds the two name pools a gendered-default lookup falls
// back to when a speaker has no explicit voice mapping.
type GenderPools struct {
	Male   []string
	Female []string
}

// hashKey reproduces simple_hash (render_manager.py:22-31) line for line:
// accumulate with 32-bit wraparound, mask to an unsigned 32-bit pattern,
// reinterpret that pattern as signed (the "JavaScript 32-bit signed
// integer" step the original's own comment names), then take its absolute
// value. Go's wrapping int32 arithmetic already produces that same bit
// pattern on overflow, so the mask is a no-op here — but the final
// sign-then-abs step is not: dropping it, as a plain `uint32(h)` would,
// changes the pool index for any key whose accumulator has the high bit
// set, and stops matching the original's own `return abs(h)`.
func hashKey(key string) uint32 {
	var h int32
	for _, r := range key {
		h = (h << 5) - h + r
	}
	masked := uint32(h) // h & 0xFFFFFFFF
	signed := int32(masked)
	if signed < 0 {
		return uint32(-signed)
	}
	return uint32(signed)
}

// GenderedDefault picks a pool entry for an unmapped speaker, keyed by
// "name:<displayName>". It selects the male pool if displayName contains
// any male keyword, else the female pool, then indexes into the chosen
// pool with the hash mixing function reduced modulo the pool's length.
// An empty chosen pool yields ("", false).
func GenderedDefault(pools GenderPools, displayName string) (string, bool) {
	pool := pools.Female
	for _, kw := range maleKeywords {
		if strings.Contains(displayName, kw) {
			pool = pools.Male
			break
		}
	}
	if len(pool) == 0 {
		return "", false
	}
	idx := hashKey(DisplayNameKey(displayName)) % uint32(len(pool))
	return pool[idx], true
}
