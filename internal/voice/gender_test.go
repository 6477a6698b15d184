package voice

import "testing"

func TestGenderedDefaultFallbackHash(t *testing.T) {
	pools := GenderPools{Female: []string{"a", "b", "c"}}

	got, ok := GenderedDefault(pools, "모모카")
	if !ok {
		t.Fatal("expected a resolved pool entry")
	}
	if got != "a" {
		t.Fatalf("expected pool index 0 (%q), got %q", "a", got)
	}
}

func TestHashKeyDeterministic(t *testing.T) {
	a := hashKey("name:모모카")
	b := hashKey("name:모모카")
	if a != b {
		t.Fatalf("hashKey not deterministic: %d != %d", a, b)
	}
}

func TestGenderedDefaultMaleKeywordSelectsMalePool(t *testing.T) {
	pools := GenderPools{Male: []string{"m0"}, Female: []string{"f0"}}
	got, ok := GenderedDefault(pools, "누나 오빠")
	if !ok {
		t.Fatal("expected a resolved pool entry")
	}
	if got != "m0" {
		t.Fatalf("expected male pool entry, got %q", got)
	}
}

func TestGenderedDefaultEmptyPoolFails(t *testing.T) {
	_, ok := GenderedDefault(GenderPools{}, "누구")
	if ok {
		t.Fatal("expected no resolution for empty pools")
	}
}
