package ident

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"char_002_amiya_1#6", "char_002_amiya"},
		{"avg_4072_ironmn_1#8$1", "char_4072_ironmn"},
		{"avgnew_112_siege_1#1$1", "char_112_siege"},
		{"avg_npc_012#3", "avg_npc_012"},
		{"npc_003_kalts", "npc_003_kalts"},
	}
	for _, c := range cases {
		got := Normalize(c.in)
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"char_002_amiya_1#6",
		"avg_4072_ironmn_1#8$1",
		"avgnew_112_siege_1#1$1",
		"avg_npc_012#3",
		"npc_003_kalts",
		"avg_npc_012_2",
		"char_100_meteor_ex",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent on %q: %q then %q", in, once, twice)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"avg_npc_012", KindGenericNPC},
		{"avg_npc_012_2", KindGenericNPC},
		{"npc_003_kalts", KindNamedNPC},
		{"char_002_amiya", KindPlayable},
	}
	for _, c := range cases {
		got := Classify(c.in)
		if got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
