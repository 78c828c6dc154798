package filter

import (
	"testing"
	"time"
)

func TestMatch(t *testing.T) {
	record := map[string]any{
		"name":    "Samantha",
		"age":     int64(30),
		"score":   7.5,
		"active":  true,
		"tags":    []any{"a", "b"},
		"deleted": nil,
		"born":    time.Date(1994, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	cases := []struct {
		text string
		want bool
	}{
		{`{age} >= 21 AND {name} ~~ "Sam"`, true},
		{`{age} == 30`, true},
		{`{age} < 30`, false},
		{`{score} > 7 AND {score} <= 7.5`, true},
		{`{name} ^~ "Sam" AND {name} ~$ "tha"`, true},
		{`{name} ~$ "Sam"`, false},
		{`{active} == true`, true},
		{`{active} != true`, false},
		{`{deleted} >NULL<`, true},
		{`{missing} >NULL<`, true},
		{`{name} !>NULL<`, true},
		{`{tags} ~~ "b"`, true},
		{`{name} [] ["Bob", "Samantha"]`, true},
		{`{name} ![] ["Bob", "Samantha"]`, false},
		{`{age} [] [1, 30]`, true},
		{`{age} > "abc"`, false},
		{`{missing} > 1`, false},
		{`{age} == 1 OR {name} == "Samantha"`, true},
		{`({age} == 1 OR {age} == 2) AND {active} == true`, false},
		{`{deleted} == null`, true},
	}
	for _, tc := range cases {
		if got := Match(MustParse(tc.text), record); got != tc.want {
			t.Fatalf("Match(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestMatchTimes(t *testing.T) {
	born := time.Date(1994, 5, 1, 0, 0, 0, 0, time.UTC)
	g := NewBuilder().And("born", LessThan, born.Add(time.Hour)).Group()
	if !Match(g, map[string]any{"born": born}) {
		t.Fatalf("expected earlier time to match")
	}
}

func TestMatchNilGroup(t *testing.T) {
	if !Match(nil, map[string]any{}) {
		t.Fatalf("nil group must match everything")
	}
}

func TestCompare(t *testing.T) {
	if c, ok := Compare(1, 2.5); !ok || c != -1 {
		t.Fatalf("Compare(1, 2.5) = %d, %v", c, ok)
	}
	if c, ok := Compare("b", "a"); !ok || c != 1 {
		t.Fatalf("Compare(b, a) = %d, %v", c, ok)
	}
	if c, ok := Compare(false, true); !ok || c != -1 {
		t.Fatalf("Compare(false, true) = %d, %v", c, ok)
	}
	if _, ok := Compare("a", 1); ok {
		t.Fatalf("string and number must not compare")
	}
}
