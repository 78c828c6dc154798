package filter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAndContains(t *testing.T) {
	got, err := Parse(`{Age} >= 21 AND {Name} ~~ "Sam"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := NewGroup(And,
		Cond("Age", GreaterOrEqual, float64(21)),
		Cond("Name", Contains, "Sam"),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyText(t *testing.T) {
	g, err := Parse("   ")
	if err != nil || g != nil {
		t.Fatalf("expected nil group, got %#v err=%v", g, err)
	}
}

func TestParseSingleConditionWrapsInAndGroup(t *testing.T) {
	got := MustParse(`{Active} == true`)
	want := NewGroup(And, Cond("Active", Equal, true))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseValueCoercion(t *testing.T) {
	got := MustParse(`{a} == 'x y' OR {b} == -1.5e2 OR {c} == FALSE OR {d} == null OR {e} != "q\"uote"`)
	want := NewGroup(Or,
		Cond("a", Equal, "x y"),
		Cond("b", Equal, float64(-150)),
		Cond("c", Equal, false),
		Cond("d", Equal, nil),
		Cond("e", NotEqual, `q"uote`),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEveryOperator(t *testing.T) {
	cases := map[string]*Condition{
		`{x} == 1`:          Cond("x", Equal, float64(1)),
		`{x} != 1`:          Cond("x", NotEqual, float64(1)),
		`{x} < 1`:           Cond("x", LessThan, float64(1)),
		`{x} <= 1`:          Cond("x", LessOrEqual, float64(1)),
		`{x} > 1`:           Cond("x", GreaterThan, float64(1)),
		`{x} >= 1`:          Cond("x", GreaterOrEqual, float64(1)),
		`{x} ~~ "a"`:        Cond("x", Contains, "a"),
		`{x} ^~ "a"`:        Cond("x", StartsWith, "a"),
		`{x} ~$ "a"`:        Cond("x", EndsWith, "a"),
		`{x} >NULL<`:        Cond("x", IsNull, nil),
		`{x} !>null<`:       Cond("x", IsNotNull, nil),
		`{x} [] [1, "b"]`:   Cond("x", In, []any{float64(1), "b"}),
		`{x} ![] []`:        Cond("x", NotIn, []any{}),
		`{ spaced name } == 2`: Cond("spaced name", Equal, float64(2)),
	}
	for text, want := range cases {
		g, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if diff := cmp.Diff(NewGroup(And, want), g); diff != "" {
			t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", text, diff)
		}
	}
}

func TestParseNestedGroups(t *testing.T) {
	got := MustParse(`({Color} == "red" OR {Color} == "blue") AND {Price} < 100`)
	want := NewGroup(And,
		NewGroup(Or, Cond("Color", Equal, "red"), Cond("Color", Equal, "blue")),
		Cond("Price", LessThan, float64(100)),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUnwrapsOuterParentheses(t *testing.T) {
	got := MustParse(`({a} == 1 OR {b} == 2)`)
	want := NewGroup(Or, Cond("a", Equal, float64(1)), Cond("b", Equal, float64(2)))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		text string
		pos  int
	}{
		{`{a} == 1 AND {b} == 2 OR {c} == 3`, 22},
		{`Age >= 21`, 0},
		{`{a} == "open`, 7},
		{`{a} =~ 1`, 4},
		{`({a} == 1`, 0},
		{`{a} == 1)`, 8},
		{`{a == 1`, 0},
		{`{a} == sam`, 7},
		{`{a} == 12abc`, 7},
		{`{a} [] 1`, 7},
		{`{a} == [1]`, 7},
		{`{a} == 1 XOR {b} == 2`, 9},
		{`{a} ==`, 6},
	}
	for _, tc := range cases {
		_, err := Parse(tc.text)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Parse(%q): expected ParseError, got %v", tc.text, err)
		}
		if pe.Pos != tc.pos {
			t.Fatalf("Parse(%q): expected offset %d, got %d (%v)", tc.text, tc.pos, pe.Pos, pe)
		}
	}
}

func TestParseMixedLogicAllowedWithParentheses(t *testing.T) {
	if _, err := Parse(`{a} == 1 AND ({b} == 2 OR {c} == 3)`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRoundTripThroughWireAndText(t *testing.T) {
	texts := []string{
		`{Age} >= 21 AND {Name} ~~ "Sam"`,
		`{a} == 1 OR {b} != "two" OR {c} >NULL<`,
		`{tags} [] ["x", "y", 3] AND {deleted} == false`,
		`({a} < 1 OR {a} > 10) AND {b} ^~ "pre\n"`,
	}
	for _, text := range texts {
		g := MustParse(text)

		data, err := json.Marshal(g)
		if err != nil {
			t.Fatalf("marshal %q: %v", text, err)
		}
		back, err := Decode(data)
		if err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
		if diff := cmp.Diff(g, back); diff != "" {
			t.Fatalf("wire round trip of %q (-want +got):\n%s", text, diff)
		}

		again, err := Parse(g.String())
		if err != nil {
			t.Fatalf("reparse %q (%q): %v", text, g.String(), err)
		}
		if !Equivalent(g, again) {
			t.Fatalf("text round trip of %q produced %q", text, again.String())
		}
	}
}

func TestStringRoundTripsLoneChildGroups(t *testing.T) {
	trees := []*Group{
		NewGroup(And, NewGroup(Or, Cond("a", Equal, float64(1)), Cond("b", Equal, float64(2)))),
		NewGroup(And,
			Cond("c", LessThan, float64(3)),
			NewGroup(And, NewGroup(Or, Cond("a", Equal, float64(1)), Cond("b", Equal, float64(2)))),
		),
	}
	for _, g := range trees {
		again, err := Parse(g.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", g.String(), err)
		}
		if diff := cmp.Diff(g, again); diff != "" {
			t.Fatalf("text round trip of %q (-want +got):\n%s", g.String(), diff)
		}
	}
}

func TestParseOnlyASCIIWhitespaceSeparates(t *testing.T) {
	for _, text := range []string{"{a} == \x85 1", "{a}\xa0== 1"} {
		var pe *ParseError
		if _, err := Parse(text); !errors.As(err, &pe) {
			t.Fatalf("Parse(%q): expected ParseError, got %v", text, err)
		}
	}
	if _, err := Parse("{a}\t==\r\n1"); err != nil {
		t.Fatalf("ASCII whitespace must separate tokens: %v", err)
	}
}

func TestEquivalentIgnoresLogicOfSingleChildGroups(t *testing.T) {
	a := NewGroup(Or, Cond("a", Equal, 1))
	b := NewGroup(And, Cond("a", Equal, float64(1)))
	if !Equivalent(a, b) {
		t.Fatalf("single-child groups differing only in logic must be equivalent")
	}
	if Equivalent(NewGroup(Or, Cond("a", Equal, 1), Cond("b", Equal, 2)), NewGroup(And, Cond("a", Equal, 1), Cond("b", Equal, 2))) {
		t.Fatalf("logic matters with two children")
	}
}
