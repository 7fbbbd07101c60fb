package typeChecker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/lexer"
	"github.com/xplshn/gtac/pkg/parser"
)

func check(t *testing.T, src string) []string {
	t.Helper()
	cfg := config.NewConfig()
	root, err := parser.NewParser(lexer.Tokenize([]rune(src), 0, cfg), cfg).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	var msgs []string
	for _, e := range NewTypeChecker(cfg).Check(root) {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

func TestValidPrograms(t *testing.T) {
	for _, src := range []string{
		"num a, b; bool p; a = -b * 2 % 3; p = (a < b) == !p || a != 0 && true;",
		"num i; while (i < 10) { switch (i % 3) { case 0: i = i + 2; case -1: ; default: i = i + 1; } }",
		"num a; num a; if (a > 0) a = 1; else { }",
	} {
		if msgs := check(t, src); len(msgs) != 0 {
			t.Errorf("%s: unexpected errors %q", src, msgs)
		}
	}
}

func TestReportsEveryError(t *testing.T) {
	src := `num a; bool p;
a = p;
p = a + 1;
if (a) a = b;
while (!a) ;
a = p + 1;
p = a == p;`
	want := []string{
		"2:5: cannot assign a bool expression to num variable 'a'",
		"3:5: cannot assign a num expression to bool variable 'p'",
		"4:5: condition must be bool, found num",
		"4:12: undeclared identifier 'b'",
		"5:9: operand of '!' must be bool, found num",
		"6:5: left operand of '+' must be num, found bool",
		"7:5: cannot compare num with bool using '=='",
	}
	if diff := cmp.Diff(want, check(t, src)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestSwitchErrors(t *testing.T) {
	src := `bool p; num a;
switch (p) { default: ; default: a = p; }
switch (a) { case 99999999999999999999: ; }`
	want := []string{
		"2:9: switch expression must be num, found bool",
		"2:25: multiple default clauses in switch",
		"2:38: cannot assign a bool expression to num variable 'a'",
		"3:19: case value 99999999999999999999 is out of range",
	}
	if diff := cmp.Diff(want, check(t, src)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestConflictingDeclaration(t *testing.T) {
	want := []string{"1:13: 'a' redeclared as bool, previously declared as num"}
	if diff := cmp.Diff(want, check(t, "num a; bool a; a = 1;")); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}
