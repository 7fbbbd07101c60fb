package codegen

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/interp"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/lexer"
	"github.com/xplshn/gtac/pkg/parser"
	"github.com/xplshn/gtac/pkg/token"
	"github.com/xplshn/gtac/pkg/util"
)

// quiet swallows diagnostics for the duration of the test.
func quiet(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := util.SetOutput(&buf)
	t.Cleanup(func() { util.SetOutput(prev) })
	return &buf
}

func parse(t *testing.T, cfg *config.Config, src string) *ast.Node {
	t.Helper()
	root, err := parser.NewParser(lexer.Tokenize([]rune(src), 0, cfg), cfg).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return root
}

func generate(t *testing.T, src string) *ir.Program {
	t.Helper()
	quiet(t)
	cfg := config.NewConfig()
	prog, err := NewContext(cfg).GenerateIR(parse(t, cfg, src))
	if err != nil {
		t.Fatalf("GenerateIR(%q): %v", src, err)
	}
	return prog
}

func lines(prog *ir.Program) []string {
	out := make([]string, len(prog.Instrs))
	for i, instr := range prog.Instrs {
		out[i] = instr.String()
	}
	return out
}

func TestListings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "arithmetic left to right",
			src:  "num a, b; a = b + 2 * 3;",
			want: []string{
				"_t0 = 2 * 3",
				"_t1 = b + _t0",
				"a = _t1",
			},
		},
		{
			name: "unary sign parity",
			src:  "num a, b; a = --b; a = ---b; a = -+b;",
			want: []string{
				"a = b",
				"_t0 = -b",
				"a = _t0",
				"_t1 = -b",
				"a = _t1",
			},
		},
		{
			name: "bool assignment of an or",
			src:  "num x; bool b; b = x < 1 || x > 5;",
			want: []string{
				"if x < 1 goto _L0",
				"goto _L3",
				"_L3:",
				"if x > 5 goto _L0",
				"goto _L1",
				"_L0:",
				"b = 1",
				"goto _L2",
				"_L1:",
				"b = 0",
				"_L2:",
			},
		},
		{
			name: "if without else",
			src:  "num x; if (x < 1) x = 2;",
			want: []string{
				"ifFalse x < 1 goto _L0",
				"x = 2",
				"_L0:",
			},
		},
		{
			name: "if with else",
			src:  "num x; bool c; if (c) x = 1; else x = 2;",
			want: []string{
				"ifFalse c == 1 goto _L0",
				"x = 1",
				"goto _L1",
				"_L0:",
				"x = 2",
				"_L1:",
			},
		},
		{
			name: "while with and",
			src:  "num i; while (i < 10 && i != 5) i = i + 1;",
			want: []string{
				"_L0:",
				"if i < 10 goto _L2",
				"goto _L1",
				"_L2:",
				"ifFalse i != 5 goto _L1",
				"_t0 = i + 1",
				"i = _t0",
				"goto _L0",
				"_L1:",
			},
		},
		{
			name: "or in if falls through on true",
			src:  "num x; bool a, b; if (a || b) x = 1;",
			want: []string{
				"if a == 1 goto _L2",
				"goto _L1",
				"_L1:",
				"ifFalse b == 1 goto _L0",
				"_L2:",
				"x = 1",
				"_L0:",
			},
		},
		{
			name: "negation swaps targets",
			src:  "num x; bool a, b; if (!(a && b)) x = 1;",
			want: []string{
				"if a == 1 goto _L1",
				"goto _L2",
				"_L1:",
				"if b == 1 goto _L0",
				"_L2:",
				"x = 1",
				"_L0:",
			},
		},
		{
			name: "switch",
			src:  "num x, y; switch (x) { case 1: y = 10; case -2: y = 20; default: y = 30; }",
			want: []string{
				"_t0 = x",
				"if _t0 == 1 goto _L1",
				"if _t0 == -2 goto _L2",
				"goto _L3",
				"_L1:",
				"y = 10",
				"goto _L0",
				"_L2:",
				"y = 20",
				"goto _L0",
				"_L3:",
				"y = 30",
				"_L0:",
			},
		},
		{
			name: "switch without default on a computed value",
			src:  "num x, y; switch (x % 3) { case 0: y = 1; }",
			want: []string{
				"_t0 = x % 3",
				"if _t0 == 0 goto _L1",
				"goto _L0",
				"_L1:",
				"y = 1",
				"_L0:",
			},
		},
		{
			name: "literal conditions",
			src:  "num x; while (true) x = 1; if (false) x = 2;",
			want: []string{
				"_L0:",
				"x = 1",
				"goto _L0",
				"_L1:",
				"goto _L2",
				"x = 2",
				"_L2:",
			},
		},
		{
			name: "self assignment is dropped",
			src:  "num x; x = x; x = (x);",
			want: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := lines(generate(t, tc.src))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("listing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelfCopyKeptWhenFeatureDisabled(t *testing.T) {
	quiet(t)
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatElideSelfCopy, false)
	prog, err := NewContext(cfg).GenerateIR(parse(t, cfg, "num x; x = x;"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x = x"}, lines(prog)); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramMetadata(t *testing.T) {
	prog := generate(t, "num a; bool b, c; num d; b = a < d; c = b;")
	want := []*ir.Data{
		{Name: "a", Typ: ir.TypeNumber},
		{Name: "b", Typ: ir.TypeBool},
		{Name: "c", Typ: ir.TypeBool},
		{Name: "d", Typ: ir.TypeNumber},
	}
	if diff := cmp.Diff(want, prog.Globals); diff != "" {
		t.Errorf("globals mismatch (-want +got):\n%s", diff)
	}
	if prog.TempCount != 0 || prog.LabelCount != 6 {
		t.Errorf("counts = %d temps, %d labels; want 0, 6", prog.TempCount, prog.LabelCount)
	}
}

// bools lists every assignment of n boolean variables.
func bools(n int) [][]bool {
	var out [][]bool
	for mask := 0; mask < 1<<n; mask++ {
		row := make([]bool, n)
		for i := range row {
			row[i] = mask&(1<<i) != 0
		}
		out = append(out, row)
	}
	return out
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func TestBooleanTruthTables(t *testing.T) {
	// || and && share a precedence level and group to the right.
	tests := []struct {
		expr string
		eval func(a, b, c, d bool) bool
	}{
		{"a", func(a, b, c, d bool) bool { return a }},
		{"!a", func(a, b, c, d bool) bool { return !a }},
		{"a || b && c", func(a, b, c, d bool) bool { return a || (b && c) }},
		{"a && b || c", func(a, b, c, d bool) bool { return a && (b || c) }},
		{"(a && b) || c", func(a, b, c, d bool) bool { return (a && b) || c }},
		{"!(a || b) && !c", func(a, b, c, d bool) bool { return !(a || b) && !c }},
		{"!!a || !b && (c || d)", func(a, b, c, d bool) bool { return a || (!b && (c || d)) }},
		{"(a == b) || c", func(a, b, c, d bool) bool { return a == b || c }},
		{"a != (b && c) && d", func(a, b, c, d bool) bool { return a != (b && c) && d }},
		{"!(a && !(b || !c)) || d && a", func(a, b, c, d bool) bool { return !(a && !(b || !c)) || (d && a) }},
		{"(a || b) == (c || !d)", func(a, b, c, d bool) bool { return (a || b) == (c || !d) }},
		{"true && a || false", func(a, b, c, d bool) bool { return a }},
		{"!(!a && !b) && !(!c || !d)", func(a, b, c, d bool) bool { return (a || b) && (c && d) }},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			prog := generate(t, "bool a, b, c, d, r; r = "+tc.expr+";")
			for _, v := range bools(4) {
				env := map[string]int64{"a": b2i(v[0]), "b": b2i(v[1]), "c": b2i(v[2]), "d": b2i(v[3]), "r": 7}
				res, err := interp.Run(prog.Instrs, env, interp.Options{})
				if err != nil {
					t.Fatalf("run with %v: %v", v, err)
				}
				want := b2i(tc.eval(v[0], v[1], v[2], v[3]))
				if got := res.Env["r"]; got != want {
					t.Errorf("a=%v b=%v c=%v d=%v: r = %d, want %d", v[0], v[1], v[2], v[3], got, want)
				}
			}
		})
	}
}

func TestNumericConditions(t *testing.T) {
	prog := generate(t, "num x, y; bool r; r = x < y || x == 3 && !(y >= 2);")
	for x := int64(-2); x <= 4; x++ {
		for y := int64(-2); y <= 4; y++ {
			res, err := interp.Run(prog.Instrs, map[string]int64{"x": x, "y": y}, interp.Options{})
			if err != nil {
				t.Fatal(err)
			}
			want := b2i(x < y || (x == 3 && !(y >= 2)))
			if got := res.Env["r"]; got != want {
				t.Errorf("x=%d y=%d: r = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestArithmeticMatchesDirectEvaluation(t *testing.T) {
	prog := generate(t, "num a, b, c, x; x = a * (b - c) % 7 + -a / 3 - --c;")
	for a := int64(-4); a <= 4; a++ {
		for b := int64(-3); b <= 3; b++ {
			for c := int64(-3); c <= 3; c++ {
				res, err := interp.Run(prog.Instrs, map[string]int64{"a": a, "b": b, "c": c}, interp.Options{})
				if err != nil {
					t.Fatal(err)
				}
				want := a*(b-c)%7 + -a/3 - c
				if got := res.Env["x"]; got != want {
					t.Errorf("a=%d b=%d c=%d: x = %d, want %d", a, b, c, got, want)
				}
			}
		}
	}
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	tests := []struct {
		src string
		env map[string]int64
	}{
		{"bool a, b, c; a = b || c;", map[string]int64{"b": 1}},
		{"bool a, b, c; a = b && c;", map[string]int64{"b": 0}},
		{"num x; bool a, c; a = x == 0 || c && x / x > 0;", map[string]int64{"x": 0}},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			prog := generate(t, tc.src)
			res, err := interp.Run(prog.Instrs, tc.env, interp.Options{Trace: true})
			if err != nil {
				t.Fatal(err)
			}
			for _, pc := range res.Trace {
				instr := prog.Instrs[pc]
				if instr.Cond == nil {
					continue
				}
				if g, ok := instr.Cond.Left.(*ir.Global); ok && g.Name == "c" {
					t.Errorf("executed %q although the left operand decided the result", instr)
				}
			}
		})
	}
}

func TestDoubleNegationAddsNothing(t *testing.T) {
	plain := ir.Canonical(generate(t, "bool a, b; a = b;").Instrs)
	for _, src := range []string{
		"bool a, b; a = !!b;",
		"bool a, b; a = !!!!b;",
		"bool a, b; a = (!(!(b)));",
	} {
		got := ir.Canonical(generate(t, src).Instrs)
		if diff := cmp.Diff(plain, got); diff != "" {
			t.Errorf("%s differs from a = b (-want +got):\n%s", src, diff)
		}
	}
}

func TestSwitchSelectsOneClause(t *testing.T) {
	prog := generate(t, `num x, s1, s2, s3;
switch (x) {
case 1: s1 = s1 + 1;
case 2: s2 = s2 + 1;
default: s3 = s3 + 1;
}`)
	tests := []struct {
		x          int64
		s1, s2, s3 int64
	}{
		{1, 1, 0, 0},
		{2, 0, 1, 0},
		{99, 0, 0, 1},
		{-1, 0, 0, 1},
	}
	for _, tc := range tests {
		res, err := interp.Run(prog.Instrs, map[string]int64{"x": tc.x}, interp.Options{})
		if err != nil {
			t.Fatal(err)
		}
		got := []int64{res.Env["s1"], res.Env["s2"], res.Env["s3"]}
		if diff := cmp.Diff([]int64{tc.s1, tc.s2, tc.s3}, got); diff != "" {
			t.Errorf("x=%d (-want +got):\n%s", tc.x, diff)
		}
	}
}

func TestTranslationsAreIsomorphic(t *testing.T) {
	quiet(t)
	cfg := config.NewConfig()
	root := parse(t, cfg, `num i, n; bool p;
while (i < n && !p || i == 0) {
	switch (i) { case 3: p = i > 2 || n < 1; default: i = i + 1; }
}`)

	ctx := NewContext(cfg)
	first, err := ctx.GenerateIR(root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ctx.GenerateIR(root)
	if err != nil {
		t.Fatal(err)
	}

	if cmp.Equal(lines(first), lines(second)) {
		t.Fatal("second translation reused the first translation's names")
	}
	if diff := cmp.Diff(ir.Canonical(first.Instrs), ir.Canonical(second.Instrs)); diff != "" {
		t.Errorf("translations are not isomorphic (-first +second):\n%s", diff)
	}
	if second.LabelCount <= first.LabelCount {
		t.Errorf("label counter went from %d to %d; names must not be reused", first.LabelCount, second.LabelCount)
	}
}

func TestLabelsMarkedOnceAndReachable(t *testing.T) {
	srcs := []string{
		"num x; bool a, b, c; if (a || b && !c) x = 1; else if (!(a && c)) x = 2;",
		"num i, j; while (i < 10) { j = 0; while (j < i || j == 0) j = j + 1; i = i + 1; }",
		"num x, y; bool p; switch (x + y) { case 0: p = x < y; case 1: ; default: p = !p; }",
		"bool a, b, c; a = (b == c) != (a || !b);",
	}
	for _, src := range srcs {
		prog := generate(t, src)
		if err := ir.CheckLabels(prog.Instrs); err != nil {
			t.Errorf("%s: %v", src, err)
			continue
		}
		live, err := ir.Reachable(prog.Instrs)
		if err != nil {
			t.Fatal(err)
		}
		for i, ok := range live {
			if !ok {
				t.Errorf("%s: instruction %d (%s) is unreachable", src, i, prog.Instrs[i])
			}
		}
	}
}

func TestBoolTargetsHoldOneOrZero(t *testing.T) {
	prog := generate(t, "num x; bool p, q; p = x > 2; q = !p || x == 0;")
	for x := int64(-1); x <= 4; x++ {
		res, err := interp.Run(prog.Instrs, map[string]int64{"x": x, "p": 5, "q": -3}, interp.Options{})
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"p", "q"} {
			if v := res.Env[name]; v != 0 && v != 1 {
				t.Errorf("x=%d: %s = %d, want 0 or 1", x, name, v)
			}
		}
	}
}

func TestStreamingMatchesProgram(t *testing.T) {
	quiet(t)
	src := "num x; bool a; while (!a) { x = x + 1; a = x >= 3; }"
	cfg := config.NewConfig()

	var buf bytes.Buffer
	sink := ir.NewTextSink(&buf)
	if err := NewContext(cfg).Translate(parse(t, cfg, src), sink); err != nil {
		t.Fatal(err)
	}
	prog := generate(t, src)
	if diff := cmp.Diff(prog.String(), buf.String()); diff != "" {
		t.Errorf("streamed listing differs (-program +stream):\n%s", diff)
	}
	if sink.Count() != len(prog.Instrs) {
		t.Errorf("sink counted %d instructions, want %d", sink.Count(), len(prog.Instrs))
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind error
	}{
		{"num a; a = b;", ErrUndeclaredIdentifier},
		{"num a; if (c) a = 1;", ErrUndeclaredIdentifier},
		{"num a; bool b; a = b + 1;", ErrUnsupportedConstruct},
		{"num a; bool b; a = b;", ErrUnsupportedConstruct},
		{"num a; bool b; a = a < 1;", ErrUnsupportedConstruct},
		{"num a; if (a) a = 1;", ErrUnsupportedConstruct},
		{"num a; while (a + 1) a = 1;", ErrUnsupportedConstruct},
		{"num a; bool b; b = a == b;", ErrUnsupportedConstruct},
		{"bool b; switch (b) { default: ; }", ErrUnsupportedConstruct},
		{"num a; bool a;", ErrMalformedTree},
		{"num x; switch (x) { default: ; default: ; }", ErrMalformedTree},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			quiet(t)
			cfg := config.NewConfig()
			_, err := NewContext(cfg).GenerateIR(parse(t, cfg, tc.src))
			if !errors.Is(err, tc.kind) {
				t.Fatalf("error = %v, want %v", err, tc.kind)
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("error %T is not a *Error", err)
			}
			if cerr.Tok.Line == 0 {
				t.Errorf("error %v carries no source position", err)
			}
		})
	}
}

func TestMalformedTrees(t *testing.T) {
	tok := token.Token{Line: 1, Column: 1}
	ident := func(name string) *ast.Node { return ast.NewIdentifier(tok, name) }
	decl := ast.NewDeclaration(tok, "num", ident("x"))
	program := func(stmts ...*ast.Node) *ast.Node {
		return ast.NewProgram(tok, []*ast.Node{decl}, ast.NewBlock(tok, stmts))
	}

	badIf := &ast.Node{Type: ast.IfStmt, Tok: tok, Children: []*ast.Node{ast.NewBoolValue(tok, true)}}
	badChain := &ast.Node{Type: ast.AddExpr, Tok: tok, Ops: []token.Type{token.Plus, token.Plus}, Children: []*ast.Node{ident("x"), ident("x")}}
	wrongOp := ast.NewChain(tok, ast.AddExpr, []token.Type{token.Star}, []*ast.Node{ident("x"), ident("x")})
	badBool := &ast.Node{Type: ast.BoolValue, Tok: tok, Value: "maybe"}

	tests := []struct {
		name string
		root *ast.Node
		kind error
	}{
		{"nil root", nil, ErrMalformedTree},
		{"not a program", ast.NewBlock(tok, nil), ErrMalformedTree},
		{"if with one child", program(badIf), ErrMalformedTree},
		{"chain arity", program(ast.NewAssign(tok, ident("x"), badChain)), ErrMalformedTree},
		{"operator outside its level", program(ast.NewAssign(tok, ident("x"), wrongOp)), ErrUnsupportedConstruct},
		{"bad boolean literal", program(ast.NewWhile(tok, badBool, ast.NewStmt(tok, nil))), ErrMalformedTree},
		{"case outside switch", program(ast.NewDefault(tok, nil)), ErrMalformedTree},
		{"expression as statement", program(ident("x")), ErrUnsupportedConstruct},
		{"reserved name", ast.NewProgram(tok, []*ast.Node{ast.NewDeclaration(tok, "num", ident("_t0"))}, ast.NewBlock(tok, nil)), ErrMalformedTree},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quiet(t)
			err := NewContext(config.NewConfig()).Translate(tc.root, &ir.Program{})
			if !errors.Is(err, tc.kind) {
				t.Errorf("error = %v, want %v", err, tc.kind)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		setup func(*config.Config)
		want  []string
	}{
		{"unused", "num a, b; a = 1;", nil, []string{"variable 'b' declared but never used [-Wunused]"}},
		{"redeclared", "num a; num a; a = 1;", nil, []string{"'a' is already declared [-Wredeclared]"}},
		{"self assignment", "num a; a = a;", nil, []string{"'a' is assigned to itself [-Wextra]"}},
		{"duplicate case", "num a; switch (a) { case 1: ; case 1: ; }", nil, []string{"duplicate case value 1 is never selected [-Wextra]"}},
		{"dead else", "num a; if (true) a = 1; else a = 2;", nil, []string{"code will never be executed [-Wunreachable-code]"}},
		{"dead loop", "num a; while (false) a = 1;", nil, []string{"code will never be executed [-Wunreachable-code]"}},
		{
			"const cond enabled", "num a; while (true) a = 1;",
			func(c *config.Config) { c.SetWarning(config.WarnConstCond, true) },
			[]string{"condition is always true [-Wconst-cond]"},
		},
		{
			"all disabled", "num a, b; a = a;",
			func(c *config.Config) { c.SetAllWarnings(false) },
			nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := quiet(t)
			cfg := config.NewConfig()
			if tc.setup != nil {
				tc.setup(cfg)
			}
			if _, err := NewContext(cfg).GenerateIR(parse(t, cfg, tc.src)); err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, line := range strings.Split(buf.String(), "\n") {
				if _, msg, ok := strings.Cut(line, " warning: "); ok {
					got = append(got, msg)
				}
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("warnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	if _, err := st.Declare("x", "num", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Declare("ok", "bool", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Declare("x", "num", nil); err != nil {
		t.Errorf("same-type redeclaration: %v", err)
	}
	if _, err := st.Declare("x", "bool", nil); !errors.Is(err, ErrMalformedTree) {
		t.Errorf("conflicting redeclaration: err = %v", err)
	}
	if _, err := st.Declare("_L0", "num", nil); !errors.Is(err, ErrMalformedTree) {
		t.Errorf("reserved prefix: err = %v", err)
	}
	if typ, err := st.Lookup("ok"); err != nil || typ != Bool {
		t.Errorf("Lookup(ok) = %v, %v", typ, err)
	}
	if _, err := st.Lookup("missing"); !errors.Is(err, ErrUndeclaredIdentifier) {
		t.Errorf("Lookup(missing) err = %v", err)
	}
	if !st.Has("x") || st.Has("missing") {
		t.Errorf("Has(x) = %v, Has(missing) = %v", st.Has("x"), st.Has("missing"))
	}

	var names []string
	for _, s := range st.Symbols() {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"x", "ok"}, names); diff != "" {
		t.Errorf("declaration order (-want +got):\n%s", diff)
	}
}

func TestNamesAreMonotonic(t *testing.T) {
	var n names
	got := []string{n.newTemp().Name, n.newLabel().Name, n.newTemp().Name, n.newLabel().Name, n.newLabel().Name}
	want := []string{"_t0", "_L0", "_t1", "_L1", "_L2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestTextSinkKeepsFirstError(t *testing.T) {
	quiet(t)
	cfg := config.NewConfig()
	sink := ir.NewTextSink(failingWriter{})
	if err := NewContext(cfg).Translate(parse(t, cfg, "num a; a = 1; a = 2;"), sink); err != nil {
		t.Fatal(err)
	}
	if sink.Err() == nil || sink.Count() != 0 {
		t.Errorf("Err() = %v, Count() = %d", sink.Err(), sink.Count())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
