package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/lexer"
)

func parse(src string, cfg *config.Config) (*ast.Node, error) {
	return NewParser(lexer.Tokenize([]rune(src), 0, cfg), cfg).Parse()
}

func dump(t *testing.T, src string) string {
	t.Helper()
	root, err := parse(src, config.NewConfig())
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	var sb strings.Builder
	if err := ast.Dump(&sb, root); err != nil {
		t.Fatal(err)
	}
	return sb.String()
}

func TestTreeShapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "declarations and precedence",
			src:  "num a; bool b; a = 1 + 2 * a; b = !b || a < 3 && true;",
			want: `Program
  Declaration "num"
    Identifier "a"
  Declaration "bool"
    Identifier "b"
  Block
    Stmt
      AssignStmt
        Identifier "a"
        Expr
          AddExpr [+]
            IntValue "1"
            MulExpr [*]
              IntValue "2"
              Identifier "a"
    Stmt
      AssignStmt
        Identifier "b"
        Expr
          BoolExpr [|| &&]
            NotExpr [!]
              Identifier "b"
            CompExpr [<]
              Identifier "a"
              IntValue "3"
            BoolValue "true"
`,
		},
		{
			name: "prefixes and parentheses",
			src:  "num a, b; a = --(a - b) % -+b;",
			want: `Program
  Declaration "num"
    Identifier "a"
  Declaration "num"
    Identifier "b"
  Block
    Stmt
      AssignStmt
        Identifier "a"
        Expr
          MulExpr [%]
            UnaExpr [- -]
              GenValue
                AddExpr [-]
                  Identifier "a"
                  Identifier "b"
            UnaExpr [- +]
              Identifier "b"
`,
		},
		{
			name: "control flow",
			src:  "num a; if (a > 0) { a = 1; ; } else while (a) a = 2;",
			want: `Program
  Declaration "num"
    Identifier "a"
  Block
    Stmt
      IfStmt
        Expr
          CompExpr [>]
            Identifier "a"
            IntValue "0"
        Stmt
          Block
            Stmt
              AssignStmt
                Identifier "a"
                Expr
                  IntValue "1"
            Stmt
        Stmt
          WhileStmt
            Expr
              Identifier "a"
            Stmt
              AssignStmt
                Identifier "a"
                Expr
                  IntValue "2"
`,
		},
		{
			name: "switch",
			src:  "num a; switch (a) { case -5: a = 1; default: }",
			want: `Program
  Declaration "num"
    Identifier "a"
  Block
    Stmt
      SwitchStmt
        Expr
          Identifier "a"
        CaseStmt
          IntValue "-5"
          Stmt
            AssignStmt
              Identifier "a"
              Expr
                IntValue "1"
        DefaultStmt
`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, dump(t, tc.src)); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParents(t *testing.T) {
	root, err := parse("num a; while (a < 1) a = a + 1;", config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	ast.Walk(root, func(n *ast.Node) bool {
		for _, c := range n.Children {
			if c.Parent != n {
				t.Errorf("%s child %s has parent %v", n.Type, c.Type, c.Parent)
			}
		}
		return true
	})
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a = 1; num b;", "declarations must come before the first statement"},
		{"num a; a = 1 < 2 < 3;", "comparison operators cannot be chained; use parentheses"},
		{"num a; a = (1;", "Expected ')' after expression."},
		{"num a; a 1;", "Expected '=' after variable name."},
		{"num a; a = 1", "Expected ';' after assignment."},
		{"num ;", "Expected a variable name in declaration."},
		{"num a; a = ;", "Expected an expression, found ';'."},
		{"num a; case 1: ;", "'case' outside of a switch statement"},
		{"num a; else a = 1;", "'else' without a matching 'if'"},
		{"num a; switch (a) { a = 1; }", "Expected 'case' or 'default' in switch body, found identifier 'a'."},
		{"num a; switch (a) { case b: }", "Expected an integer literal after 'case'."},
		{"num a; if a > 1 a = 1;", "Expected '(' after 'if'."},
		{"num a; { a = 1;", "Expected '}' to close block."},
		{"num a; a = 1 & 2;", "expected '&&', found a single '&'"},
	}
	for _, tc := range tests {
		_, err := parse(tc.src, config.NewConfig())
		var perr *Error
		if !errors.As(err, &perr) {
			t.Errorf("%q: err = %v, want a *parser.Error", tc.src, err)
			continue
		}
		if perr.Msg != tc.want {
			t.Errorf("%q: message %q, want %q", tc.src, perr.Msg, tc.want)
		}
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := parse("num a;\na = 1 < 2 < 3;", config.NewConfig())
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v", err)
	}
	if perr.Tok.Line != 2 || perr.Tok.Column != 11 {
		t.Errorf("error at %d:%d, want 2:11", perr.Tok.Line, perr.Tok.Column)
	}
	if got := perr.Error(); !strings.HasPrefix(got, "2:11: ") {
		t.Errorf("Error() = %q", got)
	}
}

func TestSwitchFeature(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatSwitch, false)
	_, err := parse("num a; switch (a) { default: }", cfg)
	var perr *Error
	if !errors.As(err, &perr) || !strings.Contains(perr.Msg, "switch statements are disabled") {
		t.Errorf("err = %v", err)
	}
}

func TestEmptyProgram(t *testing.T) {
	root, err := parse("", config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	if root.Type != ast.Program || len(root.Children) != 1 || root.Children[0].Type != ast.Block {
		t.Errorf("empty program parsed as %s with %d children", root.Type, len(root.Children))
	}
}
