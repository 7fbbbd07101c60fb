// Package typeChecker validates a parsed program before code generation.
// Unlike the generator, which stops at the first problem, it reports every
// type error it finds.
package typeChecker

import (
	"fmt"
	"strconv"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/token"
	"github.com/xplshn/gtac/pkg/util"
)

// invalid marks an expression whose type could not be determined. It never
// produces a second diagnostic.
const invalid ir.Type = -1

type Error struct {
	Tok token.Token
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Msg) }

type Symbol struct {
	Name string
	Type ir.Type
	Node *ast.Node
}

type TypeChecker struct {
	cfg     *config.Config
	symbols map[string]*Symbol
	errors  []*Error
}

func NewTypeChecker(cfg *config.Config) *TypeChecker {
	return &TypeChecker{cfg: cfg, symbols: make(map[string]*Symbol)}
}

// Check validates root and returns the errors in source order of discovery.
func (tc *TypeChecker) Check(root *ast.Node) []*Error {
	tc.symbols = make(map[string]*Symbol)
	tc.errors = nil
	if root == nil || root.Type != ast.Program {
		tc.errorf(token.Token{}, "expected a program")
		return tc.errors
	}
	for _, child := range root.Children {
		if child.Type == ast.Declaration {
			tc.declare(child)
		}
	}
	for _, child := range root.Children {
		if child.Type != ast.Declaration {
			tc.checkStmt(child)
		}
	}
	return tc.errors
}

func (tc *TypeChecker) errorf(tok token.Token, format string, args ...interface{}) {
	tc.errors = append(tc.errors, &Error{Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

func (tc *TypeChecker) declare(node *ast.Node) {
	if len(node.Children) != 1 {
		tc.errorf(node.Tok, "malformed declaration")
		return
	}
	ident := node.Children[0]
	typ := ir.TypeNumber
	if node.Value == "bool" {
		typ = ir.TypeBool
	}
	if prev, ok := tc.symbols[ident.Value]; ok {
		if prev.Type != typ {
			tc.errorf(ident.Tok, "'%s' redeclared as %s, previously declared as %s", ident.Value, typ, prev.Type)
		}
		return
	}
	tc.symbols[ident.Value] = &Symbol{Name: ident.Value, Type: typ, Node: node}
}

func (tc *TypeChecker) checkStmt(node *ast.Node) {
	switch node.Type {
	case ast.Block, ast.Stmt:
		for _, child := range node.Children {
			tc.checkStmt(child)
		}
	case ast.AssignStmt:
		ident, expr := node.Children[0], node.Children[1]
		want := tc.identType(ident)
		got := tc.exprType(expr)
		if want != invalid && got != invalid && want != got {
			tc.errorf(expr.Tok, "cannot assign a %s expression to %s variable '%s'", got, want, ident.Value)
		}
	case ast.IfStmt, ast.WhileStmt:
		tc.expectBool(node.Children[0], "condition")
		for _, body := range node.Children[1:] {
			tc.checkStmt(body)
		}
	case ast.SwitchStmt:
		tc.checkSwitch(node)
	default:
		tc.errorf(node.Tok, "%s is not a statement", node.Type)
	}
}

func (tc *TypeChecker) checkSwitch(node *ast.Node) {
	if typ := tc.exprType(node.Children[0]); typ == ir.TypeBool {
		tc.errorf(node.Children[0].Tok, "switch expression must be num, found bool")
	}
	seenDefault := false
	for _, clause := range node.Children[1:] {
		body := clause.Children
		switch clause.Type {
		case ast.CaseStmt:
			if _, err := strconv.ParseInt(clause.Children[0].Value, 10, 64); err != nil {
				tc.errorf(clause.Children[0].Tok, "case value %s is out of range", clause.Children[0].Value)
			}
			body = body[1:]
		case ast.DefaultStmt:
			if seenDefault {
				tc.errorf(clause.Tok, "multiple default clauses in switch")
			}
			seenDefault = true
		}
		for _, s := range body {
			tc.checkStmt(s)
		}
	}
}

func (tc *TypeChecker) identType(ident *ast.Node) ir.Type {
	sym, ok := tc.symbols[ident.Value]
	if !ok {
		tc.errorf(ident.Tok, "undeclared identifier '%s'", ident.Value)
		return invalid
	}
	return sym.Type
}

func (tc *TypeChecker) expectBool(node *ast.Node, what string) {
	if typ := tc.exprType(node); typ == ir.TypeNumber {
		tc.errorf(node.Tok, "%s must be bool, found num", what)
	}
}

func (tc *TypeChecker) expectNumber(node *ast.Node, what string) {
	if typ := tc.exprType(node); typ == ir.TypeBool {
		tc.errorf(node.Tok, "%s must be num, found bool", what)
	}
}

func (tc *TypeChecker) exprType(node *ast.Node) ir.Type {
	switch node.Type {
	case ast.Expr, ast.GenValue:
		return tc.exprType(node.Children[0])
	case ast.Identifier:
		return tc.identType(node)
	case ast.IntValue:
		if _, err := strconv.ParseInt(node.Value, 10, 64); err != nil {
			tc.errorf(node.Tok, "integer literal %s is out of range", node.Value)
		}
		return ir.TypeNumber
	case ast.BoolValue:
		return ir.TypeBool
	case ast.AddExpr, ast.MulExpr:
		for i, operand := range node.Children {
			tc.expectNumber(operand, operandName(node, i))
		}
		return ir.TypeNumber
	case ast.UnaExpr:
		tc.expectNumber(node.Children[0], fmt.Sprintf("operand of unary '%s'", node.Ops[0]))
		return ir.TypeNumber
	case ast.NotExpr:
		tc.expectBool(node.Children[0], "operand of '!'")
		return ir.TypeBool
	case ast.BoolExpr:
		for i, operand := range node.Children {
			tc.expectBool(operand, operandName(node, i))
		}
		return ir.TypeBool
	case ast.CompExpr:
		left, right := tc.exprType(node.Children[0]), tc.exprType(node.Children[1])
		if left != invalid && right != invalid && left != right {
			tc.errorf(node.Tok, "cannot compare %s with %s using '%s'", left, right, node.Ops[0])
		}
		return ir.TypeBool
	}
	tc.errorf(node.Tok, "%s is not an expression", node.Type)
	return invalid
}

// operandName describes operand i of a chain by the operator next to it.
func operandName(node *ast.Node, i int) string {
	if i == 0 {
		return fmt.Sprintf("left operand of '%s'", node.Ops[0])
	}
	return fmt.Sprintf("right operand of '%s'", node.Ops[i-1])
}

// Report prints every error and reports whether there were any.
func Report(errs []*Error) bool {
	for _, e := range errs {
		util.Report(e.Tok, "%s", e.Msg)
	}
	return len(errs) > 0
}
