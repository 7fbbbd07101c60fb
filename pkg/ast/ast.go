// Package ast defines the syntax tree consumed by the TAC generator
package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/xplshn/gtac/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

const (
	// Structure
	Program NodeType = iota
	Declaration
	Block
	Stmt
	IfStmt
	WhileStmt
	SwitchStmt
	CaseStmt
	DefaultStmt
	AssignStmt

	// Expressions
	Expr
	AddExpr
	MulExpr
	UnaExpr
	BoolExpr
	CompExpr
	NotExpr
	GenValue

	// Leaves
	BoolValue
	IntValue
	Identifier
)

var nodeNames = [...]string{
	Program: "Program", Declaration: "Declaration", Block: "Block", Stmt: "Stmt",
	IfStmt: "IfStmt", WhileStmt: "WhileStmt", SwitchStmt: "SwitchStmt",
	CaseStmt: "CaseStmt", DefaultStmt: "DefaultStmt", AssignStmt: "AssignStmt",
	Expr: "Expr", AddExpr: "AddExpr", MulExpr: "MulExpr", UnaExpr: "UnaExpr",
	BoolExpr: "BoolExpr", CompExpr: "CompExpr", NotExpr: "NotExpr", GenValue: "GenValue",
	BoolValue: "BoolValue", IntValue: "IntValue", Identifier: "Identifier",
}

func (t NodeType) String() string {
	if t >= 0 && int(t) < len(nodeNames) {
		return nodeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is a generic tree node. Operator nodes carry their operators in Ops,
// in order between consecutive children (or all before the single child for
// UnaExpr and NotExpr). Leaves and declarations carry their text in Value.
type Node struct {
	Type     NodeType
	Tok      token.Token
	Parent   *Node
	Children []*Node
	Ops      []token.Type
	Value    string
}

func newNode(tok token.Token, nodeType NodeType, value string, ops []token.Type, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Value: value, Ops: ops, Children: children}
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func NewProgram(tok token.Token, decls []*Node, body *Node) *Node {
	return newNode(tok, Program, "", nil, append(append([]*Node{}, decls...), body)...)
}
func NewDeclaration(tok token.Token, typeKeyword string, ident *Node) *Node {
	return newNode(tok, Declaration, typeKeyword, nil, ident)
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Block, "", nil, stmts...)
}

// NewStmt wraps a statement. A nil inner node is the empty statement.
func NewStmt(tok token.Token, inner *Node) *Node {
	if inner == nil {
		return newNode(tok, Stmt, "", nil)
	}
	return newNode(tok, Stmt, "", nil, inner)
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	if elseBody == nil {
		return newNode(tok, IfStmt, "", nil, cond, thenBody)
	}
	return newNode(tok, IfStmt, "", nil, cond, thenBody, elseBody)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, WhileStmt, "", nil, cond, body)
}
func NewSwitch(tok token.Token, scrutinee *Node, clauses []*Node) *Node {
	return newNode(tok, SwitchStmt, "", nil, append([]*Node{scrutinee}, clauses...)...)
}
func NewCase(tok token.Token, value *Node, body []*Node) *Node {
	return newNode(tok, CaseStmt, "", nil, append([]*Node{value}, body...)...)
}
func NewDefault(tok token.Token, body []*Node) *Node {
	return newNode(tok, DefaultStmt, "", nil, body...)
}
func NewAssign(tok token.Token, target, expr *Node) *Node {
	return newNode(tok, AssignStmt, "", nil, target, expr)
}
func NewExpr(tok token.Token, inner *Node) *Node {
	return newNode(tok, Expr, "", nil, inner)
}
func NewGenValue(tok token.Token, inner *Node) *Node {
	return newNode(tok, GenValue, "", nil, inner)
}

// NewChain builds a BoolExpr, CompExpr, AddExpr or MulExpr node.
func NewChain(tok token.Token, nodeType NodeType, ops []token.Type, operands []*Node) *Node {
	return newNode(tok, nodeType, "", ops, operands...)
}

// NewPrefix builds a UnaExpr or NotExpr node.
func NewPrefix(tok token.Token, nodeType NodeType, ops []token.Type, operand *Node) *Node {
	return newNode(tok, nodeType, "", ops, operand)
}
func NewBoolValue(tok token.Token, value bool) *Node {
	return newNode(tok, BoolValue, fmt.Sprint(value), nil)
}
func NewIntValue(tok token.Token, text string) *Node {
	return newNode(tok, IntValue, text, nil)
}
func NewIdentifier(tok token.Token, name string) *Node {
	return newNode(tok, Identifier, name, nil)
}

// Walk visits node and its descendants in pre-order until fn returns false.
func Walk(node *Node, fn func(*Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.Children {
		Walk(child, fn)
	}
}

// Dump writes an indented rendering of the tree.
func Dump(w io.Writer, node *Node) error {
	var sb strings.Builder
	dump(&sb, node, 0)
	_, err := io.WriteString(w, sb.String())
	return err
}

func dump(sb *strings.Builder, node *Node, depth int) {
	if node == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(node.Type.String())
	if node.Value != "" {
		fmt.Fprintf(sb, " %q", node.Value)
	}
	if len(node.Ops) > 0 {
		ops := make([]string, len(node.Ops))
		for i, op := range node.Ops {
			ops[i] = op.String()
		}
		fmt.Fprintf(sb, " [%s]", strings.Join(ops, " "))
	}
	sb.WriteByte('\n')
	for _, child := range node.Children {
		dump(sb, child, depth+1)
	}
}
