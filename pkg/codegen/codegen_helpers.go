package codegen

import (
	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/token"
)

var arithOps = map[token.Type]ir.Op{
	token.Plus: ir.OpAdd, token.Minus: ir.OpSub,
	token.Star: ir.OpMul, token.Slash: ir.OpDiv, token.Rem: ir.OpRem,
}

var relOps = map[token.Type]ir.Op{
	token.EqEq: ir.OpCEq, token.Neq: ir.OpCNeq,
	token.Lt: ir.OpCLt, token.Gt: ir.OpCGt, token.Lte: ir.OpCLe, token.Gte: ir.OpCGe,
}

// only returns the single child of a wrapper node.
func (ctx *Context) only(node *ast.Node) *ast.Node {
	if len(node.Children) != 1 || node.Children[0] == nil {
		ctx.fail(ErrMalformedTree, node, "%s must have exactly one child, has %d", node.Type, len(node.Children))
	}
	return node.Children[0]
}

// transparent reports whether node is an operator node without operators,
// which stands for its single child.
func transparent(node *ast.Node) bool {
	switch node.Type {
	case ast.Expr, ast.GenValue:
		return true
	case ast.BoolExpr, ast.CompExpr, ast.AddExpr, ast.MulExpr, ast.UnaExpr, ast.NotExpr:
		return len(node.Ops) == 0
	}
	return false
}

// strip removes transparent wrappers.
func (ctx *Context) strip(node *ast.Node) *ast.Node {
	for transparent(node) {
		node = ctx.only(node)
	}
	return node
}

// typeOf infers the static type of an expression subtree.
func (ctx *Context) typeOf(node *ast.Node) VarType {
	node = ctx.strip(node)
	switch node.Type {
	case ast.BoolValue, ast.BoolExpr, ast.CompExpr, ast.NotExpr:
		return Bool
	case ast.IntValue, ast.AddExpr, ast.MulExpr, ast.UnaExpr:
		return Number
	case ast.Identifier:
		typ, err := ctx.syms.Lookup(node.Value)
		ctx.check(err, node)
		return typ
	}
	ctx.fail(ErrUnsupportedConstruct, node, "%s is not an expression", node.Type)
	return Number
}

// checkChain validates the n children / n-1 operators shape.
func (ctx *Context) checkChain(node *ast.Node) {
	if len(node.Children) < 2 || len(node.Children) != len(node.Ops)+1 {
		ctx.fail(ErrMalformedTree, node, "%s has %d operands for %d operators", node.Type, len(node.Children), len(node.Ops))
	}
}
