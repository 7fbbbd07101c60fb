package codegen

import (
	"strconv"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/token"
)

// codegenArith emits the computation of a numeric subtree and returns the
// operand holding its value. Literals and identifiers emit nothing.
func (ctx *Context) codegenArith(node *ast.Node) ir.Value {
	if transparent(node) {
		return ctx.codegenArith(ctx.only(node))
	}

	switch node.Type {
	case ast.IntValue:
		v, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			ctx.fail(ErrMalformedTree, node, "invalid integer literal '%s'", node.Value)
		}
		return &ir.Const{Value: v}
	case ast.Identifier:
		if ctx.lookup(node) != Number {
			ctx.fail(ErrUnsupportedConstruct, node, "boolean variable '%s' used as a number", node.Value)
		}
		return &ir.Global{Name: node.Value}
	case ast.AddExpr, ast.MulExpr:
		return ctx.codegenArithChain(node)
	case ast.UnaExpr:
		return ctx.codegenNegate(node)
	case ast.BoolValue, ast.BoolExpr, ast.CompExpr, ast.NotExpr:
		ctx.fail(ErrUnsupportedConstruct, node, "boolean expression used as a number")
	}
	ctx.fail(ErrUnsupportedConstruct, node, "%s cannot be used as a number", node.Type)
	return nil
}

// codegenArithChain folds a left-associative chain, one temporary per operator.
func (ctx *Context) codegenArithChain(node *ast.Node) ir.Value {
	ctx.checkChain(node)
	acc := ctx.codegenArith(node.Children[0])
	for i, opTok := range node.Ops {
		op, ok := arithOps[opTok]
		if !ok || (node.Type == ast.AddExpr) != (opTok == token.Plus || opTok == token.Minus) {
			ctx.fail(ErrUnsupportedConstruct, node, "operator '%s' in %s", opTok, node.Type)
		}
		rhs := ctx.codegenArith(node.Children[i+1])
		res := ctx.names.newTemp()
		ctx.emit(&ir.Instruction{Op: op, Result: res, Args: []ir.Value{acc, rhs}})
		acc = res
	}
	return acc
}

// codegenNegate collapses a run of unary signs by the parity of its minuses.
func (ctx *Context) codegenNegate(node *ast.Node) ir.Value {
	operand := ctx.only(node)
	negate := false
	for _, op := range node.Ops {
		switch op {
		case token.Minus:
			negate = !negate
		case token.Plus:
		default:
			ctx.fail(ErrUnsupportedConstruct, node, "operator '%s' in %s", op, node.Type)
		}
	}
	val := ctx.codegenArith(operand)
	if !negate {
		return val
	}
	res := ctx.names.newTemp()
	ctx.emit(&ir.Instruction{Op: ir.OpNeg, Result: res, Args: []ir.Value{val}})
	return res
}
