package codegen

import (
	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/token"
)

// codegenCond emits code that transfers control to trueL when node holds
// and to falseL otherwise. A nil label means "fall through to whatever is
// emitted next". No value is produced.
func (ctx *Context) codegenCond(node *ast.Node, trueL, falseL *ir.Label) {
	if transparent(node) {
		ctx.codegenCond(ctx.only(node), trueL, falseL)
		return
	}

	switch node.Type {
	case ast.BoolValue:
		switch node.Value {
		case "true":
			if trueL != nil {
				ctx.emitJump(trueL)
			}
		case "false":
			if falseL != nil {
				ctx.emitJump(falseL)
			}
		default:
			ctx.fail(ErrMalformedTree, node, "invalid boolean literal '%s'", node.Value)
		}
	case ast.Identifier:
		if ctx.lookup(node) != Bool {
			ctx.fail(ErrUnsupportedConstruct, node, "numeric variable '%s' used as a condition", node.Value)
		}
		cond := &ir.Cond{Op: ir.OpCEq, Left: &ir.Global{Name: node.Value}, Right: &ir.Const{Value: 1}}
		ctx.emitTest(cond, trueL, falseL)
	case ast.NotExpr:
		odd := false
		for _, op := range node.Ops {
			if op != token.Not {
				ctx.fail(ErrUnsupportedConstruct, node, "operator '%s' in %s", op, node.Type)
			}
			odd = !odd
		}
		if odd {
			trueL, falseL = falseL, trueL
		}
		ctx.codegenCond(ctx.only(node), trueL, falseL)
	case ast.CompExpr:
		ctx.codegenCompare(node, trueL, falseL)
	case ast.BoolExpr:
		ctx.checkChain(node)
		ctx.codegenLogical(node, 0, trueL, falseL)
	case ast.IntValue, ast.AddExpr, ast.MulExpr, ast.UnaExpr:
		ctx.fail(ErrUnsupportedConstruct, node, "numeric expression used as a condition")
	default:
		ctx.fail(ErrUnsupportedConstruct, node, "%s cannot be used as a condition", node.Type)
	}
}

func (ctx *Context) codegenCompare(node *ast.Node, trueL, falseL *ir.Label) {
	if len(node.Children) != 2 || len(node.Ops) != 1 {
		ctx.fail(ErrMalformedTree, node, "comparison needs 2 operands and 1 operator, has %d and %d", len(node.Children), len(node.Ops))
	}
	op, ok := relOps[node.Ops[0]]
	if !ok {
		ctx.fail(ErrUnsupportedConstruct, node, "operator '%s' in %s", node.Ops[0], node.Type)
	}

	left, right := node.Children[0], node.Children[1]
	lt, rt := ctx.typeOf(left), ctx.typeOf(right)
	if lt != rt {
		ctx.fail(ErrUnsupportedConstruct, node, "cannot compare %s with %s", lt, rt)
	}

	var l, r ir.Value
	if lt == Bool {
		l, r = ctx.materialize(left), ctx.materialize(right)
	} else {
		l, r = ctx.codegenArith(left), ctx.codegenArith(right)
	}
	ctx.emitTest(&ir.Cond{Op: op, Left: l, Right: r}, trueL, falseL)
}

// codegenLogical lowers operands i.. of a flat ||/&& chain, which groups to
// the right: a || b && c is a || (b && c).
func (ctx *Context) codegenLogical(node *ast.Node, i int, trueL, falseL *ir.Label) {
	if i == len(node.Ops) {
		ctx.codegenCond(node.Children[i], trueL, falseL)
		return
	}

	left := node.Children[i]
	mid := ctx.names.newLabel()
	switch node.Ops[i] {
	case token.OrOr:
		// A true left operand must skip the right one even when the
		// caller falls through on true.
		leftTrue, join := trueL, (*ir.Label)(nil)
		if leftTrue == nil {
			join = ctx.names.newLabel()
			leftTrue = join
		}
		ctx.codegenCond(left, leftTrue, mid)
		ctx.emitLabel(mid)
		ctx.codegenLogical(node, i+1, trueL, falseL)
		if join != nil {
			ctx.emitLabel(join)
		}
	case token.AndAnd:
		leftFalse, join := falseL, (*ir.Label)(nil)
		if leftFalse == nil {
			join = ctx.names.newLabel()
			leftFalse = join
		}
		ctx.codegenCond(left, mid, leftFalse)
		ctx.emitLabel(mid)
		ctx.codegenLogical(node, i+1, trueL, falseL)
		if join != nil {
			ctx.emitLabel(join)
		}
	default:
		ctx.fail(ErrUnsupportedConstruct, node, "operator '%s' in %s", node.Ops[i], node.Type)
	}
}

// codegenBoolAssign is the bridge from control flow back to a value:
// target ends up holding 1 or 0.
func (ctx *Context) codegenBoolAssign(expr *ast.Node, target ir.Value) {
	trueL, falseL, endL := ctx.names.newLabel(), ctx.names.newLabel(), ctx.names.newLabel()
	ctx.codegenCond(expr, trueL, falseL)
	ctx.emitLabel(trueL)
	ctx.emitCopy(target, &ir.Const{Value: 1})
	ctx.emitJump(endL)
	ctx.emitLabel(falseL)
	ctx.emitCopy(target, &ir.Const{Value: 0})
	ctx.emitLabel(endL)
}

func (ctx *Context) materialize(expr *ast.Node) ir.Value {
	t := ctx.names.newTemp()
	ctx.codegenBoolAssign(expr, t)
	return t
}
