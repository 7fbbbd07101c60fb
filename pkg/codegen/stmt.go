package codegen

import (
	"strconv"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/util"
)

func (ctx *Context) codegenStmt(node *ast.Node) {
	if node == nil {
		ctx.fail(ErrMalformedTree, nil, "missing statement")
	}

	switch node.Type {
	case ast.Program, ast.Block:
		for _, child := range node.Children {
			ctx.codegenStmt(child)
		}
	case ast.Declaration:
		// Collected before the body is translated.
	case ast.Stmt:
		switch len(node.Children) {
		case 0:
		case 1:
			ctx.codegenStmt(node.Children[0])
		default:
			ctx.fail(ErrMalformedTree, node, "Stmt must have at most one child, has %d", len(node.Children))
		}
	case ast.AssignStmt:
		ctx.codegenAssign(node)
	case ast.IfStmt:
		ctx.codegenIf(node)
	case ast.WhileStmt:
		ctx.codegenWhile(node)
	case ast.SwitchStmt:
		ctx.codegenSwitch(node)
	case ast.CaseStmt, ast.DefaultStmt:
		ctx.fail(ErrMalformedTree, node, "%s outside of a switch", node.Type)
	default:
		ctx.fail(ErrUnsupportedConstruct, node, "%s used as a statement", node.Type)
	}
}

func (ctx *Context) codegenAssign(node *ast.Node) {
	if len(node.Children) != 2 || node.Children[0].Type != ast.Identifier {
		ctx.fail(ErrMalformedTree, node, "assignment needs an identifier and an expression")
	}
	ident, expr := node.Children[0], node.Children[1]
	target := &ir.Global{Name: ident.Value}

	if ctx.lookup(ident) == Bool {
		ctx.codegenBoolAssign(expr, target)
		return
	}

	val := ctx.codegenArith(expr)
	if g, ok := val.(*ir.Global); ok && g.Name == target.Name {
		util.Warn(ctx.cfg, config.WarnExtra, node.Tok, "'%s' is assigned to itself", g.Name)
		if ctx.cfg.IsFeatureEnabled(config.FeatElideSelfCopy) {
			return
		}
	}
	ctx.emitCopy(target, val)
}

// constCond reports the value of a condition that is a bare boolean literal.
func (ctx *Context) constCond(cond *ast.Node) (value, ok bool) {
	n := ctx.strip(cond)
	if n.Type != ast.BoolValue {
		return false, false
	}
	util.Warn(ctx.cfg, config.WarnConstCond, n.Tok, "condition is always %s", n.Value)
	return n.Value == "true", true
}

func (ctx *Context) warnUnreachable(node *ast.Node) {
	if node == nil || (node.Type == ast.Stmt && len(node.Children) == 0) {
		return
	}
	util.Warn(ctx.cfg, config.WarnUnreachableCode, node.Tok, "code will never be executed")
}

func (ctx *Context) codegenIf(node *ast.Node) {
	if len(node.Children) != 2 && len(node.Children) != 3 {
		ctx.fail(ErrMalformedTree, node, "if needs a condition, a body and an optional else, has %d children", len(node.Children))
	}
	cond, thenBody := node.Children[0], node.Children[1]
	var elseBody *ast.Node
	if len(node.Children) == 3 {
		elseBody = node.Children[2]
	}

	if value, ok := ctx.constCond(cond); ok {
		if value {
			ctx.warnUnreachable(elseBody)
		} else {
			ctx.warnUnreachable(thenBody)
		}
	}

	var elseL, endL *ir.Label
	if elseBody != nil {
		elseL = ctx.names.newLabel()
	}
	endL = ctx.names.newLabel()
	falseL := endL
	if elseL != nil {
		falseL = elseL
	}

	ctx.codegenCond(cond, nil, falseL)
	ctx.codegenStmt(thenBody)
	if elseBody != nil {
		ctx.emitJump(endL)
		ctx.emitLabel(elseL)
		ctx.codegenStmt(elseBody)
	}
	ctx.emitLabel(endL)
}

func (ctx *Context) codegenWhile(node *ast.Node) {
	if len(node.Children) != 2 {
		ctx.fail(ErrMalformedTree, node, "while needs a condition and a body, has %d children", len(node.Children))
	}
	cond, body := node.Children[0], node.Children[1]
	if value, ok := ctx.constCond(cond); ok && !value {
		ctx.warnUnreachable(body)
	}

	startL, endL := ctx.names.newLabel(), ctx.names.newLabel()
	ctx.emitLabel(startL)
	ctx.codegenCond(cond, nil, endL)
	ctx.codegenStmt(body)
	ctx.emitJump(startL)
	ctx.emitLabel(endL)
}

type switchClause struct {
	label *ir.Label
	body  []*ast.Node
}

// codegenSwitch evaluates the scrutinee once, dispatches with a chain of
// equality tests in source order, then lays out the bodies. Bodies do not
// fall through into each other.
func (ctx *Context) codegenSwitch(node *ast.Node) {
	if len(node.Children) < 1 {
		ctx.fail(ErrMalformedTree, node, "switch needs a scrutinee")
	}
	scrutinee := node.Children[0]
	if ctx.typeOf(scrutinee) != Number {
		ctx.fail(ErrUnsupportedConstruct, scrutinee, "switch on a boolean value")
	}

	val := ctx.codegenArith(scrutinee)
	tmp, ok := val.(*ir.Temporary)
	if !ok {
		tmp = ctx.names.newTemp()
		ctx.emitCopy(tmp, val)
	}
	endL := ctx.names.newLabel()

	var clauses []switchClause
	var defaultL *ir.Label
	seen := make(map[int64]bool)
	for _, c := range node.Children[1:] {
		label := ctx.names.newLabel()
		switch c.Type {
		case ast.CaseStmt:
			if len(c.Children) < 1 || c.Children[0].Type != ast.IntValue {
				ctx.fail(ErrMalformedTree, c, "case needs an integer literal")
			}
			lit := c.Children[0]
			v, err := strconv.ParseInt(lit.Value, 10, 64)
			if err != nil {
				ctx.fail(ErrMalformedTree, lit, "invalid case value '%s'", lit.Value)
			}
			if seen[v] {
				util.Warn(ctx.cfg, config.WarnExtra, lit.Tok, "duplicate case value %d is never selected", v)
			}
			seen[v] = true
			ctx.emit(&ir.Instruction{Op: ir.OpIf, Cond: &ir.Cond{Op: ir.OpCEq, Left: tmp, Right: &ir.Const{Value: v}}, Target: label})
			clauses = append(clauses, switchClause{label: label, body: c.Children[1:]})
		case ast.DefaultStmt:
			if defaultL != nil {
				ctx.fail(ErrMalformedTree, c, "multiple default clauses in switch")
			}
			defaultL = label
			clauses = append(clauses, switchClause{label: label, body: c.Children})
		default:
			ctx.fail(ErrMalformedTree, c, "%s in switch body", c.Type)
		}
	}

	if defaultL != nil {
		ctx.emitJump(defaultL)
	} else {
		ctx.emitJump(endL)
	}

	for i, c := range clauses {
		ctx.emitLabel(c.label)
		for _, s := range c.body {
			ctx.codegenStmt(s)
		}
		if i < len(clauses)-1 {
			ctx.emitJump(endL)
		}
	}
	ctx.emitLabel(endL)
}
