package codegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/util"
)

// Context holds the state of one translation: the symbol table, the name
// counters and the sink. It is not safe for concurrent use.
type Context struct {
	cfg   *config.Config
	syms  *SymbolTable
	names names
	sink  ir.Sink
}

func NewContext(cfg *config.Config) *Context {
	return &Context{cfg: cfg, syms: NewSymbolTable()}
}

func (ctx *Context) Symbols() *SymbolTable { return ctx.syms }

// Translate emits the TAC for root into sink. Name counters keep running
// across calls on the same Context so minted names are never reused.
func (ctx *Context) Translate(root *ast.Node, sink ir.Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = e
		}
	}()

	if root == nil || root.Type != ast.Program {
		ctx.fail(ErrMalformedTree, root, "translation unit must be a Program node")
	}
	ctx.syms = NewSymbolTable()
	ctx.sink = sink
	defer func() { ctx.sink = nil }()

	ctx.collectDeclarations(root)
	ctx.codegenStmt(root)
	ctx.warnUnused()
	return nil
}

// GenerateIR translates root into an in-memory program.
func (ctx *Context) GenerateIR(root *ast.Node) (*ir.Program, error) {
	prog := &ir.Program{}
	if err := ctx.Translate(root, prog); err != nil {
		return nil, err
	}
	for _, sym := range ctx.syms.Symbols() {
		prog.Globals = append(prog.Globals, &ir.Data{Name: sym.Name, Typ: sym.Type.irType()})
	}
	prog.TempCount, prog.LabelCount = ctx.names.temps, ctx.names.labels

	if ctx.cfg.IsFeatureEnabled(config.FeatVerify) {
		if err := ir.CheckLabels(prog.Instrs); err != nil {
			return nil, fmt.Errorf("generated code failed verification: %w", err)
		}
	}
	return prog, nil
}

func (ctx *Context) collectDeclarations(root *ast.Node) {
	ast.Walk(root, func(n *ast.Node) bool {
		if n.Type != ast.Declaration {
			return true
		}
		if len(n.Children) != 1 || n.Children[0].Type != ast.Identifier {
			ctx.fail(ErrMalformedTree, n, "declaration must name exactly one identifier")
		}
		name := n.Children[0].Value
		redeclared := ctx.syms.Has(name)
		_, err := ctx.syms.Declare(name, n.Value, n)
		ctx.check(err, n.Children[0])
		if redeclared {
			util.Warn(ctx.cfg, config.WarnRedeclared, n.Children[0].Tok, "'%s' is already declared", name)
		}
		return false
	})
}

func (ctx *Context) warnUnused() {
	for _, sym := range ctx.syms.Symbols() {
		if sym.Uses == 0 {
			util.Warn(ctx.cfg, config.WarnUnused, sym.Node.Children[0].Tok, "variable '%s' declared but never used", sym.Name)
		}
	}
}

// check turns an error from a helper into a translation failure.
func (ctx *Context) check(err error, node *ast.Node) {
	if err == nil {
		return
	}
	for _, kind := range []error{ErrMalformedTree, ErrUndeclaredIdentifier, ErrUnsupportedConstruct} {
		if errors.Is(err, kind) {
			ctx.fail(kind, node, "%s", strings.TrimPrefix(err.Error(), kind.Error()+": "))
		}
	}
	ctx.fail(ErrMalformedTree, node, "%v", err)
}

// lookup resolves an Identifier node and counts the reference.
func (ctx *Context) lookup(node *ast.Node) VarType {
	typ, err := ctx.syms.Lookup(node.Value)
	ctx.check(err, node)
	ctx.syms.syms[node.Value].Uses++
	return typ
}

func (ctx *Context) emit(instr *ir.Instruction) { ctx.sink.Emit(instr) }

func (ctx *Context) emitLabel(l *ir.Label) {
	ctx.emit(&ir.Instruction{Op: ir.OpLabel, Target: l})
}

func (ctx *Context) emitJump(l *ir.Label) {
	ctx.emit(&ir.Instruction{Op: ir.OpJmp, Target: l})
}

func (ctx *Context) emitCopy(dst, src ir.Value) {
	ctx.emit(&ir.Instruction{Op: ir.OpCopy, Result: dst, Args: []ir.Value{src}})
}

// emitTest jumps on the outcome of cond. A nil target falls through, and
// no unconditional jump is emitted for an absent target.
func (ctx *Context) emitTest(cond *ir.Cond, trueL, falseL *ir.Label) {
	switch {
	case trueL != nil && falseL != nil:
		ctx.emit(&ir.Instruction{Op: ir.OpIf, Cond: cond, Target: trueL})
		ctx.emitJump(falseL)
	case trueL != nil:
		ctx.emit(&ir.Instruction{Op: ir.OpIf, Cond: cond, Target: trueL})
	case falseL != nil:
		ctx.emit(&ir.Instruction{Op: ir.OpIfFalse, Cond: cond, Target: falseL})
	}
}
