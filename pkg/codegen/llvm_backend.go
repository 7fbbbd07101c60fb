package codegen

import (
	"bytes"
	"fmt"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/ir"
)

// llvmBackend lowers TAC to LLVM IR text. Program variables are i64
// globals, temporaries are stack slots, and every label opens a block.
type llvmBackend struct {
	module  *llir.Module
	main    *llir.Func
	entry   *llir.Block
	cur     *llir.Block
	globals map[string]*llir.Global
	slots   map[string]*llir.InstAlloca
	blocks  map[string]*llir.Block
	nblocks int
}

func NewLLVMBackend() Backend { return &llvmBackend{} }

func (b *llvmBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	b.module = llir.NewModule()
	b.globals = make(map[string]*llir.Global)
	b.slots = make(map[string]*llir.InstAlloca)
	b.blocks = make(map[string]*llir.Block)
	b.nblocks = 0

	printf := b.module.NewFunc("printf", types.I32, llir.NewParam("format", types.NewPointer(types.I8)))
	printf.Sig.Variadic = true

	for _, g := range prog.Globals {
		b.globals[g.Name] = b.module.NewGlobalDef("v."+g.Name, constant.NewInt(types.I64, 0))
	}

	b.main = b.module.NewFunc("main", types.I32)
	b.entry = b.main.NewBlock("entry")
	body := b.main.NewBlock("body")
	b.cur = body

	for _, instr := range prog.Instrs {
		if err := b.genInstr(instr); err != nil {
			return nil, err
		}
	}
	if b.cur == nil {
		b.cur = b.main.NewBlock("exit")
	}

	zero := constant.NewInt(types.I32, 0)
	for _, g := range prog.Globals {
		text := constant.NewCharArrayFromString(g.Name + " = %ld\n\x00")
		format := b.module.NewGlobalDef(".fmt."+g.Name, text)
		format.Immutable = true
		ptr := b.cur.NewGetElementPtr(format.ContentType, format, zero, zero)
		val := b.cur.NewLoad(types.I64, b.globals[g.Name])
		b.cur.NewCall(printf, ptr, val)
	}
	b.cur.NewRet(zero)

	// entry only holds the temporaries' stack slots.
	b.entry.NewBr(body)

	var buf bytes.Buffer
	buf.WriteString(b.module.String())
	return &buf, nil
}

func (b *llvmBackend) block(l *ir.Label) *llir.Block {
	if blk, ok := b.blocks[l.Name]; ok {
		return blk
	}
	blk := b.main.NewBlock(l.Name)
	b.blocks[l.Name] = blk
	return blk
}

func (b *llvmBackend) freshBlock(prefix string) *llir.Block {
	b.nblocks++
	return b.main.NewBlock(fmt.Sprintf("%s.%d", prefix, b.nblocks))
}

func (b *llvmBackend) slot(t *ir.Temporary) *llir.InstAlloca {
	if s, ok := b.slots[t.Name]; ok {
		return s
	}
	s := b.entry.NewAlloca(types.I64)
	s.SetName(t.Name)
	b.slots[t.Name] = s
	return s
}

func (b *llvmBackend) operand(v ir.Value) (value.Value, error) {
	switch v := v.(type) {
	case *ir.Const:
		return constant.NewInt(types.I64, v.Value), nil
	case *ir.Global:
		g, ok := b.globals[v.Name]
		if !ok {
			return nil, fmt.Errorf("llvm: undeclared variable %s", v.Name)
		}
		return b.cur.NewLoad(types.I64, g), nil
	case *ir.Temporary:
		return b.cur.NewLoad(types.I64, b.slot(v)), nil
	}
	return nil, fmt.Errorf("llvm: cannot read operand %v", v)
}

func (b *llvmBackend) store(dst ir.Value, val value.Value) error {
	switch dst := dst.(type) {
	case *ir.Global:
		g, ok := b.globals[dst.Name]
		if !ok {
			return fmt.Errorf("llvm: undeclared variable %s", dst.Name)
		}
		b.cur.NewStore(val, g)
	case *ir.Temporary:
		b.cur.NewStore(val, b.slot(dst))
	default:
		return fmt.Errorf("llvm: cannot assign to %v", dst)
	}
	return nil
}

func llvmPred(op ir.Op) enum.IPred {
	switch op {
	case ir.OpCEq: return enum.IPredEQ
	case ir.OpCNeq: return enum.IPredNE
	case ir.OpCLt: return enum.IPredSLT
	case ir.OpCGt: return enum.IPredSGT
	case ir.OpCLe: return enum.IPredSLE
	}
	return enum.IPredSGE
}

func (b *llvmBackend) genInstr(instr *ir.Instruction) error {
	if instr.Op == ir.OpLabel {
		next := b.block(instr.Target)
		if b.cur != nil && b.cur.Term == nil {
			b.cur.NewBr(next)
		}
		b.cur = next
		return nil
	}
	if b.cur == nil {
		b.cur = b.freshBlock("dead")
	}

	args := make([]value.Value, len(instr.Args))
	for i, a := range instr.Args {
		v, err := b.operand(a)
		if err != nil {
			return err
		}
		args[i] = v
	}

	switch instr.Op {
	case ir.OpCopy:
		return b.store(instr.Result, args[0])
	case ir.OpNeg:
		return b.store(instr.Result, b.cur.NewSub(constant.NewInt(types.I64, 0), args[0]))
	case ir.OpAdd:
		return b.store(instr.Result, b.cur.NewAdd(args[0], args[1]))
	case ir.OpSub:
		return b.store(instr.Result, b.cur.NewSub(args[0], args[1]))
	case ir.OpMul:
		return b.store(instr.Result, b.cur.NewMul(args[0], args[1]))
	case ir.OpDiv:
		return b.store(instr.Result, b.cur.NewSDiv(args[0], args[1]))
	case ir.OpRem:
		return b.store(instr.Result, b.cur.NewSRem(args[0], args[1]))
	case ir.OpJmp:
		b.cur.NewBr(b.block(instr.Target))
		b.cur = nil
	case ir.OpIf, ir.OpIfFalse:
		l, err := b.operand(instr.Cond.Left)
		if err != nil {
			return err
		}
		r, err := b.operand(instr.Cond.Right)
		if err != nil {
			return err
		}
		c := b.cur.NewICmp(llvmPred(instr.Cond.Op), l, r)
		ft := b.freshBlock("ft")
		if instr.Op == ir.OpIf {
			b.cur.NewCondBr(c, b.block(instr.Target), ft)
		} else {
			b.cur.NewCondBr(c, ft, b.block(instr.Target))
		}
		b.cur = ft
	default:
		return fmt.Errorf("llvm: unsupported instruction %s", instr)
	}
	return nil
}
