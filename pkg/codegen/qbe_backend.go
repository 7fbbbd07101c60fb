package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/ir"
)

// qbeBackend lowers TAC to QBE IL. Program variables become 64-bit data
// words, temporaries become QBE temporaries, and main prints every
// variable before returning 0. With assemble set, the IL is handed to QBE.
type qbeBackend struct {
	out      *strings.Builder
	prog     *ir.Program
	assemble bool
	tmpCount int
	// open is false after a jump until the next block label.
	open bool
}

func NewQBEBackend() Backend { return &qbeBackend{} }
func NewAsmBackend() Backend { return &qbeBackend{assemble: true} }

func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	if !b.assemble {
		return bytes.NewBufferString(qbeIR), nil
	}
	return b.assembleIR(qbeIR, cfg)
}

// GenerateIR returns the QBE IL text for prog.
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	b.out, b.prog, b.tmpCount = &sb, prog, 0

	for _, g := range prog.Globals {
		fmt.Fprintf(b.out, "data %s = { l 0 }\n", globalName(g.Name))
	}
	for _, g := range prog.Globals {
		fmt.Fprintf(b.out, "data %s = { b %s, b 0 }\n", fmtName(g.Name), strconv.Quote(g.Name+" = %ld\n"))
	}

	b.out.WriteString("\nexport function w $main() {\n@start\n")
	b.open = true
	for _, instr := range prog.Instrs {
		if err := b.genInstr(instr); err != nil {
			return "", err
		}
	}
	if !b.open {
		b.out.WriteString("@exit\n")
	}
	for _, g := range prog.Globals {
		v := b.load(&ir.Global{Name: g.Name})
		fmt.Fprintf(b.out, "\tcall $printf(l %s, ..., l %s)\n", fmtName(g.Name), v)
	}
	b.out.WriteString("\tret 0\n}\n")
	return sb.String(), nil
}

func globalName(name string) string { return "$v_" + name }
func fmtName(name string) string    { return "$fmt_" + name }

func (b *qbeBackend) newTemp() string {
	b.tmpCount++
	return fmt.Sprintf("%%.%d", b.tmpCount)
}

func formatLabel(l *ir.Label) string { return fmt.Sprintf("@L%d", l.ID) }

// load returns a QBE operand for v, loading program variables from memory.
func (b *qbeBackend) load(v ir.Value) string {
	switch v := v.(type) {
	case *ir.Const:
		return strconv.FormatInt(v.Value, 10)
	case *ir.Temporary:
		return fmt.Sprintf("%%t%d", v.ID)
	case *ir.Global:
		t := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =l loadl %s\n", t, globalName(v.Name))
		return t
	}
	return "0"
}

// store emits "dst = op args" where dst may be a program variable.
func (b *qbeBackend) store(dst ir.Value, op string, args ...string) error {
	rhs := op + " " + strings.Join(args, ", ")
	switch dst := dst.(type) {
	case *ir.Temporary:
		fmt.Fprintf(b.out, "\t%%t%d =l %s\n", dst.ID, rhs)
	case *ir.Global:
		t := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =l %s\n", t, rhs)
		fmt.Fprintf(b.out, "\tstorel %s, %s\n", t, globalName(dst.Name))
	default:
		return fmt.Errorf("qbe: cannot assign to %v", dst)
	}
	return nil
}

func (b *qbeBackend) formatOp(op ir.Op) string {
	switch op {
	case ir.OpAdd: return "add"
	case ir.OpSub: return "sub"
	case ir.OpMul: return "mul"
	case ir.OpDiv: return "div"
	case ir.OpRem: return "rem"
	case ir.OpNeg: return "neg"
	case ir.OpCopy: return "copy"
	case ir.OpCEq: return "ceql"
	case ir.OpCNeq: return "cnel"
	case ir.OpCLt: return "csltl"
	case ir.OpCGt: return "csgtl"
	case ir.OpCLe: return "cslel"
	case ir.OpCGe: return "csgel"
	}
	return ""
}

func (b *qbeBackend) genInstr(instr *ir.Instruction) error {
	if instr.Op == ir.OpLabel {
		fmt.Fprintf(b.out, "%s\n", formatLabel(instr.Target))
		b.open = true
		return nil
	}
	if !b.open {
		// Code after a jump with no label in between; QBE needs a block.
		fmt.Fprintf(b.out, "@dead%d\n", b.tmpCount)
		b.tmpCount++
		b.open = true
	}

	switch instr.Op {
	case ir.OpCopy, ir.OpNeg:
		return b.store(instr.Result, b.formatOp(instr.Op), b.load(instr.Args[0]))
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem:
		l := b.load(instr.Args[0])
		r := b.load(instr.Args[1])
		return b.store(instr.Result, b.formatOp(instr.Op), l, r)
	case ir.OpJmp:
		fmt.Fprintf(b.out, "\tjmp %s\n", formatLabel(instr.Target))
		b.open = false
	case ir.OpIf, ir.OpIfFalse:
		l := b.load(instr.Cond.Left)
		r := b.load(instr.Cond.Right)
		c := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =w %s %s, %s\n", c, b.formatOp(instr.Cond.Op), l, r)
		ft := fmt.Sprintf("@ft%d", b.tmpCount)
		b.tmpCount++
		if instr.Op == ir.OpIf {
			fmt.Fprintf(b.out, "\tjnz %s, %s, %s\n", c, formatLabel(instr.Target), ft)
		} else {
			fmt.Fprintf(b.out, "\tjnz %s, %s, %s\n", c, ft, formatLabel(instr.Target))
		}
		fmt.Fprintf(b.out, "%s\n", ft)
	default:
		return fmt.Errorf("qbe: unsupported instruction %s", instr)
	}
	return nil
}
