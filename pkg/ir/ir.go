package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Op int

const (
	OpCopy Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpCEq
	OpCNeq
	OpCLt
	OpCGt
	OpCLe
	OpCGe
	OpIf
	OpIfFalse
	OpJmp
	OpLabel
)

var opSymbols = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%", OpNeg: "-",
	OpCEq: "==", OpCNeq: "!=", OpCLt: "<", OpCGt: ">", OpCLe: "<=", OpCGe: ">=",
}

func (op Op) String() string {
	if s, ok := opSymbols[op]; ok {
		return s
	}
	switch op {
	case OpCopy: return "copy"
	case OpIf: return "if"
	case OpIfFalse: return "ifFalse"
	case OpJmp: return "goto"
	case OpLabel: return "label"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

func (op Op) IsBinary() bool   { return op >= OpAdd && op <= OpRem }
func (op Op) IsRelation() bool { return op >= OpCEq && op <= OpCGe }
func (op Op) IsJump() bool     { return op == OpIf || op == OpIfFalse || op == OpJmp }

// Type is the declared type of a program variable.
type Type int

const (
	TypeNumber Type = iota
	TypeBool
)

func (t Type) String() string {
	if t == TypeBool {
		return "bool"
	}
	return "num"
}

type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int64 }
type Global struct{ Name string }
type Temporary struct{ Name string; ID int }
type Label struct{ Name string; ID int }

func (c *Const) isValue()     {}
func (g *Global) isValue()    {}
func (t *Temporary) isValue() {}
func (l *Label) isValue()     {}

func (c *Const) String() string     { return strconv.FormatInt(c.Value, 10) }
func (g *Global) String() string    { return g.Name }
func (t *Temporary) String() string { return t.Name }
func (l *Label) String() string     { return l.Name }

// Cond is the relational test of a conditional jump.
type Cond struct {
	Op    Op
	Left  Value
	Right Value
}

func (c *Cond) String() string { return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right) }

type Instruction struct {
	Op     Op
	Result Value
	Args   []Value
	Cond   *Cond
	Target *Label
}

func (i *Instruction) String() string {
	switch i.Op {
	case OpCopy: return fmt.Sprintf("%s = %s", i.Result, i.Args[0])
	case OpNeg: return fmt.Sprintf("%s = -%s", i.Result, i.Args[0])
	case OpIf: return fmt.Sprintf("if %s goto %s", i.Cond, i.Target)
	case OpIfFalse: return fmt.Sprintf("ifFalse %s goto %s", i.Cond, i.Target)
	case OpJmp: return fmt.Sprintf("goto %s", i.Target)
	case OpLabel: return fmt.Sprintf("%s:", i.Target)
	}
	if i.Op.IsBinary() {
		return fmt.Sprintf("%s = %s %s %s", i.Result, i.Args[0], i.Op, i.Args[1])
	}
	return fmt.Sprintf("<invalid %s>", i.Op)
}

// Sink receives instructions in emission order.
type Sink interface {
	Emit(instr *Instruction)
}

type Data struct {
	Name string
	Typ  Type
}

type Program struct {
	Globals    []*Data
	Instrs     []*Instruction
	TempCount  int
	LabelCount int
}

func (p *Program) Emit(instr *Instruction) { p.Instrs = append(p.Instrs, instr) }

func (p *Program) FindGlobal(name string) *Data {
	for _, d := range p.Globals {
		if d.Name == name { return d }
	}
	return nil
}

// WriteTo prints the listing, one instruction per line.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for _, instr := range p.Instrs {
		sb.WriteString(instr.String())
		sb.WriteByte('\n')
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func (p *Program) String() string {
	var sb strings.Builder
	p.WriteTo(&sb)
	return sb.String()
}

// TextSink streams each instruction to w as it is emitted. The first write
// error is kept and later instructions are dropped.
type TextSink struct {
	w     io.Writer
	err   error
	count int
}

func NewTextSink(w io.Writer) *TextSink { return &TextSink{w: w} }

func (s *TextSink) Emit(instr *Instruction) {
	if s.err != nil {
		return
	}
	if _, err := fmt.Fprintln(s.w, instr); err != nil {
		s.err = fmt.Errorf("writing instruction %d: %w", s.count, err)
		return
	}
	s.count++
}

func (s *TextSink) Err() error  { return s.err }
func (s *TextSink) Count() int  { return s.count }
