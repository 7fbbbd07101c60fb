// Package interp executes TAC listings directly, for testing generated
// code and for the driver's --run mode.
package interp

import (
	"errors"
	"fmt"

	"github.com/xplshn/gtac/pkg/ir"
)

var (
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrDivideByZero   = errors.New("division by zero")
	ErrUnsetTemporary = errors.New("temporary read before it was written")
)

const DefaultMaxSteps = 1_000_000

type Options struct {
	// MaxSteps bounds the number of executed instructions; zero means
	// DefaultMaxSteps.
	MaxSteps int
	// Trace records the index of every executed instruction.
	Trace bool
}

type Result struct {
	Env   map[string]int64
	Steps int
	Trace []int
}

type machine struct {
	globals map[string]int64
	temps   map[string]int64
}

// Run executes instrs starting from the variable values in env, which is
// not modified. Variables missing from env start at zero.
func Run(instrs []*ir.Instruction, env map[string]int64, opts Options) (*Result, error) {
	labels, err := ir.LabelIndex(instrs)
	if err != nil {
		return nil, err
	}
	if err := ir.CheckLabels(instrs); err != nil {
		return nil, err
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	m := &machine{globals: make(map[string]int64, len(env)), temps: make(map[string]int64)}
	for k, v := range env {
		m.globals[k] = v
	}

	res := &Result{}
	for pc := 0; pc < len(instrs); {
		if res.Steps >= maxSteps {
			res.Env = m.globals
			return res, fmt.Errorf("%w after %d instructions", ErrStepLimit, res.Steps)
		}
		res.Steps++
		if opts.Trace {
			res.Trace = append(res.Trace, pc)
		}

		instr := instrs[pc]
		pc++
		switch {
		case instr.Op == ir.OpLabel:
		case instr.Op == ir.OpJmp:
			pc = labels[instr.Target.Name]
		case instr.Op == ir.OpIf || instr.Op == ir.OpIfFalse:
			ok, err := m.test(instr.Cond)
			if err != nil {
				return nil, fmt.Errorf("instruction %d (%s): %w", pc-1, instr, err)
			}
			if ok == (instr.Op == ir.OpIf) {
				pc = labels[instr.Target.Name]
			}
		default:
			if err := m.exec(instr); err != nil {
				return nil, fmt.Errorf("instruction %d (%s): %w", pc-1, instr, err)
			}
		}
	}
	res.Env = m.globals
	return res, nil
}

func (m *machine) value(v ir.Value) (int64, error) {
	switch v := v.(type) {
	case *ir.Const:
		return v.Value, nil
	case *ir.Global:
		return m.globals[v.Name], nil
	case *ir.Temporary:
		val, ok := m.temps[v.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnsetTemporary, v.Name)
		}
		return val, nil
	}
	return 0, fmt.Errorf("cannot read operand %v", v)
}

func (m *machine) store(dst ir.Value, val int64) error {
	switch dst := dst.(type) {
	case *ir.Global:
		m.globals[dst.Name] = val
	case *ir.Temporary:
		m.temps[dst.Name] = val
	default:
		return fmt.Errorf("cannot assign to %v", dst)
	}
	return nil
}

func (m *machine) exec(instr *ir.Instruction) error {
	args := make([]int64, len(instr.Args))
	for i, a := range instr.Args {
		v, err := m.value(a)
		if err != nil {
			return err
		}
		args[i] = v
	}

	var res int64
	switch instr.Op {
	case ir.OpCopy: res = args[0]
	case ir.OpNeg: res = -args[0]
	case ir.OpAdd: res = args[0] + args[1]
	case ir.OpSub: res = args[0] - args[1]
	case ir.OpMul: res = args[0] * args[1]
	case ir.OpDiv, ir.OpRem:
		if args[1] == 0 {
			return ErrDivideByZero
		}
		if instr.Op == ir.OpDiv {
			res = args[0] / args[1]
		} else {
			res = args[0] % args[1]
		}
	default:
		return fmt.Errorf("unexpected operation %s", instr.Op)
	}
	return m.store(instr.Result, res)
}

func (m *machine) test(c *ir.Cond) (bool, error) {
	l, err := m.value(c.Left)
	if err != nil {
		return false, err
	}
	r, err := m.value(c.Right)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case ir.OpCEq: return l == r, nil
	case ir.OpCNeq: return l != r, nil
	case ir.OpCLt: return l < r, nil
	case ir.OpCGt: return l > r, nil
	case ir.OpCLe: return l <= r, nil
	case ir.OpCGe: return l >= r, nil
	}
	return false, fmt.Errorf("unexpected relation %s", c.Op)
}
