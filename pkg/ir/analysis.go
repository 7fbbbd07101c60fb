package ir

import (
	"errors"
	"fmt"
)

var (
	ErrUndefinedLabel = errors.New("undefined label")
	ErrDuplicateLabel = errors.New("duplicate label")
)

// LabelIndex maps each label name to the index of its marker.
func LabelIndex(instrs []*Instruction) (map[string]int, error) {
	index := make(map[string]int)
	for i, instr := range instrs {
		if instr.Op != OpLabel {
			continue
		}
		name := instr.Target.Name
		if _, exists := index[name]; exists {
			return nil, fmt.Errorf("%w: %s at instruction %d", ErrDuplicateLabel, name, i)
		}
		index[name] = i
	}
	return index, nil
}

// CheckLabels reports a label marked more than once or a jump to a label
// that has no marker.
func CheckLabels(instrs []*Instruction) error {
	index, err := LabelIndex(instrs)
	if err != nil {
		return err
	}
	for i, instr := range instrs {
		if !instr.Op.IsJump() {
			continue
		}
		if instr.Target == nil {
			return fmt.Errorf("%w: jump without target at instruction %d", ErrUndefinedLabel, i)
		}
		if _, ok := index[instr.Target.Name]; !ok {
			return fmt.Errorf("%w: %s referenced at instruction %d", ErrUndefinedLabel, instr.Target.Name, i)
		}
	}
	return nil
}

// Reachable marks the instructions control can reach from the first one.
// Conditional jumps are assumed to go both ways.
func Reachable(instrs []*Instruction) ([]bool, error) {
	index, err := LabelIndex(instrs)
	if err != nil {
		return nil, err
	}
	seen := make([]bool, len(instrs))
	work := []int{0}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		if i >= len(instrs) || seen[i] {
			continue
		}
		seen[i] = true

		instr := instrs[i]
		if instr.Op.IsJump() {
			target, ok := index[instr.Target.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUndefinedLabel, instr.Target.Name)
			}
			work = append(work, target)
			if instr.Op == OpJmp {
				continue
			}
		}
		work = append(work, i+1)
	}
	return seen, nil
}

// Canonical renders the listing with temporaries and labels renamed to t0,
// t1, ... and L0, L1, ... in order of first appearance, so two listings
// that differ only in minted names compare equal.
func Canonical(instrs []*Instruction) []string {
	temps := make(map[string]*Temporary)
	labels := make(map[string]*Label)

	rename := func(v Value) Value {
		switch v := v.(type) {
		case *Temporary:
			t, ok := temps[v.Name]
			if !ok {
				t = &Temporary{Name: fmt.Sprintf("t%d", len(temps)), ID: len(temps)}
				temps[v.Name] = t
			}
			return t
		case *Label:
			l, ok := labels[v.Name]
			if !ok {
				l = &Label{Name: fmt.Sprintf("L%d", len(labels)), ID: len(labels)}
				labels[v.Name] = l
			}
			return l
		}
		return v
	}

	out := make([]string, 0, len(instrs))
	for _, instr := range instrs {
		c := &Instruction{Op: instr.Op}
		if instr.Cond != nil {
			c.Cond = &Cond{Op: instr.Cond.Op, Left: rename(instr.Cond.Left), Right: rename(instr.Cond.Right)}
		}
		for _, arg := range instr.Args {
			c.Args = append(c.Args, rename(arg))
		}
		if instr.Result != nil {
			c.Result = rename(instr.Result)
		}
		if instr.Target != nil {
			c.Target = rename(instr.Target).(*Label)
		}
		out = append(out, c.String())
	}
	return out
}
