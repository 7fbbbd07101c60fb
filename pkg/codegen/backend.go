package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes a TAC program and a configuration, and produces the
	// target assembly or intermediate language as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// SelectBackend returns the backend for an --emit kind.
func SelectBackend(name string) (Backend, error) {
	switch name {
	case "tac": return NewTACBackend(), nil
	case "qbe": return NewQBEBackend(), nil
	case "asm", "exe": return NewAsmBackend(), nil
	case "llvm": return NewLLVMBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s' (want tac, qbe, llvm, asm or exe)", name)
}

type tacBackend struct{}

func NewTACBackend() Backend { return tacBackend{} }

func (tacBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if _, err := prog.WriteTo(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
