package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/ir"
)

type VarType int

const (
	Number VarType = iota
	Bool
)

func (t VarType) String() string {
	if t == Bool {
		return "bool"
	}
	return "num"
}

func (t VarType) irType() ir.Type {
	if t == Bool {
		return ir.TypeBool
	}
	return ir.TypeNumber
}

type Symbol struct {
	Name string
	Type VarType
	Node *ast.Node
	Uses int
}

// SymbolTable is the single flat scope of a translation unit.
type SymbolTable struct {
	syms  map[string]*Symbol
	order []*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*Symbol)}
}

// Declare records name with the type named by typeKeyword: "bool" is Bool,
// anything else is Number. Redeclaring with the same type returns the
// existing symbol; with another type it fails.
func (st *SymbolTable) Declare(name, typeKeyword string, node *ast.Node) (*Symbol, error) {
	if name == "" || strings.HasPrefix(name, "_") {
		return nil, fmt.Errorf("%w: invalid variable name %q", ErrMalformedTree, name)
	}
	typ := Number
	if typeKeyword == "bool" {
		typ = Bool
	}
	if sym, ok := st.syms[name]; ok {
		if sym.Type != typ {
			return nil, fmt.Errorf("%w: '%s' redeclared as %s, previously %s", ErrMalformedTree, name, typ, sym.Type)
		}
		return sym, nil
	}
	sym := &Symbol{Name: name, Type: typ, Node: node}
	st.syms[name] = sym
	st.order = append(st.order, sym)
	return sym, nil
}

func (st *SymbolTable) Lookup(name string) (VarType, error) {
	sym, ok := st.syms[name]
	if !ok {
		return Number, fmt.Errorf("%w: '%s'", ErrUndeclaredIdentifier, name)
	}
	return sym.Type, nil
}

func (st *SymbolTable) Has(name string) bool { _, ok := st.syms[name]; return ok }

// Symbols returns the symbols in declaration order.
func (st *SymbolTable) Symbols() []*Symbol { return st.order }
