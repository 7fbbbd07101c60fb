package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/token"
)

var (
	// ErrMalformedTree reports a tree whose shape the parser could not
	// have produced: wrong child counts, unknown operators, conflicting
	// declarations.
	ErrMalformedTree = errors.New("malformed tree")
	// ErrUndeclaredIdentifier reports a use of a name with no declaration.
	ErrUndeclaredIdentifier = errors.New("undeclared identifier")
	// ErrUnsupportedConstruct reports a node in a position it cannot
	// occupy, such as a number used as a condition.
	ErrUnsupportedConstruct = errors.New("unsupported construct")
)

// Error is a translation failure located at a source token.
type Error struct {
	Kind error
	Tok  token.Token
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%v: %s", e.Kind, e.Msg) }
func (e *Error) Unwrap() error { return e.Kind }

// fail aborts the translation. Translate recovers the panic.
func (ctx *Context) fail(kind error, node *ast.Node, format string, args ...interface{}) {
	var tok token.Token
	if node != nil {
		tok = node.Tok
	}
	panic(&Error{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)})
}
