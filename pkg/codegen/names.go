package codegen

import (
	"fmt"

	"github.com/xplshn/gtac/pkg/ir"
)

// Minted names start with '_', which no source identifier can.
const (
	TempPrefix  = "_t"
	LabelPrefix = "_L"
)

type names struct {
	temps  int
	labels int
}

func (n *names) newTemp() *ir.Temporary {
	t := &ir.Temporary{Name: fmt.Sprintf("%s%d", TempPrefix, n.temps), ID: n.temps}
	n.temps++
	return t
}

func (n *names) newLabel() *ir.Label {
	l := &ir.Label{Name: fmt.Sprintf("%s%d", LabelPrefix, n.labels), ID: n.labels}
	n.labels++
	return l
}
