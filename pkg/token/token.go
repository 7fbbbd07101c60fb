package token

type Type int

const (
	EOF Type = iota
	Illegal
	Ident
	Number
	Num
	Bool
	True
	False
	If
	Else
	While
	Switch
	Case
	Default
	LParen
	RParen
	LBrace
	RBrace
	Semi
	Comma
	Colon
	Eq
	Plus
	Minus
	Star
	Slash
	Rem
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
	AndAnd
	OrOr
	Not
)

var KeywordMap = map[string]Type{
	"num":     Num,
	"bool":    Bool,
	"true":    True,
	"false":   False,
	"if":      If,
	"else":    Else,
	"while":   While,
	"switch":  Switch,
	"case":    Case,
	"default": Default,
}

var symbols = map[Type]string{
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	Semi: ";", Comma: ",", Colon: ":", Eq: "=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Rem: "%",
	EqEq: "==", Neq: "!=", Lt: "<", Gt: ">", Lte: "<=", Gte: ">=",
	AndAnd: "&&", OrOr: "||", Not: "!",
}

// Reverse mapping from Type to the keyword or operator spelling
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range symbols {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	switch t {
	case EOF: return "end of file"
	case Illegal: return "illegal token"
	case Ident: return "identifier"
	case Number: return "number"
	}
	return "unknown"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
