package parser

import (
	"fmt"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/token"
)

// Error is a syntax error at Tok.
type Error struct {
	Tok token.Token
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Msg)
}

// bailout unwinds the recursive descent on the first error.
type bailout struct{ err *Error }

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0], cfg: cfg}
}

// Parse reads one translation unit: declarations, then statements.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.err
		}
	}()

	startTok := p.current
	var decls []*ast.Node
	for p.check(token.Num) || p.check(token.Bool) {
		decls = append(decls, p.parseDeclaration()...)
	}

	var stmts []*ast.Node
	for !p.check(token.EOF) {
		if p.check(token.Num) || p.check(token.Bool) {
			p.fail(p.current, "declarations must come before the first statement")
		}
		stmts = append(stmts, p.parseStmt())
	}
	return ast.NewProgram(startTok, decls, ast.NewBlock(startTok, stmts)), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
	if p.current.Type == token.Illegal {
		p.fail(p.current, "%s", p.current.Value)
	}
}

func (p *Parser) check(tokType token.Type) bool {
	if p.current.Type == token.Illegal {
		p.fail(p.current, "%s", p.current.Value)
	}
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(p.current, "%s", message)
	return token.Token{}
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(bailout{&Error{Tok: tok, Msg: fmt.Sprintf(format, args...)}})
}

// Declarations

func (p *Parser) parseDeclaration() []*ast.Node {
	typeTok := p.current
	p.advance()
	keyword := token.TypeStrings[typeTok.Type]

	var decls []*ast.Node
	for {
		nameTok := p.expect(token.Ident, "Expected a variable name in declaration.")
		ident := ast.NewIdentifier(nameTok, nameTok.Value)
		decls = append(decls, ast.NewDeclaration(typeTok, keyword, ident))
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.Semi, "Expected ';' after declaration.")
	return decls
}

// Statements

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Semi):
		return ast.NewStmt(tok, nil)
	case p.match(token.LBrace):
		var stmts []*ast.Node
		for !p.check(token.RBrace) && !p.check(token.EOF) {
			stmts = append(stmts, p.parseStmt())
		}
		p.expect(token.RBrace, "Expected '}' to close block.")
		return ast.NewStmt(tok, ast.NewBlock(tok, stmts))
	case p.match(token.If):
		cond := p.parseParenCond("if")
		thenBody := p.parseStmt()
		var elseBody *ast.Node
		if p.match(token.Else) {
			elseBody = p.parseStmt()
		}
		return ast.NewStmt(tok, ast.NewIf(tok, cond, thenBody, elseBody))
	case p.match(token.While):
		cond := p.parseParenCond("while")
		body := p.parseStmt()
		return ast.NewStmt(tok, ast.NewWhile(tok, cond, body))
	case p.check(token.Switch):
		if !p.cfg.IsFeatureEnabled(config.FeatSwitch) {
			p.fail(tok, "switch statements are disabled (use -Fswitch)")
		}
		p.advance()
		return ast.NewStmt(tok, p.parseSwitch(tok))
	case p.check(token.Ident):
		assign := p.parseAssign()
		p.expect(token.Semi, "Expected ';' after assignment.")
		return ast.NewStmt(tok, assign)
	case p.check(token.Case), p.check(token.Default):
		p.fail(tok, "'%s' outside of a switch statement", tok.Type)
	case p.check(token.Else):
		p.fail(tok, "'else' without a matching 'if'")
	}
	p.fail(tok, "Expected a statement, found %s.", describe(tok))
	return nil
}

func (p *Parser) parseParenCond(keyword string) *ast.Node {
	p.expect(token.LParen, fmt.Sprintf("Expected '(' after '%s'.", keyword))
	cond := p.parseExpr()
	p.expect(token.RParen, fmt.Sprintf("Expected ')' after '%s' condition.", keyword))
	return cond
}

func (p *Parser) parseAssign() *ast.Node {
	nameTok := p.current
	p.advance()
	target := ast.NewIdentifier(nameTok, nameTok.Value)
	eqTok := p.expect(token.Eq, "Expected '=' after variable name.")
	return ast.NewAssign(eqTok, target, p.parseExpr())
}

func (p *Parser) parseSwitch(tok token.Token) *ast.Node {
	scrutinee := p.parseParenCond("switch")
	p.expect(token.LBrace, "Expected '{' after switch expression.")

	var clauses []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		clauseTok := p.current
		switch {
		case p.match(token.Case):
			valueTok := p.current
			text := ""
			if p.match(token.Minus) {
				text = "-"
			}
			numTok := p.expect(token.Number, "Expected an integer literal after 'case'.")
			valueTok.Len = numTok.Column + numTok.Len - valueTok.Column
			value := ast.NewIntValue(valueTok, text+numTok.Value)
			p.expect(token.Colon, "Expected ':' after case value.")
			clauses = append(clauses, ast.NewCase(clauseTok, value, p.parseClauseBody()))
		case p.match(token.Default):
			p.expect(token.Colon, "Expected ':' after 'default'.")
			clauses = append(clauses, ast.NewDefault(clauseTok, p.parseClauseBody()))
		default:
			p.fail(clauseTok, "Expected 'case' or 'default' in switch body, found %s.", describe(clauseTok))
		}
	}
	p.expect(token.RBrace, "Expected '}' to close switch body.")
	return ast.NewSwitch(tok, scrutinee, clauses)
}

func (p *Parser) parseClauseBody() []*ast.Node {
	var body []*ast.Node
	for !p.check(token.Case) && !p.check(token.Default) && !p.check(token.RBrace) && !p.check(token.EOF) {
		body = append(body, p.parseStmt())
	}
	return body
}

// Expressions. Operator nodes are only built when an operator is present.

func (p *Parser) parseExpr() *ast.Node {
	tok := p.current
	return ast.NewExpr(tok, p.parseBoolExpr())
}

// || and && share one precedence level and form a single flat chain.
func (p *Parser) parseBoolExpr() *ast.Node {
	tok := p.current
	operands := []*ast.Node{p.parseCompExpr()}
	var ops []token.Type
	for p.check(token.OrOr) || p.check(token.AndAnd) {
		ops = append(ops, p.current.Type)
		p.advance()
		operands = append(operands, p.parseCompExpr())
	}
	if len(ops) == 0 {
		return operands[0]
	}
	return ast.NewChain(tok, ast.BoolExpr, ops, operands)
}

func isRelation(t token.Type) bool {
	switch t {
	case token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte:
		return true
	}
	return false
}

func (p *Parser) parseCompExpr() *ast.Node {
	tok := p.current
	left := p.parseAddExpr()
	if !isRelation(p.current.Type) {
		return left
	}
	opTok := p.current
	p.advance()
	right := p.parseAddExpr()
	if isRelation(p.current.Type) {
		p.fail(p.current, "comparison operators cannot be chained; use parentheses")
	}
	return ast.NewChain(tok, ast.CompExpr, []token.Type{opTok.Type}, []*ast.Node{left, right})
}

func (p *Parser) parseAddExpr() *ast.Node {
	return p.parseArithChain(ast.AddExpr, p.parseMulExpr, token.Plus, token.Minus)
}

func (p *Parser) parseMulExpr() *ast.Node {
	return p.parseArithChain(ast.MulExpr, p.parseUnaExpr, token.Star, token.Slash, token.Rem)
}

func (p *Parser) parseArithChain(nodeType ast.NodeType, operand func() *ast.Node, opTypes ...token.Type) *ast.Node {
	tok := p.current
	operands := []*ast.Node{operand()}
	var ops []token.Type
	for {
		found := false
		for _, t := range opTypes {
			if p.check(t) {
				found = true
				break
			}
		}
		if !found {
			break
		}
		ops = append(ops, p.current.Type)
		p.advance()
		operands = append(operands, operand())
	}
	if len(ops) == 0 {
		return operands[0]
	}
	return ast.NewChain(tok, nodeType, ops, operands)
}

func (p *Parser) parseUnaExpr() *ast.Node {
	tok := p.current
	var ops []token.Type
	for p.check(token.Minus) || p.check(token.Plus) {
		ops = append(ops, p.current.Type)
		p.advance()
	}
	operand := p.parseNotExpr()
	if len(ops) == 0 {
		return operand
	}
	return ast.NewPrefix(tok, ast.UnaExpr, ops, operand)
}

func (p *Parser) parseNotExpr() *ast.Node {
	tok := p.current
	var ops []token.Type
	for p.check(token.Not) {
		ops = append(ops, token.Not)
		p.advance()
	}
	operand := p.parseGenValue()
	if len(ops) == 0 {
		return operand
	}
	return ast.NewPrefix(tok, ast.NotExpr, ops, operand)
}

func (p *Parser) parseGenValue() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.LParen):
		inner := p.parseBoolExpr()
		p.expect(token.RParen, "Expected ')' after expression.")
		return ast.NewGenValue(tok, inner)
	case p.match(token.True):
		return ast.NewBoolValue(tok, true)
	case p.match(token.False):
		return ast.NewBoolValue(tok, false)
	case p.match(token.Number):
		return ast.NewIntValue(tok, tok.Value)
	case p.match(token.Ident):
		return ast.NewIdentifier(tok, tok.Value)
	}
	p.fail(tok, "Expected an expression, found %s.", describe(tok))
	return nil
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.Ident: return fmt.Sprintf("identifier '%s'", tok.Value)
	case token.Number: return fmt.Sprintf("number '%s'", tok.Value)
	case token.EOF: return "end of file"
	}
	return fmt.Sprintf("'%s'", tok.Type)
}
