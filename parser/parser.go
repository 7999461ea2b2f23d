// Package parser implements a Ruby parser using Pratt parsing.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/lexer"
	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/token"
)

// Precedence levels for Ruby operators, lowest first. Statement modifiers
// (if, unless, while, until, rescue) bind looser than all of these and are
// applied to a complete statement.
const (
	_ int = iota
	LOWEST
	LOGICAL    // and, or
	NOT_KW     // not
	DEFINED    // defined?
	ASSIGNMENT // =, +=, ||=, ... (right associative)
	TERNARY    // ? :
	RANGE      // .., ...
	OROR       // ||
	ANDAND     // &&
	EQUALS     // ==, !=, ===, =~, !~, <=>
	COMPARE    // <, >, <=, >=
	BITOR      // |, ^
	BITAND     // &
	SHIFT      // <<, >>
	SUM        // +, -
	PRODUCT    // *, /, %
	NEGATE     // unary minus
	POWER      // ** (right associative)
	UNARY      // !, ~, unary +
	INDEX      // [], ., &., ::
)

// precedences maps token types to their precedence levels
var precedences = map[token.Type]int{
	token.KEYWORD_AND: LOGICAL,
	token.KEYWORD_OR:  LOGICAL,

	// Assignment
	token.EQUAL:                     ASSIGNMENT,
	token.PLUS_EQUAL:                ASSIGNMENT,
	token.MINUS_EQUAL:               ASSIGNMENT,
	token.STAR_EQUAL:                ASSIGNMENT,
	token.SLASH_EQUAL:               ASSIGNMENT,
	token.PERCENT_EQUAL:             ASSIGNMENT,
	token.STAR_STAR_EQUAL:           ASSIGNMENT,
	token.AMPERSAND_EQUAL:           ASSIGNMENT,
	token.PIPE_EQUAL:                ASSIGNMENT,
	token.CARET_EQUAL:               ASSIGNMENT,
	token.LESS_LESS_EQUAL:           ASSIGNMENT,
	token.GREATER_GREATER_EQUAL:     ASSIGNMENT,
	token.PIPE_PIPE_EQUAL:           ASSIGNMENT,
	token.AMPERSAND_AMPERSAND_EQUAL: ASSIGNMENT,

	token.QUESTION: TERNARY,

	token.DOT_DOT:     RANGE,
	token.DOT_DOT_DOT: RANGE,

	token.PIPE_PIPE:           OROR,
	token.AMPERSAND_AMPERSAND: ANDAND,

	token.EQUAL_EQUAL:        EQUALS,
	token.BANG_EQUAL:         EQUALS,
	token.EQUAL_EQUAL_EQUAL:  EQUALS,
	token.LESS_EQUAL_GREATER: EQUALS,
	token.EQUAL_TILDE:        EQUALS,
	token.BANG_TILDE:         EQUALS,

	token.LESS:          COMPARE,
	token.GREATER:       COMPARE,
	token.LESS_EQUAL:    COMPARE,
	token.GREATER_EQUAL: COMPARE,

	token.PIPE:      BITOR,
	token.CARET:     BITOR,
	token.AMPERSAND: BITAND,

	token.LESS_LESS:       SHIFT,
	token.GREATER_GREATER: SHIFT,

	token.PLUS:  SUM,
	token.MINUS: SUM,

	token.STAR:    PRODUCT,
	token.SLASH:   PRODUCT,
	token.PERCENT: PRODUCT,

	token.STAR_STAR: POWER,

	token.LBRACKET:      INDEX,
	token.DOT:           INDEX,
	token.AMPERSAND_DOT: INDEX,
	token.COLON_COLON:   INDEX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// tokenSource is what the parser reads from: the lexer, or the pre-lexed tokens of
// an embedded #{} expression.
type tokenSource interface {
	NextToken() token.Token
	Err() error
}

type pendingHeredoc struct {
	node *ast.InterpolatedString
	doc  *token.Heredoc
}

// Parser holds the state of the parser
type Parser struct {
	src    tokenSource
	scope  *symtab.Table
	errors []string
	err    *diag.Error

	curToken  token.Token
	peekToken token.Token

	// sawNewline indicates that we skipped a newline while getting to peekToken
	// This is used to properly terminate statements at newlines
	sawNewline bool

	// noDo is non-zero while parsing command arguments and loop conditions, where
	// a do keyword belongs to an outer construct.
	noDo int
	// parenDepth is non-zero inside ( ), where a, b may be a nested target group.
	parenDepth int

	heredocs []pendingHeredoc

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a new Parser reading from l. Locals are defined in the lexer's
// scope table so that the lexer sees them.
func New(l *lexer.Lexer) *Parser {
	return newParser(l, l.Scope())
}

func newParser(src tokenSource, scope *symtab.Table) *Parser {
	p := &Parser{
		src:   src,
		scope: scope,
	}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.infixParseFns = make(map[token.Type]infixParseFn)

	// Literals
	p.registerPrefix(token.INTEGER, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.HEREDOC, p.parseHeredoc)
	p.registerPrefix(token.SYMBOL, p.parseSymbolLiteral)
	p.registerPrefix(token.REGEXP, p.parseRegexpLiteral)
	p.registerPrefix(token.WORDS, p.parseWords)
	p.registerPrefix(token.SYMBOLS, p.parseWords)
	p.registerPrefix(token.KEYWORD_TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.KEYWORD_FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.KEYWORD_NIL, p.parseNilLiteral)
	p.registerPrefix(token.KEYWORD_SELF, p.parseSelfExpression)
	p.registerPrefix(token.KEYWORD___FILE__, p.parseCurrentFile)
	p.registerPrefix(token.KEYWORD___LINE__, p.parseCurrentLine)

	// Names
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.METHOD_NAME, p.parseIdentifier)
	p.registerPrefix(token.CONSTANT, p.parseConstant)
	p.registerPrefix(token.IVAR, p.parseInstanceVariable)
	p.registerPrefix(token.CVAR, p.parseClassVariable)
	p.registerPrefix(token.GVAR, p.parseGlobalVariable)
	p.registerPrefix(token.BACK_REF, p.parseGlobalVariable)
	p.registerPrefix(token.NTH_REF, p.parseNthRef)
	p.registerPrefix(token.UCOLON_COLON, p.parseTopLevelConstant)

	// Operators and groups
	p.registerPrefix(token.BANG, p.parseNotExpression)
	p.registerPrefix(token.KEYWORD_NOT, p.parseNotExpression)
	p.registerPrefix(token.UMINUS, p.parsePrefixExpression)
	p.registerPrefix(token.UPLUS, p.parsePrefixExpression)
	p.registerPrefix(token.TILDE, p.parsePrefixExpression)
	p.registerPrefix(token.USTAR, p.parseSplatExpression)
	p.registerPrefix(token.DOT_DOT, p.parseBeginlessRange)
	p.registerPrefix(token.DOT_DOT_DOT, p.parseBeginlessRange)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LPAREN_ARG, p.parseGroupedExpression)
	p.registerPrefix(token.LPAREN_BEG, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACKET_ARRAY, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACE, p.parseHashLiteral)
	p.registerPrefix(token.MINUS_GREATER, p.parseLambda)
	p.registerPrefix(token.KEYWORD_DEFINED, p.parseDefinedExpression)

	// Control flow and definitions
	p.registerPrefix(token.KEYWORD_IF, p.parseIfExpression)
	p.registerPrefix(token.KEYWORD_UNLESS, p.parseIfExpression)
	p.registerPrefix(token.KEYWORD_WHILE, p.parseWhileExpression)
	p.registerPrefix(token.KEYWORD_UNTIL, p.parseWhileExpression)
	p.registerPrefix(token.KEYWORD_CASE, p.parseCaseExpression)
	p.registerPrefix(token.KEYWORD_FOR, p.parseForExpression)
	p.registerPrefix(token.KEYWORD_BEGIN, p.parseBeginExpression)
	p.registerPrefix(token.KEYWORD_DEF, p.parseMethodDefinition)
	p.registerPrefix(token.KEYWORD_CLASS, p.parseClassDefinition)
	p.registerPrefix(token.KEYWORD_MODULE, p.parseModuleDefinition)
	p.registerPrefix(token.KEYWORD_YIELD, p.parseYieldExpression)
	p.registerPrefix(token.KEYWORD_SUPER, p.parseSuperExpression)
	p.registerPrefix(token.KEYWORD_RETURN, p.parseReturnExpression)
	p.registerPrefix(token.KEYWORD_BREAK, p.parseBreakExpression)
	p.registerPrefix(token.KEYWORD_NEXT, p.parseNextExpression)
	p.registerPrefix(token.KEYWORD_REDO, p.parseRedoExpression)
	p.registerPrefix(token.KEYWORD_RETRY, p.parseRetryExpression)
	p.registerPrefix(token.KEYWORD_ALIAS, p.parseAliasExpression)
	p.registerPrefix(token.KEYWORD_UNDEF, p.parseUndefExpression)

	for _, t := range []token.Type{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.STAR_STAR,
		token.EQUAL_EQUAL, token.BANG_EQUAL, token.EQUAL_EQUAL_EQUAL, token.LESS_EQUAL_GREATER,
		token.EQUAL_TILDE, token.BANG_TILDE, token.LESS, token.GREATER, token.LESS_EQUAL,
		token.GREATER_EQUAL, token.PIPE, token.CARET, token.AMPERSAND, token.LESS_LESS,
		token.GREATER_GREATER,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	for _, t := range []token.Type{
		token.PLUS_EQUAL, token.MINUS_EQUAL, token.STAR_EQUAL, token.SLASH_EQUAL,
		token.PERCENT_EQUAL, token.STAR_STAR_EQUAL, token.PIPE_PIPE_EQUAL,
		token.AMPERSAND_AMPERSAND_EQUAL, token.AMPERSAND_EQUAL, token.PIPE_EQUAL,
		token.CARET_EQUAL, token.LESS_LESS_EQUAL, token.GREATER_GREATER_EQUAL,
	} {
		p.registerInfix(t, p.parseOpAssignment)
	}
	p.registerInfix(token.AMPERSAND_AMPERSAND, p.parseShortCircuit)
	p.registerInfix(token.PIPE_PIPE, p.parseShortCircuit)
	p.registerInfix(token.KEYWORD_AND, p.parseShortCircuit)
	p.registerInfix(token.KEYWORD_OR, p.parseShortCircuit)
	p.registerInfix(token.DOT_DOT, p.parseRangeExpression)
	p.registerInfix(token.DOT_DOT_DOT, p.parseRangeExpression)
	p.registerInfix(token.EQUAL, p.parseAssignment)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.DOT, p.parseMethodCall)
	p.registerInfix(token.AMPERSAND_DOT, p.parseMethodCall)
	p.registerInfix(token.COLON_COLON, p.parseScopedConstant)
	p.registerInfix(token.QUESTION, p.parseTernaryExpression)

	// Read one token; the statement loop advances onto it.
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.Type, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// Errors returns the parser errors
func (p *Parser) Errors() []string {
	return p.errors
}

// Err returns the first error as a *diag.Error, or nil.
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

func (p *Parser) setError(e *diag.Error) {
	if p.err == nil {
		p.err = e
		p.peekToken = p.eof()
	}
	p.errors = append(p.errors, e.Error())
}

func (p *Parser) errorAt(tok token.Token, format string, args ...any) {
	p.setError(diag.Errorf(diag.ParseError, tok.Line, tok.Column, format, args...))
}

func (p *Parser) unexpected(tok token.Token, expecting string) {
	msg := "syntax error, unexpected " + describe(tok)
	if expecting != "" {
		msg += ", expecting " + expecting
	}
	if tok.Type == token.EOF {
		p.setError(diag.Incompletef(diag.ParseError, tok.Line, tok.Column, "%s", msg))
		return
	}
	p.setError(diag.Errorf(diag.ParseError, tok.Line, tok.Column, "%s", msg))
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end-of-input"
	case token.IDENT, token.METHOD_NAME:
		return fmt.Sprintf("local variable or method '%s'", tok.Literal)
	case token.CONSTANT:
		return fmt.Sprintf("constant '%s'", tok.Literal)
	case token.INTEGER, token.FLOAT:
		return "numeric literal"
	case token.STRING, token.HEREDOC, token.WORDS:
		return "string literal"
	case token.LABEL:
		return fmt.Sprintf("label '%s:'", tok.Literal)
	}
	return "'" + tok.Type.String() + "'"
}

func expecting(types []token.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		if t == token.EOF {
			names[i] = "end-of-input"
		} else {
			names[i] = "'" + t.String() + "'"
		}
	}
	return strings.Join(names, " or ")
}

func (p *Parser) eof() token.Token {
	return token.Token{Type: token.EOF, Line: p.curToken.Line, Column: p.curToken.Column}
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.sawNewline = false
	if p.err != nil {
		p.peekToken = p.eof()
		return
	}
	for {
		tok := p.src.NextToken()
		if tok.Type == token.ILLEGAL {
			var de *diag.Error
			if errors.As(p.src.Err(), &de) {
				p.setError(de)
			} else {
				p.errorAt(tok, "%s", tok.Literal)
			}
			return
		}
		if tok.Type != token.NEWLINE {
			p.peekToken = tok
			break
		}
		p.sawNewline = true
	}
	p.resolveHeredocs()
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

func (p *Parser) curTokenIsAny(types []token.Type) bool {
	for _, t := range types {
		if p.curToken.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) peekTokenIsAny(types []token.Type) bool {
	for _, t := range types {
		if p.peekToken.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.unexpected(p.peekToken, "'"+t.String()+"'")
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// peekEndsExpression reports a newline before peekToken. Only a leading . or &.
// continues an expression onto the next line.
func (p *Parser) peekEndsExpression() bool {
	if p.peekTokenIs(token.EOF) {
		return true
	}
	return p.sawNewline && !p.peekTokenIs(token.DOT) && !p.peekTokenIs(token.AMPERSAND_DOT)
}

// ParseProgram parses the entire program. It stops at the first error.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	body := p.parseCompound(token.EOF)
	if p.err == nil && len(p.heredocs) > 0 {
		h := p.heredocs[0]
		p.setError(diag.Incompletef(diag.ParseError, h.node.Token.Line, h.node.Token.Column,
			"can't find string \"%s\" anywhere before EOF", h.doc.ID))
	}
	if p.err != nil {
		return nil, p.err
	}
	return &ast.Program{Body: body, Scope: p.scope.Current()}, nil
}

// parseCompound parses statements up to one of terms. It starts on the token before
// the first statement and stops with curToken on the terminator.
func (p *Parser) parseCompound(terms ...token.Type) *ast.CompoundStatement {
	cs := &ast.CompoundStatement{Token: p.curToken}
	savedDo, savedParen := p.noDo, p.parenDepth
	p.noDo, p.parenDepth = 0, 0
	defer func() { p.noDo, p.parenDepth = savedDo, savedParen }()

	for p.err == nil {
		p.nextToken()
		for p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		if p.curTokenIsAny(terms) {
			break
		}
		if p.curTokenIs(token.EOF) {
			p.unexpected(p.curToken, expecting(terms))
			break
		}
		stmt := p.parseStatement()
		if p.err != nil {
			break
		}
		if stmt != nil {
			cs.Append(stmt)
		}
		if !p.sawNewline && !p.peekTokenIs(token.SEMICOLON) && !p.peekTokenIs(token.EOF) &&
			!p.peekTokenIsAny(terms) {
			p.unexpected(p.peekToken, "end-of-statement")
		}
	}
	return cs.Seal()
}

// parseStatement parses one expression statement with its modifiers.
func (p *Parser) parseStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if p.peekTokenIs(token.COMMA) && !p.sawNewline {
		expr = p.parseStatementList(expr)
		if expr == nil {
			return nil
		}
	}
	stmt.Expression = p.parseModifiers(expr)
	return stmt
}

// parseStatementList handles a comma after a complete expression: the rest of a
// right-hand side list (a = 1, 2) or a multiple assignment (a, b = ...).
func (p *Parser) parseStatementList(expr ast.Expression) ast.Expression {
	if asg, ok := expr.(*ast.Assignment); ok {
		values := []ast.Expression{asg.Value}
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			values = append(values, p.parseRightHandSide())
		}
		asg.Value = &ast.ArrayLiteral{Token: asg.Token, Elements: values}
		return asg
	}
	if !isTargetCandidate(expr) {
		p.unexpected(p.peekToken, "end-of-statement")
		return nil
	}
	mlhs := p.parseMlhs(expr)
	if p.peekTokenIs(token.EQUAL) {
		p.nextToken()
		return p.parseMultipleAssignment(mlhs)
	}
	if p.parenDepth > 0 {
		return mlhs
	}
	p.unexpected(p.peekToken, "'='")
	return nil
}

// parseModifiers wraps expr in trailing if/unless/while/until/rescue modifiers.
func (p *Parser) parseModifiers(expr ast.Expression) ast.Expression {
	for p.err == nil && !p.sawNewline {
		switch p.peekToken.Type {
		case token.KEYWORD_IF, token.KEYWORD_UNLESS:
			p.nextToken()
			tok := p.curToken
			p.nextToken()
			expr = &ast.IfExpression{
				Token:       tok,
				Condition:   p.parseExpression(LOWEST),
				Consequence: ast.NewCompound(tok, statement(expr)),
				Unless:      tok.Type == token.KEYWORD_UNLESS,
			}
		case token.KEYWORD_WHILE, token.KEYWORD_UNTIL:
			p.nextToken()
			tok := p.curToken
			p.nextToken()
			loop := &ast.WhileExpression{
				Token:     tok,
				Condition: p.parseExpression(LOWEST),
				Until:     tok.Type == token.KEYWORD_UNTIL,
			}
			if be, ok := expr.(*ast.BeginExpression); ok && be.Token.Type == token.KEYWORD_BEGIN {
				loop.DoWhile = true
			}
			loop.Body = ast.NewCompound(tok, statement(expr))
			expr = loop
		case token.KEYWORD_RESCUE:
			p.nextToken()
			tok := p.curToken
			p.nextToken()
			expr = &ast.RescueModifier{Token: tok, Expression: expr, Rescue: p.parseExpression(LOWEST)}
		default:
			return expr
		}
	}
	return expr
}

// statement wraps an expression as a statement positioned at the expression.
func statement(e ast.Expression) *ast.ExpressionStatement {
	pos := e.Pos()
	return &ast.ExpressionStatement{
		Token:      token.Token{Literal: e.TokenLiteral(), Line: pos.Line, Column: pos.Column, Offset: pos.Offset},
		Expression: e,
	}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.unexpected(p.curToken, "")
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && p.err == nil && !p.peekEndsExpression() && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

// tokenSlice replays the tokens of an embedded expression.
type tokenSlice struct {
	tokens []token.Token
	pos    int
}

func (s *tokenSlice) NextToken() token.Token {
	if s.pos >= len(s.tokens) {
		if n := len(s.tokens); n > 0 {
			last := s.tokens[n-1]
			return token.Token{Type: token.EOF, Line: last.Line, Column: last.Column}
		}
		return token.Token{Type: token.EOF}
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}

func (s *tokenSlice) Err() error { return nil }

// parseParts turns literal parts into string fragments and embedded expressions.
// Embedded expressions are parsed in the enclosing scope.
func (p *Parser) parseParts(parts []token.Part) []ast.Expression {
	exprs := make([]ast.Expression, 0, len(parts))
	for _, part := range parts {
		if !part.Code {
			tok := token.Token{Type: token.STRING, Literal: part.Text, Line: part.Line, Column: part.Column}
			exprs = append(exprs, &ast.StringLiteral{Token: tok, Value: part.Text})
			continue
		}
		if e := p.parseEmbedded(part); e != nil {
			exprs = append(exprs, e)
		}
	}
	return exprs
}

func (p *Parser) parseEmbedded(part token.Part) ast.Expression {
	sub := newParser(&tokenSlice{tokens: part.Tokens}, p.scope)
	body := sub.parseCompound(token.EOF)
	if sub.err != nil {
		p.setError(sub.err)
		return nil
	}
	tok := token.Token{Type: token.STRING, Literal: "#{", Line: part.Line, Column: part.Column}
	switch len(body.Statements) {
	case 0:
		return &ast.NilLiteral{Token: tok}
	case 1:
		if es, ok := body.Statements[0].(*ast.ExpressionStatement); ok {
			return es.Expression
		}
	}
	return &ast.BeginExpression{Token: tok, Body: body}
}

// resolveHeredocs fills in heredoc nodes whose bodies the lexer has read.
func (p *Parser) resolveHeredocs() {
	if len(p.heredocs) == 0 {
		return
	}
	kept := p.heredocs[:0]
	for _, h := range p.heredocs {
		if h.doc.Done {
			h.node.Parts = p.parseParts(h.doc.Parts)
		} else {
			kept = append(kept, h)
		}
	}
	p.heredocs = kept
}
