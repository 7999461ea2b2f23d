package parser

import (
	"strconv"
	"strings"

	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/token"
)

// Literal parsing

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.errorAt(p.curToken, "integer literal %s out of range", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorAt(p.curToken, "invalid float literal %s", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) literalParts(tok token.Token) []ast.Expression {
	if tok.Parts == nil {
		return []ast.Expression{&ast.StringLiteral{Token: tok, Value: tok.Literal}}
	}
	return p.parseParts(tok.Parts)
}

// parseStringLiteral parses a string, joining adjacent literals ("a" "b").
func (p *Parser) parseStringLiteral() ast.Expression {
	tok := p.curToken
	parts := p.literalParts(tok)
	for p.peekTokenIs(token.STRING) && !p.sawNewline {
		p.nextToken()
		parts = append(parts, p.literalParts(p.curToken)...)
	}

	var b strings.Builder
	for _, part := range parts {
		sl, ok := part.(*ast.StringLiteral)
		if !ok {
			return &ast.InterpolatedString{Token: tok, Parts: parts}
		}
		b.WriteString(sl.Value)
	}
	return &ast.StringLiteral{Token: tok, Value: b.String()}
}

// parseHeredoc returns a node whose parts are filled in once the lexer has read
// the body, at the end of the marker's line.
func (p *Parser) parseHeredoc() ast.Expression {
	node := &ast.InterpolatedString{Token: p.curToken}
	p.heredocs = append(p.heredocs, pendingHeredoc{node: node, doc: p.curToken.Heredoc})
	p.resolveHeredocs()
	return node
}

func (p *Parser) parseSymbolLiteral() ast.Expression {
	if p.curToken.Parts != nil {
		return &ast.DynamicSymbol{Token: p.curToken, Parts: p.parseParts(p.curToken.Parts)}
	}
	return &ast.SymbolLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseRegexpLiteral() ast.Expression {
	return &ast.RegexpLiteral{Token: p.curToken, Parts: p.literalParts(p.curToken), Flags: p.curToken.Flags}
}

// parseWords parses %w and %i lists into arrays of strings or symbols.
func (p *Parser) parseWords() ast.Expression {
	tok := p.curToken
	arr := &ast.ArrayLiteral{Token: tok, Elements: []ast.Expression{}}
	for _, w := range tok.Words {
		wt := tok
		wt.Literal = w
		if tok.Type == token.SYMBOLS {
			arr.Elements = append(arr.Elements, &ast.SymbolLiteral{Token: wt, Value: w})
		} else {
			arr.Elements = append(arr.Elements, &ast.StringLiteral{Token: wt, Value: w})
		}
	}
	return arr
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.KEYWORD_TRUE)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.curToken}
}

func (p *Parser) parseSelfExpression() ast.Expression {
	return &ast.SelfExpression{Token: p.curToken}
}

func (p *Parser) parseCurrentFile() ast.Expression {
	return &ast.CurrentFile{Token: p.curToken}
}

func (p *Parser) parseCurrentLine() ast.Expression {
	return &ast.IntegerLiteral{Token: p.curToken, Value: int64(p.curToken.Line)}
}

// Names

// parseIdentifier parses a local variable read or a method call. The scope table
// decides: a name assigned earlier in a visible scope is a local.
func (p *Parser) parseIdentifier() ast.Expression {
	tok := p.curToken
	if tok.Type == token.IDENT && p.scope.IsLocal(tok.Literal) && !p.peekTokenIs(token.LPAREN) {
		return &ast.LocalVariable{Token: tok, Name: tok.Literal}
	}
	call := &ast.MethodCall{Token: tok, Method: tok.Literal}
	p.parseCallRest(call)
	return call
}

func (p *Parser) parseConstant() ast.Expression {
	if p.peekTokenIs(token.LPAREN) {
		call := &ast.MethodCall{Token: p.curToken, Method: p.curToken.Literal}
		p.parseCallRest(call)
		return call
	}
	return &ast.Constant{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseTopLevelConstant() ast.Expression {
	tok := p.curToken
	if !p.expectPeek(token.CONSTANT) {
		return nil
	}
	return &ast.ScopedConstant{Token: tok, Name: p.curToken.Literal}
}

func (p *Parser) parseInstanceVariable() ast.Expression {
	return &ast.InstanceVariable{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseClassVariable() ast.Expression {
	return &ast.ClassVariable{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseGlobalVariable() ast.Expression {
	return &ast.GlobalVariable{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseNthRef() ast.Expression {
	n, _ := strconv.Atoi(strings.TrimPrefix(p.curToken.Literal, "$"))
	return &ast.NthRef{Token: p.curToken, N: n}
}

// Operators

func (p *Parser) parseNotExpression() ast.Expression {
	expr := &ast.NotExpression{Token: p.curToken}
	prec := UNARY
	if p.curTokenIs(token.KEYWORD_NOT) {
		prec = NOT_KW
	}
	p.nextToken()
	expr.Right = p.parseExpression(prec)
	return expr
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken}
	prec := UNARY
	switch p.curToken.Type {
	case token.UMINUS:
		expr.Operator = "-@"
		prec = NEGATE
	case token.UPLUS:
		expr.Operator = "+@"
	default:
		expr.Operator = p.curToken.Literal
	}
	p.nextToken()
	expr.Right = p.parseExpression(prec)
	return expr
}

// parseSplatExpression parses *x. A bare * (in a target list) has no value.
func (p *Parser) parseSplatExpression() ast.Expression {
	splat := &ast.SplatExpression{Token: p.curToken}
	switch p.peekToken.Type {
	case token.COMMA, token.EQUAL, token.RPAREN, token.PIPE, token.KEYWORD_IN, token.RBRACKET:
		return splat
	}
	p.nextToken()
	splat.Value = p.parseExpression(ASSIGNMENT)
	return splat
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	if p.curTokenIs(token.STAR_STAR) {
		precedence-- // right associative
	}
	p.nextToken()
	expr.Right = p.parseExpression(precedence)

	// -2 ** 2 is -(2 ** 2): the lexer folded the sign into the literal.
	if expr.Operator == "**" {
		if abs := unsignedLiteral(left); abs != nil {
			expr.Left = abs
			return &ast.PrefixExpression{Token: expr.Token, Operator: "-@", Right: expr}
		}
	}
	return expr
}

func unsignedLiteral(e ast.Expression) ast.Expression {
	switch lit := e.(type) {
	case *ast.IntegerLiteral:
		if strings.HasPrefix(lit.Token.Literal, "-") {
			tok := lit.Token
			tok.Literal = tok.Literal[1:]
			return &ast.IntegerLiteral{Token: tok, Value: -lit.Value}
		}
	case *ast.FloatLiteral:
		if strings.HasPrefix(lit.Token.Literal, "-") {
			tok := lit.Token
			tok.Literal = tok.Literal[1:]
			return &ast.FloatLiteral{Token: tok, Value: -lit.Value}
		}
	}
	return nil
}

func (p *Parser) parseShortCircuit(left ast.Expression) ast.Expression {
	expr := &ast.ShortCircuit{Token: p.curToken, Left: left}
	if p.curTokenIs(token.PIPE_PIPE) || p.curTokenIs(token.KEYWORD_OR) {
		expr.Op = ast.Or
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseRangeExpression(left ast.Expression) ast.Expression {
	expr := &ast.RangeLiteral{Token: p.curToken, Start: left, Exclusive: p.curTokenIs(token.DOT_DOT_DOT)}
	if p.endlessRange() {
		return expr
	}
	p.nextToken()
	expr.End = p.parseExpression(RANGE)
	return expr
}

func (p *Parser) parseBeginlessRange() ast.Expression {
	expr := &ast.RangeLiteral{Token: p.curToken, Exclusive: p.curTokenIs(token.DOT_DOT_DOT)}
	p.nextToken()
	expr.End = p.parseExpression(RANGE)
	return expr
}

func (p *Parser) endlessRange() bool {
	if p.sawNewline {
		return true
	}
	switch p.peekToken.Type {
	case token.RPAREN, token.RBRACKET, token.COMMA, token.SEMICOLON, token.EOF,
		token.KEYWORD_THEN, token.KEYWORD_DO, token.KEYWORD_END:
		return true
	}
	return false
}

func (p *Parser) parseTernaryExpression(condition ast.Expression) ast.Expression {
	tok := p.curToken
	p.nextToken()
	consequence := p.parseExpression(TERNARY)
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	alternative := p.parseExpression(TERNARY - 1)
	if consequence == nil || alternative == nil {
		return nil
	}
	return &ast.IfExpression{
		Token:       tok,
		Condition:   condition,
		Consequence: ast.NewCompound(tok, statement(consequence)),
		Alternative: ast.NewCompound(tok, statement(alternative)),
	}
}

func (p *Parser) parseDefinedExpression() ast.Expression {
	expr := &ast.DefinedExpression{Token: p.curToken}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		p.nextToken()
		expr.Expression = p.parseExpression(LOWEST)
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return expr
	}
	p.nextToken()
	expr.Expression = p.parseExpression(DEFINED)
	if expr.Expression == nil {
		return nil
	}
	return expr
}

// Groups and collections

// parseGroupedExpression parses ( stmts ). Inside parentheses a, b is a nested
// target group.
func (p *Parser) parseGroupedExpression() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.NilLiteral{Token: tok}
	}
	savedDo := p.noDo
	p.noDo = 0
	p.parenDepth++
	defer func() {
		p.noDo = savedDo
		p.parenDepth--
	}()

	cs := &ast.CompoundStatement{Token: tok}
	for p.err == nil {
		p.nextToken()
		for p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		if stmt := p.parseStatement(); stmt != nil {
			cs.Append(stmt)
		}
		if p.peekTokenIs(token.RPAREN) {
			break
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
			if p.peekTokenIs(token.RPAREN) {
				break
			}
			continue
		}
		if !p.sawNewline {
			p.unexpected(p.peekToken, "')'")
		}
	}
	if p.err != nil {
		return nil
	}
	p.nextToken() // ')'
	cs.Seal()
	if len(cs.Statements) == 1 {
		if es, ok := cs.Statements[0].(*ast.ExpressionStatement); ok {
			return es.Expression
		}
	}
	return &ast.BeginExpression{Token: tok, Body: cs}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.curToken}
	arr.Elements, _ = p.parseCallArguments(token.RBRACKET)
	if arr.Elements == nil {
		arr.Elements = []ast.Expression{}
	}
	return arr
}

func (p *Parser) parseHashLiteral() ast.Expression {
	hash := &ast.HashLiteral{Token: p.curToken, Braces: true}
	savedDo := p.noDo
	p.noDo = 0
	defer func() { p.noDo = savedDo }()

	for !p.peekTokenIs(token.RBRACE) && p.err == nil {
		p.nextToken()
		switch {
		case p.curTokenIs(token.LABEL):
			key := &ast.SymbolLiteral{Token: p.curToken, Value: p.curToken.Literal}
			p.nextToken()
			hash.Pairs = append(hash.Pairs, ast.HashPair{Key: key, Value: p.parseExpression(LOGICAL)})
		case p.curTokenIs(token.USTAR_STAR):
			p.nextToken()
			hash.Pairs = append(hash.Pairs, ast.HashPair{Value: p.parseExpression(LOGICAL)})
		case p.curTokenIs(token.STRING) && p.peekTokenIs(token.COLON) && !p.peekToken.SpaceBefore:
			key := p.stringKeySymbol(p.curToken)
			p.nextToken()
			p.nextToken()
			hash.Pairs = append(hash.Pairs, ast.HashPair{Key: key, Value: p.parseExpression(LOGICAL)})
		default:
			key := p.parseExpression(LOGICAL)
			if !p.expectPeek(token.EQUAL_GREATER) {
				return nil
			}
			p.nextToken()
			hash.Pairs = append(hash.Pairs, ast.HashPair{Key: key, Value: p.parseExpression(LOGICAL)})
		}
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return hash
}

// stringKeySymbol turns the "key": form into a symbol.
func (p *Parser) stringKeySymbol(tok token.Token) ast.Expression {
	if tok.Parts != nil {
		return &ast.DynamicSymbol{Token: tok, Parts: p.parseParts(tok.Parts)}
	}
	return &ast.SymbolLiteral{Token: tok, Value: tok.Literal}
}

// Calls

func (p *Parser) parseMethodCall(left ast.Expression) ast.Expression {
	call := &ast.MethodCall{Token: p.curToken, Receiver: left, SafeNav: p.curTokenIs(token.AMPERSAND_DOT)}
	p.nextToken()
	switch {
	case p.curTokenIs(token.LPAREN) || p.curTokenIs(token.LPAREN_ARG) || p.curTokenIs(token.LPAREN_BEG):
		// recv.(args) calls recv.call
		call.Method = "call"
		call.Arguments, call.BlockArg = p.parseCallArguments(token.RPAREN)
		call.Block = p.parseBlockIfAny()
		return call
	case p.curTokenIs(token.IDENT) || p.curTokenIs(token.CONSTANT) || p.curTokenIs(token.METHOD_NAME):
		call.Method = p.curToken.Literal
	case p.curToken.Type.IsOperator():
		call.Method = p.curToken.Literal
	case p.curToken.Type.IsKeyword():
		call.Method = p.curToken.Type.String()
	default:
		p.unexpected(p.curToken, "method name")
		return nil
	}
	call.Token = p.curToken
	p.parseCallRest(call)
	return call
}

func (p *Parser) parseScopedConstant(left ast.Expression) ast.Expression {
	tok := p.curToken
	p.nextToken()
	switch p.curToken.Type {
	case token.CONSTANT:
		if !p.peekTokenIs(token.LPAREN) {
			return &ast.ScopedConstant{Token: tok, Left: left, Name: p.curToken.Literal}
		}
	case token.IDENT, token.METHOD_NAME:
	default:
		p.unexpected(p.curToken, "constant or method name")
		return nil
	}
	call := &ast.MethodCall{Token: p.curToken, Receiver: left, Method: p.curToken.Literal}
	p.parseCallRest(call)
	return call
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	call := &ast.MethodCall{Token: p.curToken, Receiver: left, Method: "[]"}
	call.Arguments, _ = p.parseCallArguments(token.RBRACKET)
	return call
}

// parseCallRest parses what follows a method name: a parenthesized argument list,
// command arguments, and a block.
func (p *Parser) parseCallRest(call *ast.MethodCall) {
	switch {
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		call.Arguments, call.BlockArg = p.parseCallArguments(token.RPAREN)
	case p.canStartCommandArg():
		call.Arguments, call.BlockArg = p.parseCommandArguments()
	default:
		call.VCall = call.Receiver == nil
	}
	if blk := p.parseBlockIfAny(); blk != nil {
		call.Block = blk
		call.VCall = false
	}
}

// canStartCommandArg reports whether peekToken begins the first argument of a
// call written without parentheses. The lexer has already decided the unary or
// binary reading of ambiguous operators.
func (p *Parser) canStartCommandArg() bool {
	if p.sawNewline || !p.peekToken.SpaceBefore {
		return false
	}
	switch p.peekToken.Type {
	case token.IDENT, token.CONSTANT, token.METHOD_NAME, token.IVAR, token.CVAR, token.GVAR,
		token.NTH_REF, token.BACK_REF, token.LABEL,
		token.INTEGER, token.FLOAT, token.STRING, token.SYMBOL, token.REGEXP, token.WORDS,
		token.SYMBOLS, token.HEREDOC,
		token.USTAR, token.USTAR_STAR, token.UAMPERSAND, token.UMINUS, token.UPLUS,
		token.UCOLON_COLON, token.LBRACKET_ARRAY, token.LPAREN_ARG, token.BANG, token.TILDE,
		token.MINUS_GREATER, token.KEYWORD_NIL, token.KEYWORD_TRUE, token.KEYWORD_FALSE,
		token.KEYWORD_SELF, token.KEYWORD_NOT, token.KEYWORD_DEFINED, token.KEYWORD_DEF,
		token.KEYWORD___FILE__, token.KEYWORD___LINE__, token.KEYWORD_SUPER,
		token.KEYWORD_YIELD, token.KEYWORD_CASE, token.KEYWORD_BEGIN:
		return true
	}
	return false
}

// parseCallArguments parses a bracketed argument list; curToken is the opener.
func (p *Parser) parseCallArguments(end token.Type) ([]ast.Expression, ast.Expression) {
	savedDo := p.noDo
	p.noDo = 0
	defer func() { p.noDo = savedDo }()

	if p.peekTokenIs(end) {
		p.nextToken()
		return nil, nil
	}
	p.nextToken()
	args, blockArg := p.parseArgumentList(end)
	if !p.expectPeek(end) {
		return nil, nil
	}
	return args, blockArg
}

// parseCommandArguments parses arguments written without parentheses. A do
// block seen meanwhile belongs to this call, not to an argument.
func (p *Parser) parseCommandArguments() ([]ast.Expression, ast.Expression) {
	p.noDo++
	defer func() { p.noDo-- }()
	p.nextToken()
	return p.parseArgumentList(0)
}

// parseArgumentList parses comma separated arguments starting at curToken: plain
// values, *splats, a trailing &block, and key: value pairs collected into one
// brace-less hash placed last.
func (p *Parser) parseArgumentList(end token.Type) ([]ast.Expression, ast.Expression) {
	var args []ast.Expression
	var hash *ast.HashLiteral
	var blockArg ast.Expression
	addPair := func(key, value ast.Expression) {
		if hash == nil {
			hash = &ast.HashLiteral{Token: p.curToken}
		}
		hash.Pairs = append(hash.Pairs, ast.HashPair{Key: key, Value: value})
	}

	for p.err == nil {
		switch p.curToken.Type {
		case token.UAMPERSAND, token.AMPERSAND:
			tok := p.curToken
			p.nextToken()
			blockArg = &ast.BlockPass{Token: tok, Value: p.parseExpression(TERNARY)}
		case token.USTAR_STAR:
			p.nextToken()
			addPair(nil, p.parseExpression(LOGICAL))
		case token.LABEL:
			key := &ast.SymbolLiteral{Token: p.curToken, Value: p.curToken.Literal}
			p.nextToken()
			addPair(key, p.parseExpression(LOGICAL))
		default:
			arg := p.parseExpression(LOGICAL)
			if arg == nil {
				return nil, nil
			}
			if p.peekTokenIs(token.EQUAL_GREATER) {
				p.nextToken()
				p.nextToken()
				addPair(arg, p.parseExpression(LOGICAL))
			} else {
				args = append(args, arg)
			}
		}
		if blockArg != nil || !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if end != 0 && p.peekTokenIs(end) {
			break // trailing comma
		}
		p.nextToken()
	}
	if hash != nil {
		args = append(args, hash)
	}
	return args, blockArg
}

// parseBlockIfAny parses a { } or do ... end block following a call.
func (p *Parser) parseBlockIfAny() *ast.BlockLiteral {
	if p.sawNewline || p.err != nil {
		return nil
	}
	if p.peekTokenIs(token.LBRACE) || (p.peekTokenIs(token.KEYWORD_DO) && p.noDo == 0) {
		p.nextToken()
		return p.parseBlockLiteral()
	}
	return nil
}

// parseYieldExpression parses yield. The splat flag is fixed here: yield *x
// spreads x over the block's parameters.
func (p *Parser) parseYieldExpression() ast.Expression {
	expr := &ast.YieldExpression{Token: p.curToken}
	switch {
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		expr.Arguments, _ = p.parseCallArguments(token.RPAREN)
	case p.canStartCommandArg():
		expr.Arguments, _ = p.parseCommandArguments()
	}
	for _, arg := range expr.Arguments {
		if _, ok := arg.(*ast.SplatExpression); ok {
			expr.Splat = true
		}
	}
	return expr
}

func (p *Parser) parseSuperExpression() ast.Expression {
	expr := &ast.SuperExpression{Token: p.curToken}
	switch {
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		expr.HasArgs = true
		expr.Arguments, expr.BlockArg = p.parseCallArguments(token.RPAREN)
	case p.canStartCommandArg():
		expr.HasArgs = true
		expr.Arguments, expr.BlockArg = p.parseCommandArguments()
	}
	expr.Block = p.parseBlockIfAny()
	return expr
}

// Jumps

// canStartJumpValue reports whether a value follows return, break or next.
func (p *Parser) canStartJumpValue() bool {
	if p.sawNewline {
		return false
	}
	switch p.peekToken.Type {
	case token.EOF, token.SEMICOLON, token.KEYWORD_END, token.RBRACE, token.RPAREN,
		token.RBRACKET, token.KEYWORD_IF, token.KEYWORD_UNLESS, token.KEYWORD_WHILE,
		token.KEYWORD_UNTIL, token.KEYWORD_RESCUE, token.KEYWORD_AND, token.KEYWORD_OR,
		token.COLON, token.KEYWORD_THEN, token.KEYWORD_DO, token.COMMA, token.PIPE:
		return false
	}
	return true
}

func (p *Parser) parseJumpValue() ast.Expression {
	if !p.canStartJumpValue() {
		return nil
	}
	tok := p.peekToken
	p.nextToken()
	args, _ := p.parseArgumentList(0)
	if len(args) == 1 {
		if _, splat := args[0].(*ast.SplatExpression); !splat {
			return args[0]
		}
	}
	return &ast.ArrayLiteral{Token: tok, Elements: args}
}

func (p *Parser) parseReturnExpression() ast.Expression {
	expr := &ast.ReturnExpression{Token: p.curToken}
	expr.Value = p.parseJumpValue()
	return expr
}

func (p *Parser) parseBreakExpression() ast.Expression {
	expr := &ast.BreakExpression{Token: p.curToken}
	expr.Value = p.parseJumpValue()
	return expr
}

func (p *Parser) parseNextExpression() ast.Expression {
	expr := &ast.NextExpression{Token: p.curToken}
	expr.Value = p.parseJumpValue()
	return expr
}

func (p *Parser) parseRedoExpression() ast.Expression {
	return &ast.RedoExpression{Token: p.curToken}
}

func (p *Parser) parseRetryExpression() ast.Expression {
	return &ast.RetryExpression{Token: p.curToken}
}

// alias and undef

func (p *Parser) methodNameToken() (string, bool) {
	tok := p.curToken
	switch tok.Type {
	case token.IDENT, token.CONSTANT, token.METHOD_NAME, token.SYMBOL:
		return tok.Literal, true
	case token.UMINUS:
		return "-@", true
	case token.UPLUS:
		return "+@", true
	}
	if tok.Type.IsOperator() {
		return tok.Literal, true
	}
	if tok.Type.IsKeyword() {
		return tok.Type.String(), true
	}
	p.unexpected(tok, "method name")
	return "", false
}

func (p *Parser) parseAliasExpression() ast.Expression {
	expr := &ast.AliasExpression{Token: p.curToken}
	p.nextToken()
	if p.curTokenIs(token.GVAR) {
		expr.Global = true
		expr.New = p.curToken.Literal
		if !p.expectPeek(token.GVAR) {
			return nil
		}
		expr.Old = p.curToken.Literal
		return expr
	}
	name, ok := p.methodNameToken()
	if !ok {
		return nil
	}
	expr.New = name
	p.nextToken()
	if expr.Old, ok = p.methodNameToken(); !ok {
		return nil
	}
	return expr
}

func (p *Parser) parseUndefExpression() ast.Expression {
	expr := &ast.UndefExpression{Token: p.curToken}
	for {
		p.nextToken()
		name, ok := p.methodNameToken()
		if !ok {
			return nil
		}
		expr.Names = append(expr.Names, name)
		if !p.peekTokenIs(token.COMMA) {
			return expr
		}
		p.nextToken()
	}
}
