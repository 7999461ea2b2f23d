package parser

import (
	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/token"
)

// expectTerm requires a statement terminator (newline or ';') before peekToken.
// then is accepted in its place.
func (p *Parser) expectTerm() bool {
	if p.sawNewline || p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.KEYWORD_THEN) {
		if p.peekTokenIs(token.KEYWORD_THEN) {
			p.nextToken()
		}
		return true
	}
	p.unexpected(p.peekToken, "'then' or ';' or '\\n'")
	return false
}

// Blocks

// parseBlockLiteral parses a block; curToken is '{' or do.
func (p *Parser) parseBlockLiteral() *ast.BlockLiteral {
	blk := &ast.BlockLiteral{Token: p.curToken}
	p.scope.Push(symtab.BlockScope)
	if p.peekTokenIs(token.PIPE) {
		p.nextToken()
		blk.Params = p.parseParameterList(token.PIPE, true)
	}
	if blk.Token.Type == token.LBRACE {
		blk.Body = p.parseCompound(token.RBRACE)
	} else {
		blk.Body = p.parseBodyStatement()
	}
	blk.Scope = p.scope.Pop()
	if p.err != nil {
		return nil
	}
	return blk
}

// parseLambda parses ->(params) { body } and -> do ... end.
func (p *Parser) parseLambda() ast.Expression {
	blk := &ast.BlockLiteral{Token: p.curToken, Lambda: true}
	p.scope.Push(symtab.BlockScope)
	defer func() { blk.Scope = p.scope.Pop() }()

	switch {
	case p.peekTokenIs(token.LPAREN) || p.peekTokenIs(token.LPAREN_ARG) || p.peekTokenIs(token.LPAREN_BEG):
		p.nextToken()
		blk.Params = p.parseParameterList(token.RPAREN, false)
	case p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.USTAR) || p.peekTokenIs(token.UAMPERSAND):
		blk.Params = p.parseParameterList(0, false)
	}
	if p.err != nil {
		return nil
	}
	switch {
	case p.peekTokenIs(token.LBRACE):
		p.nextToken()
		blk.Body = p.parseCompound(token.RBRACE)
	case p.peekTokenIs(token.KEYWORD_DO):
		p.nextToken()
		blk.Body = p.parseBodyStatement()
	default:
		p.unexpected(p.peekToken, "'{' or 'do'")
		return nil
	}
	if p.err != nil {
		return nil
	}
	return blk
}

// Parameters

// parseParameterList parses a parameter list after curToken up to closer. A zero
// closer reads parameters until the first token that is not a comma. Block
// parameter lists also accept ;-separated block-local names.
func (p *Parser) parseParameterList(closer token.Type, block bool) *ast.ParameterList {
	params := &ast.ParameterList{}
	if closer != 0 && p.peekTokenIs(closer) {
		p.nextToken()
		return params
	}
	defaultPrec := TERNARY
	if block {
		defaultPrec = BITOR
	}
	positional := func(param *ast.Param) {
		if params.Rest != nil || len(params.Optional) > 0 {
			params.Post = append(params.Post, param)
		} else {
			params.Required = append(params.Required, param)
		}
	}

	for p.err == nil {
		p.nextToken()
		if params.Block != nil && !p.curTokenIs(token.SEMICOLON) {
			p.errorAt(p.curToken, "block parameter must be last")
			return nil
		}
		switch p.curToken.Type {
		case token.IDENT:
			param := &ast.Param{Token: p.curToken, Name: p.curToken.Literal}
			p.scope.Define(param.Name, symtab.Param)
			if p.peekTokenIs(token.EQUAL) {
				if params.Rest != nil || len(params.Post) > 0 {
					p.errorAt(p.curToken, "optional parameter %s after rest or post parameters", param.Name)
					return nil
				}
				p.nextToken()
				p.nextToken()
				param.Default = p.parseExpression(defaultPrec)
				params.Optional = append(params.Optional, param)
			} else {
				positional(param)
			}
		case token.USTAR, token.STAR:
			if params.Rest != nil {
				p.errorAt(p.curToken, "multiple rest parameters")
				return nil
			}
			rest := &ast.Param{Token: p.curToken}
			if p.peekTokenIs(token.IDENT) {
				p.nextToken()
				rest.Name = p.curToken.Literal
				p.scope.Define(rest.Name, symtab.Param)
			}
			params.Rest = rest
		case token.UAMPERSAND, token.AMPERSAND:
			blk := &ast.Param{Token: p.curToken}
			if p.peekTokenIs(token.IDENT) {
				p.nextToken()
				blk.Name = p.curToken.Literal
				p.scope.Define(blk.Name, symtab.Param)
			}
			params.Block = blk
		case token.LPAREN, token.LPAREN_ARG, token.LPAREN_BEG:
			param := &ast.Param{Token: p.curToken, Group: p.parseParamGroup()}
			if param.Group == nil {
				return nil
			}
			positional(param)
		case token.LABEL, token.USTAR_STAR, token.STAR_STAR:
			p.errorAt(p.curToken, "keyword arguments are not supported")
			return nil
		case token.SEMICOLON:
			if !block {
				p.unexpected(p.curToken, "parameter")
				return nil
			}
			if !p.parseBlockLocals() {
				return nil
			}
			if !p.expectPeek(closer) {
				return nil
			}
			return params
		default:
			p.unexpected(p.curToken, "parameter")
			return nil
		}

		if block && p.peekTokenIs(token.SEMICOLON) {
			continue
		}
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if block && p.peekTokenIs(closer) {
			// |a, | takes the first element of an array argument
			if params.Rest == nil {
				params.Rest = &ast.Param{Token: p.curToken}
			}
			break
		}
	}
	if p.err != nil {
		return nil
	}
	if closer != 0 && !p.expectPeek(closer) {
		return nil
	}
	return params
}

// parseBlockLocals parses the names after ';' in |a; b, c|.
func (p *Parser) parseBlockLocals() bool {
	for {
		if !p.expectPeek(token.IDENT) {
			return false
		}
		p.scope.Define(p.curToken.Literal, symtab.BlockLocal)
		if !p.peekTokenIs(token.COMMA) {
			return true
		}
		p.nextToken()
	}
}

// parseParamGroup parses a destructuring parameter (a, (b, *c)); curToken is '('.
func (p *Parser) parseParamGroup() *ast.Mlhs {
	m := &ast.Mlhs{Token: p.curToken}
	add := func(e ast.Expression) {
		if m.Splat != nil {
			m.Post = append(m.Post, e)
		} else {
			m.Pre = append(m.Pre, e)
		}
	}
	for p.err == nil {
		p.nextToken()
		switch p.curToken.Type {
		case token.IDENT:
			p.scope.Define(p.curToken.Literal, symtab.Param)
			add(&ast.LocalVariable{Token: p.curToken, Name: p.curToken.Literal})
		case token.USTAR, token.STAR:
			if m.Splat != nil {
				p.errorAt(p.curToken, "multiple splats in a parameter group")
				return nil
			}
			m.Splat = &ast.SplatExpression{Token: p.curToken}
			if p.peekTokenIs(token.IDENT) {
				p.nextToken()
				p.scope.Define(p.curToken.Literal, symtab.Param)
				m.Splat.Value = &ast.LocalVariable{Token: p.curToken, Name: p.curToken.Literal}
			}
		case token.LPAREN, token.LPAREN_ARG, token.LPAREN_BEG:
			inner := p.parseParamGroup()
			if inner == nil {
				return nil
			}
			add(inner)
		default:
			p.unexpected(p.curToken, "parameter")
			return nil
		}
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return m
}

// Bodies

// parseBodyStatement parses a body closed by end that may carry rescue, else and
// ensure clauses (def, do blocks, class bodies).
func (p *Parser) parseBodyStatement() *ast.CompoundStatement {
	tok := p.curToken
	body := p.parseCompound(token.KEYWORD_RESCUE, token.KEYWORD_ELSE, token.KEYWORD_ENSURE, token.KEYWORD_END)
	if p.err != nil || p.curTokenIs(token.KEYWORD_END) {
		return body
	}
	be := p.parseRescueTail(tok, body)
	if be == nil {
		return body
	}
	return ast.NewCompound(tok, statement(be))
}

// parseRescueTail parses the clauses after a body; curToken is rescue, else or ensure.
// It stops on end.
func (p *Parser) parseRescueTail(tok token.Token, body *ast.CompoundStatement) *ast.BeginExpression {
	be := &ast.BeginExpression{Token: tok, Body: body}
	for p.curTokenIs(token.KEYWORD_RESCUE) && p.err == nil {
		clause := p.parseRescueClause()
		if clause == nil {
			return nil
		}
		be.Rescues = append(be.Rescues, clause)
	}
	if p.curTokenIs(token.KEYWORD_ELSE) {
		be.Else = p.parseCompound(token.KEYWORD_ENSURE, token.KEYWORD_END)
	}
	if p.curTokenIs(token.KEYWORD_ENSURE) {
		be.Ensure = p.parseCompound(token.KEYWORD_END)
	}
	if p.err != nil {
		return nil
	}
	return be
}

// parseRescueClause parses rescue A, B => e; curToken is rescue.
func (p *Parser) parseRescueClause() *ast.RescueClause {
	clause := &ast.RescueClause{Token: p.curToken}
	if !p.sawNewline && !p.peekTokenIsAny([]token.Type{token.KEYWORD_THEN, token.EQUAL_GREATER, token.SEMICOLON}) {
		for p.err == nil {
			p.nextToken()
			var class ast.Expression
			if p.curTokenIs(token.USTAR) {
				class = p.parseSplatExpression()
			} else {
				class = p.parseExpression(LOGICAL)
			}
			if class == nil {
				return nil
			}
			clause.Classes = append(clause.Classes, class)
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}
	if p.peekTokenIs(token.EQUAL_GREATER) {
		p.nextToken()
		p.nextToken()
		target := p.parseExpression(ASSIGNMENT)
		if target == nil {
			return nil
		}
		if clause.Variable = p.toTarget(target); clause.Variable == nil {
			return nil
		}
	}
	if p.peekTokenIs(token.KEYWORD_THEN) {
		p.nextToken()
	}
	clause.Body = p.parseCompound(token.KEYWORD_RESCUE, token.KEYWORD_ELSE, token.KEYWORD_ENSURE, token.KEYWORD_END)
	if p.err != nil {
		return nil
	}
	return clause
}

func (p *Parser) parseBeginExpression() ast.Expression {
	tok := p.curToken
	body := p.parseCompound(token.KEYWORD_RESCUE, token.KEYWORD_ELSE, token.KEYWORD_ENSURE, token.KEYWORD_END)
	if p.err != nil {
		return nil
	}
	if p.curTokenIs(token.KEYWORD_END) {
		return &ast.BeginExpression{Token: tok, Body: body}
	}
	if be := p.parseRescueTail(tok, body); be != nil {
		return be
	}
	return nil
}

// Control flow

func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.curToken, Unless: p.curTokenIs(token.KEYWORD_UNLESS)}
	p.nextToken()
	expr.Condition = p.parseExpression(LOWEST)
	if expr.Condition == nil || !p.expectTerm() {
		return nil
	}
	terms := []token.Type{token.KEYWORD_ELSIF, token.KEYWORD_ELSE, token.KEYWORD_END}
	if expr.Unless {
		terms = terms[1:]
	}
	expr.Consequence = p.parseCompound(terms...)

	switch p.curToken.Type {
	case token.KEYWORD_ELSIF:
		tok := p.curToken
		nested := p.parseIfExpression()
		if nested == nil {
			return nil
		}
		expr.Alternative = ast.NewCompound(tok, statement(nested))
	case token.KEYWORD_ELSE:
		expr.Alternative = p.parseCompound(token.KEYWORD_END)
	}
	if p.err != nil {
		return nil
	}
	return expr
}

func (p *Parser) parseWhileExpression() ast.Expression {
	expr := &ast.WhileExpression{Token: p.curToken, Until: p.curTokenIs(token.KEYWORD_UNTIL)}
	p.noDo++
	p.nextToken()
	expr.Condition = p.parseExpression(LOWEST)
	p.noDo--
	if expr.Condition == nil {
		return nil
	}
	if p.peekTokenIs(token.KEYWORD_DO) {
		p.nextToken()
	} else if !p.expectTerm() {
		return nil
	}
	expr.Body = p.parseCompound(token.KEYWORD_END)
	if p.err != nil {
		return nil
	}
	return expr
}

func (p *Parser) parseCaseExpression() ast.Expression {
	expr := &ast.CaseExpression{Token: p.curToken}
	if !p.sawNewline && !p.peekTokenIs(token.SEMICOLON) && !p.peekTokenIs(token.KEYWORD_WHEN) {
		p.nextToken()
		expr.Subject = p.parseExpression(LOWEST)
		if expr.Subject == nil {
			return nil
		}
	}
	p.nextToken()
	for p.curTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	if !p.curTokenIs(token.KEYWORD_WHEN) {
		p.unexpected(p.curToken, "'when'")
		return nil
	}

	for p.curTokenIs(token.KEYWORD_WHEN) && p.err == nil {
		clause := &ast.WhenClause{Token: p.curToken}
		for p.err == nil {
			p.nextToken()
			var cond ast.Expression
			if p.curTokenIs(token.USTAR) {
				cond = p.parseSplatExpression()
			} else {
				cond = p.parseExpression(LOWEST)
			}
			if cond == nil {
				return nil
			}
			clause.Conditions = append(clause.Conditions, cond)
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
		if !p.expectTerm() {
			return nil
		}
		clause.Body = p.parseCompound(token.KEYWORD_WHEN, token.KEYWORD_ELSE, token.KEYWORD_END)
		expr.Whens = append(expr.Whens, clause)
	}
	if p.curTokenIs(token.KEYWORD_ELSE) {
		expr.Else = p.parseCompound(token.KEYWORD_END)
	}
	if p.err != nil {
		return nil
	}
	return expr
}

func (p *Parser) parseForExpression() ast.Expression {
	expr := &ast.ForExpression{Token: p.curToken}
	p.nextToken()
	first := p.parseExpression(ASSIGNMENT)
	if first == nil {
		return nil
	}
	if p.peekTokenIs(token.COMMA) {
		m := p.parseMlhs(first)
		if m == nil {
			return nil
		}
		expr.Target = m
	} else if expr.Target = p.toTarget(first); expr.Target == nil {
		return nil
	}
	if !p.expectPeek(token.KEYWORD_IN) {
		return nil
	}
	p.noDo++
	p.nextToken()
	expr.Iterable = p.parseExpression(LOWEST)
	p.noDo--
	if expr.Iterable == nil {
		return nil
	}
	if p.peekTokenIs(token.KEYWORD_DO) {
		p.nextToken()
	} else if !p.expectTerm() {
		return nil
	}
	expr.Body = p.parseCompound(token.KEYWORD_END)
	if p.err != nil {
		return nil
	}
	return expr
}

// Definitions

func (p *Parser) parseMethodDefinition() ast.Expression {
	def := &ast.MethodDefinition{Token: p.curToken}
	p.nextToken()

	if p.peekTokenIs(token.DOT) {
		switch p.curToken.Type {
		case token.KEYWORD_SELF:
			def.Singleton = &ast.SelfExpression{Token: p.curToken}
		case token.CONSTANT:
			def.Singleton = &ast.Constant{Token: p.curToken, Name: p.curToken.Literal}
		case token.IDENT:
			if p.scope.IsLocal(p.curToken.Literal) {
				def.Singleton = &ast.LocalVariable{Token: p.curToken, Name: p.curToken.Literal}
			} else {
				def.Singleton = &ast.MethodCall{Token: p.curToken, Method: p.curToken.Literal, VCall: true}
			}
		default:
			p.unexpected(p.curToken, "method name")
			return nil
		}
		p.nextToken()
		p.nextToken()
	}
	name, ok := p.methodNameToken()
	if !ok {
		return nil
	}
	def.Name = name

	p.scope.Push(symtab.MethodScope)
	defer func() { def.Scope = p.scope.Pop() }()

	switch {
	case p.peekTokenIs(token.LPAREN) || p.peekTokenIs(token.LPAREN_ARG) || p.peekTokenIs(token.LPAREN_BEG):
		p.nextToken()
		def.Params = p.parseParameterList(token.RPAREN, false)
	case p.peekTokenIs(token.EQUAL) && !p.sawNewline:
		p.errorAt(p.peekToken, "endless method definitions are not supported")
		return nil
	case !p.sawNewline && !p.peekTokenIs(token.SEMICOLON):
		def.Params = p.parseParameterList(0, false)
	}
	if p.err != nil {
		return nil
	}
	def.Body = p.parseBodyStatement()
	if p.err != nil {
		return nil
	}
	return def
}

func (p *Parser) parseClassDefinition() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(token.LESS_LESS) {
		p.nextToken()
		p.nextToken()
		sc := &ast.SingletonClassDefinition{Token: tok, Object: p.parseExpression(LOWEST)}
		if sc.Object == nil || !p.expectTerm() {
			return nil
		}
		p.scope.Push(symtab.ClassScope)
		sc.Body = p.parseBodyStatement()
		sc.Scope = p.scope.Pop()
		if p.err != nil {
			return nil
		}
		return sc
	}

	class := &ast.ClassDefinition{Token: tok}
	if class.Path = p.parseDefinitionPath(); class.Path == nil {
		return nil
	}
	if p.peekTokenIs(token.LESS) {
		p.nextToken()
		p.nextToken()
		if class.Superclass = p.parseExpression(COMPARE); class.Superclass == nil {
			return nil
		}
	}
	if !p.expectTerm() {
		return nil
	}
	p.scope.Push(symtab.ClassScope)
	class.Body = p.parseBodyStatement()
	class.Scope = p.scope.Pop()
	if p.err != nil {
		return nil
	}
	return class
}

func (p *Parser) parseModuleDefinition() ast.Expression {
	mod := &ast.ModuleDefinition{Token: p.curToken}
	if mod.Path = p.parseDefinitionPath(); mod.Path == nil {
		return nil
	}
	if !p.expectTerm() {
		return nil
	}
	p.scope.Push(symtab.ClassScope)
	mod.Body = p.parseBodyStatement()
	mod.Scope = p.scope.Pop()
	if p.err != nil {
		return nil
	}
	return mod
}

// parseDefinitionPath parses the constant path after class or module.
func (p *Parser) parseDefinitionPath() ast.Expression {
	p.nextToken()
	path := p.parseExpression(COMPARE)
	switch path.(type) {
	case *ast.Constant, *ast.ScopedConstant:
		return path
	case nil:
		return nil
	}
	p.setErrorAt(path.Pos(), "class/module name must be CONSTANT")
	return nil
}
