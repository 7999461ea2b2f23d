package parser

import (
	"strings"

	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/token"
)

func (p *Parser) parseAssignment(left ast.Expression) ast.Expression {
	switch l := left.(type) {
	case *ast.Mlhs:
		return p.parseMultipleAssignment(l)
	case *ast.SplatExpression:
		m := &ast.Mlhs{Token: l.Token}
		target := p.toTarget(l)
		if target == nil {
			return nil
		}
		m.Splat = target.(*ast.SplatExpression)
		return p.parseMultipleAssignment(m)
	}

	tok := p.curToken
	target := p.toTarget(left)
	if target == nil {
		return nil
	}
	p.nextToken()
	asg := &ast.Assignment{Token: tok, Target: target, Value: p.parseRightHandSide()}
	if asg.Value == nil {
		return nil
	}
	// a = expr rescue fallback guards only the value.
	if p.peekTokenIs(token.KEYWORD_RESCUE) && !p.sawNewline {
		p.nextToken()
		rtok := p.curToken
		p.nextToken()
		asg.Value = &ast.RescueModifier{Token: rtok, Expression: asg.Value, Rescue: p.parseExpression(ASSIGNMENT - 1)}
	}
	return asg
}

func (p *Parser) parseOpAssignment(left ast.Expression) ast.Expression {
	tok := p.curToken
	switch left.(type) {
	case *ast.Mlhs, *ast.SplatExpression:
		p.errorAt(tok, "unexpected operator-assignment to a target list")
		return nil
	}
	target := p.toTarget(left)
	if target == nil {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(ASSIGNMENT - 1)
	if value == nil {
		return nil
	}
	return &ast.OpAssignment{
		Token:    tok,
		Target:   target,
		Operator: strings.TrimSuffix(tok.Literal, "="),
		Value:    value,
	}
}

// toTarget validates e as an assignment target. A bare identifier becomes a local
// variable, defined from here on.
func (p *Parser) toTarget(e ast.Expression) ast.Expression {
	switch t := e.(type) {
	case *ast.MethodCall:
		if t.VCall && t.Token.Type == token.IDENT {
			p.scope.Define(t.Method, symtab.Local)
			return &ast.LocalVariable{Token: t.Token, Name: t.Method}
		}
		if isAttributeTarget(t) {
			return t
		}
	case *ast.LocalVariable, *ast.InstanceVariable, *ast.ClassVariable, *ast.GlobalVariable,
		*ast.Constant, *ast.ScopedConstant, *ast.Mlhs:
		return e
	case *ast.SplatExpression:
		if t.Value == nil {
			return t
		}
		v := p.toTarget(t.Value)
		if v == nil {
			return nil
		}
		return &ast.SplatExpression{Token: t.Token, Value: v}
	}
	if e != nil {
		pos := e.Pos()
		p.setErrorAt(pos, "cannot assign to %s", e.String())
	}
	return nil
}

// isAttributeTarget accepts recv[args] and recv.name.
func isAttributeTarget(call *ast.MethodCall) bool {
	if call.Receiver == nil || call.Block != nil || call.BlockArg != nil {
		return false
	}
	if call.Method == "[]" {
		return true
	}
	if len(call.Arguments) > 0 || call.Method == "" {
		return false
	}
	last := call.Method[len(call.Method)-1]
	return last != '?' && last != '!' && last != '='
}

func isTargetCandidate(e ast.Expression) bool {
	switch t := e.(type) {
	case *ast.MethodCall:
		return (t.VCall && t.Token.Type == token.IDENT) || isAttributeTarget(t)
	case *ast.LocalVariable, *ast.InstanceVariable, *ast.ClassVariable, *ast.GlobalVariable,
		*ast.Constant, *ast.ScopedConstant, *ast.Mlhs, *ast.SplatExpression:
		return true
	}
	return false
}

// parseMlhs collects a target list a, *b, (c, d). curToken is the last token of
// first. A trailing comma (a, = list) leaves room for the rest in an anonymous splat.
func (p *Parser) parseMlhs(first ast.Expression) *ast.Mlhs {
	pos := first.Pos()
	m := &ast.Mlhs{Token: token.Token{Literal: first.TokenLiteral(), Line: pos.Line, Column: pos.Column, Offset: pos.Offset}}
	add := func(e ast.Expression) bool {
		target := p.toTarget(e)
		if target == nil {
			return false
		}
		if splat, ok := target.(*ast.SplatExpression); ok {
			if m.Splat != nil {
				p.setErrorAt(splat.Pos(), "multiple splats in a target list")
				return false
			}
			m.Splat = splat
			return true
		}
		if m.Splat != nil {
			m.Post = append(m.Post, target)
		} else {
			m.Pre = append(m.Pre, target)
		}
		return true
	}
	if !add(first) {
		return nil
	}
	for p.peekTokenIs(token.COMMA) && p.err == nil {
		p.nextToken()
		switch p.peekToken.Type {
		case token.EQUAL, token.RPAREN, token.PIPE, token.KEYWORD_IN:
			if m.Splat == nil {
				m.Splat = &ast.SplatExpression{Token: p.curToken}
			}
			return m
		}
		p.nextToken()
		var item ast.Expression
		if p.curTokenIs(token.USTAR) || p.curTokenIs(token.STAR) {
			item = p.parseSplatExpression()
		} else {
			item = p.parseExpression(ASSIGNMENT)
		}
		if item == nil || !add(item) {
			return nil
		}
	}
	return m
}

// parseMultipleAssignment parses the values of a, b = ...; curToken is '='.
func (p *Parser) parseMultipleAssignment(m *ast.Mlhs) ast.Expression {
	if m == nil {
		return nil
	}
	asg := &ast.MultipleAssignment{Token: p.curToken, Left: m}
	p.nextToken()
	for p.err == nil {
		value := p.parseRightHandSide()
		if value == nil {
			return nil
		}
		asg.Right = append(asg.Right, value)
		if !p.peekTokenIs(token.COMMA) || p.sawNewline {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	return asg
}

func (p *Parser) parseRightHandSide() ast.Expression {
	if p.curTokenIs(token.USTAR) {
		return p.parseSplatExpression()
	}
	return p.parseExpression(ASSIGNMENT - 1)
}

func (p *Parser) setErrorAt(pos token.Position, format string, args ...any) {
	p.errorAt(token.Token{Line: pos.Line, Column: pos.Column}, format, args...)
}
