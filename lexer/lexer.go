// Package lexer implements a lexer for the Ruby dialect.
package lexer

import (
	"strings"

	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/token"
)

// lexState is the lexer's view of what may follow the previous token. It decides
// between the unary and binary readings of - + * ** & [ ( :: / % ? and <<.
type lexState int

const (
	stateBeg   lexState = iota // start of an expression
	stateArg                   // after a name that may take command arguments
	stateEnd                   // after a complete value
	stateDot                   // after . &. or ::, a method name follows
	stateFname                 // after def, alias or undef, a method name follows
)

// cursor is the scanning position. Sub-lexers copy it in and out.
type cursor struct {
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// Lexer represents a lexer for source code.
type Lexer struct {
	cursor
	input string

	scope *symtab.Table

	// Context for disambiguation
	state       lexState
	stateSet    bool
	spaceBefore bool
	lastType    token.Type
	callable    bool // previous token may take a directly attached '('
	defName     bool // a def is waiting for its method name
	fnames      int  // names still expected after alias/undef

	// Embedded-expression sub-lexers return EOF at the unmatched '}'.
	embedded   bool
	braceDepth int
	closed     bool

	// Heredocs whose markers appeared on the current line. Their bodies are read
	// when the scan reaches the end of that line.
	heredocs []*token.Heredoc

	err *diag.Error
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithScope makes the lexer consult (and share) an existing scope table.
func WithScope(t *symtab.Table) Option {
	return func(l *Lexer) { l.scope = t }
}

// New creates a new Lexer instance.
func New(input string, opts ...Option) *Lexer {
	l := &Lexer{input: input}
	l.line = 1
	for _, opt := range opts {
		opt(l)
	}
	if l.scope == nil {
		l.scope = symtab.New()
	}
	l.readChar()
	return l
}

// Scope returns the scope table the lexer consults for local variable names.
func (l *Lexer) Scope() *symtab.Table { return l.scope }

// Err returns the first lexical error, if any. Once set, NextToken only returns
// ILLEGAL tokens.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekCharN(n int) byte {
	pos := l.readPosition + n - 1
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) fail(incomplete bool, format string, args ...any) token.Token {
	if l.err == nil {
		if incomplete {
			l.err = diag.Incompletef(diag.SyntaxError, l.line, l.column, format, args...)
		} else {
			l.err = diag.Errorf(diag.SyntaxError, l.line, l.column, format, args...)
		}
	}
	return l.illegal()
}

func (l *Lexer) illegal() token.Token {
	return token.Token{Type: token.ILLEGAL, Literal: l.err.Message, Line: l.err.Line, Column: l.err.Column}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() token.Token {
	if l.err != nil {
		return l.illegal()
	}
	l.spaceBefore = l.skipSpace()
	if l.err != nil {
		return l.illegal()
	}

	startLine, startColumn, startOffset := l.line, l.column, l.position
	prevState, awaitingName := l.state, l.defName || l.fnames > 0
	tok := l.scan()
	if tok.Type == token.ILLEGAL {
		return tok
	}
	tok.Line = startLine
	tok.Column = startColumn
	tok.Offset = startOffset
	tok.End = l.position
	tok.SpaceBefore = l.spaceBefore

	// operator method names: def +(other), alias eql? ==, 1.+(2)
	opName := tok.Type.IsOperator() && (prevState == stateDot || awaitingName && prevState == stateFname)
	if opName && !l.stateSet {
		if awaitingName {
			l.nameConsumed()
		} else {
			l.setState(stateArg)
		}
	}
	if !l.stateSet {
		l.state = nextState(tok.Type)
	}
	l.stateSet = false
	l.lastType = tok.Type
	switch tok.Type {
	case token.IDENT, token.CONSTANT, token.METHOD_NAME, token.KEYWORD_SUPER,
		token.KEYWORD_YIELD, token.KEYWORD_DEFINED, token.KEYWORD_NOT, token.MINUS_GREATER:
		l.callable = true
	case token.NEWLINE, token.SEMICOLON:
		l.callable = false
		l.defName = false
		l.fnames = 0
	default:
		l.callable = opName || tok.Type == token.BRACKET_LEFT_RIGHT || tok.Type == token.BRACKET_LEFT_RIGHT_EQUAL
	}
	return tok
}

func nextState(t token.Type) lexState {
	switch t {
	case token.INTEGER, token.FLOAT, token.STRING, token.SYMBOL, token.REGEXP,
		token.WORDS, token.SYMBOLS, token.HEREDOC, token.IVAR, token.CVAR, token.GVAR,
		token.NTH_REF, token.BACK_REF, token.CONSTANT, token.RPAREN, token.RBRACKET,
		token.RBRACE, token.BRACKET_LEFT_RIGHT, token.BRACKET_LEFT_RIGHT_EQUAL:
		return stateEnd
	case token.DOT, token.AMPERSAND_DOT, token.COLON_COLON, token.UCOLON_COLON:
		return stateDot
	case token.MINUS_GREATER:
		return stateArg
	}
	return stateBeg
}

func (l *Lexer) setState(s lexState) {
	l.state = s
	l.stateSet = true
}

// unary reports whether the n-character operator at the current position starts
// an operand rather than continuing a binary expression.
func (l *Lexer) unary(n int) bool {
	switch l.state {
	case stateBeg:
		return true
	case stateArg:
		return l.spaceBefore && !isSpace(l.peekCharN(n))
	}
	return false
}

// skipSpace skips blanks, comments, line continuations and =begin/=end blocks.
// Newlines are tokens and are not skipped.
func (l *Lexer) skipSpace() bool {
	skipped := false
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.readChar()
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\r' && l.peekCharN(2) == '\n':
			l.readChar()
			l.readChar()
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		case l.ch == '=' && l.column == 1 && strings.HasPrefix(l.input[l.position:], "=begin") &&
			(l.position+6 >= len(l.input) || isSpace(l.input[l.position+6])):
			if !l.skipEmbeddedDoc() {
				return skipped
			}
		default:
			return skipped
		}
		skipped = true
	}
}

func (l *Lexer) skipEmbeddedDoc() bool {
	line := l.line
	for {
		for l.ch != '\n' && !l.atEOF() {
			l.readChar()
		}
		if l.atEOF() {
			l.err = diag.Incompletef(diag.SyntaxError, line, 1, "embedded document meets end of file")
			return false
		}
		l.readChar()
		if strings.HasPrefix(l.input[l.position:], "=end") &&
			(l.position+4 >= len(l.input) || isSpace(l.input[l.position+4])) {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			return true
		}
	}
}

func (l *Lexer) newToken(tokenType token.Type, literal string) token.Token {
	return token.Token{Type: tokenType, Literal: literal}
}

// op consumes the operator text and returns its token.
func (l *Lexer) op(tokenType token.Type, literal string) token.Token {
	for range literal {
		l.readChar()
	}
	return l.newToken(tokenType, literal)
}

func (l *Lexer) scan() token.Token {
	if l.atEOF() {
		if len(l.heredocs) > 0 {
			return l.fail(true, "can't find string \"%s\" anywhere before EOF", l.heredocs[0].ID)
		}
		if l.embedded {
			return l.fail(true, "unterminated string meets end of file")
		}
		return l.newToken(token.EOF, "")
	}

	switch l.ch {
	case '\n':
		l.readChar()
		if len(l.heredocs) > 0 {
			if !l.readHeredocBodies() {
				return l.illegal()
			}
		}
		return l.newToken(token.NEWLINE, "\n")
	case ';':
		return l.op(token.SEMICOLON, ";")
	case ',':
		return l.op(token.COMMA, ",")
	case '+':
		switch {
		case l.peekChar() == '=':
			return l.op(token.PLUS_EQUAL, "+=")
		case l.state == stateFname && l.peekChar() == '@':
			return l.op(token.UPLUS, "+@")
		case l.unary(1):
			if isDigit(l.peekChar()) {
				l.readChar()
				return l.lexNumber("")
			}
			return l.op(token.UPLUS, "+")
		}
		return l.op(token.PLUS, "+")
	case '-':
		switch {
		case l.peekChar() == '=':
			return l.op(token.MINUS_EQUAL, "-=")
		case l.peekChar() == '>':
			return l.op(token.MINUS_GREATER, "->")
		case l.state == stateFname && l.peekChar() == '@':
			return l.op(token.UMINUS, "-@")
		case l.unary(1):
			if isDigit(l.peekChar()) {
				l.readChar()
				return l.lexNumber("-")
			}
			return l.op(token.UMINUS, "-")
		}
		return l.op(token.MINUS, "-")
	case '*':
		if l.peekChar() == '*' {
			switch {
			case l.peekCharN(2) == '=':
				return l.op(token.STAR_STAR_EQUAL, "**=")
			case l.unary(2):
				return l.op(token.USTAR_STAR, "**")
			}
			return l.op(token.STAR_STAR, "**")
		}
		switch {
		case l.peekChar() == '=':
			return l.op(token.STAR_EQUAL, "*=")
		case l.unary(1):
			return l.op(token.USTAR, "*")
		}
		return l.op(token.STAR, "*")
	case '/':
		switch {
		case l.state == stateBeg:
			return l.lexRegexp()
		case l.peekChar() == '=':
			return l.op(token.SLASH_EQUAL, "/=")
		case l.unary(1):
			return l.lexRegexp()
		}
		return l.op(token.SLASH, "/")
	case '%':
		switch {
		case l.state == stateBeg && l.isPercentLiteral():
			return l.lexPercentLiteral()
		case l.peekChar() == '=':
			return l.op(token.PERCENT_EQUAL, "%=")
		case l.unary(1) && l.isPercentLiteral():
			return l.lexPercentLiteral()
		}
		return l.op(token.PERCENT, "%")
	case '&':
		switch l.peekChar() {
		case '&':
			if l.peekCharN(2) == '=' {
				return l.op(token.AMPERSAND_AMPERSAND_EQUAL, "&&=")
			}
			return l.op(token.AMPERSAND_AMPERSAND, "&&")
		case '=':
			return l.op(token.AMPERSAND_EQUAL, "&=")
		case '.':
			return l.op(token.AMPERSAND_DOT, "&.")
		}
		if l.unary(1) {
			return l.op(token.UAMPERSAND, "&")
		}
		return l.op(token.AMPERSAND, "&")
	case '|':
		switch l.peekChar() {
		case '|':
			if l.peekCharN(2) == '=' {
				return l.op(token.PIPE_PIPE_EQUAL, "||=")
			}
			if l.lastType == token.LBRACE || l.lastType == token.KEYWORD_DO {
				// empty block parameter list: { || ... }
				l.readChar()
				return l.newToken(token.PIPE, "|")
			}
			return l.op(token.PIPE_PIPE, "||")
		case '=':
			return l.op(token.PIPE_EQUAL, "|=")
		}
		return l.op(token.PIPE, "|")
	case '^':
		if l.peekChar() == '=' {
			return l.op(token.CARET_EQUAL, "^=")
		}
		return l.op(token.CARET, "^")
	case '~':
		return l.op(token.TILDE, "~")
	case '!':
		switch l.peekChar() {
		case '=':
			return l.op(token.BANG_EQUAL, "!=")
		case '~':
			return l.op(token.BANG_TILDE, "!~")
		}
		return l.op(token.BANG, "!")
	case '<':
		return l.lexLessThan()
	case '>':
		switch l.peekChar() {
		case '=':
			return l.op(token.GREATER_EQUAL, ">=")
		case '>':
			if l.peekCharN(2) == '=' {
				return l.op(token.GREATER_GREATER_EQUAL, ">>=")
			}
			return l.op(token.GREATER_GREATER, ">>")
		}
		return l.op(token.GREATER, ">")
	case '=':
		switch l.peekChar() {
		case '=':
			if l.peekCharN(2) == '=' {
				return l.op(token.EQUAL_EQUAL_EQUAL, "===")
			}
			return l.op(token.EQUAL_EQUAL, "==")
		case '~':
			return l.op(token.EQUAL_TILDE, "=~")
		case '>':
			return l.op(token.EQUAL_GREATER, "=>")
		}
		return l.op(token.EQUAL, "=")
	case '.':
		if l.peekChar() == '.' {
			if l.peekCharN(2) == '.' {
				return l.op(token.DOT_DOT_DOT, "...")
			}
			return l.op(token.DOT_DOT, "..")
		}
		return l.op(token.DOT, ".")
	case ':':
		return l.lexColon()
	case '?':
		if l.shouldLexCharLiteral() {
			return l.lexCharLiteral()
		}
		return l.op(token.QUESTION, "?")
	case '(':
		switch {
		case !l.spaceBefore && l.callable:
			return l.op(token.LPAREN, "(")
		case l.state == stateArg && l.spaceBefore:
			return l.op(token.LPAREN_ARG, "(")
		}
		return l.op(token.LPAREN_BEG, "(")
	case ')':
		return l.op(token.RPAREN, ")")
	case '[':
		switch {
		case (l.state == stateFname || l.state == stateDot) && l.peekChar() == ']':
			if l.peekCharN(2) == '=' {
				l.nameConsumed()
				return l.op(token.BRACKET_LEFT_RIGHT_EQUAL, "[]=")
			}
			l.nameConsumed()
			return l.op(token.BRACKET_LEFT_RIGHT, "[]")
		case l.state == stateBeg, l.state == stateArg && l.spaceBefore:
			return l.op(token.LBRACKET_ARRAY, "[")
		}
		return l.op(token.LBRACKET, "[")
	case ']':
		return l.op(token.RBRACKET, "]")
	case '{':
		if l.embedded {
			l.braceDepth++
		}
		return l.op(token.LBRACE, "{")
	case '}':
		if l.embedded {
			if l.braceDepth == 0 {
				// the unmatched brace ends the embedded expression
				l.closed = true
				return l.newToken(token.EOF, "")
			}
			l.braceDepth--
		}
		return l.op(token.RBRACE, "}")
	case '\'':
		l.readChar()
		return l.lexQuoted(token.STRING, literal{close: '\'', mode: quoteRaw})
	case '"':
		l.readChar()
		return l.lexQuoted(token.STRING, literal{close: '"', mode: quoteFull, interpolate: true})
	case '`':
		return l.fail(false, "command strings are not supported")
	case '@':
		return l.lexInstanceOrClassVariable()
	case '$':
		return l.lexGlobalVariable()
	}

	if isIdentStart(l.ch) {
		return l.lexIdentifier()
	}
	if isDigit(l.ch) {
		return l.lexNumber("")
	}
	return l.fail(false, "invalid character '%c'", l.ch)
}

// nameConsumed records that a method name after def/alias/undef was read.
func (l *Lexer) nameConsumed() {
	if l.fnames > 0 {
		l.fnames--
	}
	if l.defName {
		l.defName = false
		l.setState(stateArg)
	} else if l.fnames > 0 {
		l.setState(stateFname)
	} else if l.state == stateFname {
		l.setState(stateEnd)
	}
}

func (l *Lexer) lexIdentifier() token.Token {
	prev := l.state
	start := l.position
	for isIdentChar(l.ch) {
		l.readChar()
	}
	name := l.input[start:l.position]
	fname := prev == stateFname || (prev == stateDot && l.defName)

	// Labels: foo: in hash literals and keyword arguments
	if l.ch == ':' && l.peekChar() != ':' && (prev == stateBeg || prev == stateArg) &&
		l.lastType != token.QUESTION {
		l.readChar()
		l.setState(stateBeg)
		return l.newToken(token.LABEL, name)
	}

	local := prev != stateDot && !fname && l.scope.IsLocal(name)

	// Method names ending in ? or !
	if (l.ch == '?' || l.ch == '!') && l.peekChar() != '=' && !local {
		if name == "defined" && l.ch == '?' && prev != stateDot {
			l.readChar()
			l.setState(stateArg)
			return l.newToken(token.KEYWORD_DEFINED, "defined?")
		}
		name += string(l.ch)
		l.readChar()
		if fname {
			l.nameConsumed()
		} else {
			l.setState(stateArg)
		}
		return l.newToken(token.METHOD_NAME, name)
	}

	// Setter definitions: def name=(value)
	if fname && l.ch == '=' {
		next := l.peekChar()
		if next != '=' && next != '~' && next != '>' {
			l.readChar()
			l.nameConsumed()
			return l.newToken(token.METHOD_NAME, name+"=")
		}
	}

	if name == "__END__" && start == 0 || name == "__END__" && l.input[start-1] == '\n' {
		if l.ch == '\n' || l.atEOF() || l.ch == '\r' {
			l.position = len(l.input)
			l.readPosition = len(l.input) + 1
			l.ch = 0
			return l.newToken(token.EOF, "")
		}
	}

	if fname {
		if name == "self" && l.ch == '.' && prev == stateFname {
			l.setState(stateEnd)
			return l.newToken(token.KEYWORD_SELF, name)
		}
		l.nameConsumed()
		tokType := token.LookupIdent(name)
		if tokType.IsKeyword() {
			tokType = token.IDENT
		}
		return l.newToken(tokType, name)
	}

	if prev == stateDot {
		l.setState(stateArg)
		tokType := token.IDENT
		if name[0] >= 'A' && name[0] <= 'Z' {
			tokType = token.CONSTANT
		}
		return l.newToken(tokType, name)
	}

	tokType := token.LookupIdent(name)
	if tokType.IsKeyword() {
		l.setState(keywordState(tokType))
		switch tokType {
		case token.KEYWORD_DEF:
			l.defName = true
		case token.KEYWORD_ALIAS:
			l.fnames = 2
		case token.KEYWORD_UNDEF:
			l.fnames = 1
		}
		return l.newToken(tokType, name)
	}

	switch {
	case tokType == token.CONSTANT:
		l.setState(stateEnd)
	case local:
		l.setState(stateEnd)
	default:
		l.setState(stateArg)
	}
	return l.newToken(tokType, name)
}

func keywordState(t token.Type) lexState {
	switch t {
	case token.KEYWORD_END, token.KEYWORD_SELF, token.KEYWORD_NIL, token.KEYWORD_TRUE,
		token.KEYWORD_FALSE, token.KEYWORD_REDO, token.KEYWORD_RETRY,
		token.KEYWORD___FILE__, token.KEYWORD___LINE__:
		return stateEnd
	case token.KEYWORD_DEF, token.KEYWORD_ALIAS, token.KEYWORD_UNDEF:
		return stateFname
	case token.KEYWORD_YIELD, token.KEYWORD_SUPER, token.KEYWORD_DEFINED:
		return stateArg
	}
	return stateBeg
}

// lexNumber reads a numeric literal. sign is "-" when a unary minus was folded in.
// Underscore separators are validated and stripped.
func (l *Lexer) lexNumber(sign string) token.Token {
	var b strings.Builder
	b.WriteString(sign)

	digits := func(valid func(byte) bool) bool {
		n := 0
		for valid(l.ch) || l.ch == '_' {
			if l.ch == '_' {
				if n == 0 || !valid(l.peekChar()) {
					return false
				}
				l.readChar()
				continue
			}
			b.WriteByte(l.ch)
			n++
			l.readChar()
		}
		return n > 0
	}

	if l.ch == '0' {
		switch l.peekChar() {
		case 'x', 'X', 'b', 'B', 'o', 'O', 'd', 'D':
			base := l.peekChar() | 0x20
			l.readChar()
			l.readChar()
			valid := isDigit
			switch base {
			case 'x':
				b.WriteString("0x")
				valid = isHexDigit
			case 'b':
				b.WriteString("0b")
				valid = isBinaryDigit
			case 'o':
				b.WriteString("0o")
				valid = isOctalDigit
			}
			if !digits(valid) {
				return l.fail(false, "numeric literal without digits")
			}
			return l.newToken(token.INTEGER, b.String())
		}
	}

	if !digits(isDigit) {
		return l.fail(false, "trailing '_' in number")
	}
	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		b.WriteByte('.')
		l.readChar()
		if !digits(isDigit) {
			return l.fail(false, "trailing '_' in number")
		}
	}
	if (l.ch == 'e' || l.ch == 'E') &&
		(isDigit(l.peekChar()) || (l.peekChar() == '-' || l.peekChar() == '+') && isDigit(l.peekCharN(2))) {
		isFloat = true
		b.WriteByte('e')
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			b.WriteByte(l.ch)
			l.readChar()
		}
		if !digits(isDigit) {
			return l.fail(false, "trailing '_' in number")
		}
	}
	if isIdentChar(l.ch) {
		return l.fail(false, "unexpected '%c' after number", l.ch)
	}

	if isFloat {
		return l.newToken(token.FLOAT, b.String())
	}
	lit := b.String()
	// a leading zero means octal
	if digitsOnly := strings.TrimPrefix(lit, "-"); len(digitsOnly) > 1 && digitsOnly[0] == '0' {
		for i := 1; i < len(digitsOnly); i++ {
			if !isOctalDigit(digitsOnly[i]) {
				return l.fail(false, "invalid octal digit")
			}
		}
		lit = sign + "0o" + digitsOnly[1:]
	}
	return l.newToken(token.INTEGER, lit)
}

func (l *Lexer) lexInstanceOrClassVariable() token.Token {
	start := l.position
	l.readChar() // consume first @
	tokType := token.IVAR
	if l.ch == '@' {
		tokType = token.CVAR
		l.readChar()
	}
	if !isIdentStart(l.ch) {
		return l.fail(false, "'%s' without identifiers is not allowed as a variable name", l.input[start:l.position])
	}
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.newToken(tokType, l.input[start:l.position])
}

func (l *Lexer) lexGlobalVariable() token.Token {
	start := l.position
	l.readChar() // consume $

	switch {
	case isDigit(l.ch) && l.ch != '0':
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.newToken(token.NTH_REF, l.input[start:l.position])
	case l.ch == '&' || l.ch == '`' || l.ch == '\'' || l.ch == '+':
		l.readChar()
		return l.newToken(token.BACK_REF, l.input[start:l.position])
	case l.ch == '-' && isIdentChar(l.peekChar()):
		l.readChar()
		l.readChar()
		return l.newToken(token.GVAR, l.input[start:l.position])
	case isPunctuation(l.ch):
		l.readChar()
		return l.newToken(token.GVAR, l.input[start:l.position])
	case isIdentStart(l.ch):
		for isIdentChar(l.ch) {
			l.readChar()
		}
		return l.newToken(token.GVAR, l.input[start:l.position])
	}
	return l.fail(false, "'$' without identifiers is not allowed as a global variable name")
}

func (l *Lexer) lexLessThan() token.Token {
	switch l.peekChar() {
	case '=':
		if l.peekCharN(2) == '>' {
			return l.op(token.LESS_EQUAL_GREATER, "<=>")
		}
		return l.op(token.LESS_EQUAL, "<=")
	case '<':
		if l.peekCharN(2) == '=' {
			return l.op(token.LESS_LESS_EQUAL, "<<=")
		}
		if l.isHeredocStart() {
			l.readChar()
			l.readChar()
			return l.lexHeredocMarker()
		}
		return l.op(token.LESS_LESS, "<<")
	}
	return l.op(token.LESS, "<")
}

// isHeredocStart decides between a heredoc marker and the shift operator. "<<"
// followed by whitespace is always a shift; so is "<<" in operator position.
func (l *Lexer) isHeredocStart() bool {
	next := l.peekCharN(2)
	if next == 0 || isSpace(next) {
		return false
	}
	if l.lastType == token.KEYWORD_CLASS {
		return false
	}
	if l.state != stateBeg && !(l.state == stateArg && l.spaceBefore) {
		return false
	}
	if next == '-' {
		next = l.peekCharN(3)
	}
	return next == '"' || next == '\'' || isIdentChar(next)
}

func (l *Lexer) lexColon() token.Token {
	next := l.peekChar()
	if next == ':' {
		if l.state == stateBeg || (l.state == stateArg && l.spaceBefore && !isSpace(l.peekCharN(2))) {
			return l.op(token.UCOLON_COLON, "::")
		}
		return l.op(token.COLON_COLON, "::")
	}
	if next == 0 || isSpace(next) || l.state == stateEnd && !l.spaceBefore {
		return l.op(token.COLON, ":")
	}
	switch next {
	case '"':
		l.readChar()
		l.readChar()
		return l.lexQuoted(token.SYMBOL, literal{close: '"', mode: quoteFull, interpolate: true})
	case '\'':
		l.readChar()
		l.readChar()
		return l.lexQuoted(token.SYMBOL, literal{close: '\'', mode: quoteRaw})
	}
	if name, ok := l.symbolName(); ok {
		return l.newToken(token.SYMBOL, name)
	}
	return l.op(token.COLON, ":")
}

// symbolName reads the name of a :symbol when one starts after the colon.
func (l *Lexer) symbolName() (string, bool) {
	rest := l.input[l.readPosition:]
	n := 0
	switch {
	case isIdentStart(rest[0]):
		for n < len(rest) && isIdentChar(rest[n]) {
			n++
		}
		if n < len(rest) && (rest[n] == '?' || rest[n] == '!') && (n+1 >= len(rest) || rest[n+1] != '=') {
			n++
		} else if n < len(rest) && rest[n] == '=' && (n+1 >= len(rest) || !strings.ContainsRune("=~>", rune(rest[n+1]))) {
			n++
		}
	case rest[0] == '@' || rest[0] == '$':
		n = 1
		if rest[0] == '@' && len(rest) > 1 && rest[1] == '@' {
			n = 2
		}
		if n >= len(rest) || !isIdentStart(rest[n]) {
			return "", false
		}
		for n < len(rest) && isIdentChar(rest[n]) {
			n++
		}
	default:
		for _, op := range operatorSymbols {
			if strings.HasPrefix(rest, op) {
				n = len(op)
				break
			}
		}
		if n == 0 {
			return "", false
		}
	}
	l.readChar() // consume ':'
	name := rest[:n]
	for i := 0; i < n; i++ {
		l.readChar()
	}
	return name, true
}

// operatorSymbols lists operator method names, longest first.
var operatorSymbols = []string{
	"[]=", "===", "<=>", "[]", "==", "=~", "!=", "!~", "<=", ">=", "<<", ">>", "**",
	"+@", "-@", "+", "-", "*", "/", "%", "<", ">", "!", "&", "|", "^", "~",
}

func (l *Lexer) shouldLexCharLiteral() bool {
	if l.state == stateEnd || (l.state == stateArg && !l.spaceBefore) {
		return false
	}
	next := l.peekChar()
	if next == 0 || isSpace(next) {
		return false
	}
	if next == '\\' {
		return true
	}
	return !isIdentChar(l.peekCharN(2))
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch >= 0x80
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isOctalDigit(ch byte) bool {
	return ch >= '0' && ch <= '7'
}

func isBinaryDigit(ch byte) bool {
	return ch == '0' || ch == '1'
}

func isPunctuation(ch byte) bool {
	return ch == ':' || ch == ';' || ch == '/' || ch == '\\' || ch == '!' ||
		ch == '?' || ch == '"' || ch == '<' || ch == '>' ||
		ch == '.' || ch == ',' || ch == '=' || ch == '~' || ch == '*' ||
		ch == '$' || ch == '@' || ch == '0'
}
