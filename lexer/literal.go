package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/token"
)

type quoteMode int

const (
	quoteRaw    quoteMode = iota // only \\ and escaped delimiters
	quoteFull                    // every escape sequence
	quoteRegexp                  // escapes kept for the regexp engine
	quoteNone                    // no escapes at all
)

// literal describes how to scan the body of a quoted literal.
type literal struct {
	open, close byte // open is 0 when the delimiter does not nest
	mode        quoteMode
	interpolate bool
	heredoc     *token.Heredoc // terminate at the heredoc's terminator line instead of close
}

func closingDelimiter(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return open
}

func (l *Lexer) lexQuoted(t token.Type, lit literal) token.Token {
	start := l.position
	parts, ok := l.scanLiteral(lit)
	if !ok {
		if l.err != nil {
			return l.illegal()
		}
		return l.fail(true, "unterminated string meets end of file")
	}
	return l.literalToken(t, parts, start)
}

// literalToken builds a literal token. Plain literals carry their decoded text in
// Literal; interpolated ones carry Parts and the source text.
func (l *Lexer) literalToken(t token.Type, parts []token.Part, start int) token.Token {
	tok := token.Token{Type: t}
	var b strings.Builder
	for _, p := range parts {
		if p.Code {
			tok.Parts = parts
			tok.Literal = l.input[start:l.position]
			return tok
		}
		b.WriteString(p.Text)
	}
	tok.Literal = b.String()
	return tok
}

// scanLiteral reads a literal body up to its closing delimiter, which it consumes.
// It returns false at end of input or on a bad escape (l.err is set for the latter).
func (l *Lexer) scanLiteral(lit literal) ([]token.Part, bool) {
	var parts []token.Part
	var b strings.Builder
	textLine, textColumn := l.line, l.column
	flush := func() {
		if b.Len() > 0 {
			parts = append(parts, token.Part{Text: b.String(), Line: textLine, Column: textColumn})
			b.Reset()
		}
		textLine, textColumn = l.line, l.column
	}

	depth := 0
	atLineStart := lit.heredoc != nil
	for {
		if atLineStart {
			if l.atTerminator(lit.heredoc) {
				flush()
				return parts, true
			}
			atLineStart = false
		}
		if l.atEOF() {
			return nil, false
		}

		c := l.ch
		switch {
		case lit.heredoc == nil && c == lit.close && depth == 0:
			l.readChar()
			flush()
			return parts, true
		case lit.heredoc == nil && lit.open != 0 && c == lit.open:
			depth++
			b.WriteByte(c)
			l.readChar()
		case lit.heredoc == nil && lit.open != 0 && c == lit.close:
			depth--
			b.WriteByte(c)
			l.readChar()
		case c == '\\' && lit.mode != quoteNone:
			l.readChar()
			if l.atEOF() {
				return nil, false
			}
			if !l.scanEscape(&b, lit) {
				return nil, false
			}
			if lit.heredoc != nil && l.input[l.position-1] == '\n' {
				atLineStart = true
			}
		case c == '#' && lit.interpolate && l.peekChar() == '{':
			flush()
			line, column := l.line, l.column
			l.readChar()
			l.readChar()
			toks, ok := l.scanEmbedded()
			if !ok {
				return nil, false
			}
			parts = append(parts, token.Part{Code: true, Tokens: toks, Line: line, Column: column})
			textLine, textColumn = l.line, l.column
		case c == '#' && lit.interpolate && l.isEmbeddedVariable():
			flush()
			line, column := l.line, l.column
			toks := l.scanEmbeddedVariable()
			parts = append(parts, token.Part{Code: true, Tokens: toks, Line: line, Column: column})
			textLine, textColumn = l.line, l.column
		default:
			if b.Len() == 0 {
				textLine, textColumn = l.line, l.column
			}
			b.WriteByte(c)
			l.readChar()
			if c == '\n' && lit.heredoc != nil {
				atLineStart = true
			}
		}
	}
}

// scanEscape handles a backslash sequence in a literal body. l.ch is the
// character after the backslash.
func (l *Lexer) scanEscape(b *strings.Builder, lit literal) bool {
	switch lit.mode {
	case quoteFull:
		return l.readEscape(b)
	case quoteRegexp:
		if l.ch == '/' && lit.close == '/' {
			b.WriteByte('/')
		} else {
			b.WriteByte('\\')
			b.WriteByte(l.ch)
		}
	default:
		if l.ch == '\\' || l.ch == lit.close || (lit.open != 0 && l.ch == lit.open) {
			b.WriteByte(l.ch)
		} else {
			b.WriteByte('\\')
			b.WriteByte(l.ch)
		}
	}
	l.readChar()
	return true
}

// readEscape decodes one escape sequence. l.ch is the character after the
// backslash. It returns false and sets l.err on a malformed sequence.
func (l *Lexer) readEscape(b *strings.Builder) bool {
	if l.atEOF() {
		l.fail(true, "unterminated string meets end of file")
		return false
	}
	c := l.ch
	l.readChar()
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 's':
		b.WriteByte(' ')
	case 'r':
		b.WriteByte('\r')
	case 'e':
		b.WriteByte(0x1b)
	case 'a':
		b.WriteByte(0x07)
	case 'b':
		b.WriteByte(0x08)
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '\n':
		// line continuation
	case '0', '1', '2', '3', '4', '5', '6', '7':
		v := int(c - '0')
		for i := 0; i < 2 && isOctalDigit(l.ch); i++ {
			v = v*8 + int(l.ch-'0')
			l.readChar()
		}
		b.WriteByte(byte(v))
	case 'x':
		v, n := l.readHex(2)
		if n == 0 {
			l.fail(false, "invalid hex escape")
			return false
		}
		b.WriteByte(byte(v))
	case 'u':
		return l.readUnicodeEscape(b)
	case 'C', 'M':
		if l.ch != '-' {
			l.fail(false, "invalid escape character syntax")
			return false
		}
		l.readChar()
		v, ok := l.escapeOperand()
		if !ok {
			return false
		}
		if c == 'M' {
			b.WriteByte(v | 0x80)
		} else {
			b.WriteByte(control(v))
		}
	case 'c':
		v, ok := l.escapeOperand()
		if !ok {
			return false
		}
		b.WriteByte(control(v))
	default:
		b.WriteByte(c)
	}
	return true
}

// escapeOperand reads the character a \C-, \c or \M- sequence applies to. It may
// itself be an escape, so \M-\C-x stacks.
func (l *Lexer) escapeOperand() (byte, bool) {
	if l.atEOF() {
		l.fail(true, "unterminated string meets end of file")
		return 0, false
	}
	if l.ch == '\\' {
		l.readChar()
		var b strings.Builder
		if !l.readEscape(&b) {
			return 0, false
		}
		if b.Len() != 1 {
			l.fail(false, "invalid escape character syntax")
			return 0, false
		}
		return b.String()[0], true
	}
	c := l.ch
	l.readChar()
	return c, true
}

func control(c byte) byte {
	if c == '?' {
		return 0x7f
	}
	return c & 0x9f
}

func (l *Lexer) readHex(max int) (int, int) {
	v, n := 0, 0
	for n < max && isHexDigit(l.ch) {
		v = v*16 + hexValue(l.ch)
		n++
		l.readChar()
	}
	return v, n
}

func hexValue(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	}
	return int(ch-'A') + 10
}

func (l *Lexer) readUnicodeEscape(b *strings.Builder) bool {
	if l.ch != '{' {
		v, n := l.readHex(4)
		if n != 4 {
			l.fail(false, "invalid Unicode escape")
			return false
		}
		b.WriteRune(rune(v))
		return true
	}
	l.readChar()
	for {
		for l.ch == ' ' || l.ch == '\t' {
			l.readChar()
		}
		if l.ch == '}' {
			l.readChar()
			return true
		}
		v, n := l.readHex(6)
		if n == 0 || v > utf8.MaxRune {
			if l.atEOF() {
				l.fail(true, "unterminated Unicode escape")
			} else {
				l.fail(false, "invalid Unicode escape")
			}
			return false
		}
		b.WriteRune(rune(v))
	}
}

// scanEmbedded lexes the expression of a #{...} with a sub-lexer over the same
// input. The sub-lexer stops at the brace that closes the expression.
func (l *Lexer) scanEmbedded() ([]token.Token, bool) {
	sub := &Lexer{cursor: l.cursor, input: l.input, scope: l.scope, embedded: true}
	var toks []token.Token
	for {
		tok := sub.NextToken()
		if tok.Type == token.ILLEGAL {
			l.err = sub.err
			return nil, false
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	l.cursor = sub.cursor
	l.readChar() // '}'
	return toks, true
}

func (l *Lexer) isEmbeddedVariable() bool {
	switch l.peekChar() {
	case '@':
		next := l.peekCharN(2)
		if next == '@' {
			next = l.peekCharN(3)
		}
		return isIdentStart(next)
	case '$':
		return isIdentStart(l.peekCharN(2))
	}
	return false
}

// scanEmbeddedVariable reads the #@ivar, #@@cvar and #$gvar shorthands.
func (l *Lexer) scanEmbeddedVariable() []token.Token {
	l.readChar() // '#'
	line, column, start := l.line, l.column, l.position
	tokType := token.GVAR
	if l.ch == '@' {
		tokType = token.IVAR
		l.readChar()
		if l.ch == '@' {
			tokType = token.CVAR
			l.readChar()
		}
	} else {
		l.readChar()
	}
	for isIdentChar(l.ch) {
		l.readChar()
	}
	tok := token.Token{Type: tokType, Literal: l.input[start:l.position],
		Line: line, Column: column, Offset: start, End: l.position}
	return []token.Token{tok, {Type: token.EOF, Line: l.line, Column: l.column, Offset: l.position, End: l.position}}
}

func (l *Lexer) lexCharLiteral() token.Token {
	l.readChar() // '?'
	var b strings.Builder
	if l.ch == '\\' {
		l.readChar()
		if !l.readEscape(&b) {
			return l.illegal()
		}
	} else {
		_, size := utf8.DecodeRuneInString(l.input[l.position:])
		for i := 0; i < size; i++ {
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
	return l.newToken(token.STRING, b.String())
}

func (l *Lexer) lexRegexp() token.Token {
	l.readChar() // '/'
	return l.lexRegexpBody(literal{close: '/', mode: quoteRegexp, interpolate: true})
}

func (l *Lexer) lexRegexpBody(lit literal) token.Token {
	start := l.position
	parts, ok := l.scanLiteral(lit)
	if !ok {
		if l.err != nil {
			return l.illegal()
		}
		return l.fail(true, "unterminated regexp meets end of file")
	}
	tok := l.literalToken(token.REGEXP, parts, start)
	flags := l.position
	for l.ch != 0 && strings.IndexByte("imxounse", l.ch) >= 0 {
		l.readChar()
	}
	tok.Flags = l.input[flags:l.position]
	return tok
}

func (l *Lexer) isPercentLiteral() bool {
	next := l.peekChar()
	switch next {
	case 'q', 'Q', 'w', 'W', 'i', 'I', 'r', 's':
		d := l.peekCharN(2)
		return d != 0 && !isIdentChar(d) && !isSpace(d)
	}
	return next != 0 && next != '=' && !isIdentChar(next) && !isSpace(next)
}

// lexPercentLiteral reads %q %Q %w %W %i %I %r %s and bare % literals. Bracket
// delimiters nest.
func (l *Lexer) lexPercentLiteral() token.Token {
	l.readChar() // '%'
	kind := byte('Q')
	if isLetter(l.ch) {
		kind = l.ch
		l.readChar()
	}
	open := l.ch
	lit := literal{close: closingDelimiter(open)}
	if lit.close != open {
		lit.open = open
	}
	l.readChar()

	switch kind {
	case 'q':
		lit.mode = quoteRaw
		return l.lexQuoted(token.STRING, lit)
	case 's':
		lit.mode = quoteRaw
		return l.lexQuoted(token.SYMBOL, lit)
	case 'r':
		lit.mode = quoteRegexp
		lit.interpolate = true
		return l.lexRegexpBody(lit)
	case 'w':
		return l.lexWords(token.WORDS, lit, false)
	case 'W':
		return l.lexWords(token.WORDS, lit, true)
	case 'i':
		return l.lexWords(token.SYMBOLS, lit, false)
	case 'I':
		return l.lexWords(token.SYMBOLS, lit, true)
	}
	lit.mode = quoteFull
	lit.interpolate = true
	return l.lexQuoted(token.STRING, lit)
}

// lexWords reads a whitespace separated word list. Escaped whitespace joins words.
func (l *Lexer) lexWords(t token.Type, lit literal, escapes bool) token.Token {
	var words []string
	var b strings.Builder
	inWord := false
	depth := 0
	endWord := func() {
		if inWord {
			words = append(words, b.String())
			b.Reset()
			inWord = false
		}
	}
	for {
		if l.atEOF() {
			return l.fail(true, "unterminated list meets end of file")
		}
		c := l.ch
		switch {
		case c == lit.close && depth == 0:
			l.readChar()
			endWord()
			return token.Token{Type: t, Literal: strings.Join(words, " "), Words: words}
		case isSpace(c):
			endWord()
			l.readChar()
		case c == '\\':
			l.readChar()
			if l.atEOF() {
				return l.fail(true, "unterminated list meets end of file")
			}
			inWord = true
			if escapes {
				if !l.readEscape(&b) {
					return l.illegal()
				}
				continue
			}
			if isSpace(l.ch) || l.ch == '\\' || l.ch == lit.close || (lit.open != 0 && l.ch == lit.open) {
				b.WriteByte(l.ch)
			} else {
				b.WriteByte('\\')
				b.WriteByte(l.ch)
			}
			l.readChar()
		default:
			if lit.open != 0 && c == lit.open {
				depth++
			} else if lit.open != 0 && c == lit.close {
				depth--
			}
			b.WriteByte(c)
			l.readChar()
			inWord = true
		}
	}
}

// lexHeredocMarker reads the <<ID part of a heredoc. The body is read later, when
// the scan reaches the end of the current line.
func (l *Lexer) lexHeredocMarker() token.Token {
	start := l.position - 2
	h := &token.Heredoc{}
	if l.ch == '-' {
		h.Indent = true
		l.readChar()
	}
	switch l.ch {
	case '\'', '"':
		quote := l.ch
		h.Raw = quote == '\''
		l.readChar()
		idStart := l.position
		for l.ch != quote {
			if l.ch == '\n' || l.atEOF() {
				return l.fail(true, "unterminated here document identifier")
			}
			l.readChar()
		}
		h.ID = l.input[idStart:l.position]
		l.readChar()
	default:
		idStart := l.position
		for isIdentChar(l.ch) {
			l.readChar()
		}
		h.ID = l.input[idStart:l.position]
	}
	l.heredocs = append(l.heredocs, h)
	return token.Token{Type: token.HEREDOC, Literal: l.input[start:l.position], Heredoc: h}
}

// readHeredocBodies reads the bodies of the heredocs started on the line just
// ended, in marker order. Scanning resumes after the last terminator.
func (l *Lexer) readHeredocBodies() bool {
	pending := l.heredocs
	l.heredocs = nil
	for _, h := range pending {
		lit := literal{mode: quoteFull, interpolate: true, heredoc: h}
		if h.Raw {
			lit.mode = quoteNone
			lit.interpolate = false
		}
		line := l.line
		parts, ok := l.scanLiteral(lit)
		if !ok {
			if l.err == nil {
				l.err = diag.Incompletef(diag.SyntaxError, line, 1, "can't find string \"%s\" anywhere before EOF", h.ID)
			}
			return false
		}
		h.Parts = parts
		h.Done = true
	}
	return true
}

// atTerminator consumes the current line if it is h's terminator.
func (l *Lexer) atTerminator(h *token.Heredoc) bool {
	if l.atEOF() {
		return false
	}
	rest := l.input[l.position:]
	end := strings.IndexByte(rest, '\n')
	if end < 0 {
		end = len(rest)
	}
	line := strings.TrimSuffix(rest[:end], "\r")
	if h.Indent {
		line = strings.TrimLeft(line, " \t")
	}
	if line != h.ID {
		return false
	}
	for i := 0; i < end; i++ {
		l.readChar()
	}
	if l.ch == '\n' {
		l.readChar()
	}
	return true
}
