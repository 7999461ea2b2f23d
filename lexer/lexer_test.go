package lexer

import (
	"testing"

	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/token"
)

type expectedToken struct {
	expectedType    token.Type
	expectedLiteral string
}

func checkTokens(t *testing.T, l *Lexer, tests []expectedToken) {
	t.Helper()
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("test[%d]: expected type %v, got %v (literal=%q, err=%v)", i, tt.expectedType, tok.Type, tok.Literal, l.Err())
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("test[%d]: expected literal %q, got %q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken_Empty(t *testing.T) {
	l := New("   \t  ")
	tok := l.NextToken()
	if tok.Type != token.EOF {
		t.Fatalf("expected EOF after whitespace, got %v", tok.Type)
	}
}

func TestNextToken_Identifiers(t *testing.T) {
	checkTokens(t, New(`foo bar_baz _private foo? foo! foo123 Foo`), []expectedToken{
		{token.IDENT, "foo"},
		{token.IDENT, "bar_baz"},
		{token.IDENT, "_private"},
		{token.METHOD_NAME, "foo?"},
		{token.METHOD_NAME, "foo!"},
		{token.IDENT, "foo123"},
		{token.CONSTANT, "Foo"},
		{token.EOF, ""},
	})
}

func TestNextToken_Keywords(t *testing.T) {
	checkTokens(t, New("if x then y else z end\nwhile nil do self end"), []expectedToken{
		{token.KEYWORD_IF, "if"},
		{token.IDENT, "x"},
		{token.KEYWORD_THEN, "then"},
		{token.IDENT, "y"},
		{token.KEYWORD_ELSE, "else"},
		{token.IDENT, "z"},
		{token.KEYWORD_END, "end"},
		{token.NEWLINE, "\n"},
		{token.KEYWORD_WHILE, "while"},
		{token.KEYWORD_NIL, "nil"},
		{token.KEYWORD_DO, "do"},
		{token.KEYWORD_SELF, "self"},
		{token.KEYWORD_END, "end"},
		{token.EOF, ""},
	})
}

func TestNextToken_Variables(t *testing.T) {
	checkTokens(t, New(`@foo @@bar $stdout $0 $1 $& $!`), []expectedToken{
		{token.IVAR, "@foo"},
		{token.CVAR, "@@bar"},
		{token.GVAR, "$stdout"},
		{token.GVAR, "$0"},
		{token.NTH_REF, "$1"},
		{token.BACK_REF, "$&"},
		{token.GVAR, "$!"},
		{token.EOF, ""},
	})
}

func TestNextToken_Numbers(t *testing.T) {
	checkTokens(t, New(`42 1_000 0x2A 0b101 0o17 017 0d99 3.14 1e3 2.5e-2 1..2`), []expectedToken{
		{token.INTEGER, "42"},
		{token.INTEGER, "1000"},
		{token.INTEGER, "0x2A"},
		{token.INTEGER, "0b101"},
		{token.INTEGER, "0o17"},
		{token.INTEGER, "0o17"},
		{token.INTEGER, "99"},
		{token.FLOAT, "3.14"},
		{token.FLOAT, "1e3"},
		{token.FLOAT, "2.5e-2"},
		{token.INTEGER, "1"},
		{token.DOT_DOT, ".."},
		{token.INTEGER, "2"},
		{token.EOF, ""},
	})
}

func TestNextToken_BadNumbers(t *testing.T) {
	for _, input := range []string{"1_", "1__0", "0x", "08"} {
		l := New(input)
		if tok := l.NextToken(); tok.Type != token.ILLEGAL {
			t.Fatalf("%q: expected ILLEGAL, got %v %q", input, tok.Type, tok.Literal)
		}
		if !diag.IsKind(l.Err(), diag.SyntaxError) {
			t.Fatalf("%q: expected SyntaxError, got %v", input, l.Err())
		}
	}
}

func TestNextToken_UnaryMinusDependsOnLocals(t *testing.T) {
	checkTokens(t, New("x -1"), []expectedToken{
		{token.IDENT, "x"},
		{token.INTEGER, "-1"},
		{token.EOF, ""},
	})

	tbl := symtab.New()
	tbl.Define("x", symtab.Local)
	checkTokens(t, New("x -1", WithScope(tbl)), []expectedToken{
		{token.IDENT, "x"},
		{token.MINUS, "-"},
		{token.INTEGER, "1"},
		{token.EOF, ""},
	})

	checkTokens(t, New("x - 1\nfoo(-y)"), []expectedToken{
		{token.IDENT, "x"},
		{token.MINUS, "-"},
		{token.INTEGER, "1"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "foo"},
		{token.LPAREN, "("},
		{token.UMINUS, "-"},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	})
}

func TestNextToken_Operators(t *testing.T) {
	checkTokens(t, New("a += b ** c <=> d === e &&= f&.g != h !~ i ... j"), []expectedToken{
		{token.IDENT, "a"},
		{token.PLUS_EQUAL, "+="},
		{token.IDENT, "b"},
		{token.STAR_STAR, "**"},
		{token.IDENT, "c"},
		{token.LESS_EQUAL_GREATER, "<=>"},
		{token.IDENT, "d"},
		{token.EQUAL_EQUAL_EQUAL, "==="},
		{token.IDENT, "e"},
		{token.AMPERSAND_AMPERSAND_EQUAL, "&&="},
		{token.IDENT, "f"},
		{token.AMPERSAND_DOT, "&."},
		{token.IDENT, "g"},
		{token.BANG_EQUAL, "!="},
		{token.IDENT, "h"},
		{token.BANG_TILDE, "!~"},
		{token.IDENT, "i"},
		{token.DOT_DOT_DOT, "..."},
		{token.IDENT, "j"},
		{token.EOF, ""},
	})
}

func TestNextToken_Splats(t *testing.T) {
	checkTokens(t, New("foo *a, **b, &c\nx * y"), []expectedToken{
		{token.IDENT, "foo"},
		{token.USTAR, "*"},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.USTAR_STAR, "**"},
		{token.IDENT, "b"},
		{token.COMMA, ","},
		{token.UAMPERSAND, "&"},
		{token.IDENT, "c"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "x"},
		{token.STAR, "*"},
		{token.IDENT, "y"},
		{token.EOF, ""},
	})
}

func TestNextToken_Parens(t *testing.T) {
	checkTokens(t, New("foo(1)\nfoo (1)\nx = (1)"), []expectedToken{
		{token.IDENT, "foo"},
		{token.LPAREN, "("},
		{token.INTEGER, "1"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "foo"},
		{token.LPAREN_ARG, "("},
		{token.INTEGER, "1"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "x"},
		{token.EQUAL, "="},
		{token.LPAREN_BEG, "("},
		{token.INTEGER, "1"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	})
}

func TestNextToken_Brackets(t *testing.T) {
	checkTokens(t, New("[1][0]\nfoo [1]\ndef [](i)"), []expectedToken{
		{token.LBRACKET_ARRAY, "["},
		{token.INTEGER, "1"},
		{token.RBRACKET, "]"},
		{token.LBRACKET, "["},
		{token.INTEGER, "0"},
		{token.RBRACKET, "]"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "foo"},
		{token.LBRACKET_ARRAY, "["},
		{token.INTEGER, "1"},
		{token.RBRACKET, "]"},
		{token.NEWLINE, "\n"},
		{token.KEYWORD_DEF, "def"},
		{token.BRACKET_LEFT_RIGHT, "[]"},
		{token.LPAREN, "("},
		{token.IDENT, "i"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	})
}

func TestNextToken_MethodDefinitions(t *testing.T) {
	checkTokens(t, New("def +(o)\ndef -@\ndef self.name=(v)\ndef end?"), []expectedToken{
		{token.KEYWORD_DEF, "def"},
		{token.PLUS, "+"},
		{token.LPAREN, "("},
		{token.IDENT, "o"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.KEYWORD_DEF, "def"},
		{token.UMINUS, "-@"},
		{token.NEWLINE, "\n"},
		{token.KEYWORD_DEF, "def"},
		{token.KEYWORD_SELF, "self"},
		{token.DOT, "."},
		{token.METHOD_NAME, "name="},
		{token.LPAREN, "("},
		{token.IDENT, "v"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.KEYWORD_DEF, "def"},
		{token.METHOD_NAME, "end?"},
		{token.EOF, ""},
	})
}

func TestNextToken_OperatorMethodCalls(t *testing.T) {
	checkTokens(t, New("1.+(2)\nx.<=> y\na&.-(1)"), []expectedToken{
		{token.INTEGER, "1"},
		{token.DOT, "."},
		{token.PLUS, "+"},
		{token.LPAREN, "("},
		{token.INTEGER, "2"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "x"},
		{token.DOT, "."},
		{token.LESS_EQUAL_GREATER, "<=>"},
		{token.IDENT, "y"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "a"},
		{token.AMPERSAND_DOT, "&."},
		{token.MINUS, "-"},
		{token.LPAREN, "("},
		{token.INTEGER, "1"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	})
}

func TestNextToken_ShiftVersusHeredoc(t *testing.T) {
	checkTokens(t, New("x << y\nclass <<self\n1<<2"), []expectedToken{
		{token.IDENT, "x"},
		{token.LESS_LESS, "<<"},
		{token.IDENT, "y"},
		{token.NEWLINE, "\n"},
		{token.KEYWORD_CLASS, "class"},
		{token.LESS_LESS, "<<"},
		{token.KEYWORD_SELF, "self"},
		{token.NEWLINE, "\n"},
		{token.INTEGER, "1"},
		{token.LESS_LESS, "<<"},
		{token.INTEGER, "2"},
		{token.EOF, ""},
	})
}

func TestNextToken_Strings(t *testing.T) {
	checkTokens(t, New(`'a\'b\\c\n' "a\tb\x41\101é\C-a\M-a\M-\C-a\e" "\u{48 49}"`), []expectedToken{
		{token.STRING, "a'b\\c\\n"},
		{token.STRING, "a\tbAAé\x01\xe1\x81\x1b"},
		{token.STRING, "HI"},
		{token.EOF, ""},
	})
}

func TestNextToken_CharLiteral(t *testing.T) {
	checkTokens(t, New(`?a + ?\n`), []expectedToken{
		{token.STRING, "a"},
		{token.PLUS, "+"},
		{token.STRING, "\n"},
		{token.EOF, ""},
	})
}

func TestNextToken_Ternary(t *testing.T) {
	checkTokens(t, New("a ? b : c"), []expectedToken{
		{token.IDENT, "a"},
		{token.QUESTION, "?"},
		{token.IDENT, "b"},
		{token.COLON, ":"},
		{token.IDENT, "c"},
		{token.EOF, ""},
	})
}

func TestNextToken_Symbols(t *testing.T) {
	checkTokens(t, New(`:foo :"bar" :+ :[]= :foo? :@x Foo::Bar`), []expectedToken{
		{token.SYMBOL, "foo"},
		{token.SYMBOL, "bar"},
		{token.SYMBOL, "+"},
		{token.SYMBOL, "[]="},
		{token.SYMBOL, "foo?"},
		{token.SYMBOL, "@x"},
		{token.CONSTANT, "Foo"},
		{token.COLON_COLON, "::"},
		{token.CONSTANT, "Bar"},
		{token.EOF, ""},
	})
}

func TestNextToken_Labels(t *testing.T) {
	checkTokens(t, New(`{a: 1, "b" => :c}`), []expectedToken{
		{token.LBRACE, "{"},
		{token.LABEL, "a"},
		{token.INTEGER, "1"},
		{token.COMMA, ","},
		{token.STRING, "b"},
		{token.EQUAL_GREATER, "=>"},
		{token.SYMBOL, "c"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	})
}

func TestNextToken_PercentLiterals(t *testing.T) {
	l := New(`[%q(a(b)c), %Q{x{y}z}, %w[x y\ z (w)], %i(a b), %s(sym)]`)
	checkTokens(t, l, []expectedToken{
		{token.LBRACKET_ARRAY, "["},
		{token.STRING, "a(b)c"},
		{token.COMMA, ","},
		{token.STRING, "x{y}z"},
		{token.COMMA, ","},
	})
	words := l.NextToken()
	if words.Type != token.WORDS || len(words.Words) != 3 || words.Words[1] != "y z" || words.Words[2] != "(w)" {
		t.Fatalf("unexpected word list %v %q", words.Type, words.Words)
	}
	checkTokens(t, l, []expectedToken{{token.COMMA, ","}})
	syms := l.NextToken()
	if syms.Type != token.SYMBOLS || len(syms.Words) != 2 || syms.Words[0] != "a" {
		t.Fatalf("unexpected symbol list %v %q", syms.Type, syms.Words)
	}
	checkTokens(t, l, []expectedToken{
		{token.COMMA, ","},
		{token.SYMBOL, "sym"},
		{token.RBRACKET, "]"},
		{token.EOF, ""},
	})
}

func TestNextToken_Regexp(t *testing.T) {
	l := New(`x =~ /a\/b\d/i` + "\n" + `a / 2`)
	checkTokens(t, l, []expectedToken{
		{token.IDENT, "x"},
		{token.EQUAL_TILDE, "=~"},
	})
	re := l.NextToken()
	if re.Type != token.REGEXP || re.Literal != `a/b\d` || re.Flags != "i" {
		t.Fatalf("unexpected regexp %v %q flags=%q", re.Type, re.Literal, re.Flags)
	}
	checkTokens(t, l, []expectedToken{
		{token.NEWLINE, "\n"},
		{token.IDENT, "a"},
		{token.SLASH, "/"},
		{token.INTEGER, "2"},
		{token.EOF, ""},
	})
}

func TestNextToken_Interpolation(t *testing.T) {
	l := New(`"a#{b + "#{c}"}d"`)
	tok := l.NextToken()
	if tok.Type != token.STRING || !tok.Interpolated() {
		t.Fatalf("expected interpolated STRING, got %v (err=%v)", tok.Type, l.Err())
	}
	if len(tok.Parts) != 3 || tok.Parts[0].Text != "a" || tok.Parts[2].Text != "d" {
		t.Fatalf("unexpected parts %+v", tok.Parts)
	}
	code := tok.Parts[1].Tokens
	want := []token.Type{token.IDENT, token.PLUS, token.STRING, token.EOF}
	if len(code) != len(want) {
		t.Fatalf("expected %d embedded tokens, got %d", len(want), len(code))
	}
	for i, typ := range want {
		if code[i].Type != typ {
			t.Fatalf("embedded[%d]: expected %v, got %v", i, typ, code[i].Type)
		}
	}
	if !code[2].Interpolated() || code[2].Parts[0].Tokens[0].Literal != "c" {
		t.Fatalf("nested interpolation lost: %+v", code[2].Parts)
	}
	if next := l.NextToken(); next.Type != token.EOF {
		t.Fatalf("expected EOF after string, got %v", next.Type)
	}
}

func TestNextToken_VariableInterpolation(t *testing.T) {
	tok := New(`"#@a and #$b #c"`).NextToken()
	if len(tok.Parts) != 4 {
		t.Fatalf("expected 4 parts, got %+v", tok.Parts)
	}
	if tok.Parts[0].Tokens[0].Type != token.IVAR || tok.Parts[0].Tokens[0].Literal != "@a" {
		t.Fatalf("unexpected first part %+v", tok.Parts[0])
	}
	if tok.Parts[1].Text != " and " || tok.Parts[3].Text != " #c" {
		t.Fatalf("unexpected text parts %+v", tok.Parts)
	}
	if tok.Parts[2].Tokens[0].Type != token.GVAR {
		t.Fatalf("unexpected gvar part %+v", tok.Parts[2])
	}
}

func TestNextToken_HeredocBodiesAreDeferred(t *testing.T) {
	input := "foo(<<A, <<-'B')\nhello #{name}\nA\n  raw #{x}\n  B\nbar"
	l := New(input)
	checkTokens(t, l, []expectedToken{
		{token.IDENT, "foo"},
		{token.LPAREN, "("},
	})
	first := l.NextToken()
	if first.Type != token.HEREDOC || first.Heredoc.ID != "A" {
		t.Fatalf("expected heredoc A, got %v %q", first.Type, first.Literal)
	}
	if first.Heredoc.Done {
		t.Fatalf("heredoc body read before the end of the marker line")
	}
	checkTokens(t, l, []expectedToken{{token.COMMA, ","}})
	second := l.NextToken()
	if second.Type != token.HEREDOC || !second.Heredoc.Raw || !second.Heredoc.Indent {
		t.Fatalf("expected raw indented heredoc, got %+v", second.Heredoc)
	}
	checkTokens(t, l, []expectedToken{
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
	})
	if !first.Heredoc.Done || !second.Heredoc.Done {
		t.Fatalf("heredoc bodies not read at the end of the line")
	}

	parts := first.Heredoc.Parts
	if len(parts) != 3 || parts[0].Text != "hello " || !parts[1].Code || parts[2].Text != "\n" {
		t.Fatalf("unexpected body of A: %+v", parts)
	}
	if parts[1].Tokens[0].Literal != "name" {
		t.Fatalf("unexpected embedded code %+v", parts[1].Tokens)
	}
	raw := second.Heredoc.Parts
	if len(raw) != 1 || raw[0].Text != "  raw #{x}\n" {
		t.Fatalf("unexpected body of B: %+v", raw)
	}

	checkTokens(t, l, []expectedToken{
		{token.IDENT, "bar"},
		{token.EOF, ""},
	})
}

func TestNextToken_Lambda(t *testing.T) {
	checkTokens(t, New("->(x) { x }\n{ || 1 }"), []expectedToken{
		{token.MINUS_GREATER, "->"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "x"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.LBRACE, "{"},
		{token.PIPE, "|"},
		{token.PIPE, "|"},
		{token.INTEGER, "1"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	})
}

func TestNextToken_CommentsAndDocs(t *testing.T) {
	checkTokens(t, New("a # comment\n=begin\nstuff\n=end\nb \\\n+ c\n__END__\nignored"), []expectedToken{
		{token.IDENT, "a"},
		{token.NEWLINE, "\n"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "b"},
		{token.PLUS, "+"},
		{token.IDENT, "c"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	})
}

func TestNextToken_Position(t *testing.T) {
	l := New("foo\n  bar")
	l.NextToken()
	l.NextToken()
	tok := l.NextToken()
	if tok.Line != 2 || tok.Column != 3 {
		t.Fatalf("expected bar at 2:3, got %d:%d", tok.Line, tok.Column)
	}
	if !tok.SpaceBefore {
		t.Fatalf("expected SpaceBefore on indented token")
	}
}

func TestNextToken_Unterminated(t *testing.T) {
	tests := []string{
		`"abc`,
		`'abc`,
		`"a#{1`,
		"%w(a b",
		"x = <<EOS\nbody\n",
		"=begin\nno end",
		`/abc`,
	}
	for _, input := range tests {
		l := New(input)
		for i := 0; i < 10; i++ {
			tok := l.NextToken()
			if tok.Type == token.ILLEGAL || tok.Type == token.EOF {
				break
			}
		}
		err := l.Err()
		if err == nil {
			t.Fatalf("%q: expected an error", input)
		}
		if !diag.IsKind(err, diag.SyntaxError) || !diag.IsIncomplete(err) {
			t.Fatalf("%q: expected incomplete SyntaxError, got %v", input, err)
		}
	}
}

func TestNextToken_InvalidCharacter(t *testing.T) {
	l := New("a \x01")
	l.NextToken()
	if tok := l.NextToken(); tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %v", tok.Type)
	}
	if diag.IsIncomplete(l.Err()) {
		t.Fatalf("invalid character reported as incomplete input")
	}
}
