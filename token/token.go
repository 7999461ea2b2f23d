// Package token defines lexer token types and utilities.
package token

import "fmt"

// Type represents the type of a token.
type Type int

const (
	// Special tokens
	ILLEGAL Type = iota
	EOF
	NEWLINE

	// Identifiers and literals
	IDENT       // foo, bar
	CONSTANT    // Foo, BAR
	IVAR        // @foo
	CVAR        // @@foo
	GVAR        // $foo
	NTH_REF     // $1, $2, etc.
	BACK_REF    // $&, $`, $', $+
	LABEL       // foo:
	METHOD_NAME // foo?, foo!, and foo= in def/dot position
	INTEGER     // 42, 0x2A, 0o52, 0b101010, 1_000
	FLOAT       // 3.14, 1.0e10
	STRING      // '..', "..", %q(..), %Q(..), ?c
	SYMBOL      // :foo, :"foo", %s(..)
	REGEXP      // /../flags, %r{..}
	WORDS       // %w[..], %W[..]
	SYMBOLS     // %i[..], %I[..]
	HEREDOC     // <<ID, <<-ID, <<"ID", <<'ID'

	// Keywords
	keyword_beg
	KEYWORD___FILE__
	KEYWORD___LINE__
	KEYWORD_ALIAS
	KEYWORD_AND
	KEYWORD_BEGIN
	KEYWORD_BREAK
	KEYWORD_CASE
	KEYWORD_CLASS
	KEYWORD_DEF
	KEYWORD_DEFINED
	KEYWORD_DO
	KEYWORD_ELSE
	KEYWORD_ELSIF
	KEYWORD_END
	KEYWORD_ENSURE
	KEYWORD_FALSE
	KEYWORD_FOR
	KEYWORD_IF
	KEYWORD_IN
	KEYWORD_MODULE
	KEYWORD_NEXT
	KEYWORD_NIL
	KEYWORD_NOT
	KEYWORD_OR
	KEYWORD_REDO
	KEYWORD_RESCUE
	KEYWORD_RETRY
	KEYWORD_RETURN
	KEYWORD_SELF
	KEYWORD_SUPER
	KEYWORD_THEN
	KEYWORD_TRUE
	KEYWORD_UNDEF
	KEYWORD_UNLESS
	KEYWORD_UNTIL
	KEYWORD_WHEN
	KEYWORD_WHILE
	KEYWORD_YIELD
	keyword_end

	// Operators
	AMPERSAND                 // &
	AMPERSAND_AMPERSAND       // &&
	AMPERSAND_AMPERSAND_EQUAL // &&=
	AMPERSAND_DOT             // &.
	AMPERSAND_EQUAL           // &=
	BANG                      // !
	BANG_EQUAL                // !=
	BANG_TILDE                // !~
	CARET                     // ^
	CARET_EQUAL               // ^=
	COLON                     // :
	COLON_COLON               // ::
	COMMA                     // ,
	DOT                       // .
	DOT_DOT                   // ..
	DOT_DOT_DOT               // ...
	EQUAL                     // =
	EQUAL_EQUAL               // ==
	EQUAL_EQUAL_EQUAL         // ===
	EQUAL_GREATER             // =>
	EQUAL_TILDE               // =~
	GREATER                   // >
	GREATER_EQUAL             // >=
	GREATER_GREATER           // >>
	GREATER_GREATER_EQUAL     // >>=
	LESS                      // <
	LESS_EQUAL                // <=
	LESS_EQUAL_GREATER        // <=>
	LESS_LESS                 // <<
	LESS_LESS_EQUAL           // <<=
	MINUS                     // -
	MINUS_EQUAL               // -=
	MINUS_GREATER             // ->
	PERCENT                   // %
	PERCENT_EQUAL             // %=
	PIPE                      // |
	PIPE_EQUAL                // |=
	PIPE_PIPE                 // ||
	PIPE_PIPE_EQUAL           // ||=
	PLUS                      // +
	PLUS_EQUAL                // +=
	QUESTION                  // ?
	SEMICOLON                 // ;
	SLASH                     // /
	SLASH_EQUAL               // /=
	STAR                      // *
	STAR_EQUAL                // *=
	STAR_STAR                 // **
	STAR_STAR_EQUAL           // **=
	TILDE                     // ~

	// Unary operators (prefix)
	UPLUS        // unary +
	UMINUS       // unary -
	USTAR        // unary * (splat)
	USTAR_STAR   // unary ** (double splat)
	UAMPERSAND   // unary & (block argument)
	UCOLON_COLON // :: at expression beginning

	// Brackets and delimiters
	LPAREN                   // ( directly after a method name
	LPAREN_ARG               // ( starting a command argument
	LPAREN_BEG               // ( at expression beginning
	RPAREN                   // )
	LBRACKET                 // [ index
	LBRACKET_ARRAY           // [ for array literal
	RBRACKET                 // ]
	LBRACE                   // {
	RBRACE                   // }
	BRACKET_LEFT_RIGHT       // [] as a method name
	BRACKET_LEFT_RIGHT_EQUAL // []= as a method name
)

// Position is a location in source text.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Part is one segment of an interpolating literal: literal text, or the tokens of an
// embedded expression scanned by a sub-lexer.
type Part struct {
	Text   string
	Code   bool
	Tokens []Token
	Line   int
	Column int
}

// Heredoc is the body of a here document. The HEREDOC token is emitted when the
// marker is seen; Parts are filled in once the lexer reaches the end of that line.
type Heredoc struct {
	ID     string
	Raw    bool // <<'ID': no escapes, no interpolation
	Indent bool // <<-ID: the terminator may be indented
	Parts  []Part
	Done   bool
}

// Token represents a lexical token with its type, literal value, and position.
type Token struct {
	Type    Type
	Literal string
	Line    int
	Column  int
	Offset  int
	End     int

	// SpaceBefore reports whitespace between this token and the previous one.
	SpaceBefore bool

	Parts   []Part   // interpolated STRING, SYMBOL, REGEXP
	Heredoc *Heredoc // HEREDOC
	Words   []string // WORDS, SYMBOLS
	Flags   string   // REGEXP options
}

// Pos returns the token's start position.
func (t Token) Pos() Position {
	return Position{Line: t.Line, Column: t.Column, Offset: t.Offset}
}

// Interpolated reports whether the literal carries embedded expressions.
func (t Token) Interpolated() bool {
	for _, p := range t.Parts {
		if p.Code {
			return true
		}
	}
	return false
}

var tokenNames = map[Type]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	NEWLINE: "NEWLINE",

	IDENT:       "IDENT",
	CONSTANT:    "CONSTANT",
	IVAR:        "IVAR",
	CVAR:        "CVAR",
	GVAR:        "GVAR",
	NTH_REF:     "NTH_REF",
	BACK_REF:    "BACK_REF",
	LABEL:       "LABEL",
	METHOD_NAME: "METHOD_NAME",
	INTEGER:     "INTEGER",
	FLOAT:       "FLOAT",
	STRING:      "STRING",
	SYMBOL:      "SYMBOL",
	REGEXP:      "REGEXP",
	WORDS:       "WORDS",
	SYMBOLS:     "SYMBOLS",
	HEREDOC:     "HEREDOC",

	KEYWORD___FILE__: "__FILE__",
	KEYWORD___LINE__: "__LINE__",
	KEYWORD_ALIAS:    "alias",
	KEYWORD_AND:      "and",
	KEYWORD_BEGIN:    "begin",
	KEYWORD_BREAK:    "break",
	KEYWORD_CASE:     "case",
	KEYWORD_CLASS:    "class",
	KEYWORD_DEF:      "def",
	KEYWORD_DEFINED:  "defined?",
	KEYWORD_DO:       "do",
	KEYWORD_ELSE:     "else",
	KEYWORD_ELSIF:    "elsif",
	KEYWORD_END:      "end",
	KEYWORD_ENSURE:   "ensure",
	KEYWORD_FALSE:    "false",
	KEYWORD_FOR:      "for",
	KEYWORD_IF:       "if",
	KEYWORD_IN:       "in",
	KEYWORD_MODULE:   "module",
	KEYWORD_NEXT:     "next",
	KEYWORD_NIL:      "nil",
	KEYWORD_NOT:      "not",
	KEYWORD_OR:       "or",
	KEYWORD_REDO:     "redo",
	KEYWORD_RESCUE:   "rescue",
	KEYWORD_RETRY:    "retry",
	KEYWORD_RETURN:   "return",
	KEYWORD_SELF:     "self",
	KEYWORD_SUPER:    "super",
	KEYWORD_THEN:     "then",
	KEYWORD_TRUE:     "true",
	KEYWORD_UNDEF:    "undef",
	KEYWORD_UNLESS:   "unless",
	KEYWORD_UNTIL:    "until",
	KEYWORD_WHEN:     "when",
	KEYWORD_WHILE:    "while",
	KEYWORD_YIELD:    "yield",

	AMPERSAND:                 "&",
	AMPERSAND_AMPERSAND:       "&&",
	AMPERSAND_AMPERSAND_EQUAL: "&&=",
	AMPERSAND_DOT:             "&.",
	AMPERSAND_EQUAL:           "&=",
	BANG:                      "!",
	BANG_EQUAL:                "!=",
	BANG_TILDE:                "!~",
	CARET:                     "^",
	CARET_EQUAL:               "^=",
	COLON:                     ":",
	COLON_COLON:               "::",
	COMMA:                     ",",
	DOT:                       ".",
	DOT_DOT:                   "..",
	DOT_DOT_DOT:               "...",
	EQUAL:                     "=",
	EQUAL_EQUAL:               "==",
	EQUAL_EQUAL_EQUAL:         "===",
	EQUAL_GREATER:             "=>",
	EQUAL_TILDE:               "=~",
	GREATER:                   ">",
	GREATER_EQUAL:             ">=",
	GREATER_GREATER:           ">>",
	GREATER_GREATER_EQUAL:     ">>=",
	LESS:                      "<",
	LESS_EQUAL:                "<=",
	LESS_EQUAL_GREATER:        "<=>",
	LESS_LESS:                 "<<",
	LESS_LESS_EQUAL:           "<<=",
	MINUS:                     "-",
	MINUS_EQUAL:               "-=",
	MINUS_GREATER:             "->",
	PERCENT:                   "%",
	PERCENT_EQUAL:             "%=",
	PIPE:                      "|",
	PIPE_EQUAL:                "|=",
	PIPE_PIPE:                 "||",
	PIPE_PIPE_EQUAL:           "||=",
	PLUS:                      "+",
	PLUS_EQUAL:                "+=",
	QUESTION:                  "?",
	SEMICOLON:                 ";",
	SLASH:                     "/",
	SLASH_EQUAL:               "/=",
	STAR:                      "*",
	STAR_EQUAL:                "*=",
	STAR_STAR:                 "**",
	STAR_STAR_EQUAL:           "**=",
	TILDE:                     "~",

	UPLUS:        "+@",
	UMINUS:       "-@",
	USTAR:        "*",
	USTAR_STAR:   "**",
	UAMPERSAND:   "&",
	UCOLON_COLON: "::",

	LPAREN:                   "(",
	LPAREN_ARG:               "(",
	LPAREN_BEG:               "(",
	RPAREN:                   ")",
	LBRACKET:                 "[",
	LBRACKET_ARRAY:           "[",
	RBRACKET:                 "]",
	LBRACE:                   "{",
	RBRACE:                   "}",
	BRACKET_LEFT_RIGHT:       "[]",
	BRACKET_LEFT_RIGHT_EQUAL: "[]=",
}

// String returns the string representation of the token type.
func (t Type) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Keywords maps keyword strings to their token types.
var Keywords = map[string]Type{
	"__FILE__": KEYWORD___FILE__,
	"__LINE__": KEYWORD___LINE__,
	"alias":    KEYWORD_ALIAS,
	"and":      KEYWORD_AND,
	"begin":    KEYWORD_BEGIN,
	"break":    KEYWORD_BREAK,
	"case":     KEYWORD_CASE,
	"class":    KEYWORD_CLASS,
	"def":      KEYWORD_DEF,
	"defined?": KEYWORD_DEFINED,
	"do":       KEYWORD_DO,
	"else":     KEYWORD_ELSE,
	"elsif":    KEYWORD_ELSIF,
	"end":      KEYWORD_END,
	"ensure":   KEYWORD_ENSURE,
	"false":    KEYWORD_FALSE,
	"for":      KEYWORD_FOR,
	"if":       KEYWORD_IF,
	"in":       KEYWORD_IN,
	"module":   KEYWORD_MODULE,
	"next":     KEYWORD_NEXT,
	"nil":      KEYWORD_NIL,
	"not":      KEYWORD_NOT,
	"or":       KEYWORD_OR,
	"redo":     KEYWORD_REDO,
	"rescue":   KEYWORD_RESCUE,
	"retry":    KEYWORD_RETRY,
	"return":   KEYWORD_RETURN,
	"self":     KEYWORD_SELF,
	"super":    KEYWORD_SUPER,
	"then":     KEYWORD_THEN,
	"true":     KEYWORD_TRUE,
	"undef":    KEYWORD_UNDEF,
	"unless":   KEYWORD_UNLESS,
	"until":    KEYWORD_UNTIL,
	"when":     KEYWORD_WHEN,
	"while":    KEYWORD_WHILE,
	"yield":    KEYWORD_YIELD,
}

// LookupIdent returns the token type for an identifier (keyword or ident/constant).
func LookupIdent(ident string) Type {
	if tok, ok := Keywords[ident]; ok {
		return tok
	}
	if len(ident) > 0 && ident[0] >= 'A' && ident[0] <= 'Z' {
		return CONSTANT
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func (t Type) IsKeyword() bool {
	return t > keyword_beg && t < keyword_end
}

// IsLiteral returns true if the token type is a literal.
func (t Type) IsLiteral() bool {
	switch t {
	case INTEGER, FLOAT, STRING, SYMBOL, REGEXP, WORDS, SYMBOLS, HEREDOC:
		return true
	}
	return false
}

// IsOperator returns true if the token type is an operator that can be defined as a
// method (def +(other), :<=>, obj.send(:[])).
func (t Type) IsOperator() bool {
	switch t {
	case AMPERSAND, BANG, BANG_EQUAL, BANG_TILDE, CARET,
		EQUAL_EQUAL, EQUAL_EQUAL_EQUAL, EQUAL_TILDE,
		GREATER, GREATER_EQUAL, GREATER_GREATER,
		LESS, LESS_EQUAL, LESS_EQUAL_GREATER, LESS_LESS,
		MINUS, PERCENT, PIPE, PLUS, SLASH, STAR, STAR_STAR, TILDE,
		UPLUS, UMINUS, BRACKET_LEFT_RIGHT, BRACKET_LEFT_RIGHT_EQUAL:
		return true
	}
	return false
}
