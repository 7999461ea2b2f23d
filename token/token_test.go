package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
	}{
		{"def", KEYWORD_DEF},
		{"defined?", KEYWORD_DEFINED},
		{"__FILE__", KEYWORD___FILE__},
		{"foo", IDENT},
		{"_foo", IDENT},
		{"Foo", CONSTANT},
		{"FOO_BAR", CONSTANT},
	}
	for i, tt := range tests {
		if got := LookupIdent(tt.input); got != tt.expected {
			t.Fatalf("test[%d]: LookupIdent(%q) expected %v, got %v", i, tt.input, tt.expected, got)
		}
	}
}

func TestTypeClassification(t *testing.T) {
	if !KEYWORD_YIELD.IsKeyword() || IDENT.IsKeyword() || PLUS.IsKeyword() {
		t.Fatalf("IsKeyword mismatch")
	}
	if !HEREDOC.IsLiteral() || CONSTANT.IsLiteral() {
		t.Fatalf("IsLiteral mismatch")
	}
	if !LESS_EQUAL_GREATER.IsOperator() || !BRACKET_LEFT_RIGHT_EQUAL.IsOperator() || COMMA.IsOperator() || AMPERSAND_AMPERSAND.IsOperator() {
		t.Fatalf("IsOperator mismatch")
	}
}

func TestTypeString(t *testing.T) {
	if KEYWORD_DEF.String() != "def" || LPAREN_BEG.String() != "(" || Type(-1).String() != "UNKNOWN" {
		t.Fatalf("unexpected names: %s %s %s", KEYWORD_DEF, LPAREN_BEG, Type(-1))
	}
}

func TestInterpolated(t *testing.T) {
	plain := Token{Type: STRING, Parts: []Part{{Text: "a"}}}
	if plain.Interpolated() {
		t.Fatalf("text-only parts reported as interpolated")
	}
	tok := Token{Type: STRING, Parts: []Part{{Text: "a"}, {Code: true}}}
	if !tok.Interpolated() {
		t.Fatalf("embedded code not reported")
	}
	if got := (Token{Line: 3, Column: 4}).Pos().String(); got != "3:4" {
		t.Fatalf("unexpected position %q", got)
	}
}
