package lexer

import (
	"testing"

	"github.com/dr8co/mathvm/token"
)

func TestNextToken(t *testing.T) {
	input := `function int add(int a, int b) {
	return a + b;
}
double x;
x = 1;
x += 0.5;
print('ok', '\n');
if (n > 0 && n < 100) { } else { }
for (i in 0..3) { i += 1; }
// a comment
i -= 1;
`

	tests := []struct {
		expectedKind    token.Kind
		expectedLiteral string
	}{
		{token.FUNCTION, "function"},
		{token.INT_TYPE, "int"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.INT_TYPE, "int"},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.INT_TYPE, "int"},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "a"},
		{token.TAdd, "+"},
		{token.IDENT, "b"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.DOUBLE_TYPE, "double"},
		{token.IDENT, "x"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.TAssign, "="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.TIncrSet, "+="},
		{token.DOUBLE, "0.5"},
		{token.SEMICOLON, ";"},
		{token.PRINT, "print"},
		{token.LPAREN, "("},
		{token.STRING, "ok"},
		{token.COMMA, ","},
		{token.STRING, "\n"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "n"},
		{token.TGt, ">"},
		{token.INT, "0"},
		{token.TAnd, "&&"},
		{token.IDENT, "n"},
		{token.TLt, "<"},
		{token.INT, "100"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
		{token.FOR, "for"},
		{token.LPAREN, "("},
		{token.IDENT, "i"},
		{token.IN, "in"},
		{token.INT, "0"},
		{token.RANGE, ".."},
		{token.INT, "3"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "i"},
		{token.TIncrSet, "+="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.IDENT, "i"},
		{token.TDecrSet, "-="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Kind != tt.expectedKind {
			t.Fatalf("tests[%d] - wrong kind. expected=%q, got=%q (literal %q)",
				i, tt.expectedKind, tok.Kind, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextTokenPositions(t *testing.T) {
	l := New("a\nbb")
	first := l.NextToken()
	if first.Line != 1 || first.Column != 1 {
		t.Fatalf("expected first token at 1:1, got %d:%d", first.Line, first.Column)
	}
	second := l.NextToken()
	if second.Line != 2 {
		t.Fatalf("expected second token on line 2, got line %d", second.Line)
	}
}
