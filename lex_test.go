package mathparse

import (
	"regexp"
	"testing"
)

// scanAll scans src to the end, returning the tokens before the end of input
// and the first error. The token that failed is included.
func scanAll(src string) ([]lexToken, error) {
	p := newParser(src, parsectx{nums: DefaultNumberConfig})
	var toks []lexToken
	for {
		if err := p.scan(); err != nil {
			return append(toks, p.tok), err
		}
		if p.tok.text == "" {
			return toks, nil
		}
		toks = append(toks, p.tok)
	}
}

func del(s string) lexToken { return lexToken{text: s, kind: tokenDelimiter} }
func num(s string) lexToken { return lexToken{text: s, kind: tokenNumber} }
func sym(s string) lexToken { return lexToken{text: s, kind: tokenSymbol} }

func TestLex(t *testing.T) {
	cases := []struct {
		src    string
		tokens []lexToken
		err    string
	}{
		// spaces
		{"", nil, ""},
		{" \t  ", nil, ""},
		// numbers
		{"0", []lexToken{num("0")}, ""},
		{"9876543210", []lexToken{num("9876543210")}, ""},
		{"1 0", []lexToken{num("1"), num("0")}, ""},
		{"1.5", []lexToken{num("1.5")}, ""},
		{".5", []lexToken{num(".5")}, ""},
		{"1.", []lexToken{num("1.")}, ""},
		{"1.2.3", []lexToken{num("1.2"), num(".3")}, ""},
		{"1e3", []lexToken{num("1e3")}, ""},
		{"2.5e-3", []lexToken{num("2.5e-3")}, ""},
		{"1E+2", []lexToken{num("1E+2")}, ""},
		{"2e", []lexToken{num("2"), sym("e")}, ""},
		{"2ex", []lexToken{num("2"), sym("ex")}, ""},
		{"1e+", []lexToken{num("1e+")}, `Digit expected, got ""`},
		{"1ex", []lexToken{num("1"), sym("ex")}, ""},
		{"1e.", []lexToken{num("1e")}, `Digit expected, got "."`},
		{"1e5.5", []lexToken{num("1e5")}, `Digit expected, got "."`},
		{"0x1Ai8", []lexToken{num("0x1Ai8")}, ""},
		{"0b101", []lexToken{num("0b101")}, ""},
		{"0o17.4", []lexToken{num("0o17.4")}, ""},
		{"0b2", []lexToken{num("0b2")}, ""},
		{"2.*3", []lexToken{num("2"), del(".*"), num("3")}, ""},
		{".", []lexToken{del(".")}, ""},
		// identifiers
		{"x", []lexToken{sym("x")}, ""},
		{"x1_y", []lexToken{sym("x1_y")}, ""},
		{"$a", []lexToken{sym("$a")}, ""},
		{"π", []lexToken{sym("π")}, ""},
		{"αβγ", []lexToken{sym("αβγ")}, ""},
		{"ℝ", []lexToken{sym("ℝ")}, ""},
		{"𝐱𝐲", []lexToken{sym("𝐱𝐲")}, ""},
		{"model", []lexToken{sym("model")}, ""},
		{"a.b", []lexToken{sym("a"), del("."), sym("b")}, ""},
		// named operators
		{"x mod y", []lexToken{sym("x"), del("mod"), sym("y")}, ""},
		{"not to in and xor or", []lexToken{del("not"), del("to"), del("in"), del("and"), del("xor"), del("or")}, ""},
		// operators
		{"a>>>b", []lexToken{sym("a"), del(">>>"), sym("b")}, ""},
		{"a<<=b", []lexToken{sym("a"), del("<<"), del("="), sym("b")}, ""},
		{"a^|b", []lexToken{sym("a"), del("^|"), sym("b")}, ""},
		{"a.^b", []lexToken{sym("a"), del(".^"), sym("b")}, ""},
		{"a==b!=c", []lexToken{sym("a"), del("=="), sym("b"), del("!="), sym("c")}, ""},
		{"a'", []lexToken{sym("a"), del("'")}, ""},
		{"([{}])", []lexToken{del("("), del("["), del("{"), del("}"), del("]"), del(")")}, ""},
		// statements
		{"a\nb", []lexToken{sym("a"), del("\n"), sym("b")}, ""},
		{"a;b", []lexToken{sym("a"), del(";"), sym("b")}, ""},
		// The newline that ends a comment still ends the statement at depth 0,
		// so a commented line does not run into the next one.
		{"a # note\nb", []lexToken{sym("a"), del("\n"), sym("b")}, ""},
		{"a = 1 # note\nb", []lexToken{sym("a"), del("="), num("1"), del("\n"), sym("b")}, ""},
		{"# only", nil, ""},
		// unknown characters
		{"@", []lexToken{{text: "@", kind: tokenUnknown}}, `Syntax error in part "@"`},
		{"a @b", []lexToken{sym("a"), {text: "@b", kind: tokenUnknown}}, `Syntax error in part "@b"`},
		{"\U0001D455", []lexToken{{text: "\U0001D455", kind: tokenUnknown}}, `Syntax error in part`},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, err := scanAll(c.src)
			if len(toks) != len(c.tokens) {
				t.Fatalf("wrong tokens: want %v, got %v", c.tokens, toks)
			}
			for i, tok := range toks {
				if tok != c.tokens[i] {
					t.Errorf("token %d: want %v, got %v", i, c.tokens[i], tok)
				}
			}
			switch {
			case c.err == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case c.err != "" && err == nil:
				t.Errorf("no error, want %q", c.err)
			case c.err != "" && !regexp.MustCompile(regexp.QuoteMeta(c.err)).MatchString(err.Error()):
				t.Errorf("wrong error: want %q, got %q", c.err, err)
			}
		})
	}
}

func TestLexComments(t *testing.T) {
	p := newParser("# one\n# two\nx", parsectx{nums: DefaultNumberConfig})
	want := []struct {
		tok     lexToken
		comment string
	}{
		{del("\n"), "# one"},
		{del("\n"), "# two"},
		{sym("x"), ""},
		{del(""), ""},
	}
	for i, w := range want {
		if err := p.scan(); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		if p.tok != w.tok || p.comment != w.comment {
			t.Errorf("scan %d: want %v with comment %q, got %v with %q", i, w.tok, w.comment, p.tok, p.comment)
		}
	}
}

func TestLexCommentsInBrackets(t *testing.T) {
	// Inside brackets, newlines are whitespace, and only the last comment
	// before a token is kept.
	p := newParser("# one\n# two\nx", parsectx{nums: DefaultNumberConfig})
	p.depth = 1
	if err := p.scan(); err != nil {
		t.Fatal(err)
	}
	if p.tok != sym("x") {
		t.Errorf("want %v, got %v", sym("x"), p.tok)
	}
	if p.comment != "# two" {
		t.Errorf("want comment %q, got %q", "# two", p.comment)
	}
}

func TestLexColumns(t *testing.T) {
	p := newParser("ab + π·", parsectx{nums: DefaultNumberConfig})
	cols := []int{1, 4, 6}
	for i, want := range cols {
		if err := p.scan(); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		if got := p.col(); got != want {
			t.Errorf("token %v: want column %d, got %d", p.tok, want, got)
		}
	}
	if err := p.scan(); err == nil {
		t.Fatalf("no error scanning %q", "·")
	}
	if got := p.col(); got != 7 {
		t.Errorf("unknown token %v: want column 7, got %d", p.tok, got)
	}
}
