package mathparse

import (
	"errors"
	"strconv"
	"unicode/utf8"
)

type lexToken struct {
	text string
	kind tokenKind
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + strconv.Quote(t.text)
}

type tokenKind int8

const (
	// tokenNull is the kind of a token that has not been scanned.
	tokenNull tokenKind = iota
	// tokenDelimiter is an operator, punctuation, named operator, statement
	// separator, or the empty end of input.
	tokenDelimiter
	// tokenNumber is a numeric literal.
	tokenNumber
	// tokenSymbol is a name.
	tokenSymbol
	// tokenUnknown is unrecognized input. Scanning one is an error.
	tokenUnknown
)

func (k tokenKind) String() string {
	switch k {
	case tokenNull:
		return "Null"
	case tokenDelimiter:
		return "Delimiter"
	case tokenNumber:
		return "Number"
	case tokenSymbol:
		return "Symbol"
	case tokenUnknown:
		return "Unknown"
	default:
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// delimiters are the operator and punctuation tokens, one to three runes long.
var delimiters = map[string]bool{
	",": true, "(": true, ")": true, "[": true, "]": true, "{": true, "}": true,
	`"`: true, "'": true, ";": true,

	"+": true, "-": true, "*": true, ".*": true, "/": true, "./": true, "%": true,
	"^": true, ".^": true, "~": true, "!": true, "&": true, "|": true, "^|": true,
	"=": true, ":": true, "?": true,

	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,

	"<<": true, ">>": true, ">>>": true,
}

// namedDelimiters are the operators spelled like identifiers.
var namedDelimiters = map[string]bool{
	"mod": true,
	"to":  true,
	"in":  true,
	"and": true,
	"xor": true,
	"or":  true,
	"not": true,
}

// constants are the reserved names of non-numeric literals.
var constants = map[string]any{
	"true":      true,
	"false":     false,
	"null":      nil,
	"undefined": Undefined,
}

// numericConstants are the reserved names of numeric literals.
var numericConstants = map[string]bool{
	"NaN":      true,
	"Infinity": true,
}

// eof is the character at positions outside the source.
const eof rune = -1

func (p *parser) char(at int) rune {
	if at < 0 || at >= len(p.src) {
		return eof
	}
	return p.src[at]
}

func (p *parser) cur() rune {
	return p.char(p.pos)
}

func (p *parser) ahead(n int) string {
	if p.pos+n > len(p.src) {
		return ""
	}
	return string(p.src[p.pos : p.pos+n])
}

// scan reads the next token into p.tok, skipping whitespace and comments. The
// comment immediately preceding the token is left in p.comment. Errors from
// scan leave the partial token in p.tok so that the caller can position them.
func (p *parser) scan() error {
	p.tok = lexToken{}
	p.comment = ""
	for {
		if p.cur() == '#' {
			start := p.pos
			for c := p.cur(); c != '\n' && c != eof; c = p.cur() {
				p.pos++
			}
			p.comment = string(p.src[start:p.pos])
		}
		if !isWhitespace(p.cur(), p.depth) {
			break
		}
		p.pos++
	}

	c := p.cur()
	if c == eof {
		p.tok.kind = tokenDelimiter
		return nil
	}
	if c == '\n' && p.depth == 0 {
		p.tok = lexToken{text: "\n", kind: tokenDelimiter}
		p.pos++
		return nil
	}

	for n := 3; n > 0; n-- {
		if s := p.ahead(n); s != "" && delimiters[s] {
			p.tok = lexToken{text: s, kind: tokenDelimiter}
			p.pos += n
			return nil
		}
	}

	if isDigitOrDot(c) {
		return p.scanNum()
	}

	if isIdentifierChar(c) {
		start := p.pos
		for {
			c := p.cur()
			if !isIdentifierChar(c) && !isDigit(c) {
				break
			}
			p.pos++
		}
		p.tok.text = string(p.src[start:p.pos])
		if namedDelimiters[p.tok.text] {
			p.tok.kind = tokenDelimiter
		} else {
			p.tok.kind = tokenSymbol
		}
		return nil
	}

	p.tok = lexToken{text: string(p.src[p.pos:]), kind: tokenUnknown}
	p.pos = len(p.src)
	return errors.New(`Syntax error in part "` + p.tok.text + `"`)
}

// scanNum scans a numeric literal starting at a digit or dot. A dot without a
// following digit is scanned as a delimiter instead.
func (p *parser) scanNum() error {
	start := p.pos
	p.tok.kind = tokenNumber
	defer func() {
		p.tok.text = string(p.src[start:p.pos])
	}()

	if s := p.ahead(2); s == "0b" || s == "0o" || s == "0x" {
		p.pos += 2
		for isHexDigit(p.cur()) {
			p.pos++
		}
		switch p.cur() {
		case '.':
			// radix point
			p.pos++
			for isHexDigit(p.cur()) {
				p.pos++
			}
		case 'i':
			// word size suffix
			p.pos++
			for isDigit(p.cur()) {
				p.pos++
			}
		}
		return nil
	}

	if p.cur() == '.' {
		p.pos++
		if !isDigit(p.cur()) {
			// Just a dot, e.g. property access.
			p.tok.kind = tokenDelimiter
			return nil
		}
	} else {
		for isDigit(p.cur()) {
			p.pos++
		}
		if isDecimalMark(p.cur(), p.char(p.pos+1)) {
			p.pos++
		}
	}
	for isDigit(p.cur()) {
		p.pos++
	}

	if c := p.cur(); c == 'e' || c == 'E' {
		next := p.char(p.pos + 1)
		switch {
		case isDigit(next), next == '+', next == '-':
			p.pos++
			if c := p.cur(); c == '+' || c == '-' {
				p.pos++
			}
			if !isDigit(p.cur()) {
				return digitExpected(p.cur())
			}
			for isDigit(p.cur()) {
				p.pos++
			}
			if isDecimalMark(p.cur(), p.char(p.pos+1)) {
				return digitExpected(p.cur())
			}
		case next == '.':
			p.pos++
			return digitExpected(next)
		}
		// Otherwise the e starts the next token, as in 2e or 2 exp(1).
	}
	return nil
}

func digitExpected(got rune) error {
	if got == eof {
		return errors.New(`Digit expected, got ""`)
	}
	return errors.New(`Digit expected, got "` + string(got) + `"`)
}

// runelen is the length of a token in columns.
func runelen(s string) int {
	return utf8.RuneCountInString(s)
}
