package mathparse

// Character classes used by the tokenizer. Positions outside the source read
// as eof, which belongs to no class.

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c rune) bool {
	return isDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func isDigitOrDot(c rune) bool {
	return isDigit(c) || c == '.'
}

// isDecimalMark reports whether c is a decimal point. A dot followed by *, /,
// or ^ is the first half of an element-wise operator instead.
func isDecimalMark(c, next rune) bool {
	return c == '.' && next != '*' && next != '/' && next != '^'
}

// isWhitespace reports whether c is skipped between tokens. Newlines separate
// statements unless they appear inside brackets.
func isWhitespace(c rune, depth int) bool {
	return c == ' ' || c == '\t' || c == '\n' && depth > 0
}

// isIdentifierChar reports whether c may start an identifier. Digits may
// follow the first character as well.
func isIdentifierChar(c rune) bool {
	return isLatinOrGreek(c) || isMathAlphanumeric(c)
}

func isLatinOrGreek(c rune) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', c == '_', c == '$':
		return true
	case 0x00C0 <= c && c <= 0x02AF: // Latin-1 supplement through IPA extensions
		return true
	case 0x0370 <= c && c <= 0x03FF: // Greek and Coptic
		return true
	case 0x2100 <= c && c <= 0x214F: // letterlike symbols
		return true
	}
	return false
}

// isMathAlphanumeric reports whether c is an assigned character of the
// Mathematical Alphanumeric Symbols block.
func isMathAlphanumeric(c rune) bool {
	if c < 0x1D400 || c > 0x1D7FF {
		return false
	}
	switch c {
	case 0x1D455, 0x1D49D, 0x1D4A0, 0x1D4A1, 0x1D4A3, 0x1D4A4, 0x1D4A7, 0x1D4A8,
		0x1D4AD, 0x1D4BA, 0x1D4BC, 0x1D4C4, 0x1D506, 0x1D50B, 0x1D50C, 0x1D515,
		0x1D51D, 0x1D53A, 0x1D53F, 0x1D545, 0x1D547, 0x1D548, 0x1D549, 0x1D551,
		0x1D6A6, 0x1D6A7, 0x1D7CC, 0x1D7CD:
		return false
	}
	return true
}
