package mathparse

import "strconv"

// SyntaxError is an error indicating input that does not follow the grammar:
// an invalid character, a malformed number or string, a missing bracket, an
// invalid assignment target, or a missing operand. It implements InputError.
type SyntaxError struct {
	// Col is the 1-based column of the token at which parsing failed.
	Col int
	// Msg describes the failure.
	Msg string
	// Err is the underlying tokenizer or number failure, if any.
	Err error
}

func (err *SyntaxError) Error() string {
	return errpos(err.Col, err.Msg)
}

func (err *SyntaxError) Pos() int {
	return err.Col
}

func (err *SyntaxError) Unwrap() error {
	return err.Err
}

// StructureError is an error indicating input that is grammatical token by
// token but has the wrong overall shape: matrix rows of different lengths, or
// an operator left over after a complete expression. It implements
// InputError.
type StructureError struct {
	// Col is the 1-based column of the token at which the problem was found.
	Col int
	// Msg describes the problem.
	Msg string
}

func (err *StructureError) Error() string {
	return errpos(err.Col, err.Msg)
}

func (err *StructureError) Pos() int {
	return err.Col
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the 1-based column, counted in runes, of the start of the
	// token that caused the error.
	Pos() int
}

var (
	_ InputError = (*SyntaxError)(nil)
	_ InputError = (*StructureError)(nil)
)
