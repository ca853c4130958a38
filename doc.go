// Package mathparse turns the source text of a math expression language into
// an abstract syntax tree.
//
// The language is meant to read like math written on paper. "2 x y" is a
// product of three terms, "a/2b" is "(a/2) b", "10 + 5%" is ten plus five
// percent of ten, and "-2^2" is "-(2^2)". Besides arithmetic there are
// bitwise and logical operators, chained comparisons like "a < b <= c",
// conditionals "a ? b : c", ranges "1:2:10", unit conversions "x to cm",
// matrices "[1, 2; 3, 4]", objects "{a: 1}", strings, function calls, indexing,
// property access, assignments, and function definitions "f(x) = x^2".
// Statements are separated by newlines or semicolons, and "#" starts a
// comment that runs to the end of the line.
//
// Parse stops at the first error. Every error it returns implements
// InputError, which reports the 1-based column of the offending token.
//
// A Context evaluates parsed trees with arbitrary-precision arithmetic, and
// the mathparse command wraps both behind a command line.
package mathparse
