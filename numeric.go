package mathparse

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// NumberKind is a representation for numeric constants.
type NumberKind int8

const (
	// NumberFloat represents numbers as float64.
	NumberFloat NumberKind = iota
	// NumberBig represents numbers as *big.Float with the configured
	// precision.
	NumberBig
	// NumberFraction represents numbers exactly as *big.Rat.
	NumberFraction
	// NumberBigInt represents integers as *big.Int. Literals that are not
	// integers use the configured fallback kind.
	NumberBigInt
)

func (k NumberKind) String() string {
	switch k {
	case NumberFloat:
		return "number"
	case NumberBig:
		return "BigNumber"
	case NumberFraction:
		return "Fraction"
	case NumberBigInt:
		return "bigint"
	default:
		return "NumberKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseNumberKind returns the kind named by s, ignoring case. Each kind is
// named by its String; "float" and "big" are accepted as well.
func ParseNumberKind(s string) (NumberKind, error) {
	switch strings.ToLower(s) {
	case "number", "float":
		return NumberFloat, nil
	case "bignumber", "big":
		return NumberBig, nil
	case "fraction":
		return NumberFraction, nil
	case "bigint":
		return NumberBigInt, nil
	default:
		return 0, errors.New("unknown number kind " + strconv.Quote(s))
	}
}

// NumberConfig is the numeric policy for constants. It is read-only once
// given to the parser.
type NumberConfig struct {
	// Kind is the representation used for numeric literals.
	Kind NumberKind
	// Prec is the precision in bits of NumberBig values. 0 means 64.
	Prec uint
	// Fallback is the kind used for literals that Kind cannot represent, i.e.
	// non-integers when Kind is NumberBigInt. NumberBigInt is not a valid
	// fallback and is treated as NumberFloat.
	Fallback NumberKind
}

// DefaultNumberConfig parses numbers as float64.
var DefaultNumberConfig = NumberConfig{Kind: NumberFloat, Prec: 64, Fallback: NumberFloat}

// NumberError is an error materializing a numeric literal.
type NumberError struct {
	// Text is the literal.
	Text string
	// Kind is the representation that was requested.
	Kind NumberKind
	// Err is the reason, if any.
	Err error
}

func (err *NumberError) Error() string {
	msg := "invalid " + err.Kind.String() + " literal " + strconv.Quote(err.Text)
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *NumberError) Unwrap() error {
	return err.Err
}

var (
	errRadixDigit = errors.New("digit out of range for base")
	errWordSize   = errors.New("value out of range for word size")
	errNoDigits   = errors.New("no digits")
)

// selectKind chooses the representation for a numeric literal.
func selectKind(text string, cfg NumberConfig) NumberKind {
	if cfg.Kind != NumberBigInt {
		return cfg.Kind
	}
	if isIntegerLiteral(text) {
		return NumberBigInt
	}
	if cfg.Fallback == NumberBigInt {
		return NumberFloat
	}
	return cfg.Fallback
}

// isIntegerLiteral reports whether text is a literal without a fractional
// part or exponent.
func isIntegerLiteral(text string) bool {
	if radixOf(text) != 0 {
		return !strings.Contains(text, ".")
	}
	if text == "" {
		return false
	}
	for _, c := range text {
		if !isDigit(c) {
			return false
		}
	}
	return true
}

// radixOf returns the base given by the prefix of text, or 0 if text has no
// radix prefix.
func radixOf(text string) int {
	if len(text) < 2 || text[0] != '0' {
		return 0
	}
	switch text[1] {
	case 'b':
		return 2
	case 'o':
		return 8
	case 'x':
		return 16
	}
	return 0
}

// materialize converts a numeric literal to a value of the given kind.
// Decimal literals, radix literals with an optional radix point or word-size
// suffix, and the names NaN and Infinity are understood.
func materialize(text string, kind NumberKind, prec uint) (any, error) {
	if prec == 0 {
		prec = 64
	}
	switch text {
	case "NaN":
		if kind == NumberFloat {
			return math.NaN(), nil
		}
		return nil, &NumberError{Text: text, Kind: kind}
	case "Infinity":
		switch kind {
		case NumberFloat:
			return math.Inf(1), nil
		case NumberBig:
			return new(big.Float).SetPrec(prec).SetInf(false), nil
		}
		return nil, &NumberError{Text: text, Kind: kind}
	}
	if base := radixOf(text); base != 0 {
		v, err := radixValue(text, base, kind, prec)
		if err != nil {
			return nil, &NumberError{Text: text, Kind: kind, Err: err}
		}
		return v, nil
	}
	switch kind {
	case NumberFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, &NumberError{Text: text, Kind: kind, Err: err}
		}
		return f, nil
	case NumberBig:
		r, _, err := new(big.Float).SetPrec(prec).Parse(text, 10)
		switch {
		case err == nil: // do nothing
		case err.Error() == "exponent overflow",
			strings.HasSuffix(err.Error(), ": value out of range"):
			// Same detection as the evaluator's number cache; big.Float has
			// no sentinel for overflow.
			r = new(big.Float).SetPrec(prec).SetInf(false)
		default:
			return nil, &NumberError{Text: text, Kind: kind, Err: err}
		}
		return r, nil
	case NumberFraction:
		r, ok := new(big.Rat).SetString(text)
		if !ok {
			return nil, &NumberError{Text: text, Kind: kind}
		}
		return r, nil
	case NumberBigInt:
		r, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, &NumberError{Text: text, Kind: kind}
		}
		return r, nil
	default:
		return nil, &NumberError{Text: text, Kind: kind}
	}
}

// radixValue evaluates a literal like 0x1F, 0b1.01, or 0xFFi8.
func radixValue(text string, base int, kind NumberKind, prec uint) (any, error) {
	body := text[2:]
	wordSize := 0
	if k := strings.IndexByte(body, 'i'); k >= 0 {
		ws, err := strconv.Atoi(body[k+1:])
		if err != nil || ws <= 0 {
			return nil, errWordSize
		}
		wordSize = ws
		body = body[:k]
	}
	ip, fp, _ := strings.Cut(body, ".")
	if ip == "" && fp == "" {
		return nil, errNoDigits
	}
	n := new(big.Int)
	for _, c := range ip {
		d, err := digitValue(c, base)
		if err != nil {
			return nil, err
		}
		n.Mul(n, big.NewInt(int64(base)))
		n.Add(n, big.NewInt(int64(d)))
	}
	if wordSize > 0 {
		lim := new(big.Int).Lsh(big.NewInt(1), uint(wordSize))
		if n.Cmp(lim) >= 0 {
			return nil, errWordSize
		}
		if n.Bit(wordSize-1) != 0 {
			n.Sub(n, lim)
		}
	}
	r := new(big.Rat).SetInt(n)
	if fp != "" {
		num := new(big.Int)
		den := big.NewInt(1)
		for _, c := range fp {
			d, err := digitValue(c, base)
			if err != nil {
				return nil, err
			}
			num.Mul(num, big.NewInt(int64(base)))
			num.Add(num, big.NewInt(int64(d)))
			den.Mul(den, big.NewInt(int64(base)))
		}
		r.Add(r, new(big.Rat).SetFrac(num, den))
	}
	switch kind {
	case NumberFloat:
		f, _ := r.Float64()
		return f, nil
	case NumberBig:
		return new(big.Float).SetPrec(prec).SetRat(r), nil
	case NumberFraction:
		return r, nil
	case NumberBigInt:
		if !r.IsInt() {
			return nil, errors.New("not an integer")
		}
		return new(big.Int).Set(r.Num()), nil
	default:
		return nil, errors.New("unknown number kind")
	}
}

func digitValue(c rune, base int) (int, error) {
	var d int
	switch {
	case isDigit(c):
		d = int(c - '0')
	case 'a' <= c && c <= 'f':
		d = int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		d = int(c-'A') + 10
	default:
		return 0, errRadixDigit
	}
	if d >= base {
		return 0, errRadixDigit
	}
	return d, nil
}
