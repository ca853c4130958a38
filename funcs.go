package mathparse

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function from reals to reals.
type Func interface {
	// Call evaluates the function. The function arguments are passed in invoc.
	// The function may but generally should not look up variables. The
	// function must set r to its result and should not use the value of r
	// otherwise. invoc has a length for which CanCall returned true. Call may
	// modify the elements of invoc.
	Call(ctx *Context, invoc []*big.Float, r *big.Float) error

	// CanCall returns whether the function can be called with n arguments.
	// A name whose function can be called with no arguments evaluates to the
	// result of that call when it appears without an argument list, so that
	// pi and e read as constants.
	CanCall(n int) bool
}

var globalfuncs = map[string]Func{
	"exp": Monadic(bigfloat.Exp),
	"ln":  Monadic(bigfloat.Log),
	"log": Monadic(func(out, in *big.Float) *big.Float {
		bigfloat.Log(out, in)
		in.SetFloat64(10).SetPrec(out.Prec())
		bigfloat.Log(in, in)
		return out.Quo(out, in)
	}),
	"sqrt": Monadic((*big.Float).Sqrt),
	"abs":  Monadic((*big.Float).Abs),

	// constants
	"pi": Niladic(bigfloat.Pi),
	"e": Niladic(func(out *big.Float) *big.Float {
		var one big.Float
		one.SetFloat64(1)
		return bigfloat.Exp(out, &one)
	}),
}

// DisableDefaultFuncs returns a functions map suitable for disabling all
// default functions when passed to SetFuncs.
func DisableDefaultFuncs() map[string]Func {
	m := make(map[string]Func, len(globalfuncs))
	for k := range globalfuncs {
		m[k] = nil
	}
	return m
}

// builtin adapts a Go function of a fixed number of arguments to Func.
type builtin struct {
	arity int
	f     func(out *big.Float, in []*big.Float)
}

func (b builtin) Call(ctx *Context, invoc []*big.Float, r *big.Float) (err error) {
	if b.arity > 0 {
		defer catchNaN(&err, new(big.Float).Copy(invoc[0]), 1)
	}
	r.SetPrec(ctx.Prec())
	b.f(r, invoc)
	return nil
}

func (b builtin) CanCall(n int) bool {
	return n == b.arity
}

// Monadic wraps a function of one variable into a Func. f must set out to its
// result, to the precision of out; its return value is always ignored. If f is
// called on an argument outside f's domain, it should panic with an error of
// type big.ErrNaN or DomainError, or that unwraps to one.
func Monadic(f func(out, in *big.Float) *big.Float) Func {
	return builtin{1, func(out *big.Float, in []*big.Float) { f(out, in[0]) }}
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func. f must set out to its result; its return
// value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) Func {
	return builtin{0, func(out *big.Float, _ []*big.Float) { f(out) }}
}

// catchNaN turns a panic with big.ErrNaN into a DomainError on x, the arg'th
// argument, and stores it in *err. A panic with a DomainError is stored as is.
// Anything else keeps panicking. It must be deferred directly.
func catchNaN(err *error, x *big.Float, arg int) {
	v := recover()
	if v == nil {
		return
	}
	e, ok := v.(error)
	if !ok {
		panic(v)
	}
	var de DomainError
	switch {
	case errors.As(e, &de):
		*err = de
	case errors.As(e, &big.ErrNaN{}):
		*err = DomainError{X: new(big.Float).Copy(x), Arg: arg}
	default:
		panic(v)
	}
}

// named attributes a DomainError without a function name to name, which is a
// function name for calls and the operator text for operators.
func named(err error, name string) error {
	var de DomainError
	if errors.As(err, &de) && de.Func == "" {
		de.Func = name
		return de
	}
	return err
}

// DomainError is an error returned when a function or operator is applied to
// arguments outside its domain. DomainError unwraps to big.ErrNaN.
type DomainError struct {
	// X is the out-of-domain argument.
	X *big.Float
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function or operator.
	Func string
}

func (err DomainError) Error() string {
	r := err.X.String() + " outside domain"
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}

func (err DomainError) Unwrap() error {
	return big.ErrNaN{}
}
