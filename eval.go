package mathparse

import (
	"math"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Context is a context for evaluating expressions. It is not safe to use a
// Context concurrently.
type Context struct {
	stack []*big.Float
	names map[string]*big.Float
	funcs map[string]Func
	prec  uint
	// depth is the number of user function calls in progress.
	depth int
	// void is set when the last expression evaluated ended with a function
	// definition.
	void bool
	err  error
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  *big.Float
	}
	varsopt  map[string]*big.Float
	funcopt  struct {
		name string
		f    Func
	}
	funcsopt   map[string]Func
	ctxprecopt uint
)

func (varopt) ctxOption()     {}
func (varsopt) ctxOption()    {}
func (funcopt) ctxOption()    {}
func (funcsopt) ctxOption()   {}
func (ctxprecopt) ctxOption() {}

// SetVar sets the value of a variable in the context.
func SetVar(name string, val *big.Float) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]*big.Float) ContextOption {
	return varsopt(vars)
}

// SetFunc sets a function in the context. A nil f removes the function.
func SetFunc(name string, f Func) ContextOption {
	return funcopt{name, f}
}

// SetFuncs sets any number of functions in the context. Nil entries remove
// functions; see DisableDefaultFuncs.
func SetFuncs(funcs map[string]Func) ContextOption {
	return funcsopt(funcs)
}

// Prec sets the precision of calculations.
func Prec(prec uint) ContextOption {
	return ctxprecopt(prec)
}

// maxDepth is the limit on nested calls of functions defined by expressions.
const maxDepth = 256

// NewContext creates a new evaluation context with the default functions. If
// no precision is given, the default is 64.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{funcs: globalfuncs, prec: 64}
	return ctx.Clone(opts...)
}

// Eval evaluates an expression and returns the result. If an error occurs,
// e.g. a missing variable definition or an argument to a function is outside
// the function's domain, then the result is nil and ctx.Err returns the error.
// A program whose last statement defines a function has no result; Eval
// returns nil and ctx.Err returns nil.
//
// Assignments and function definitions made by the expression persist in ctx.
func (ctx *Context) Eval(n Node) *big.Float {
	switch len(ctx.stack) {
	case 0: // do nothing
	case 1:
		ctx.stack[0] = new(big.Float).SetPrec(ctx.prec)
		ctx.stack = ctx.stack[:0]
	default:
		panic("mathparse: Eval during Eval")
	}
	err := ctx.eval(n)
	ctx.err = err
	if err != nil {
		ctx.stack = ctx.stack[:0]
		return nil
	}
	ctx.void = definesLast(n)
	return ctx.Result()
}

// definesLast reports whether the last statement of n is a function
// definition.
func definesLast(n Node) bool {
	switch n := n.(type) {
	case *FunctionAssignmentNode:
		return true
	case *BlockNode:
		return len(n.Blocks) > 0 && definesLast(n.Blocks[len(n.Blocks)-1].Node)
	}
	return false
}

// Result returns the result obtained after evaluating an expression. Panics if
// ctx has not been used to evaluate an expression. Returns nil if an error
// occurred during evaluation or the expression ended with a definition.
func (ctx *Context) Result() *big.Float {
	if ctx.err != nil || ctx.void {
		return nil
	}
	switch len(ctx.stack) {
	case 0:
		panic("mathparse: Context.Result called before evaluating any expression")
	case 1:
		return ctx.stack[0]
	default:
		panic("mathparse: inconsistent stack: " + strconv.Itoa(len(ctx.stack)) + " items (bad AST?)")
	}
}

// Err returns the error that occurred while evaluating the last expression
// with ctx, if any.
func (ctx *Context) Err() error {
	return ctx.err
}

// Set sets the value of a variable. Returns ctx for chaining. Calling Set
// while the context is being used to evaluate an expression panics.
func (ctx *Context) Set(name string, value *big.Float) *Context {
	if len(ctx.stack) > 1 {
		panic("mathparse: Set on in-use context")
	}
	ctx.assign(name, value)
	return ctx
}

// Lookup returns a copy of the value of a variable. If there is no such
// variable in the context, then the result is nil.
func (ctx *Context) Lookup(name string) *big.Float {
	v := ctx.names[name]
	if v == nil {
		return nil
	}
	return new(big.Float).Copy(v)
}

// Func returns the function with the given name, or nil if there is none.
func (ctx *Context) Func(name string) Func {
	return ctx.funcs[name]
}

// Prec returns the precision to which values are computed in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Clone creates a copy of a context and applies options to it. The returned
// context has no Result and is safe to use to evaluate an expression.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		stack: make([]*big.Float, 0, cap(ctx.stack)),
		names: make(map[string]*big.Float, len(ctx.names)),
		funcs: make(map[string]Func, len(ctx.funcs)),
		prec:  ctx.prec,
		depth: ctx.depth,
	}
	// First, check for a precision setting. Loop backward so we apply the last
	// precision.
	for i := len(opts) - 1; i >= 0; i-- {
		if p, ok := opts[i].(ctxprecopt); ok {
			n.prec = uint(p)
			break
		}
	}
	// Copy variables. (We always need a copy in case of Set.) If we have the
	// same precision, we can just copy pointers, since values are replaced
	// rather than modified.
	if n.prec == ctx.prec {
		for name, val := range ctx.names {
			n.names[name] = val
		}
	} else {
		for name, val := range ctx.names {
			n.names[name] = new(big.Float).SetPrec(n.prec).Set(val)
		}
	}
	for name, f := range ctx.funcs {
		n.funcs[name] = f
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.assign(opt.name, opt.val)
		case varsopt:
			for k, v := range opt {
				n.assign(k, v)
			}
		case funcopt:
			n.setFunc(opt.name, opt.f)
		case funcsopt:
			for k, f := range opt {
				n.setFunc(k, f)
			}
		case ctxprecopt:
			// Already done. Do nothing.
		default:
			panic("mathparse: unknown option type")
		}
	}
	return &n
}

func (ctx *Context) assign(name string, v *big.Float) {
	if ctx.names == nil {
		ctx.names = make(map[string]*big.Float)
	}
	ctx.names[name] = new(big.Float).SetPrec(ctx.prec).Set(v)
}

func (ctx *Context) setFunc(name string, f Func) {
	if f == nil {
		delete(ctx.funcs, name)
		return
	}
	ctx.funcs[name] = f
}

// push ensures a settable value on the stack.
func (ctx *Context) push() *big.Float {
	if len(ctx.stack) < cap(ctx.stack) {
		ctx.stack = ctx.stack[:len(ctx.stack)+1]
		if ctx.stack[len(ctx.stack)-1] == nil {
			ctx.stack[len(ctx.stack)-1] = new(big.Float).SetPrec(ctx.prec)
		}
	} else {
		ctx.stack = append(ctx.stack, new(big.Float).SetPrec(ctx.prec))
	}
	return ctx.stack[len(ctx.stack)-1]
}

// pop removes the top from the stack and returns it. The returned value may be
// modified by future node evaluations.
func (ctx *Context) pop() *big.Float {
	r := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return r
}

// top is a shortcut to get the top element of the stack.
func (ctx *Context) top() *big.Float {
	return ctx.stack[len(ctx.stack)-1]
}

// eval pushes the node's value to the context's stack.
func (ctx *Context) eval(n Node) error {
	switch n := n.(type) {
	case *ConstantNode:
		return ctx.constant(n)
	case *SymbolNode:
		if v := ctx.names[n.Name]; v != nil {
			ctx.push().Set(v)
			return nil
		}
		// Constants like pi are functions of nothing.
		if f := ctx.funcs[n.Name]; f != nil && f.CanCall(0) {
			return ctx.invoke(n.Name, f, nil)
		}
		return &NameError{Name: n.Name}
	case *ParenthesisNode:
		return ctx.eval(n.Content)
	case *OperatorNode:
		return ctx.operator(n)
	case *RelationalNode:
		return ctx.relational(n)
	case *ConditionalNode:
		if err := ctx.eval(n.Condition); err != nil {
			return err
		}
		if ctx.pop().Sign() != 0 {
			return ctx.eval(n.TrueExpr)
		}
		return ctx.eval(n.FalseExpr)
	case *BlockNode:
		if len(n.Blocks) == 0 {
			return &EvalError{Node: n, Msg: "empty block"}
		}
		for i, s := range n.Blocks {
			if err := ctx.eval(s.Node); err != nil {
				return err
			}
			if i < len(n.Blocks)-1 {
				ctx.pop()
			}
		}
		return nil
	case *AssignmentNode:
		sym, ok := n.Object.(*SymbolNode)
		if !ok || n.Index != nil {
			return &EvalError{Node: n, Msg: "can only assign to a name"}
		}
		if err := ctx.eval(n.Value); err != nil {
			return err
		}
		ctx.assign(sym.Name, ctx.top())
		return nil
	case *FunctionAssignmentNode:
		ctx.funcs[n.Name] = userFunc{n}
		ctx.push().SetInt64(0)
		return nil
	case *FunctionNode:
		sym, ok := n.Fn.(*SymbolNode)
		if !ok {
			return &EvalError{Node: n, Msg: "can only call a function by name"}
		}
		f := ctx.funcs[sym.Name]
		if f == nil {
			return &NameError{Name: sym.Name}
		}
		if !f.CanCall(len(n.Args)) {
			return &EvalError{Node: n, Msg: sym.Name + " cannot take " + strconv.Itoa(len(n.Args)) + " arguments"}
		}
		return ctx.invoke(sym.Name, f, n.Args)
	default:
		return &EvalError{Node: n, Msg: "not a real-valued expression"}
	}
}

// constant pushes the value of a literal.
func (ctx *Context) constant(n *ConstantNode) error {
	switch v := n.Value.(type) {
	case float64:
		if math.IsNaN(v) {
			return &EvalError{Node: n, Msg: "NaN is not a real number"}
		}
		ctx.push().SetFloat64(v)
	case *big.Float:
		ctx.push().Set(v)
	case *big.Rat:
		ctx.push().SetRat(v)
	case *big.Int:
		ctx.push().SetInt(v)
	case bool:
		setBool(ctx.push(), v)
	default:
		return &EvalError{Node: n, Msg: "not a number"}
	}
	return nil
}

// invoke calls f with the values of args and pushes the result.
func (ctx *Context) invoke(name string, f Func, args []Node) error {
	r := ctx.push()
	k := len(ctx.stack)
	for _, arg := range args {
		if err := ctx.eval(arg); err != nil {
			return err
		}
	}
	invoc := ctx.stack[k:len(ctx.stack):len(ctx.stack)]
	if err := f.Call(ctx, invoc, r); err != nil {
		return named(err, name)
	}
	ctx.stack = ctx.stack[:k]
	return nil
}

func (ctx *Context) operator(n *OperatorNode) (err error) {
	var (
		unary  func(*big.Float) error
		binary func(l, r *big.Float) error
	)
	switch len(n.Args) {
	case 1:
		unary = unaryEvals[n.Fn]
	case 2:
		binary = binaryEvals[n.Fn]
	}
	if unary == nil && binary == nil {
		return &EvalError{Node: n, Msg: "unsupported operation " + n.Fn}
	}
	for _, arg := range n.Args {
		if err := ctx.eval(arg); err != nil {
			return err
		}
	}
	if unary != nil {
		return unary(ctx.top())
	}
	r := ctx.pop()
	l := ctx.top()
	defer func() { err = named(err, n.Op) }()
	// Operations like inf-inf or 0*inf have no value.
	defer catchNaN(&err, r, 2)
	return binary(l, r)
}

// relational evaluates a chain of comparisons, stopping at the first that
// fails.
func (ctx *Context) relational(n *RelationalNode) error {
	if len(n.Params) != len(n.Conditionals)+1 {
		return &EvalError{Node: n, Msg: "malformed comparison chain"}
	}
	if err := ctx.eval(n.Params[0]); err != nil {
		return err
	}
	for i, c := range n.Conditionals {
		cmp := comparisons[c]
		if cmp == nil {
			return &EvalError{Node: n, Msg: "unsupported comparison " + c}
		}
		if err := ctx.eval(n.Params[i+1]); err != nil {
			return err
		}
		r := ctx.pop()
		l := ctx.top()
		if !cmp(l.Cmp(r)) {
			setBool(l, false)
			return nil
		}
		l.Set(r)
	}
	setBool(ctx.top(), true)
	return nil
}

var comparisons = map[string]func(int) bool{
	"equal":     func(c int) bool { return c == 0 },
	"unequal":   func(c int) bool { return c != 0 },
	"smaller":   func(c int) bool { return c < 0 },
	"larger":    func(c int) bool { return c > 0 },
	"smallerEq": func(c int) bool { return c <= 0 },
	"largerEq":  func(c int) bool { return c >= 0 },
}

var unaryEvals = map[string]func(*big.Float) error{
	"unaryMinus": func(x *big.Float) error {
		x.Neg(x)
		return nil
	},
	"unaryPlus": func(x *big.Float) error { return nil },
	"not": func(x *big.Float) error {
		setBool(x, x.Sign() == 0)
		return nil
	},
	"factorial": factorial,
}

var binaryEvals = map[string]func(l, r *big.Float) error{
	"add":         func(l, r *big.Float) error { l.Add(l, r); return nil },
	"subtract":    func(l, r *big.Float) error { l.Sub(l, r); return nil },
	"multiply":    func(l, r *big.Float) error { l.Mul(l, r); return nil },
	"dotMultiply": func(l, r *big.Float) error { l.Mul(l, r); return nil },
	"divide":      divide,
	"dotDivide":   divide,
	"mod":         mod,
	"pow":         pow,
	"dotPow":      pow,
	"and":         func(l, r *big.Float) error { setBool(l, l.Sign() != 0 && r.Sign() != 0); return nil },
	"or":          func(l, r *big.Float) error { setBool(l, l.Sign() != 0 || r.Sign() != 0); return nil },
	"xor":         func(l, r *big.Float) error { setBool(l, (l.Sign() != 0) != (r.Sign() != 0)); return nil },
}

func init() {
	for fn, cmp := range comparisons {
		binaryEvals[fn] = func(l, r *big.Float) error {
			setBool(l, cmp(l.Cmp(r)))
			return nil
		}
	}
}

func setBool(z *big.Float, b bool) {
	if b {
		z.SetInt64(1)
	} else {
		z.SetInt64(0)
	}
}

func divide(l, r *big.Float) error {
	// Guard against invalid divisions, 0/0 or inf/inf.
	if l.Sign() == 0 && r.Sign() == 0 || l.IsInf() && r.IsInf() {
		return DomainError{X: new(big.Float).Copy(r), Arg: 2}
	}
	l.Quo(l, r)
	return nil
}

// mod computes l - r*floor(l/r). x mod 0 is x.
func mod(l, r *big.Float) error {
	if r.Sign() == 0 {
		return nil
	}
	if l.IsInf() || r.IsInf() {
		return DomainError{X: new(big.Float).Copy(r), Arg: 2}
	}
	q := new(big.Float).SetPrec(l.Prec()).Quo(l, r)
	i, acc := q.Int(nil)
	if i == nil {
		return DomainError{X: new(big.Float).Copy(r), Arg: 2}
	}
	if q.Sign() < 0 && acc != big.Exact {
		i.Sub(i, big.NewInt(1))
	}
	q.SetInt(i)
	l.Sub(l, q.Mul(q, r))
	return nil
}

// pow computes l^r. A negative base requires an integer exponent.
func pow(l, r *big.Float) error {
	if l.Sign() >= 0 {
		bigfloat.Pow(l, l, r)
		return nil
	}
	if !r.IsInt() {
		return DomainError{X: new(big.Float).Copy(l), Arg: 1}
	}
	i, _ := r.Int(nil)
	l.Neg(l)
	bigfloat.Pow(l, l, r)
	if i.Bit(0) != 0 {
		l.Neg(l)
	}
	return nil
}

// maxFactorial is the largest argument of !.
const maxFactorial = 100000

func factorial(x *big.Float) error {
	if x.Sign() < 0 || !x.IsInt() {
		return DomainError{X: new(big.Float).Copy(x), Arg: 1, Func: "!"}
	}
	n, acc := x.Int64()
	if acc != big.Exact || n > maxFactorial {
		return DomainError{X: new(big.Float).Copy(x), Arg: 1, Func: "!"}
	}
	x.SetInt(new(big.Int).MulRange(1, n))
	return nil
}

// userFunc is a function defined by an expression like f(x) = x^2.
type userFunc struct {
	def *FunctionAssignmentNode
}

func (u userFunc) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	if ctx.depth >= maxDepth {
		return &EvalError{Node: u.def, Msg: "too many nested calls"}
	}
	sub := ctx.Clone()
	sub.depth++
	for i, p := range u.def.Params {
		sub.assign(p, invoc[i])
	}
	v := sub.Eval(u.def.Expr)
	if err := sub.Err(); err != nil {
		return err
	}
	if v == nil {
		return &EvalError{Node: u.def, Msg: "function body has no value"}
	}
	r.Set(v)
	return nil
}

func (u userFunc) CanCall(n int) bool {
	return n == len(u.def.Params)
}

// EvalString is a shortcut to parse and evaluate a string expression with a
// new context. Numbers are parsed as BigNumber at the context's precision.
func EvalString(src string, opts ...ContextOption) (*big.Float, error) {
	ctx := NewContext(opts...)
	n, err := Parse(src, NumberType(NumberBig), Precision(ctx.Prec()))
	if err != nil {
		return nil, err
	}
	ctx.Eval(n)
	return ctx.Result(), ctx.Err()
}

// NameError is an error from a lookup for a variable or function that is
// missing from the evaluation context.
type NameError struct {
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return "undefined variable: " + strconv.Quote(err.Name)
}

// EvalError is an error evaluating a node that has no real value, such as a
// string or matrix, or an operation the evaluator does not implement.
type EvalError struct {
	// Node is the node that could not be evaluated.
	Node Node
	// Msg describes the problem.
	Msg string
}

func (err *EvalError) Error() string {
	return "cannot evaluate " + err.Node.String() + ": " + err.Msg
}
