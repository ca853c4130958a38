package mathparse_test

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"testing"

	"github.com/zephyrtronium/mathparse"
)

func TestEval(t *testing.T) {
	type vv struct {
		n string
		v float64
	}
	type vc struct {
		vars []vv
		r    float64
	}
	cases := []struct {
		name string
		src  string
		r    []vc
	}{
		{"num", "1", []vc{{nil, 1}}},
		{"ident", "x", []vc{
			{[]vv{{"x", 4}}, 4},
			{[]vv{{"x", 5}}, 5},
			{[]vv{{"x", 6}}, 6},
		}},
		{"plus", "+x", []vc{
			{[]vv{{"x", 4}}, 4},
			{[]vv{{"x", 5}}, 5},
		}},
		{"neg", "-x", []vc{
			{[]vv{{"x", 4}}, -4},
			{[]vv{{"x", 5}}, -5},
		}},
		{"implicit", "2x", []vc{
			{[]vv{{"x", 4}}, 8},
			{[]vv{{"x", -1}}, -2},
		}},
		{"add", "4+5+6", []vc{{nil, 4 + 5 + 6}}},
		{"sub", "4-5-6", []vc{{nil, 4 - 5 - 6}}},
		{"mul", "4*5*6", []vc{{nil, 4 * 5 * 6}}},
		{"div", "4/5/6", []vc{{nil, 4.0 / 5.0 / 6.0}}},
		{"pow", "4^3^2", []vc{{nil, 262144}}},
		{"pow-neg-base", "(-2)^3", []vc{{nil, -8}}},
		{"pow-neg-base-even", "(-2)^2", []vc{{nil, 4}}},
		{"neg-pow", "-2^2", []vc{{nil, -4}}},
		{"rule2", "x/2y", []vc{
			{[]vv{{"x", 6}, {"y", 3}}, 9},
		}},
		{"mod", "7 mod 3", []vc{{nil, 1}}},
		{"mod-neg", "-7 % 3", []vc{{nil, 2}}},
		{"mod-zero", "7 mod 0", []vc{{nil, 7}}},
		{"percent", "50%", []vc{{nil, 0.5}}},
		{"percent-add", "200 + 50%", []vc{{nil, 300}}},
		{"percent-sub", "200 - 50%", []vc{{nil, 100}}},
		{"factorial", "5!", []vc{{nil, 120}}},
		{"factorial-zero", "0!", []vc{{nil, 1}}},
		{"pi", "pi", []vc{{nil, math.Pi}}},
		{"e", "e", []vc{{nil, math.E}}},
		{"exp", "exp(1)", []vc{{nil, math.E}}},
		{"log", "log(1000)", []vc{{nil, 3}}},
		{"sqrt", "sqrt(16)", []vc{{nil, 4}}},
		{"abs", "abs(-3)", []vc{{nil, 3}}},
		{"infinity", "Infinity", []vc{{nil, math.Inf(1)}}},
		{"hex", "0x1F + 1", []vc{{nil, 32}}},
		{"word-size", "0xFFi8", []vc{{nil, -1}}},
		{"paren", "(1 + 2)3", []vc{{nil, 9}}},

		// booleans are 1 and 0
		{"true", "true", []vc{{nil, 1}}},
		{"false", "false", []vc{{nil, 0}}},
		{"smaller", "x < 2", []vc{
			{[]vv{{"x", 1}}, 1},
			{[]vv{{"x", 2}}, 0},
		}},
		{"equal", "x == 2", []vc{
			{[]vv{{"x", 2}}, 1},
			{[]vv{{"x", 3}}, 0},
		}},
		{"chain", "1 < x <= 3", []vc{
			{[]vv{{"x", 1}}, 0},
			{[]vv{{"x", 2}}, 1},
			{[]vv{{"x", 3}}, 1},
			{[]vv{{"x", 4}}, 0},
		}},
		{"not", "not x", []vc{
			{[]vv{{"x", 0}}, 1},
			{[]vv{{"x", 7}}, 0},
		}},
		{"and", "1 and 0", []vc{{nil, 0}}},
		{"or", "0 or 2", []vc{{nil, 1}}},
		{"xor", "1 xor 1", []vc{{nil, 0}}},
		{"conditional", "x > 0 ? x : -x", []vc{
			{[]vv{{"x", 3}}, 3},
			{[]vv{{"x", -3}}, 3},
		}},

		// statements
		{"assign", "a = 2", []vc{{nil, 2}}},
		{"block", "a = 2; a * 3", []vc{{nil, 6}}},
		{"block-lines", "a = 2\nb = a + 1\na b", []vc{{nil, 6}}},
		{"define-call", "f(x) = x^2; f(3)", []vc{{nil, 9}}},
		{"define-2", "g(x, y) = x - y\ng(5, 2)", []vc{{nil, 3}}},
		{"define-scope", "f(y) = x + y; f(1)", []vc{
			{[]vv{{"x", 10}}, 11},
		}},
		{"recursion", "fact(n) = n <= 1 ? 1 : n * fact(n - 1); fact(5)", []vc{{nil, 120}}},
	}
	ctx := mathparse.NewContext(mathparse.Prec(64))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := mathparse.Parse(c.src)
			if err != nil {
				t.Fatal(c.src, "failed to parse:", err)
			}
			for _, v := range c.r {
				ctx := ctx.Clone()
				for _, x := range v.vars {
					ctx.Set(x.n, new(big.Float).SetFloat64(x.v))
				}
				r := ctx.Eval(a)
				if ctx.Err() != nil {
					t.Error("evaluation error:", ctx.Err())
				}
				if r == nil {
					t.Fatal("nil result")
				}
				if q := ctx.Result(); r.Cmp(q) != 0 {
					t.Errorf("different results: Eval returned %g, Result returned %g", r, q)
				}
				if f, _ := r.Float64(); f != v.r {
					t.Errorf("wrong result: want %g, got %g", v.r, r)
				}
			}
		})
	}
}

func TestEvalString(t *testing.T) {
	cases := []struct {
		name string
		src  string
		opts []mathparse.ContextOption
		r    float64
	}{
		{"num", "0.5 + 0.25", nil, 0.75},
		{"var", "2 z", []mathparse.ContextOption{mathparse.SetVar("z", big.NewFloat(21))}, 42},
		{"vars", "a + b", []mathparse.ContextOption{mathparse.SetVars(map[string]*big.Float{"a": big.NewFloat(1), "b": big.NewFloat(2)})}, 3},
		{"prec", "1/4", []mathparse.ContextOption{mathparse.Prec(256)}, 0.25},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := mathparse.EvalString(c.src, c.opts...)
			if err != nil {
				t.Fatalf("%q: %v", c.src, err)
			}
			if f, _ := r.Float64(); f != c.r {
				t.Errorf("%q: want %g, got %g", c.src, c.r, r)
			}
		})
	}

	_, err := mathparse.EvalString("1 +")
	var ie mathparse.InputError
	if !errors.As(err, &ie) || ie.Pos() != 4 {
		t.Errorf("parse failure gave %v", err)
	}
}

func TestEvalDefinitionHasNoResult(t *testing.T) {
	ctx := mathparse.NewContext()
	n, err := mathparse.Parse("sq(x) = x x")
	if err != nil {
		t.Fatal(err)
	}
	if r := ctx.Eval(n); r != nil || ctx.Err() != nil {
		t.Errorf("definition gave %v, %v", r, ctx.Err())
	}
	if ctx.Func("sq") == nil {
		t.Fatal("sq not defined")
	}
	n, err = mathparse.Parse("sq(4)")
	if err != nil {
		t.Fatal(err)
	}
	r := ctx.Eval(n)
	if r == nil {
		t.Fatalf("sq(4) failed: %v", ctx.Err())
	}
	if f, _ := r.Float64(); f != 16 {
		t.Errorf("sq(4): want 16, got %g", r)
	}

	r, err = mathparse.EvalString("f(x) = 1; g(x) = 2")
	if r != nil || err != nil {
		t.Errorf("block of definitions gave %v, %v", r, err)
	}
}

func TestEvalAssignmentsPersist(t *testing.T) {
	ctx := mathparse.NewContext()
	for _, c := range []struct {
		src string
		r   float64
	}{
		{"a = 3", 3},
		{"a^2", 9},
		{"a = a + 1", 4},
		{"a", 4},
	} {
		n, err := mathparse.Parse(c.src)
		if err != nil {
			t.Fatalf("%q: %v", c.src, err)
		}
		r := ctx.Eval(n)
		if r == nil {
			t.Fatalf("%q: %v", c.src, ctx.Err())
		}
		if f, _ := r.Float64(); f != c.r {
			t.Errorf("%q: want %g, got %g", c.src, c.r, r)
		}
	}
	if a := ctx.Lookup("a"); a == nil || a.Cmp(big.NewFloat(4)) != 0 {
		t.Errorf("a should be 4 but is %v", a)
	}
}

func TestEvalUndefNames(t *testing.T) {
	cases := []struct {
		name string
		src  string
		r    string
	}{
		{"x", "x", "x"},
		{"plus", "+x", "x"},
		{"neg", "-x", "x"},
		{"add-lhs", "x+1", "x"},
		{"add-rhs", "1+x", "x"},
		{"sub-lhs", "x-1", "x"},
		{"sub-rhs", "1-x", "x"},
		{"mul-lhs", "x*1", "x"},
		{"mul-rhs", "1*x", "x"},
		{"div-lhs", "x/1", "x"},
		{"div-rhs", "1/x", "x"},
		{"pow-lhs", "x^1", "x"},
		{"pow-rhs", "1^x", "x"},
		{"call", "exp(x)", "x"},
		{"func", "f(1)", "f"},
		{"compare", "1 < x < 2", "x"},
		{"condition", "x ? 1 : 2", "x"},
		{"branch", "1 ? y : 2", "y"},
		{"func-without-args", "sqrt", "sqrt"},
		{"param-scope", "f(p) = p; f(1) + p", "p"},
	}
	ure := regexp.MustCompile(`(?i)\bundef`)
	vre := regexp.MustCompile(`(?i)\bvar`)
	ctx := mathparse.NewContext(mathparse.Prec(64))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := mathparse.Parse(c.src)
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			ctx := ctx.Clone()
			if r := ctx.Eval(a); r != nil {
				t.Errorf("evaluating %q gave non-nil result %g", c.src, r)
			}
			err = ctx.Err()
			if err == nil {
				t.Fatalf("evaluating %q gave no error", c.src)
			}
			u, ok := err.(*mathparse.NameError)
			if !ok {
				t.Fatalf("error was %#v, not NameError", err)
			}
			msg := err.Error()
			if !ure.MatchString(msg) {
				t.Errorf(`%q doesn't mention "undef"`, msg)
			}
			if !vre.MatchString(msg) {
				t.Errorf(`%q doesn't mention "var"`, msg)
			}
			if u.Name != c.r {
				t.Errorf("NameError on %q, want %q", u.Name, c.r)
			}
			if !regexp.MustCompile(`\b` + c.r + `\b`).MatchString(msg) {
				t.Errorf(`%q doesn't mention %q`, msg, c.r)
			}
		})
	}
}

func TestEvalDomainError(t *testing.T) {
	cases := []struct {
		name string
		src  string
		fn   string
	}{
		{"sqrt", "sqrt(-1)", "sqrt"},
		{"log", "log(-1)", "log"},
		{"ln", "ln(-2)", "ln"},
		{"div-zero", "0/0", "/"},
		{"div-inf", "Infinity/Infinity", "/"},
		{"sub-inf", "Infinity - Infinity", "-"},
		{"pow-neg", "(-1)^0.5", "^"},
		{"factorial-neg", "(-1)!", "!"},
		{"factorial-frac", "2.5!", "!"},
		{"mod-inf", "Infinity mod 2", "mod"},
	}
	ctx := mathparse.NewContext()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := mathparse.EvalString(c.src)
			if err == nil {
				t.Fatalf("evaluating %q gave no error", c.src)
			}
			var de mathparse.DomainError
			if !errors.As(err, &de) {
				t.Fatalf("%#v is not a DomainError", err)
			}
			if de.Func != c.fn {
				t.Errorf("%q: want error in %q, got %q", c.src, c.fn, de.Func)
			}
			if !errors.As(err, new(big.ErrNaN)) {
				t.Errorf("%#v does not unwrap to big.ErrNaN", err)
			}

			// Same through a parsed tree and a reused context.
			a, err := mathparse.Parse(c.src, mathparse.NumberType(mathparse.NumberBig))
			if err != nil {
				t.Fatal(err)
			}
			ctx := ctx.Clone()
			if r := ctx.Eval(a); r != nil {
				t.Errorf("evaluating %q gave non-nil result %g", c.src, r)
			}
			if !errors.As(ctx.Err(), new(mathparse.DomainError)) {
				t.Errorf("context error %#v is not a DomainError", ctx.Err())
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		re   string
	}{
		{"string", `"abc"`, `not a number`},
		{"null", "null", `not a number`},
		{"undefined", "", `not a number`},
		{"nan", "NaN", `NaN`},
		{"matrix", "[1, 2]", `not a real-valued`},
		{"object", "{a: 1}", `not a real-valued`},
		{"range", "1:3", `not a real-valued`},
		{"index", "x[1]", `not a real-valued`},
		{"bitand", "1 & 2", `unsupported operation bitAnd`},
		{"shift", "1 << 2", `unsupported operation leftShift`},
		{"to", "1 to cm", `unsupported operation to`},
		{"transpose", "2'", `unsupported operation ctranspose`},
		{"nargs", "exp(1, 2)", `exp cannot take 2 arguments`},
		{"user-nargs", "f(x) = x; f(1, 2)", `f cannot take 2 arguments`},
		{"method", "x.f(1)", `call a function by name`},
		{"assign-index", "x[1] = 2", `assign to a name`},
		{"recursion", "f(x) = f(x); f(1)", `too many nested calls`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := mathparse.EvalString(c.src, mathparse.SetVar("x", big.NewFloat(1)))
			if r != nil {
				t.Errorf("evaluating %q gave non-nil result %g", c.src, r)
			}
			var ee *mathparse.EvalError
			if !errors.As(err, &ee) {
				t.Fatalf("evaluating %q gave %#v, not EvalError", c.src, err)
			}
			if !regexp.MustCompile(c.re).MatchString(err.Error()) {
				t.Errorf("error %q does not match %s", err, c.re)
			}
		})
	}
}

func TestContextVars(t *testing.T) {
	zero := new(big.Float)
	one := new(big.Float).SetFloat64(1)
	ctx := mathparse.NewContext(mathparse.Prec(64), mathparse.SetVar("x", zero))
	if x := ctx.Lookup("x"); x == nil || x.Cmp(zero) != 0 {
		t.Errorf("x should be %[1]v at %[1]p but is %[2]v at %[2]p", zero, x)
	}
	if y := ctx.Lookup("y"); y != nil {
		t.Errorf("context has y: %[1]v at %[1]p", y)
	}
	ctx.Set("y", one)
	if x := ctx.Lookup("x"); x == nil || x.Cmp(zero) != 0 {
		t.Errorf("x should be %[1]v at %[1]p but is %[2]v at %[2]p", zero, x)
	}
	if y := ctx.Lookup("y"); y == nil || y.Cmp(one) != 0 {
		t.Errorf("y should be %[1]v at %[1]p but is %[2]v at %[2]p", one, y)
	}
	ctx.Set("x", one)
	if x := ctx.Lookup("x"); x == nil || x.Cmp(one) != 0 {
		t.Errorf("x should be %[1]v at %[1]p but is %[2]v at %[2]p", one, x)
	}
	if y := ctx.Lookup("y"); y == nil || y.Cmp(one) != 0 {
		t.Errorf("y should be %[1]v at %[1]p but is %[2]v at %[2]p", one, y)
	}
}

func TestCloneIsolation(t *testing.T) {
	ctx := mathparse.NewContext(mathparse.SetVar("x", big.NewFloat(1)))
	c := ctx.Clone(mathparse.SetVar("x", big.NewFloat(2)), mathparse.Prec(128))
	if c.Prec() != 128 {
		t.Errorf("clone precision: want 128, got %d", c.Prec())
	}
	if ctx.Prec() != 64 {
		t.Errorf("original precision changed to %d", ctx.Prec())
	}
	if x := ctx.Lookup("x"); x.Cmp(big.NewFloat(1)) != 0 {
		t.Errorf("original x changed to %v", x)
	}
	n, err := mathparse.Parse("f(x) = x")
	if err != nil {
		t.Fatal(err)
	}
	c.Eval(n)
	if ctx.Func("f") != nil {
		t.Error("definition in clone leaked into original")
	}
}

func BenchmarkEval(b *testing.B) {
	vars := map[string]*big.Float{
		"x": big.NewFloat(2),
		"y": big.NewFloat(3),
		"z": big.NewFloat(4),
	}
	b.Run("nums", func(b *testing.B) {
		b.ReportAllocs()
		ctx := mathparse.NewContext(mathparse.Prec(64))
		a, err := mathparse.Parse("2+3+4")
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			ctx.Clone().Eval(a)
		}
	})
	b.Run("vars", func(b *testing.B) {
		b.ReportAllocs()
		ctx := mathparse.NewContext(mathparse.SetVars(vars), mathparse.Prec(64))
		a, err := mathparse.Parse("x+y+z")
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			ctx.Clone().Eval(a)
		}
	})
	b.Run("user", func(b *testing.B) {
		b.ReportAllocs()
		ctx := mathparse.NewContext(mathparse.Prec(64))
		a, err := mathparse.Parse("fact(n) = n <= 1 ? 1 : n * fact(n - 1); fact(20)")
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			ctx.Clone().Eval(a)
		}
	})
}

func Example() {
	ctx := mathparse.NewContext(mathparse.Prec(64))
	a, _ := mathparse.Parse("x^3/2 - x")
	b, _ := mathparse.Parse("3 x^2/2 - 1")
	c, _ := mathparse.Parse("3 x")

	for i := 0; i < 4; i++ {
		x := big.NewFloat(float64(i))
		ctx := ctx.Set("x", x)
		y := ctx.Clone().Eval(a)
		yp := ctx.Clone().Eval(b)
		ypp := ctx.Clone().Eval(c)
		fmt.Printf("x = %g   y = %-4g  y' = %-4g  y'' = %g\n", x, y, yp, ypp)
	}

	// Output:
	// x = 0   y = 0     y' = -1    y'' = 0
	// x = 1   y = -0.5  y' = 0.5   y'' = 3
	// x = 2   y = 2     y' = 5     y'' = 6
	// x = 3   y = 10.5  y' = 12.5  y'' = 9
}
