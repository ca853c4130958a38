package mathparse

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Grammar, loosest binding first. Every binary level is left-associative
// unless marked.
//
// Block       = [ Assignment ] { ( ';' | '\n' ) [ Assignment ] }
// Assignment  = Conditional [ '=' Assignment ]                  (right)
// Conditional = LogicalOr { '?' Assignment ':' Assignment }    (right)
// LogicalOr   = LogicalXor { 'or' LogicalXor }
// LogicalXor  = LogicalAnd { 'xor' LogicalAnd }
// LogicalAnd  = BitOr { 'and' BitOr }
// BitOr       = BitXor { '|' BitXor }
// BitXor      = BitAnd { '^|' BitAnd }
// BitAnd      = Relational { '&' Relational }
// Relational  = Shift { ( '==' | '!=' | '<' | '>' | '<=' | '>=' ) Shift }
// Shift       = Conversion { ( '<<' | '>>' | '>>>' ) Conversion }
// Conversion  = Range { ( 'to' | 'in' ) Range }
// Range       = ( AddSub | ':' ) [ ':' Part [ ':' Part ] ]
// AddSub      = MulDiv { ( '+' | '-' ) MulDiv }
// MulDiv      = Implicit { ( '*' | '.*' | '/' | './' | '%' | 'mod' ) Implicit | '%' }
// Implicit    = Rule2 { Rule2 }
// Rule2       = Unary { '/' number }                             (lookahead)
// Unary       = ( '-' | '+' | '~' | 'not' ) Unary | Pow
// Pow         = Postfix [ ( '^' | '.^' ) Unary ]                 (right)
// Postfix     = Custom { ( '!' | "'" ) Accessors }
// Custom      = custom-name [ '(' Args ')' ] | Symbol
// Symbol      = ( name | named-operator ) Accessors | String
// String      = string Accessors | Matrix
// Matrix      = '[' [ Row { ';' [ Row ] } ] ']' Accessors | Object
// Object      = '{' [ Key ':' Assignment { ',' Key ':' Assignment } ] '}' Accessors | Number
// Number      = number | Parens
// Parens      = '(' Assignment ')' Accessors | End
// Accessors   = { '(' Args ')' | '[' Args ']' | '.' name }

// Parse parses an expression or a block of statements. The given options are
// applied in order.
//
// The error, if any, is a *SyntaxError or a *StructureError.
func Parse(src string, opts ...ParseOption) (Node, error) {
	c := parsectx{nums: DefaultNumberConfig}
	for _, opt := range opts {
		c = opt.parseOption(c)
	}
	p := newParser(src, c)
	if err := p.next(); err != nil {
		return nil, err
	}
	n, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if p.tok.text != "" {
		if p.tok.kind == tokenDelimiter {
			return nil, p.structureError("Unexpected operator " + p.tok.text)
		}
		return nil, p.syntaxError(`Unexpected part "` + p.tok.text + `"`)
	}
	return n, nil
}

var (
	orOps     = map[string]string{"or": "or"}
	xorOps    = map[string]string{"xor": "xor"}
	andOps    = map[string]string{"and": "and"}
	bitOrOps  = map[string]string{"|": "bitOr"}
	bitXorOps = map[string]string{"^|": "bitXor"}
	bitAndOps = map[string]string{"&": "bitAnd"}
	relOps    = map[string]string{
		"==": "equal",
		"!=": "unequal",
		"<":  "smaller",
		">":  "larger",
		"<=": "smallerEq",
		">=": "largerEq",
	}
	shiftOps = map[string]string{
		"<<":  "leftShift",
		">>":  "rightArithShift",
		">>>": "rightLogShift",
	}
	convOps = map[string]string{"to": "to", "in": "to"}
	addOps  = map[string]string{"+": "add", "-": "subtract"}
	mulOps  = map[string]string{
		"*":   "multiply",
		".*":  "dotMultiply",
		"/":   "divide",
		"./":  "dotDivide",
		"%":   "mod",
		"mod": "mod",
	}
	unaryOps = map[string]string{
		"-":   "unaryMinus",
		"+":   "unaryPlus",
		"~":   "bitNot",
		"not": "not",
	}
	postfixOps = map[string]string{"!": "factorial", "'": "ctranspose"}
)

// op returns the operation for the current token if it is a delimiter in ops.
func (p *parser) op(ops map[string]string) (string, bool) {
	if p.tok.kind != tokenDelimiter {
		return "", false
	}
	fn, ok := ops[p.tok.text]
	return fn, ok
}

// atEnd reports whether the current token ends a statement.
func (p *parser) atEnd() bool {
	return p.tok.text == "" || p.tok.text == "\n" || p.tok.text == ";"
}

// isName reports whether the current token can be used as a name: a symbol
// or a named operator.
func (p *parser) isName() bool {
	return p.tok.kind == tokenSymbol || p.tok.kind == tokenDelimiter && namedDelimiters[p.tok.text]
}

func (p *parser) attachComment(n Node) {
	if p.comment != "" {
		n.setComment(p.comment)
	}
}

func (p *parser) parseBlock() (Node, error) {
	var (
		n      Node
		blocks []Statement
		err    error
	)
	if !p.atEnd() {
		n, err = p.parseAssignment()
		if err != nil {
			return nil, err
		}
		p.attachComment(n)
	}
	for p.tok.text == "\n" || p.tok.text == ";" {
		if len(blocks) == 0 && n != nil {
			blocks = append(blocks, Statement{Node: n, Visible: p.tok.text != ";"})
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		if !p.atEnd() {
			n, err = p.parseAssignment()
			if err != nil {
				return nil, err
			}
			p.attachComment(n)
			blocks = append(blocks, Statement{Node: n, Visible: p.tok.text != ";"})
		}
	}
	if len(blocks) > 0 {
		return &BlockNode{Blocks: blocks}, nil
	}
	if n == nil {
		n = &ConstantNode{Value: Undefined}
		p.attachComment(n)
	}
	return n, nil
}

func (p *parser) parseAssignment() (Node, error) {
	n, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.tok.text != "=" {
		return n, nil
	}
	switch n := n.(type) {
	case *SymbolNode:
		v, err := p.parseAssignedValue()
		if err != nil {
			return nil, err
		}
		return &AssignmentNode{Object: &SymbolNode{Name: n.Name}, Value: v}, nil
	case *AccessorNode:
		v, err := p.parseAssignedValue()
		if err != nil {
			return nil, err
		}
		return &AssignmentNode{Object: n.Object, Index: n.Index, Value: v}, nil
	case *FunctionNode:
		sym, ok := n.Fn.(*SymbolNode)
		if !ok {
			break
		}
		params := make([]string, len(n.Args))
		for i, arg := range n.Args {
			s, ok := arg.(*SymbolNode)
			if !ok {
				return nil, p.syntaxError("Invalid left hand side of assignment =")
			}
			params[i] = s.Name
		}
		v, err := p.parseAssignedValue()
		if err != nil {
			return nil, err
		}
		return &FunctionAssignmentNode{Name: sym.Name, Params: params, Expr: v}, nil
	}
	return nil, p.syntaxError("Invalid left hand side of assignment =")
}

// parseAssignedValue parses the right side of an assignment, starting at =.
func (p *parser) parseAssignedValue() (Node, error) {
	if err := p.nextSkipNewline(); err != nil {
		return nil, err
	}
	return p.parseAssignment()
}

func (p *parser) parseConditional() (Node, error) {
	n, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	for p.tok.text == "?" {
		// A : at this depth now belongs to the conditional, not a range.
		prev := p.cond
		p.cond = p.depth
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		t, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if p.tok.text != ":" {
			return nil, p.syntaxError("False part of conditional expression expected")
		}
		p.cond = noCond
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		f, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		n = &ConditionalNode{Condition: n, TrueExpr: t, FalseExpr: f}
		p.cond = prev
	}
	return n, nil
}

// parseBinary parses a left-associative chain of operands joined by ops.
func (p *parser) parseBinary(operand func() (Node, error), ops map[string]string) (Node, error) {
	n, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		fn, ok := p.op(ops)
		if !ok {
			return n, nil
		}
		op := p.tok.text
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		r, err := operand()
		if err != nil {
			return nil, err
		}
		n = &OperatorNode{Op: op, Fn: fn, Args: []Node{n, r}}
	}
}

func (p *parser) parseLogicalOr() (Node, error) {
	return p.parseBinary(p.parseLogicalXor, orOps)
}

func (p *parser) parseLogicalXor() (Node, error) {
	return p.parseBinary(p.parseLogicalAnd, xorOps)
}

func (p *parser) parseLogicalAnd() (Node, error) {
	return p.parseBinary(p.parseBitOr, andOps)
}

func (p *parser) parseBitOr() (Node, error) {
	return p.parseBinary(p.parseBitXor, bitOrOps)
}

func (p *parser) parseBitXor() (Node, error) {
	return p.parseBinary(p.parseBitAnd, bitXorOps)
}

func (p *parser) parseBitAnd() (Node, error) {
	return p.parseBinary(p.parseRelational, bitAndOps)
}

// parseRelational parses a chain of comparisons. Two operands make a plain
// operator node; more make a RelationalNode.
func (p *parser) parseRelational() (Node, error) {
	n, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	params := []Node{n}
	var ops, fns []string
	for {
		fn, ok := p.op(relOps)
		if !ok {
			break
		}
		ops = append(ops, p.tok.text)
		fns = append(fns, fn)
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		r, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		params = append(params, r)
	}
	switch len(params) {
	case 1:
		return params[0], nil
	case 2:
		return &OperatorNode{Op: ops[0], Fn: fns[0], Args: params}, nil
	default:
		return &RelationalNode{Conditionals: fns, Params: params}, nil
	}
}

func (p *parser) parseShift() (Node, error) {
	return p.parseBinary(p.parseConversion, shiftOps)
}

// parseConversion parses unit conversions. A trailing in with nothing after
// it is the unit inch rather than the operator.
func (p *parser) parseConversion() (Node, error) {
	n, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	for {
		fn, ok := p.op(convOps)
		if !ok {
			return n, nil
		}
		op := p.tok.text
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		if op == "in" && p.tok.text == "" {
			n = &OperatorNode{Op: "*", Fn: "multiply", Args: []Node{n, &SymbolNode{Name: "in"}}, Implicit: true}
			continue
		}
		r, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		n = &OperatorNode{Op: op, Fn: fn, Args: []Node{n, r}}
	}
}

func (p *parser) parseRange() (Node, error) {
	var n Node
	if p.tok.text == ":" {
		// implicit start
		one, err := p.constant("1")
		if err != nil {
			return nil, err
		}
		n = one
	} else {
		var err error
		n, err = p.parseAddSubtract()
		if err != nil {
			return nil, err
		}
	}
	if p.tok.text != ":" || p.cond == p.depth {
		return n, nil
	}
	params := []Node{n}
	for p.tok.text == ":" && len(params) < 3 {
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		switch p.tok.text {
		case ")", "]", ",", "":
			// implicit end
			params = append(params, &SymbolNode{Name: "end"})
		default:
			r, err := p.parseAddSubtract()
			if err != nil {
				return nil, err
			}
			params = append(params, r)
		}
	}
	if len(params) == 3 {
		return &RangeNode{Start: params[0], End: params[2], Step: params[1]}, nil
	}
	return &RangeNode{Start: params[0], End: params[1]}, nil
}

// parseAddSubtract parses sums. A percentage on the right is a percentage of
// the left: a + b% is a + a*(b/100).
func (p *parser) parseAddSubtract() (Node, error) {
	n, err := p.parseMultiplyDivide()
	if err != nil {
		return nil, err
	}
	for {
		fn, ok := p.op(addOps)
		if !ok {
			return n, nil
		}
		op := p.tok.text
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		r, err := p.parseMultiplyDivide()
		if err != nil {
			return nil, err
		}
		if o, ok := r.(*OperatorNode); ok && o.Percentage {
			r = &OperatorNode{Op: "*", Fn: "multiply", Args: []Node{n, r}}
		}
		n = &OperatorNode{Op: op, Fn: fn, Args: []Node{n, r}}
	}
}

// parseMultiplyDivide parses products, quotients, and remainders. A % with no
// operand after it is a percentage instead of the remainder operator.
func (p *parser) parseMultiplyDivide() (Node, error) {
	n, err := p.parseImplicitMultiplication()
	if err != nil {
		return nil, err
	}
	for {
		fn, ok := p.op(mulOps)
		if !ok {
			return n, nil
		}
		op := p.tok.text
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		if op == "%" && p.tok.kind == tokenDelimiter && p.tok.text != "(" {
			pct, err := p.percentage(n)
			if err != nil {
				return nil, err
			}
			fn, ok := p.op(mulOps)
			if !ok || p.tok.text == "" {
				n = pct
				continue
			}
			op := p.tok.text
			if err := p.nextSkipNewline(); err != nil {
				return nil, err
			}
			r, err := p.parseImplicitMultiplication()
			if err != nil {
				return nil, err
			}
			n = &OperatorNode{Op: op, Fn: fn, Args: []Node{pct, r}}
			continue
		}
		r, err := p.parseImplicitMultiplication()
		if err != nil {
			return nil, err
		}
		n = &OperatorNode{Op: op, Fn: fn, Args: []Node{n, r}}
	}
}

// percentage returns n/100 marked as a percentage.
func (p *parser) percentage(n Node) (Node, error) {
	hundred, err := p.constant("100")
	if err != nil {
		return nil, err
	}
	return &OperatorNode{Op: "/", Fn: "divide", Args: []Node{n, hundred}, Percentage: true}, nil
}

// parseImplicitMultiplication parses juxtaposed terms like 2 x, (a)(b), or
// (1+2)3 as products.
func (p *parser) parseImplicitMultiplication() (Node, error) {
	n, err := p.parseRule2()
	if err != nil {
		return nil, err
	}
	last := n
	for p.implicitOperand(n, last) {
		last, err = p.parseRule2()
		if err != nil {
			return nil, err
		}
		n = &OperatorNode{Op: "*", Fn: "multiply", Args: []Node{n, last}, Implicit: true}
	}
	return n, nil
}

// implicitOperand reports whether the current token starts another factor of
// an implicit multiplication. n is the product so far and last its last
// factor.
func (p *parser) implicitOperand(n, last Node) bool {
	switch {
	case p.tok.kind == tokenSymbol:
		return true
	case p.tok.kind == tokenDelimiter && p.tok.text == "(":
		return true
	case p.tok.kind == tokenDelimiter && p.tok.text == "in":
		// 2 in, -2 in: inches
		return isConstant(n) || isNegatedConstant(n)
	case p.tok.kind == tokenNumber:
		// (1+2)3 and x 3 but not 2 3 or 2^3 4
		if isConstant(last) {
			return false
		}
		o, ok := last.(*OperatorNode)
		return !ok || o.Op == "!"
	}
	return false
}

func isConstant(n Node) bool {
	_, ok := n.(*ConstantNode)
	return ok
}

func isNegatedConstant(n Node) bool {
	o, ok := n.(*OperatorNode)
	return ok && o.Fn == "unaryMinus" && len(o.Args) == 1 && isConstant(o.Args[0])
}

// rule2Node reports whether n may be the dividend in x / n y, which then
// parses as (x / n) y.
func rule2Node(n Node) bool {
	switch n := n.(type) {
	case *ConstantNode, *SymbolNode:
		return true
	case *OperatorNode:
		return len(n.Args) == 1 && isConstant(n.Args[0]) && strings.Contains("-+~", n.Op)
	}
	return false
}

// parseRule2 parses divisions of the form x / n y, where n is a number and y
// a symbol or parenthesized term, as (x / n) y. Any other division is left
// for parseMultiplyDivide.
func (p *parser) parseRule2() (Node, error) {
	n, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	last := n
	for p.tok.kind == tokenDelimiter && p.tok.text == "/" && rule2Node(last) {
		p.push()
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokenNumber {
			p.restore()
			break
		}
		p.push()
		if err := p.nextSkipNewline(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokenSymbol || p.tok.kind == tokenDelimiter && (p.tok.text == "(" || p.tok.text == "in") {
			// Back to the number. The symbol is left for implicit
			// multiplication.
			p.restore()
			p.drop()
			last, err = p.parseUnary()
			if err != nil {
				return nil, err
			}
			n = &OperatorNode{Op: "/", Fn: "divide", Args: []Node{n, last}}
			continue
		}
		p.drop()
		p.restore()
		break
	}
	return n, nil
}

func (p *parser) parseUnary() (Node, error) {
	fn, ok := p.op(unaryOps)
	if !ok {
		return p.parsePow()
	}
	op := p.tok.text
	if err := p.nextSkipNewline(); err != nil {
		return nil, err
	}
	arg, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &OperatorNode{Op: op, Fn: fn, Args: []Node{arg}}, nil
}

func (p *parser) parsePow() (Node, error) {
	n, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokenDelimiter || p.tok.text != "^" && p.tok.text != ".^" {
		return n, nil
	}
	op, fn := p.tok.text, "pow"
	if op == ".^" {
		fn = "dotPow"
	}
	if err := p.nextSkipNewline(); err != nil {
		return nil, err
	}
	// The exponent may carry a sign: 2^-3.
	r, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &OperatorNode{Op: op, Fn: fn, Args: []Node{n, r}}, nil
}

func (p *parser) parsePostfix() (Node, error) {
	n, err := p.parseCustomNode()
	if err != nil {
		return nil, err
	}
	for {
		fn, ok := p.op(postfixOps)
		if !ok {
			return n, nil
		}
		op := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		n, err = p.parseAccessors(&OperatorNode{Op: op, Fn: fn, Args: []Node{n}})
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseCustomNode() (Node, error) {
	if p.tok.kind != tokenSymbol || p.custom[p.tok.text] == nil {
		return p.parseSymbol()
	}
	name := p.tok.text
	ctor := p.custom[name]
	if err := p.next(); err != nil {
		return nil, err
	}
	var args []Node
	if p.tok.text == "(" {
		p.open()
		if err := p.next(); err != nil {
			return nil, err
		}
		var err error
		args, err = p.parseArgs(")")
		if err != nil {
			return nil, err
		}
		if p.tok.text != ")" {
			return nil, p.syntaxError("Parenthesis ) expected")
		}
		p.close()
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	n := ctor(args)
	if isNilNode(n) {
		return nil, p.syntaxError(`Custom node "` + name + `" constructed no node`)
	}
	return n, nil
}

// isNilNode reports whether n is nil or a nil pointer in a Node.
func isNilNode(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// parseArgs parses a comma-separated list of assignments up to but not
// including end. The result is non-nil even if the list is empty.
func (p *parser) parseArgs(end string) ([]Node, error) {
	args := []Node{}
	if p.tok.text == end {
		return args, nil
	}
	for {
		n, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		args = append(args, n)
		if p.tok.text != "," {
			return args, nil
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseSymbol() (Node, error) {
	if !p.isName() {
		return p.parseString()
	}
	name := p.tok.text
	col := p.col()
	if err := p.next(); err != nil {
		return nil, err
	}
	var n Node
	switch {
	case hasConstant(name):
		n = &ConstantNode{Value: constants[name]}
	case numericConstants[name]:
		v, err := materialize(name, NumberFloat, p.nums.Prec)
		if err != nil {
			return nil, &SyntaxError{Col: col, Msg: err.Error(), Err: err}
		}
		n = &ConstantNode{Value: v}
	default:
		n = &SymbolNode{Name: name}
	}
	return p.parseAccessors(n)
}

func hasConstant(name string) bool {
	_, ok := constants[name]
	return ok
}

// parseAccessors parses calls, indexing, and property access following n. A
// parenthesis after anything but a name or access is left for implicit
// multiplication.
func (p *parser) parseAccessors(n Node) (Node, error) {
	for p.tok.kind == tokenDelimiter {
		switch p.tok.text {
		case "(":
			switch n.(type) {
			case *SymbolNode, *AccessorNode: // do nothing
			default:
				return n, nil
			}
			p.open()
			if err := p.next(); err != nil {
				return nil, err
			}
			args, err := p.parseArgs(")")
			if err != nil {
				return nil, err
			}
			if p.tok.text != ")" {
				return nil, p.syntaxError("Parenthesis ) expected")
			}
			p.close()
			if err := p.next(); err != nil {
				return nil, err
			}
			n = &FunctionNode{Fn: n, Args: args}
		case "[":
			p.open()
			if err := p.next(); err != nil {
				return nil, err
			}
			dims, err := p.parseArgs("]")
			if err != nil {
				return nil, err
			}
			if p.tok.text != "]" {
				return nil, p.syntaxError("Parenthesis ] expected")
			}
			p.close()
			if err := p.next(); err != nil {
				return nil, err
			}
			n = &AccessorNode{Object: n, Index: &IndexNode{Dimensions: dims}}
		case ".":
			if err := p.next(); err != nil {
				return nil, err
			}
			if !p.isName() {
				return nil, p.syntaxError("Property name expected after dot")
			}
			prop := &ConstantNode{Value: p.tok.text}
			if err := p.next(); err != nil {
				return nil, err
			}
			n = &AccessorNode{Object: n, Index: &IndexNode{Dimensions: []Node{prop}, DotNotation: true}}
		default:
			return n, nil
		}
	}
	return n, nil
}

func (p *parser) parseString() (Node, error) {
	if p.tok.kind != tokenDelimiter || p.tok.text != `"` && p.tok.text != "'" {
		return p.parseMatrix()
	}
	s, err := p.parseStringToken()
	if err != nil {
		return nil, err
	}
	return p.parseAccessors(&ConstantNode{Value: s})
}

// escapes are the characters that may follow a backslash in a string, other
// than u.
var escapes = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'\\': '\\',
	'/':  '/',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
}

// hexEscape decodes the four hex digits starting at src[i].
func (p *parser) hexEscape(i int) (rune, bool) {
	if i+4 > len(p.src) {
		return 0, false
	}
	v, err := strconv.ParseUint(string(p.src[i:i+4]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// parseStringToken reads the raw characters of a string whose opening quote
// is the current token, then reads the token after the closing quote.
func (p *parser) parseStringToken() (string, error) {
	quote := p.tok.text
	q := []rune(quote)[0]
	var b strings.Builder
	for c := p.cur(); c != eof && c != q; c = p.cur() {
		if c != '\\' {
			b.WriteRune(c)
			p.pos++
			continue
		}
		p.pos++
		c = p.cur()
		if e, ok := escapes[c]; ok {
			b.WriteRune(e)
			p.pos++
			continue
		}
		switch c {
		case 'u':
			r, ok := p.hexEscape(p.pos + 1)
			if !ok {
				hex := string(p.src[p.pos+1 : min(p.pos+5, len(p.src))])
				return "", p.syntaxError(`Invalid unicode character \u` + hex)
			}
			p.pos += 5
			// A surrogate pair written as two escapes is one character.
			if utf16.IsSurrogate(r) && p.ahead(2) == `\u` {
				if lo, ok := p.hexEscape(p.pos + 2); ok {
					if c := utf16.DecodeRune(r, lo); c != unicode.ReplacementChar {
						r = c
						p.pos += 6
					}
				}
			}
			b.WriteRune(r)
		case eof:
			return "", p.syntaxError(`Bad escape character \`)
		default:
			return "", p.syntaxError(`Bad escape character \` + string(c))
		}
	}
	if err := p.next(); err != nil {
		return "", err
	}
	if p.tok.text != quote {
		return "", p.syntaxError("End of string " + quote + " expected")
	}
	if err := p.next(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *parser) parseMatrix() (Node, error) {
	if p.tok.kind != tokenDelimiter || p.tok.text != "[" {
		return p.parseObject()
	}
	p.open()
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.tok.text == "]" {
		p.close()
		if err := p.next(); err != nil {
			return nil, err
		}
		return p.parseAccessors(&ArrayNode{Items: []Node{}})
	}
	row, err := p.parseRow()
	if err != nil {
		return nil, err
	}
	if p.tok.text != ";" {
		if p.tok.text != "]" {
			return nil, p.syntaxError("End of matrix ] expected")
		}
		p.close()
		if err := p.next(); err != nil {
			return nil, err
		}
		return p.parseAccessors(row)
	}
	rows := []*ArrayNode{row}
	for p.tok.text == ";" {
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.text == "]" || p.tok.text == ";" {
			// empty row
			continue
		}
		row, err := p.parseRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if p.tok.text != "]" {
		return nil, p.syntaxError("End of matrix ] expected")
	}
	p.close()
	if err := p.next(); err != nil {
		return nil, err
	}
	widths := rowWidths(rows)
	items := make([]Node, len(rows))
	for i, r := range rows {
		if widths[i] != widths[0] {
			return nil, p.structureError("Column dimensions mismatch (" + strconv.Itoa(widths[i]) + " !== " + strconv.Itoa(widths[0]) + ")")
		}
		items[i] = r
	}
	return p.parseAccessors(&ArrayNode{Items: items})
}

// rowWidths gives the number of columns in each matrix row. When every row is
// a single bracketed list, as in [[1, 2]; [3, 4]], the columns are those of
// the inner lists. Otherwise they are the item counts of the rows.
func rowWidths(rows []*ArrayNode) []int {
	widths := make([]int, len(rows))
	for i, r := range rows {
		widths[i] = len(r.Items)
	}
	for _, r := range rows {
		if len(r.Items) != 1 {
			return widths
		}
		if _, ok := r.Items[0].(*ArrayNode); !ok {
			return widths
		}
	}
	for i, r := range rows {
		widths[i] = len(r.Items[0].(*ArrayNode).Items)
	}
	return widths
}

// parseRow parses one comma-separated matrix row. A trailing comma is allowed.
func (p *parser) parseRow() (*ArrayNode, error) {
	n, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	items := []Node{n}
	for p.tok.text == "," {
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.text == "]" || p.tok.text == ";" {
			continue
		}
		n, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return &ArrayNode{Items: items}, nil
}

func (p *parser) parseObject() (Node, error) {
	if p.tok.kind != tokenDelimiter || p.tok.text != "{" {
		return p.parseNumber()
	}
	p.open()
	obj := &ObjectNode{Properties: make(map[string]Node)}
	for {
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.text != "}" {
			var key string
			switch {
			case p.tok.kind == tokenDelimiter && (p.tok.text == `"` || p.tok.text == "'"):
				k, err := p.parseStringToken()
				if err != nil {
					return nil, err
				}
				key = k
			case p.isName():
				key = p.tok.text
				if err := p.next(); err != nil {
					return nil, err
				}
			default:
				return nil, p.syntaxError("Symbol or string expected as object key")
			}
			if p.tok.text != ":" {
				return nil, p.syntaxError("Colon : expected after object key")
			}
			if err := p.next(); err != nil {
				return nil, err
			}
			v, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			if _, ok := obj.Properties[key]; !ok {
				obj.Keys = append(obj.Keys, key)
			}
			obj.Properties[key] = v
		}
		if p.tok.text != "," {
			break
		}
	}
	if p.tok.text != "}" {
		return nil, p.syntaxError("Comma , or bracket } expected after object value")
	}
	p.close()
	if err := p.next(); err != nil {
		return nil, err
	}
	return p.parseAccessors(obj)
}

func (p *parser) parseNumber() (Node, error) {
	if p.tok.kind != tokenNumber {
		return p.parseParentheses()
	}
	n, err := p.constant(p.tok.text)
	if err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	return n, nil
}

// constant materializes a numeric literal with the parse's numeric policy.
// Failures are reported at the current token.
func (p *parser) constant(text string) (*ConstantNode, error) {
	v, err := materialize(text, selectKind(text, p.nums), p.nums.Prec)
	if err != nil {
		return nil, &SyntaxError{Col: p.col(), Msg: err.Error(), Err: err}
	}
	return &ConstantNode{Value: v}, nil
}

func (p *parser) parseParentheses() (Node, error) {
	if p.tok.kind != tokenDelimiter || p.tok.text != "(" {
		return nil, p.parseEnd()
	}
	p.open()
	if err := p.next(); err != nil {
		return nil, err
	}
	n, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if p.tok.text != ")" {
		return nil, p.syntaxError("Parenthesis ) expected")
	}
	p.close()
	if err := p.next(); err != nil {
		return nil, err
	}
	return p.parseAccessors(&ParenthesisNode{Content: n})
}

// parseEnd returns the error for a missing value.
func (p *parser) parseEnd() error {
	if p.tok.text == "" {
		return p.syntaxError("Unexpected end of expression")
	}
	return p.syntaxError("Value expected")
}
