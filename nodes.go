package mathparse

import (
	"math/big"
	"strconv"
	"strings"
)

// Node is a node in the abstract syntax tree of an expression. The set of node
// types is closed except for CustomNode, which carries nodes built by a
// caller's NodeConstructor.
//
// String renders a node in a canonical prefix form, e.g. "2 + 3 * 4" as
// "add(2, multiply(3, 4))".
type Node interface {
	String() string
	// Comment returns the line comment that followed the node's statement,
	// including its leading '#', or the empty string.
	Comment() string

	setComment(string)
}

// NodeConstructor builds a custom node from its parsed arguments. The
// arguments are nil when the custom name appears without parentheses. A
// constructor that returns nil, including a nil pointer, fails the parse.
type NodeConstructor func(args []Node) Node

type commentable struct {
	comment string
}

func (c *commentable) Comment() string {
	return c.comment
}

func (c *commentable) setComment(s string) {
	c.comment = s
}

// undefinedValue is the type of Undefined.
type undefinedValue struct{}

func (undefinedValue) String() string {
	return "undefined"
}

// Undefined is the value of constants denoting an absent value, including the
// result of parsing an empty program.
var Undefined = undefinedValue{}

type (
	// ConstantNode is a literal value. Value is a number of one of the types
	// produced by the numeric materializer (float64, *big.Float, *big.Rat,
	// *big.Int), a string, a bool, nil for null, or Undefined.
	ConstantNode struct {
		commentable
		Value any
	}

	// SymbolNode is a reference to a name.
	SymbolNode struct {
		commentable
		Name string
	}

	// OperatorNode is a unary or binary operator application. Op is the
	// operator as written (or "*" for implicit multiplication), Fn the
	// name of the operation, e.g. "add" or "unaryMinus".
	OperatorNode struct {
		commentable
		Op   string
		Fn   string
		Args []Node
		// Implicit marks a multiplication written without an operator.
		Implicit bool
		// Percentage marks a division by 100 written with a postfix %.
		Percentage bool
	}

	// RelationalNode is a chain of three or more comparisons, e.g. a < b <= c.
	// len(Params) == len(Conditionals)+1.
	RelationalNode struct {
		commentable
		Conditionals []string
		Params       []Node
	}

	// ConditionalNode is condition ? TrueExpr : FalseExpr.
	ConditionalNode struct {
		commentable
		Condition Node
		TrueExpr  Node
		FalseExpr Node
	}

	// RangeNode is start:end or start:step:end. Step is nil if not given.
	RangeNode struct {
		commentable
		Start Node
		End   Node
		Step  Node
	}

	// ArrayNode is a bracketed list. Matrices are arrays of row arrays.
	ArrayNode struct {
		commentable
		Items []Node
	}

	// ObjectNode is a braced list of key: value pairs. Keys holds the keys in
	// order of first appearance.
	ObjectNode struct {
		commentable
		Keys       []string
		Properties map[string]Node
	}

	// FunctionNode is a call of Fn, which is a SymbolNode or AccessorNode.
	FunctionNode struct {
		commentable
		Fn   Node
		Args []Node
	}

	// AccessorNode is an index or property access of Object.
	AccessorNode struct {
		commentable
		Object Node
		Index  *IndexNode
	}

	// IndexNode holds the parts of an access. For dot notation there is one
	// dimension, a string constant.
	IndexNode struct {
		commentable
		Dimensions  []Node
		DotNotation bool
	}

	// AssignmentNode assigns Value to a symbol (Index nil) or to an access
	// path of Object.
	AssignmentNode struct {
		commentable
		Object Node
		Index  *IndexNode
		Value  Node
	}

	// FunctionAssignmentNode defines a function Name of Params as Expr.
	FunctionAssignmentNode struct {
		commentable
		Name   string
		Params []string
		Expr   Node
	}

	// BlockNode is a sequence of statements.
	BlockNode struct {
		commentable
		Blocks []Statement
	}

	// ParenthesisNode is a parenthesized expression.
	ParenthesisNode struct {
		commentable
		Content Node
	}

	// CustomNode is a convenience type for custom node constructors.
	CustomNode struct {
		commentable
		Name string
		Args []Node
	}
)

// Statement is an entry of a BlockNode. Visible is false if the statement was
// terminated by a semicolon.
type Statement struct {
	Node    Node
	Visible bool
}

func (n *ConstantNode) String() string {
	switch v := n.Value.(type) {
	case string:
		return strconv.Quote(v)
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case undefinedValue:
		return v.String()
	default:
		return formatNumber(v)
	}
}

// formatNumber formats a numeric constant value.
func formatNumber(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case *big.Float:
		return v.Text('g', -1)
	case *big.Rat:
		return v.RatString()
	case *big.Int:
		return v.String()
	default:
		return "?"
	}
}

func (n *SymbolNode) String() string {
	return n.Name
}

func (n *OperatorNode) String() string {
	var b strings.Builder
	fmtcall(&b, n.Fn, n.Args)
	return b.String()
}

func (n *RelationalNode) String() string {
	var b strings.Builder
	b.WriteString("relational[")
	b.WriteString(strings.Join(n.Conditionals, ", "))
	b.WriteByte(']')
	fmtcall(&b, "", n.Params)
	return b.String()
}

func (n *ConditionalNode) String() string {
	var b strings.Builder
	fmtcall(&b, "conditional", []Node{n.Condition, n.TrueExpr, n.FalseExpr})
	return b.String()
}

func (n *RangeNode) String() string {
	var b strings.Builder
	args := []Node{n.Start, n.End}
	if n.Step != nil {
		args = append(args, n.Step)
	}
	fmtcall(&b, "range", args)
	return b.String()
}

func (n *ArrayNode) String() string {
	var b strings.Builder
	b.WriteByte('[')
	fmtlist(&b, n.Items)
	b.WriteByte(']')
	return b.String()
}

func (n *ObjectNode) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range n.Keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(k))
		b.WriteString(": ")
		b.WriteString(n.Properties[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

func (n *FunctionNode) String() string {
	var b strings.Builder
	fmtcall(&b, n.Fn.String(), n.Args)
	return b.String()
}

func (n *AccessorNode) String() string {
	return n.Object.String() + n.Index.String()
}

func (n *IndexNode) String() string {
	if n.DotNotation && len(n.Dimensions) == 1 {
		if c, ok := n.Dimensions[0].(*ConstantNode); ok {
			if s, ok := c.Value.(string); ok {
				return "." + s
			}
		}
	}
	var b strings.Builder
	b.WriteByte('[')
	fmtlist(&b, n.Dimensions)
	b.WriteByte(']')
	return b.String()
}

func (n *AssignmentNode) String() string {
	target := n.Object.String()
	if n.Index != nil {
		target += n.Index.String()
	}
	return "assign(" + target + ", " + n.Value.String() + ")"
}

func (n *FunctionAssignmentNode) String() string {
	return "define(" + n.Name + ", [" + strings.Join(n.Params, ", ") + "], " + n.Expr.String() + ")"
}

func (n *BlockNode) String() string {
	var b strings.Builder
	b.WriteString("block(")
	for i, s := range n.Blocks {
		if i > 0 {
			if n.Blocks[i-1].Visible {
				b.WriteByte(',')
			}
			b.WriteByte(' ')
		}
		b.WriteString(s.Node.String())
		if !s.Visible {
			b.WriteByte(';')
		}
	}
	b.WriteByte(')')
	return b.String()
}

func (n *ParenthesisNode) String() string {
	return "(" + n.Content.String() + ")"
}

func (n *CustomNode) String() string {
	var b strings.Builder
	fmtcall(&b, n.Name, n.Args)
	return b.String()
}

// fmtcall writes name(args...).
func fmtcall(b *strings.Builder, name string, args []Node) {
	b.WriteString(name)
	b.WriteByte('(')
	fmtlist(b, args)
	b.WriteByte(')')
}

func fmtlist(b *strings.Builder, nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n.String())
	}
}

var (
	_ Node = (*ConstantNode)(nil)
	_ Node = (*SymbolNode)(nil)
	_ Node = (*OperatorNode)(nil)
	_ Node = (*RelationalNode)(nil)
	_ Node = (*ConditionalNode)(nil)
	_ Node = (*RangeNode)(nil)
	_ Node = (*ArrayNode)(nil)
	_ Node = (*ObjectNode)(nil)
	_ Node = (*FunctionNode)(nil)
	_ Node = (*AccessorNode)(nil)
	_ Node = (*IndexNode)(nil)
	_ Node = (*AssignmentNode)(nil)
	_ Node = (*FunctionAssignmentNode)(nil)
	_ Node = (*BlockNode)(nil)
	_ Node = (*ParenthesisNode)(nil)
	_ Node = (*CustomNode)(nil)
)
