package boolexpr

import (
	"fmt"
	"math"
	"strconv"
)

// Node is one node of a parsed condition expression. The tree is immutable
// after parsing; the concrete types below form the closed set of variants.
type Node interface {
	node()
}

// Literal is a constant bool, number, or string value. Numbers are always
// float64.
type Literal struct {
	Value any
}

// Identifier is a bare variable reference resolved against the evaluation
// context.
type Identifier struct {
	Name string
}

// TemplateLiteral is a ${path.to.value} reference resolved by dot-path
// traversal of the evaluation context.
type TemplateLiteral struct {
	Path string
}

// BinaryExpr is a comparison: ==, !=, >, <, >=, <=.
type BinaryExpr struct {
	Op    string
	Left  Node
	Right Node
}

// LogicalExpr is a short-circuit && or ||.
type LogicalExpr struct {
	Op    string
	Left  Node
	Right Node
}

// ParenExpr preserves explicit grouping so serialization round-trips.
type ParenExpr struct {
	Expr Node
}

func (*Literal) node()         {}
func (*Identifier) node()      {}
func (*TemplateLiteral) node() {}
func (*BinaryExpr) node()      {}
func (*LogicalExpr) node()     {}
func (*ParenExpr) node()       {}

// Serialize renders an AST back to source text. The output is not
// byte-identical to the original (whitespace is normalized) but re-parses
// to an equivalent tree.
func Serialize(n Node) string {
	switch v := n.(type) {
	case *Literal:
		return serializeLiteral(v.Value)
	case *Identifier:
		return v.Name
	case *TemplateLiteral:
		return "${" + v.Path + "}"
	case *BinaryExpr:
		return fmt.Sprintf("%s %s %s", Serialize(v.Left), v.Op, Serialize(v.Right))
	case *LogicalExpr:
		return fmt.Sprintf("%s %s %s", Serialize(v.Left), v.Op, Serialize(v.Right))
	case *ParenExpr:
		return "(" + Serialize(v.Expr) + ")"
	default:
		return ""
	}
}

func serializeLiteral(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		// Integral floats serialize without the fractional part.
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return `"` + v + `"`
	default:
		return fmt.Sprintf("%v", v)
	}
}

// String implements fmt.Stringer for debugging.
func (b *BinaryExpr) String() string  { return Serialize(b) }
func (l *LogicalExpr) String() string { return Serialize(l) }
