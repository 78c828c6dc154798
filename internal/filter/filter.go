// Package filter implements the predicate tree used in a request's where
// clause, its textual mini-language and its wire format.
package filter

import (
	"fmt"
	"strings"
)

// Operator is the comparison applied by a Condition. The string value is the
// wire name; Token returns the mini-language spelling.
type Operator string

const (
	Equal          Operator = "eq"
	NotEqual       Operator = "ne"
	LessThan       Operator = "lt"
	LessOrEqual    Operator = "lte"
	GreaterThan    Operator = "gt"
	GreaterOrEqual Operator = "gte"
	Contains       Operator = "contains"
	StartsWith     Operator = "starts_with"
	EndsWith       Operator = "ends_with"
	IsNull         Operator = "is_null"
	IsNotNull      Operator = "is_not_null"
	In             Operator = "in"
	NotIn          Operator = "not_in"
)

var operatorTokens = map[Operator]string{
	Equal:          "==",
	NotEqual:       "!=",
	LessThan:       "<",
	LessOrEqual:    "<=",
	GreaterThan:    ">",
	GreaterOrEqual: ">=",
	Contains:       "~~",
	StartsWith:     "^~",
	EndsWith:       "~$",
	IsNull:         ">NULL<",
	IsNotNull:      "!>NULL<",
	In:             "[]",
	NotIn:          "![]",
}

var tokenOperators = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorTokens))
	for op, tok := range operatorTokens {
		m[tok] = op
	}
	return m
}()

// Token returns the mini-language token for the operator.
func (o Operator) Token() string {
	return operatorTokens[o]
}

func (o Operator) Valid() bool {
	_, ok := operatorTokens[o]
	return ok
}

// Unary reports whether the operator takes no value.
func (o Operator) Unary() bool {
	return o == IsNull || o == IsNotNull
}

// Set reports whether the operator expects a list value.
func (o Operator) Set() bool {
	return o == In || o == NotIn
}

// ParseOperator accepts either a wire name or a mini-language token.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	if op := Operator(strings.ToLower(s)); op.Valid() {
		return op, nil
	}
	if op, ok := tokenOperators[strings.ToUpper(s)]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown filter operator %q", s)
}

// Logic combines the children of a Group.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

func (l Logic) Valid() bool {
	return l == And || l == Or
}

// Node is either a *Condition or a *Group.
type Node interface {
	node()
	String() string
}

// Condition compares one property against a value.
type Condition struct {
	Property string
	Operator Operator
	Value    any
}

// Group joins its children with a single logic. Children order is kept for
// display and serialization only.
type Group struct {
	Logic   Logic
	Filters []Node
}

func (*Condition) node() {}
func (*Group) node()     {}

// NewGroup returns a group with the given children.
func NewGroup(logic Logic, children ...Node) *Group {
	return &Group{Logic: logic, Filters: children}
}

// Cond is a short constructor for a Condition.
func Cond(property string, op Operator, value any) *Condition {
	return &Condition{Property: property, Operator: op, Value: value}
}

// Empty reports whether the group is nil or has no children.
func (g *Group) Empty() bool {
	return g == nil || len(g.Filters) == 0
}

func (c *Condition) String() string {
	prop := "{" + c.Property + "}"
	if c.Operator.Unary() {
		return prop + " " + c.Operator.Token()
	}
	return prop + " " + c.Operator.Token() + " " + formatValue(c.Value)
}

// String renders the group in the mini-language so the output parses back to
// an equivalent tree. Nested groups are wrapped in parentheses. A root whose
// only child is a group gets an extra pair because Parse unwraps one level.
func (g *Group) String() string {
	if g == nil {
		return ""
	}
	s := g.render()
	if len(g.Filters) == 1 {
		if _, ok := g.Filters[0].(*Group); ok {
			return "(" + s + ")"
		}
	}
	return s
}

func (g *Group) render() string {
	parts := make([]string, 0, len(g.Filters))
	for _, child := range g.Filters {
		switch n := child.(type) {
		case *Group:
			parts = append(parts, "("+n.render()+")")
		default:
			parts = append(parts, n.String())
		}
	}
	return strings.Join(parts, " "+string(g.Logic)+" ")
}

// Clone returns a deep copy of the tree. Values are copied shallowly except
// for list values.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := &Group{Logic: g.Logic, Filters: make([]Node, 0, len(g.Filters))}
	for _, child := range g.Filters {
		out.Filters = append(out.Filters, cloneNode(child))
	}
	return out
}

func cloneNode(n Node) Node {
	switch v := n.(type) {
	case *Group:
		return v.Clone()
	case *Condition:
		c := *v
		if list, ok := v.Value.([]any); ok {
			c.Value = append([]any(nil), list...)
		}
		return &c
	}
	return n
}

// Rename returns a copy of the tree with every property passed through fn.
func Rename(g *Group, fn func(string) string) *Group {
	if g == nil {
		return nil
	}
	out := g.Clone()
	walk(out, func(c *Condition) {
		c.Property = fn(c.Property)
	})
	return out
}

// Properties lists the distinct properties referenced by the tree in order of
// first appearance.
func Properties(g *Group) []string {
	var out []string
	seen := map[string]bool{}
	walk(g, func(c *Condition) {
		if !seen[c.Property] {
			seen[c.Property] = true
			out = append(out, c.Property)
		}
	})
	return out
}

func walk(g *Group, fn func(*Condition)) {
	if g == nil {
		return
	}
	for _, child := range g.Filters {
		switch n := child.(type) {
		case *Group:
			walk(n, fn)
		case *Condition:
			fn(n)
		}
	}
}
