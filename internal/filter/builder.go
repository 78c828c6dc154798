package filter

import (
	"errors"
	"fmt"
)

// Builder assembles a filter tree with chained And/Or calls. The zero value
// is ready to use.
type Builder struct {
	root *Group
	err  error
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build runs fn against a fresh builder and returns the resulting tree.
func Build(fn func(*Builder)) (*Group, error) {
	if fn == nil {
		return nil, errors.New("filter: nil build callback")
	}
	b := NewBuilder()
	fn(b)
	if b.err != nil {
		return nil, b.err
	}
	return b.Group(), nil
}

// And appends a condition joined with AND.
func (b *Builder) And(property string, op Operator, value any) *Builder {
	return b.add(And, property, op, value)
}

// Or appends a condition joined with OR.
func (b *Builder) Or(property string, op Operator, value any) *Builder {
	return b.add(Or, property, op, value)
}

// AndGroup appends a parenthesized group built by fn, joined with AND.
func (b *Builder) AndGroup(fn func(*Builder)) *Builder {
	return b.addGroup(And, fn)
}

// OrGroup appends a parenthesized group built by fn, joined with OR.
func (b *Builder) OrGroup(fn func(*Builder)) *Builder {
	return b.addGroup(Or, fn)
}

// Group returns the built tree, or nil when nothing was added.
func (b *Builder) Group() *Group {
	if b.root.Empty() {
		return nil
	}
	return b.root
}

// Clear drops the tree and any recorded error.
func (b *Builder) Clear() *Builder {
	b.root = nil
	b.err = nil
	return b
}

func (b *Builder) Empty() bool {
	return b.root.Empty()
}

// Err returns the first invalid call made on the builder.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) add(logic Logic, property string, op Operator, value any) *Builder {
	if b.err != nil {
		return b
	}
	if property == "" {
		b.err = errors.New("filter: empty property")
		return b
	}
	if !op.Valid() {
		b.err = fmt.Errorf("filter: unknown operator %q", op)
		return b
	}
	if op.Unary() {
		value = nil
	}
	b.append(logic, &Condition{Property: property, Operator: op, Value: value})
	return b
}

func (b *Builder) addGroup(logic Logic, fn func(*Builder)) *Builder {
	if b.err != nil {
		return b
	}
	sub, err := Build(fn)
	if err != nil {
		b.err = err
		return b
	}
	if sub == nil {
		return b
	}
	b.append(logic, sub)
	return b
}

// append adds n under logic. When the root already joins several children
// with the other logic, those children move into a nested group first.
func (b *Builder) append(logic Logic, n Node) {
	switch {
	case b.root == nil:
		b.root = &Group{Logic: logic}
	case b.root.Logic != logic && len(b.root.Filters) > 1:
		b.root = &Group{Logic: logic, Filters: []Node{b.root}}
	default:
		b.root.Logic = logic
	}
	b.root.Filters = append(b.root.Filters, n)
}
