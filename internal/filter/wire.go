package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

type wireGroup struct {
	Logic   Logic  `json:"logic"`
	Filters []Node `json:"filters"`
}

type wireCondition struct {
	Property string   `json:"property"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

type wireNode struct {
	Logic    *string           `json:"logic"`
	Filters  []json.RawMessage `json:"filters"`
	Property string            `json:"property"`
	Operator string            `json:"operator"`
	Value    any               `json:"value"`
}

func (g *Group) MarshalJSON() ([]byte, error) {
	filters := g.Filters
	if filters == nil {
		filters = []Node{}
	}
	return json.Marshal(wireGroup{Logic: g.Logic, Filters: filters})
}

func (c *Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCondition{Property: c.Property, Operator: c.Operator, Value: c.Value})
}

func (g *Group) UnmarshalJSON(data []byte) error {
	n, err := decodeNode(data, 0)
	if err != nil {
		return err
	}
	switch v := n.(type) {
	case *Group:
		*g = *v
	case *Condition:
		// a bare condition at the root is wrapped the way Parse would
		*g = Group{Logic: And, Filters: []Node{v}}
	}
	return nil
}

// Decode reads the {logic, filters} wire shape. JSON null yields a nil group.
func Decode(data []byte) (*Group, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	g := &Group{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, err
	}
	return g, nil
}

func decodeNode(data []byte, depth int) (Node, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("filter: nesting deeper than %d levels", maxNesting)
	}
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("filter: decode node: %w", err)
	}
	if w.Logic != nil || w.Filters != nil {
		logic := And
		if w.Logic != nil {
			logic = Logic(*w.Logic)
		}
		if !logic.Valid() {
			return nil, fmt.Errorf("filter: unknown logic %q", logic)
		}
		g := &Group{Logic: logic, Filters: make([]Node, 0, len(w.Filters))}
		for _, raw := range w.Filters {
			child, err := decodeNode(raw, depth+1)
			if err != nil {
				return nil, err
			}
			g.Filters = append(g.Filters, child)
		}
		return g, nil
	}
	if w.Property == "" {
		return nil, fmt.Errorf("filter: condition without property")
	}
	op, err := ParseOperator(w.Operator)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	value := w.Value
	if op.Unary() {
		value = nil
	}
	return &Condition{Property: w.Property, Operator: op, Value: value}, nil
}

// Equivalent reports whether two trees are structurally equal. Numeric values
// compare by value regardless of their Go type. The logic of a group with
// fewer than two children does not affect its meaning and is not compared.
func Equivalent(a, b *Group) bool {
	if a.Empty() || b.Empty() {
		return a.Empty() && b.Empty()
	}
	return nodesEqual(a, b)
}

func nodesEqual(a, b Node) bool {
	switch x := a.(type) {
	case *Group:
		y, ok := b.(*Group)
		if !ok || len(x.Filters) != len(y.Filters) || (len(x.Filters) > 1 && x.Logic != y.Logic) {
			return false
		}
		for i := range x.Filters {
			if !nodesEqual(x.Filters[i], y.Filters[i]) {
				return false
			}
		}
		return true
	case *Condition:
		y, ok := b.(*Condition)
		return ok && x.Property == y.Property && x.Operator == y.Operator && valuesEqual(x.Value, y.Value)
	}
	return false
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	la, aList := toList(a)
	lb, bList := toList(b)
	if aList || bList {
		if !aList || !bList || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !valuesEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
