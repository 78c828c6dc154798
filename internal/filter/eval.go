package filter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Match evaluates the tree against a record keyed by property. A nil or empty
// group matches everything. Missing keys are treated as null.
func Match(g *Group, record map[string]any) bool {
	if g.Empty() {
		return true
	}
	return matchNode(g, record)
}

func matchNode(n Node, record map[string]any) bool {
	switch v := n.(type) {
	case *Group:
		if len(v.Filters) == 0 {
			return true
		}
		for _, child := range v.Filters {
			ok := matchNode(child, record)
			if v.Logic == Or && ok {
				return true
			}
			if v.Logic != Or && !ok {
				return false
			}
		}
		return v.Logic != Or
	case *Condition:
		return matchCondition(v, record[v.Property])
	}
	return false
}

func matchCondition(c *Condition, actual any) bool {
	switch c.Operator {
	case IsNull:
		return isNull(actual)
	case IsNotNull:
		return !isNull(actual)
	case Equal:
		return looseEqual(actual, c.Value)
	case NotEqual:
		return !looseEqual(actual, c.Value)
	case LessThan, LessOrEqual, GreaterThan, GreaterOrEqual:
		if isNull(actual) || isNull(c.Value) {
			return false
		}
		cmp, ok := Compare(actual, c.Value)
		if !ok {
			return false
		}
		switch c.Operator {
		case LessThan:
			return cmp < 0
		case LessOrEqual:
			return cmp <= 0
		case GreaterThan:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case Contains:
		if list, ok := toList(actual); ok {
			for _, item := range list {
				if looseEqual(item, c.Value) {
					return true
				}
			}
			return false
		}
		s, ok := actual.(string)
		return ok && strings.Contains(s, fmt.Sprint(c.Value))
	case StartsWith:
		s, ok := actual.(string)
		return ok && strings.HasPrefix(s, fmt.Sprint(c.Value))
	case EndsWith:
		s, ok := actual.(string)
		return ok && strings.HasSuffix(s, fmt.Sprint(c.Value))
	case In, NotIn:
		found := false
		if list, ok := toList(c.Value); ok {
			for _, item := range list {
				if looseEqual(actual, item) {
					found = true
					break
				}
			}
		}
		return found == (c.Operator == In)
	}
	return false
}

// Compare orders two values: numbers numerically, times chronologically,
// strings lexicographically and false before true. ok is false when the
// values are not comparable.
func Compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if ta, ok := toTime(a); ok {
		tb, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func looseEqual(a, b any) bool {
	if isNull(a) || isNull(b) {
		return isNull(a) && isNull(b)
	}
	if cmp, ok := Compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, f := range l {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}
