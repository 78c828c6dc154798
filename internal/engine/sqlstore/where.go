package sqlstore

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/Masterminds/squirrel"

	"Ystore/internal/filter"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent quotes a column or table name. Dotted names are quoted per part.
func quoteIdent(name string) (string, error) {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if !identRe.MatchString(p) {
			return "", fmt.Errorf("invalid identifier %q", name)
		}
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, "."), nil
}

var (
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	globEscaper = strings.NewReplacer(`[`, `[[]`, `*`, `[*]`, `?`, `[?]`)
)

// buildWhere translates a storage-named filter tree into a squirrel
// condition. A nil or empty tree yields nil.
func buildWhere(g *filter.Group, d Dialect) (squirrel.Sqlizer, error) {
	if g.Empty() {
		return nil, nil
	}
	return buildNode(g, d)
}

func buildNode(n filter.Node, d Dialect) (squirrel.Sqlizer, error) {
	switch v := n.(type) {
	case *filter.Group:
		parts := make([]squirrel.Sqlizer, 0, len(v.Filters))
		for _, child := range v.Filters {
			part, err := buildNode(child, d)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if v.Logic == filter.Or {
			return squirrel.Or(parts), nil
		}
		return squirrel.And(parts), nil
	case *filter.Condition:
		return buildCondition(v, d)
	}
	return nil, fmt.Errorf("unsupported filter node %T", n)
}

func buildCondition(c *filter.Condition, d Dialect) (squirrel.Sqlizer, error) {
	col, err := quoteIdent(c.Property)
	if err != nil {
		return nil, err
	}
	val := c.Value
	switch c.Operator {
	case filter.Equal:
		return squirrel.Eq{col: val}, nil
	case filter.NotEqual:
		return squirrel.NotEq{col: val}, nil
	case filter.LessThan:
		return squirrel.Lt{col: val}, nil
	case filter.LessOrEqual:
		return squirrel.LtOrEq{col: val}, nil
	case filter.GreaterThan:
		return squirrel.Gt{col: val}, nil
	case filter.GreaterOrEqual:
		return squirrel.GtOrEq{col: val}, nil
	case filter.Contains, filter.StartsWith, filter.EndsWith:
		return textMatch(col, c.Operator, likeText(val), d), nil
	case filter.IsNull:
		return squirrel.Eq{col: nil}, nil
	case filter.IsNotNull:
		return squirrel.NotEq{col: nil}, nil
	case filter.In, filter.NotIn:
		if k := reflect.ValueOf(val).Kind(); k != reflect.Slice && k != reflect.Array {
			return nil, fmt.Errorf("operator %s on %q needs a list value", c.Operator, c.Property)
		}
		if c.Operator == filter.In {
			return squirrel.Eq{col: val}, nil
		}
		return squirrel.NotEq{col: val}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", c.Operator)
}

// textMatch compares literally and case-sensitively. Postgres LIKE already
// honors case, SQLite LIKE does not, so SQLite gets GLOB.
func textMatch(col string, op filter.Operator, text string, d Dialect) squirrel.Sqlizer {
	wild, pattern, expr := "%", likeEscaper.Replace(text), col+` LIKE ? ESCAPE '\'`
	if d.Name == SQLite.Name {
		wild, pattern, expr = "*", globEscaper.Replace(text), col+" GLOB ?"
	}
	if op != filter.StartsWith {
		pattern = wild + pattern
	}
	if op != filter.EndsWith {
		pattern += wild
	}
	return squirrel.Expr(expr, pattern)
}

func likeText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
