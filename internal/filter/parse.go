package filter

import (
	"fmt"
	"strconv"
	"strings"
)

const maxNesting = 32

// ParseError describes malformed filter text. Pos is a byte offset into the
// parsed text.
type ParseError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("filter: %s at offset %d", e.Msg, e.Pos)
	}
	return fmt.Sprintf("filter: %s at offset %d near %q", e.Msg, e.Pos, e.Token)
}

// operator tokens ordered longest first so that "<=" wins over "<".
var operatorScanOrder = []string{"!>NULL<", ">NULL<", "![]", "<=", ">=", "==", "!=", "~~", "^~", "~$", "[]", "<", ">"}

// Parse reads the filter mini-language:
//
//	{Age} >= 21 AND {Name} ~~ "Sam"
//	({Color} [] ["red", "blue"] OR {Color} >NULL<) AND {Price} < 100
//
// Properties are wrapped in braces. AND and OR cannot be mixed at the same
// level without parentheses. Empty text yields a nil group.
func Parse(text string) (*Group, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	p := &parser{src: text}
	g, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf(p.pos, "unbalanced parenthesis")
	}
	if len(g.Filters) == 1 {
		if inner, ok := g.Filters[0].(*Group); ok {
			return inner, nil
		}
	}
	return g, nil
}

// MustParse is Parse for static filter text; it panics on error.
func MustParse(text string) *Group {
	g, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return g
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) errorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Token: p.tokenAt(pos), Msg: fmt.Sprintf(format, args...)}
}

// tokenAt returns the whitespace-delimited run starting at pos.
func (p *parser) tokenAt(pos int) string {
	if pos >= len(p.src) {
		return ""
	}
	end := pos
	for end < len(p.src) && !isSpace(p.src[end]) {
		end++
	}
	if end-pos > 24 {
		end = pos + 24
	}
	return p.src[pos:end]
}

func (p *parser) parseExpr(depth int) (*Group, error) {
	if depth > maxNesting {
		return nil, p.errorf(p.pos, "nesting deeper than %d levels", maxNesting)
	}
	g := &Group{}
	for {
		n, err := p.parseTerm(depth)
		if err != nil {
			return nil, err
		}
		g.Filters = append(g.Filters, n)

		p.skipSpace()
		if p.eof() || p.peek() == ')' {
			break
		}
		start := p.pos
		word := p.readWord()
		var logic Logic
		switch strings.ToUpper(word) {
		case "AND":
			logic = And
		case "OR":
			logic = Or
		default:
			return nil, p.errorf(start, "expected AND or OR")
		}
		if g.Logic != "" && g.Logic != logic {
			return nil, p.errorf(start, "cannot mix AND and OR without parentheses")
		}
		g.Logic = logic
	}
	if g.Logic == "" {
		g.Logic = And
	}
	return g, nil
}

func (p *parser) parseTerm(depth int) (Node, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf(p.pos, "unexpected end of filter")
	}
	switch c := p.peek(); {
	case c == '(':
		open := p.pos
		p.pos++
		sub, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, p.errorf(open, "unbalanced parenthesis")
		}
		p.pos++
		return sub, nil
	case c == '{':
		return p.parseCondition()
	case c == ')':
		return nil, p.errorf(p.pos, "unbalanced parenthesis")
	case isWordByte(c):
		start := p.pos
		word := p.readWord()
		return nil, &ParseError{Pos: start, Token: word, Msg: "bare word is not a property reference, use {" + word + "}"}
	default:
		return nil, p.errorf(p.pos, "unexpected token")
	}
}

func (p *parser) parseCondition() (Node, error) {
	open := p.pos
	end := strings.IndexByte(p.src[p.pos:], '}')
	if end < 0 {
		return nil, p.errorf(open, "unterminated property reference")
	}
	name := strings.TrimSpace(p.src[p.pos+1 : p.pos+end])
	if name == "" || strings.ContainsAny(name, "{") {
		return nil, p.errorf(open, "invalid property reference")
	}
	p.pos += end + 1

	p.skipSpace()
	opPos := p.pos
	op, ok := p.readOperator()
	if !ok {
		if p.eof() {
			return nil, p.errorf(opPos, "missing operator")
		}
		return nil, p.errorf(opPos, "unknown operator")
	}
	cond := &Condition{Property: name, Operator: op}
	if op.Unary() {
		return cond, nil
	}

	p.skipSpace()
	valPos := p.pos
	if op.Set() {
		if p.peek() != '[' {
			return nil, p.errorf(valPos, "operator %s expects a [list]", op.Token())
		}
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		cond.Value = list
		return cond, nil
	}
	if p.peek() == '[' {
		return nil, p.errorf(valPos, "list value requires [] or ![]")
	}
	v, err := p.parseScalar()
	if err != nil {
		return nil, err
	}
	cond.Value = v
	return cond, nil
}

func (p *parser) readOperator() (Operator, bool) {
	rest := p.src[p.pos:]
	for _, tok := range operatorScanOrder {
		if len(rest) >= len(tok) && strings.EqualFold(rest[:len(tok)], tok) {
			p.pos += len(tok)
			return tokenOperators[tok], true
		}
	}
	return "", false
}

func (p *parser) parseList() ([]any, error) {
	open := p.pos
	p.pos++ // [
	out := []any{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf(open, "unterminated list")
		}
		v, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		case 0:
			return nil, p.errorf(open, "unterminated list")
		default:
			return nil, p.errorf(p.pos, "expected , or ]")
		}
	}
}

func (p *parser) parseScalar() (any, error) {
	if p.eof() {
		return nil, p.errorf(p.pos, "missing value")
	}
	start := p.pos
	switch c := p.peek(); {
	case c == '"' || c == '\'':
		return p.parseString(c)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		for !p.eof() && strings.IndexByte("0123456789+-.eE", p.peek()) >= 0 {
			p.pos++
		}
		raw := p.src[start:p.pos]
		if !p.eof() && !isValueEnd(p.peek()) {
			return nil, p.errorf(start, "malformed number")
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ParseError{Pos: start, Token: raw, Msg: "malformed number"}
		}
		return f, nil
	case isWordByte(c):
		word := p.readWord()
		switch strings.ToLower(word) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		return nil, &ParseError{Pos: start, Token: word, Msg: "bare word is not a value, quote strings"}
	default:
		return nil, p.errorf(start, "unexpected token")
	}
}

func (p *parser) parseString(quote byte) (string, error) {
	open := p.pos
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", p.errorf(open, "unterminated string")
			}
			switch esc := p.src[p.pos+1]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '"', '\'', '/':
				b.WriteByte(esc)
			default:
				return "", p.errorf(p.pos, "invalid escape")
			}
			p.pos += 2
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf(open, "unterminated string")
}

func (p *parser) readWord() string {
	start := p.pos
	for !p.eof() && isWordByte(p.peek()) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// isSpace reports ASCII whitespace only. Bytes of multi-byte runes are never
// separators.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isValueEnd(c byte) bool {
	return isSpace(c) || c == ')' || c == ',' || c == ']'
}

// formatValue renders a condition value in the mini-language.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = quote(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return quote(fmt.Sprint(v))
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
