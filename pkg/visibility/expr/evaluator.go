package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formctl/pkg/visibility"
)

// Evaluator decides whether a conditional field is shown from the current
// form values.
//
// Supported forms:
//   - presence: `updates_opt_in`, `!company`
//   - comparisons: `country == "other"`, `team_size != 0`, `referrer == null`
//   - case-insensitive comparison: `how_heard ~= "Other"`
//   - composition with `&&`, `||` and parentheses
//
// Checkbox groups arrive as []string; `==` and `~=` hold when any checked
// value matches and `!=` when none does. Names starting with `extras.` read
// visibility.Context.Extras.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

func (e *Evaluator) Eval(_, rule string, ctx visibility.Context) (bool, error) {
	if strings.TrimSpace(rule) == "" {
		return true, nil
	}
	p := &parser{src: rule}
	if err := p.advance(); err != nil {
		return false, err
	}
	node, err := p.or()
	if err != nil {
		return false, err
	}
	if p.tok.kind != tokEOF {
		return false, fmt.Errorf("visibility/expr: unexpected %q", p.tok.text)
	}
	return node(ctx), nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokEq
	tokNeq
	tokFold
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
}

var operators = []struct {
	text string
	kind tokKind
}{
	{"==", tokEq}, {"!=", tokNeq}, {"~=", tokFold}, {"&&", tokAnd}, {"||", tokOr},
	{"!", tokNot}, {"(", tokLParen}, {")", tokRParen},
}

// node evaluates a parsed expression against the form values.
type node func(visibility.Context) bool

type parser struct {
	src string
	pos int
	tok token
}

func (p *parser) advance() error {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF}
		return nil
	}
	rest := p.src[p.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			p.pos += len(op.text)
			p.tok = token{kind: op.kind, text: op.text}
			return nil
		}
	}

	switch c := rest[0]; c {
	case '"', '\'':
		end := 1
		for end < len(rest) && rest[end] != c {
			if rest[end] == '\\' {
				end++
			}
			end++
		}
		if end >= len(rest) {
			return errors.New("visibility/expr: unterminated string literal")
		}
		raw := rest[:end+1]
		if c == '\'' {
			inner := strings.ReplaceAll(raw[1:end], `\'`, `'`)
			raw = `"` + strings.ReplaceAll(inner, `"`, `\"`) + `"`
		}
		value, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("visibility/expr: invalid string literal: %w", err)
		}
		p.pos += end + 1
		p.tok = token{kind: tokString, text: value}
		return nil
	case '=', '&', '|', '~':
		return fmt.Errorf("visibility/expr: unexpected %q at offset %d", c, p.pos)
	}

	end := strings.IndexAny(rest, " \t\r\n()!=~&|\"'")
	if end < 0 {
		end = len(rest)
	}
	p.pos += end
	p.tok = token{kind: tokIdent, text: rest[:end]}
	return nil
}

func (p *parser) accept(kind tokKind) (bool, error) {
	if p.tok.kind != kind {
		return false, nil
	}
	return true, p.advance()
}

func (p *parser) or() (node, error) {
	return p.binary(tokOr, p.and, func(l, r node) node {
		return func(ctx visibility.Context) bool { return l(ctx) || r(ctx) }
	})
}

func (p *parser) and() (node, error) {
	return p.binary(tokAnd, p.unary, func(l, r node) node {
		return func(ctx visibility.Context) bool { return l(ctx) && r(ctx) }
	})
}

func (p *parser) binary(op tokKind, operand func() (node, error), join func(l, r node) node) (node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.accept(op)
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = join(left, right)
	}
}

func (p *parser) unary() (node, error) {
	ok, err := p.accept(tokNot)
	if err != nil {
		return nil, err
	}
	if ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return func(ctx visibility.Context) bool { return !inner(ctx) }, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	ok, err := p.accept(tokLParen)
	if err != nil {
		return nil, err
	}
	if ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if closed, err := p.accept(tokRParen); err != nil || !closed {
			if err == nil {
				err = errors.New("visibility/expr: missing closing ')'")
			}
			return nil, err
		}
		return inner, nil
	}

	if p.tok.kind != tokIdent {
		if p.tok.kind == tokEOF {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected a field name, got %q", p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	op := p.tok.kind
	if op != tokEq && op != tokNeq && op != tokFold {
		return func(ctx visibility.Context) bool { return present(lookup(ctx, name)) }, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	lit := p.tok
	if lit.kind != tokIdent && lit.kind != tokString {
		return nil, errors.New("visibility/expr: missing literal")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	match, err := matcher(op, lit)
	if err != nil {
		return nil, err
	}
	return func(ctx visibility.Context) bool {
		hit := match(lookup(ctx, name))
		if op == tokNeq {
			return !hit
		}
		return hit
	}, nil
}

// matcher builds the equality test for a literal. Unquoted literals may be
// null, a bool, a number or a bare word compared as a string.
func matcher(op tokKind, lit token) (func([]string) bool, error) {
	word := strings.ToLower(lit.text)
	if op == tokFold {
		if lit.kind == tokIdent && (word == "true" || word == "false" || word == "null" || word == "nil") {
			return nil, fmt.Errorf("visibility/expr: '~=' expects a string, got %q", lit.text)
		}
		return anyValue(func(v string) bool {
			return strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(lit.text))
		}), nil
	}
	if lit.kind == tokString {
		return anyValue(func(v string) bool { return v == lit.text }), nil
	}
	switch word {
	case "null", "nil":
		return func(values []string) bool { return !present(values) }, nil
	case "true", "false":
		want := word == "true"
		return func(values []string) bool { return asBool(values) == want }, nil
	}
	if want, err := strconv.ParseFloat(lit.text, 64); err == nil {
		return func(values []string) bool {
			if !present(values) {
				return want == 0
			}
			return anyValue(func(v string) bool {
				got, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
				return err == nil && got == want
			})(values)
		}, nil
	}
	return anyValue(func(v string) bool { return v == lit.text }), nil
}

func anyValue(eq func(string) bool) func([]string) bool {
	return func(values []string) bool {
		for _, v := range values {
			if eq(v) {
				return true
			}
		}
		return false
	}
}

// lookup returns the values stored under name, normalised to strings. A
// missing name yields nil.
func lookup(ctx visibility.Context, name string) []string {
	source := ctx.Values
	if rest, ok := strings.CutPrefix(name, "extras."); ok {
		source, name = ctx.Extras, rest
	}
	switch v := source[name].(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case bool:
		return []string{strconv.FormatBool(v)}
	default:
		return []string{fmt.Sprint(v)}
	}
}

func present(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func asBool(values []string) bool {
	if len(values) != 1 {
		return present(values)
	}
	if parsed, err := strconv.ParseBool(strings.TrimSpace(values[0])); err == nil {
		return parsed
	}
	return present(values)
}
