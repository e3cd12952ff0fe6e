package hostenv

import (
	"fmt"
	"strings"
	"unicode"
)

// Condition is a parsed host condition.
type Condition struct {
	src  string
	root node
}

type node interface {
	eval(c *Context) bool
}

type tagNode string

func (n tagNode) eval(c *Context) bool { return c.Has(string(n)) }

type notNode struct{ x node }

func (n notNode) eval(c *Context) bool { return !n.x.eval(c) }

type andNode struct{ l, r node }

func (n andNode) eval(c *Context) bool { return n.l.eval(c) && n.r.eval(c) }

type orNode struct{ l, r node }

func (n orNode) eval(c *Context) bool { return n.l.eval(c) || n.r.eval(c) }

// Parse parses a condition expression.
func Parse(src string) (*Condition, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty condition")
	}
	p := &parser{toks: toks}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.toks[p.pos].text, p.toks[p.pos].off)
	}
	return &Condition{src: src, root: root}, nil
}

// IsValid reports whether src parses.
func IsValid(src string) bool {
	_, err := Parse(src)
	return err == nil
}

// Match reports whether the condition holds on c.
func (c *Condition) Match(ctx *Context) bool {
	return c.root.eval(ctx)
}

// String returns the source expression.
func (c *Condition) String() string {
	return c.src
}

type tokKind int

const (
	tokTag tokKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	off  int
}

var keywords = map[string]tokKind{
	"and": tokAnd,
	"or":  tokOr,
	"not": tokNot,
}

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_-.+", r)
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '&':
			toks = append(toks, token{tokAnd, "&", i})
			i++
		case r == '|' || r == ',':
			toks = append(toks, token{tokOr, string(r), i})
			i++
		case r == '!':
			toks = append(toks, token{tokNot, "!", i})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case isTagRune(r):
			start := i
			for i < len(rs) && isTagRune(rs[i]) {
				i++
			}
			word := string(rs[start:i])
			if k, ok := keywords[strings.ToLower(word)]; ok {
				toks = append(toks, token{k, word, start})
			} else {
				toks = append(toks, token{tokTag, word, start})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek(kind tokKind) bool {
	return p.pos < len(p.toks) && p.toks[p.pos].kind == kind
}

func (p *parser) or() (node, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek(tokOr) {
		p.pos++
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = orNode{l, r}
	}
	return l, nil
}

func (p *parser) and() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peek(tokAnd) {
		p.pos++
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = andNode{l, r}
	}
	return l, nil
}

func (p *parser) unary() (node, error) {
	if p.peek(tokNot) {
		p.pos++
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("unexpected end of condition")
	}
	t := p.toks[p.pos]
	switch t.kind {
	case tokTag:
		p.pos++
		return tagNode(strings.ToLower(t.text)), nil
	case tokLParen:
		p.pos++
		x, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.peek(tokRParen) {
			return nil, fmt.Errorf("missing ')' for '(' at offset %d", t.off)
		}
		p.pos++
		return x, nil
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.off)
	}
}
