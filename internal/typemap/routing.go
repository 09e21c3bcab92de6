package typemap

import (
	"fmt"
	"strings"
	"unicode"
)

// Routing strategy members shared by both frameworks.
var routingMembers = map[string]bool{
	"Direct": true,
	"Bubble": true,
	"Tunnel": true,
}

// RoutingExpr is a parsed routing-strategy expression: a member reference,
// a parenthesized group, or a bitwise OR of two expressions.
type RoutingExpr struct {
	Member string
	Group  *RoutingExpr
	Left   *RoutingExpr
	Right  *RoutingExpr
}

// ParseRouting parses legacy routing text such as
// "RoutingStrategy.Bubble" or "(RoutingStrategy.Tunnel | RoutingStrategy.Bubble)".
func ParseRouting(text string) (*RoutingExpr, error) {
	p := &routingParser{src: text}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q in routing expression %q", p.src[p.pos:], text)
	}
	return expr, nil
}

// ConvertRouting rewrites a legacy routing expression into its target form,
// keeping the expression's structure.
func ConvertRouting(text string) (string, error) {
	expr, err := ParseRouting(text)
	if err != nil {
		return "", err
	}
	return expr.Render(), nil
}

// Render formats the expression against the target routing enum.
func (e *RoutingExpr) Render() string {
	switch {
	case e.Group != nil:
		return "(" + e.Group.Render() + ")"
	case e.Left != nil:
		return e.Left.Render() + " | " + e.Right.Render()
	default:
		return "RoutingStrategies." + e.Member
	}
}

// Members returns the strategy members referenced, left to right.
func (e *RoutingExpr) Members() []string {
	switch {
	case e.Group != nil:
		return e.Group.Members()
	case e.Left != nil:
		return append(e.Left.Members(), e.Right.Members()...)
	default:
		return []string{e.Member}
	}
}

type routingParser struct {
	src string
	pos int
}

func (p *routingParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *routingParser) parseOr() (*RoutingExpr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '|' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &RoutingExpr{Left: left, Right: right}
	}
}

func (p *routingParser) parseTerm() (*RoutingExpr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("routing expression %q ends unexpectedly", p.src)
	}
	if p.src[p.pos] == '(' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return nil, fmt.Errorf("unbalanced parenthesis in routing expression %q", p.src)
		}
		p.pos++
		return &RoutingExpr{Group: inner}, nil
	}

	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' || c == ':') {
			break
		}
		p.pos++
	}
	ref := p.src[start:p.pos]
	if ref == "" {
		return nil, fmt.Errorf("unexpected %q in routing expression %q", p.src[p.pos:], p.src)
	}
	member := ref
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		member = ref[i+1:]
	}
	if !routingMembers[member] {
		return nil, fmt.Errorf("unknown routing strategy %q", ref)
	}
	return &RoutingExpr{Member: member}, nil
}
