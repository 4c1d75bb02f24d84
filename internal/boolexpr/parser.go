package boolexpr

import (
	"strconv"

	"github.com/rendis/flowforge/pkg/schema"
)

// Parser is a recursive-descent parser over a token stream. Precedence,
// lowest to highest: logical (&& ||), equality (== !=), relational
// (> < >= <=), primary. All operators are left-associative and
// non-chaining: "a > b > c" parses as "(a > b) > c".
type Parser struct {
	tokens  []Token
	current int
}

// Parse tokenizes and parses a condition string into an AST.
func Parse(input string) (Node, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	expr, err := p.parseLogical()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		return nil, schema.NewErrorf(schema.ErrCodeSyntax,
			"unexpected token %q after expression", p.peek().Text)
	}
	return expr, nil
}

func (p *Parser) parseLogical() (Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for p.match(KindLogicalAnd) || p.match(KindLogicalOr) {
		op := p.previous().Text
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseEquality() (Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}

	for p.match(KindEqual) || p.match(KindNotEqual) {
		op := p.previous().Text
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseRelational() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.match(KindGreater) || p.match(KindGreaterEqual) ||
		p.match(KindLess) || p.match(KindLessEqual) {
		op := p.previous().Text
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	if p.match(KindLeftParen) {
		expr, err := p.parseLogical()
		if err != nil {
			return nil, err
		}
		if !p.match(KindRightParen) {
			return nil, schema.NewError(schema.ErrCodeSyntax, "expect ')' after expression")
		}
		return &ParenExpr{Expr: expr}, nil
	}

	if p.match(KindTrue) {
		return &Literal{Value: true}, nil
	}
	if p.match(KindFalse) {
		return &Literal{Value: false}, nil
	}
	if p.match(KindTemplate) {
		return &TemplateLiteral{Path: p.previous().Text}, nil
	}
	if p.match(KindIdentifier) {
		return &Identifier{Name: p.previous().Text}, nil
	}
	if p.match(KindNumber) {
		f, err := strconv.ParseFloat(p.previous().Text, 64)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeSyntax,
				"invalid number literal %q", p.previous().Text)
		}
		return &Literal{Value: f}, nil
	}
	if p.match(KindString) {
		return &Literal{Value: p.previous().Text}, nil
	}

	return nil, schema.NewErrorf(schema.ErrCodeSyntax,
		"unexpected token at position %d", p.current)
}

func (p *Parser) match(kind Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(kind Kind) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Kind == kind
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == KindEOF
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}
