package boolexpr

import (
	"github.com/rendis/flowforge/pkg/schema"
)

// Kind identifies a token class produced by the tokenizer.
type Kind int

const (
	KindEOF Kind = iota
	KindLeftParen
	KindRightParen
	KindLogicalAnd
	KindLogicalOr
	KindEqual
	KindNotEqual
	KindGreater
	KindGreaterEqual
	KindLess
	KindLessEqual
	KindTrue
	KindFalse
	KindNumber
	KindString
	KindIdentifier
	KindTemplate
)

// Token is a single lexical unit. Text holds the raw operator/literal text;
// for strings the surrounding quotes are stripped, for templates the ${ }
// delimiters are stripped.
type Token struct {
	Kind Kind
	Text string
}

// Tokenize splits a condition string into tokens. The final token is always
// KindEOF. Malformed input (unclosed string or template, unexpected
// character) yields a SYNTAX_ERROR.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]

		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}

		// Template literal ${...}: everything up to the first closing brace.
		if c == '$' && i+1 < n && input[i+1] == '{' {
			i += 2
			start := i
			for i < n && input[i] != '}' {
				i++
			}
			if i >= n {
				return nil, schema.NewError(schema.ErrCodeSyntax, "unclosed template literal, missing '}'")
			}
			tokens = append(tokens, Token{Kind: KindTemplate, Text: input[start:i]})
			i++ // closing brace
			continue
		}

		switch c {
		case '(':
			tokens = append(tokens, Token{Kind: KindLeftParen, Text: "("})
			i++
			continue
		case ')':
			tokens = append(tokens, Token{Kind: KindRightParen, Text: ")"})
			i++
			continue
		case '"', '\'':
			quote := c
			i++
			start := i
			for i < n && input[i] != quote {
				i++
			}
			if i >= n {
				return nil, schema.NewError(schema.ErrCodeSyntax, "unclosed string literal")
			}
			tokens = append(tokens, Token{Kind: KindString, Text: input[start:i]})
			i++ // closing quote
			continue
		}

		// Two-character operators.
		if i+1 < n {
			switch input[i : i+2] {
			case "&&":
				tokens = append(tokens, Token{Kind: KindLogicalAnd, Text: "&&"})
				i += 2
				continue
			case "||":
				tokens = append(tokens, Token{Kind: KindLogicalOr, Text: "||"})
				i += 2
				continue
			case "==":
				tokens = append(tokens, Token{Kind: KindEqual, Text: "=="})
				i += 2
				continue
			case "!=":
				tokens = append(tokens, Token{Kind: KindNotEqual, Text: "!="})
				i += 2
				continue
			case ">=":
				tokens = append(tokens, Token{Kind: KindGreaterEqual, Text: ">="})
				i += 2
				continue
			case "<=":
				tokens = append(tokens, Token{Kind: KindLessEqual, Text: "<="})
				i += 2
				continue
			}
		}

		if c == '>' {
			tokens = append(tokens, Token{Kind: KindGreater, Text: ">"})
			i++
			continue
		}
		if c == '<' {
			tokens = append(tokens, Token{Kind: KindLess, Text: "<"})
			i++
			continue
		}

		// Numbers are decimal, optionally '.'-separated.
		if c >= '0' && c <= '9' {
			start := i
			for i < n && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			tokens = append(tokens, Token{Kind: KindNumber, Text: input[start:i]})
			continue
		}

		// Identifiers: alnum + underscore, not starting with a digit.
		// true/false are reserved literals, not identifiers.
		if isIdentStart(c) {
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			switch word {
			case "true":
				tokens = append(tokens, Token{Kind: KindTrue, Text: word})
			case "false":
				tokens = append(tokens, Token{Kind: KindFalse, Text: word})
			default:
				tokens = append(tokens, Token{Kind: KindIdentifier, Text: word})
			}
			continue
		}

		return nil, schema.NewErrorf(schema.ErrCodeSyntax, "unexpected character: %c", c)
	}

	tokens = append(tokens, Token{Kind: KindEOF})
	return tokens, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
