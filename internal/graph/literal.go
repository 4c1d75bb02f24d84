package graph

import (
	"encoding/json"
	"strconv"
)

// ParseLiteral interprets an input node's action text as a typed value.
// It tries JSON first, then integer, then float, and falls back to the
// raw string. The first successful parse wins.
func ParseLiteral(text string) any {
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		return decoded
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return float64(n)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}
