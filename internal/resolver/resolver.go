// Package resolver substitutes ${...} template references in node inputs
// against the three run-time data scopes: context, input and global.
//
// Resolution is lenient. A reference that cannot be resolved is left in
// place as its literal ${ref} text so downstream nodes can surface the
// unbound placeholder instead of aborting the run.
package resolver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`\$\{(.*?)\}`)
	indexRe       = regexp.MustCompile(`\[(\d+)\]`)
)

// Resolver resolves template references against a fixed set of scopes.
// The zero value is not usable, construct one with New.
type Resolver struct {
	contextData map[string]any
	inputData   any
	globalData  map[string]any
}

// New builds a resolver over the given scopes. Nil maps are treated as
// empty scopes.
func New(contextData map[string]any, inputData any, globalData map[string]any) *Resolver {
	if contextData == nil {
		contextData = map[string]any{}
	}
	if globalData == nil {
		globalData = map[string]any{}
	}
	return &Resolver{
		contextData: contextData,
		inputData:   inputData,
		globalData:  globalData,
	}
}

// Resolve replaces every ${ref} occurrence in expression with the string
// form of its resolved value. Non-string expressions pass through
// unchanged, and unresolvable references keep their literal text.
func (r *Resolver) Resolve(expression any) any {
	text, ok := expression.(string)
	if !ok {
		return expression
	}

	text = strings.TrimSpace(text)
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		ref := match[2 : len(match)-1]
		value, found := r.Lookup(ref)
		if !found || value == nil {
			return match
		}
		return stringify(value)
	})
}

// Lookup resolves a single reference path without the ${} delimiters.
// The scope prefix selects the data root; a bare "input" yields the whole
// input value, and an unrecognized prefix falls back to the context scope.
func (r *Resolver) Lookup(ref string) (any, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}

	switch {
	case ref == "input":
		return r.inputData, true
	case strings.HasPrefix(ref, "input."):
		return walkPath(r.inputData, ref[len("input."):])
	case strings.HasPrefix(ref, "context."):
		return walkPath(r.contextData, ref[len("context."):])
	case strings.HasPrefix(ref, "global."):
		return walkPath(r.globalData, ref[len("global."):])
	default:
		return walkPath(r.contextData, ref)
	}
}

// pathStep is one access in a resolved path, either a map key or a
// sequence index.
type pathStep struct {
	key   string
	index int
	isKey bool
}

func walkPath(root any, path string) (any, bool) {
	if path == "" {
		return root, root != nil
	}

	current := root
	for _, step := range splitPath(path) {
		next, ok := applyStep(current, step)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// splitPath breaks "a.b[0].c" into the steps [a, b, 0, c]. Repeated
// bracket suffixes like "b[0][1]" expand into consecutive index steps.
func splitPath(path string) []pathStep {
	var steps []pathStep
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		bracket := strings.IndexByte(part, '[')
		if bracket < 0 || !strings.Contains(part, "]") {
			steps = append(steps, pathStep{key: part, isKey: true})
			continue
		}
		if key := part[:bracket]; key != "" {
			steps = append(steps, pathStep{key: key, isKey: true})
		}
		for _, m := range indexRe.FindAllStringSubmatch(part, -1) {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				return nil
			}
			steps = append(steps, pathStep{index: idx})
		}
	}
	return steps
}

func applyStep(obj any, step pathStep) (any, bool) {
	if step.isKey {
		m, ok := obj.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := m[step.key]
		return value, ok
	}

	seq, ok := obj.([]any)
	if !ok || step.index < 0 || step.index >= len(seq) {
		return nil, false
	}
	return seq[step.index], true
}

// stringify renders a resolved value for placeholder substitution.
// Integral floats print without a fractional part so numbers decoded
// from JSON read naturally inside templated strings.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
		return fmt.Sprintf("%v", v)
	}
}
