package scenariokit

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strings"
)

// placeholderPattern matches a brace-delimited run of ASCII letters.
// Tokens containing digits or punctuation are not placeholders.
var placeholderPattern = regexp.MustCompile(`\{[A-Za-z]+\}`)

// Mapping maps placeholder names to replacement values. Values are
// converted with fmt.Sprint when substituted, so a slice renders in Go
// syntax ("[a b]"), not comma-joined. Join slices before passing them in
// if "a,b" is wanted.
type Mapping map[string]any

// Renderer substitutes {placeholder} tokens in templates.
//
// A placeholder whose name is missing from the mapping is left verbatim
// so that callers can render a template in several passes with partial
// mappings. By default a falsy value ("", 0, false, nil, NaN) counts as
// missing; WithFalsyValues turns that off.
type Renderer struct {
	substituteFalsy bool
}

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithFalsyValues makes the renderer substitute values that are present in
// the mapping even when they are falsy, e.g. {"count": 0} renders "0".
func WithFalsyValues() RenderOption {
	return func(r *Renderer) {
		r.substituteFalsy = true
	}
}

// NewRenderer creates a Renderer with the given options.
func NewRenderer(opts ...RenderOption) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRenderer = NewRenderer()

// Render replaces every {name} in template with mapping's value for name
// using the default Renderer. It never fails: unknown placeholders and
// malformed tokens pass through unchanged.
//
// Example:
//
//	scenariokit.Render("Hello {user}, you have {count} items", scenariokit.Mapping{"user": "ana", "count": 3})
//	// "Hello ana, you have 3 items"
func Render(template string, mapping Mapping) string {
	return defaultRenderer.Render(template, mapping)
}

// Render replaces every {name} in template with mapping's value for name.
// Neither template nor mapping is modified.
func (r *Renderer) Render(template string, mapping Mapping) string {
	out := template
	for _, placeholder := range distinctPlaceholders(template) {
		name := placeholder[1 : len(placeholder)-1]

		value, ok := lookup(mapping, name)
		if !ok {
			continue
		}
		if !r.substituteFalsy && !isTruthy(value) {
			continue
		}
		out = strings.ReplaceAll(out, placeholder, fmt.Sprint(value))
	}
	return out
}

// Placeholders returns the distinct placeholder names found in template,
// in order of first appearance.
func Placeholders(template string) []string {
	found := distinctPlaceholders(template)
	names := make([]string, 0, len(found))
	for _, p := range found {
		names = append(names, p[1:len(p)-1])
	}
	return names
}

func distinctPlaceholders(template string) []string {
	matches := placeholderPattern.FindAllString(template, -1)
	seen := make(map[string]struct{}, len(matches))
	distinct := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		distinct = append(distinct, m)
	}
	return distinct
}

// lookup finds name in mapping, preferring an exact key and falling back
// to a case-insensitive match. Ties between case variants resolve to the
// lexically smallest key so the result is stable.
func lookup(mapping Mapping, name string) (any, bool) {
	if len(mapping) == 0 {
		return nil, false
	}
	if v, ok := mapping[name]; ok {
		return v, true
	}
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if strings.EqualFold(key, name) {
			return mapping[key], true
		}
	}
	return nil, false
}

func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	default:
		return true
	}
}
