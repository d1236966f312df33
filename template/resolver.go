// Package template substitutes {{variable}} placeholders in authored
// text against the run's variable store. Lookups may also be jsonpath
// expressions rooted at $ for reaching into structured values such as
// captured API responses.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
	"github.com/waflow/waflow/variables"
)

type Mode int

// ModeProd renders unresolved placeholders as empty string so a contact
// never sees raw template syntax. ModePreview leaves them literal so the
// flow author can spot mapping gaps in the test UI.
const (
	ModeProd Mode = iota
	ModePreview
)

var tokenRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

type Resolver struct {
	mode Mode
}

func NewResolver(mode Mode) *Resolver {
	return &Resolver{mode: mode}
}

func (r *Resolver) Mode() Mode {
	return r.mode
}

// Resolve substitutes every {{name}} token in text in a single pass.
// Substituted values are never re-scanned, so literal {{ sequences in
// variable values survive untouched.
func (r *Resolver) Resolve(text string, store *variables.Store) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return tokenRe.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-2])
		value, ok := r.Lookup(name, store)
		if !ok {
			if r.mode == ModePreview {
				return token
			}
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
}

// Lookup resolves a bare variable reference: a store name, possibly
// dotted, or a $-rooted jsonpath into the binding map.
func (r *Resolver) Lookup(name string, store *variables.Store) (any, bool) {
	if strings.HasPrefix(name, "$") {
		value, err := jsonpath.JsonPathLookup(store.Bindings(), name)
		if err != nil {
			return nil, false
		}
		return value, true
	}
	return store.Get(name)
}

// ResolveMap resolves string leaves of a nested parameter map, keeping
// non-string values as-is. Used to record the resolved node config in
// the execution trace.
func (r *Resolver) ResolveMap(params map[string]any, store *variables.Store) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case map[string]any:
			out[k] = r.ResolveMap(val, store)
		case string:
			out[k] = r.Resolve(val, store)
		default:
			out[k] = v
		}
	}
	return out
}

// ResolveStringMap is ResolveMap for flat string maps (headers, template
// parameters).
func (r *Resolver) ResolveStringMap(params map[string]string, store *variables.Store) map[string]string {
	if params == nil {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = r.Resolve(v, store)
	}
	return out
}
