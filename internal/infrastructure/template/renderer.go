// Package template renders the small user-facing templates of a release:
// PR titles, tag messages, release names. Rendering is total; an
// unresolvable variable becomes the empty string rather than an error, so a
// typo in a template can never block a release run.
package template

import (
	"regexp"
	"strings"
)

// variablePattern matches {{ name }} placeholders, dots allowed for
// namespaced variables.
var variablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)

// Renderer substitutes variables into template strings.
type Renderer struct{}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderString replaces every {{ name }} placeholder with its value from
// vars. Unknown names render empty; text without placeholders passes through
// untouched.
func (r *Renderer) RenderString(tmpl string, vars map[string]string) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	return variablePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		return vars[name]
	})
}

// Variables lists the placeholder names a template references, in order of
// first appearance. Used by config validation to warn about unknown names
// without failing the run.
func (r *Renderer) Variables(tmpl string) []string {
	matches := variablePattern.FindAllStringSubmatch(tmpl, -1)
	seen := make(map[string]struct{}, len(matches))
	var names []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
