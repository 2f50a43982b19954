package delivery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// Template placeholders recognised in campaign HTML.
const (
	VarCompanyName     = "COMPANY_NAME"
	VarUnsubscribeLink = "UNSUBSCRIBE_LINK"
)

var placeholderRe = regexp.MustCompile(`@([A-Z_]+)`)

// knownVars maps a placeholder to the Liquid expression that renders it.
var knownVars = map[string]string{
	VarCompanyName:     "{{ COMPANY_NAME | escape }}",
	VarUnsubscribeLink: "{{ UNSUBSCRIBE_LINK }}",
}

// Renderer compiles campaign HTML with @PLACEHOLDERS into Liquid templates.
// Compiled templates are cached by source.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // source -> *compiled
}

type compiled struct {
	tpl      *liquid.Template
	literals map[string]any
}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

// Render substitutes known placeholders. Unknown @VARS and any Liquid-looking
// text in the source are emitted verbatim.
func (r *Renderer) Render(source string, vars map[string]string) (string, error) {
	c, err := r.compile(source)
	if err != nil {
		return "", err
	}
	bindings := make(map[string]any, len(vars)+len(c.literals))
	for k, v := range c.literals {
		bindings[k] = v
	}
	for k, v := range vars {
		bindings[k] = v
	}
	out, rerr := c.tpl.RenderString(bindings)
	if rerr != nil {
		return "", fmt.Errorf("render template: %w", rerr)
	}
	return out, nil
}

func (r *Renderer) compile(source string) (*compiled, error) {
	if v, ok := r.cache.Load(source); ok {
		return v.(*compiled), nil
	}

	var b strings.Builder
	literals := map[string]any{}
	emit := func(text string) {
		if text == "" {
			return
		}
		if strings.Contains(text, "{{") || strings.Contains(text, "{%") {
			name := "lit_" + strconv.Itoa(len(literals))
			literals[name] = text
			b.WriteString("{{ " + name + " }}")
			return
		}
		b.WriteString(text)
	}

	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(source, -1) {
		expr, ok := knownVars[source[m[2]:m[3]]]
		if !ok {
			continue
		}
		emit(source[last:m[0]])
		b.WriteString(expr)
		last = m[1]
	}
	emit(source[last:])

	tpl, err := r.engine.ParseString(b.String())
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	c := &compiled{tpl: tpl, literals: literals}
	r.cache.Store(source, c)
	return c, nil
}

// UnknownPlaceholders lists @VARS in source that Render would leave as is,
// in order of first appearance.
func UnknownPlaceholders(source string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(source, -1) {
		name := m[1]
		if _, ok := knownVars[name]; ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
