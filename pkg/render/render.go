package render

import (
	"context"
	"fmt"
	"html/template"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/matst80/slask-facets/pkg/types"
	"github.com/microcosm-cc/bluemonday"
)

const DefaultNoResults = `<p class="no-products-found">No products found.</p>`

// Renderer turns a page of items into an HTML fragment.
type Renderer interface {
	Render(ctx context.Context, templateRef string, items []*types.Item) (string, error)
}

var funcs = template.FuncMap{
	"attr": func(item *types.Item, key string) string {
		v, _ := item.Attribute(key)
		return v.First()
	},
	"attrs": func(item *types.Item, key string) []string {
		v, _ := item.Attribute(key)
		return v
	},
	"date": func(item *types.Item, layout string) string {
		if item.Date.IsZero() {
			return ""
		}
		return item.Date.Format(layout)
	},
}

// TemplateRenderer renders every item with the named template and sanitises
// the combined output.
type TemplateRenderer struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	policy    *bluemonday.Policy
	NoResults string
}

func NewTemplateRenderer(templates map[string]string) (*TemplateRenderer, error) {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()
	policy.AllowDataAttributes()
	r := &TemplateRenderer{
		policy:    policy,
		NoResults: DefaultNoResults,
	}
	if err := r.SetTemplates(templates); err != nil {
		return nil, err
	}
	return r, nil
}

// SetTemplates parses and swaps the whole template set, on error the
// previous set stays in place.
func (r *TemplateRenderer) SetTemplates(templates map[string]string) error {
	parsed := make(map[string]*template.Template, len(templates))
	for name, src := range templates {
		tmpl, err := template.New(name).Funcs(funcs).Parse(src)
		if err != nil {
			return &types.ConfigurationError{Message: fmt.Sprintf("template %q: %v", name, err)}
		}
		parsed[name] = tmpl
	}
	r.mu.Lock()
	r.templates = parsed
	r.mu.Unlock()
	return nil
}

func (r *TemplateRenderer) Templates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.templates))
}

func (r *TemplateRenderer) Render(ctx context.Context, templateRef string, items []*types.Item) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[templateRef]
	r.mu.RUnlock()
	if !ok {
		return "", &types.ConfigurationError{Message: fmt.Sprintf("unknown template %q", templateRef)}
	}
	if len(items) == 0 {
		return r.NoResults, nil
	}
	sb := strings.Builder{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := tmpl.Execute(&sb, item); err != nil {
			return "", fmt.Errorf("render item %d: %w", item.Id, err)
		}
	}
	return r.policy.Sanitize(sb.String()), nil
}
