package render

import (
	"context"
	"strings"
	"testing"

	"github.com/matst80/slask-facets/pkg/types"
)

func TestRenderItems(t *testing.T) {
	r, err := NewTemplateRenderer(map[string]string{
		"card": `<div class="card"><h3>{{.Title}}</h3><span>{{attr . "color"}}</span><script>alert(1)</script></div>`,
	})
	if err != nil {
		t.Fatal(err)
	}
	items := []*types.Item{
		{Id: 1, Title: "First", Attributes: map[string]types.AttributeValue{"color": {"red"}}},
		{Id: 2, Title: "<b>Second</b>"},
	}
	html, err := r.Render(context.Background(), "card", items)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "script") || strings.Contains(html, "alert") {
		t.Errorf("script not removed: %s", html)
	}
	if !strings.Contains(html, `<div class="card"><h3>First</h3><span>red</span></div>`) {
		t.Errorf("unexpected output: %s", html)
	}
	if !strings.Contains(html, "&lt;b&gt;Second&lt;/b&gt;") {
		t.Errorf("title not escaped: %s", html)
	}
}

func TestRenderNoResults(t *testing.T) {
	r, err := NewTemplateRenderer(map[string]string{"card": `{{.Title}}`})
	if err != nil {
		t.Fatal(err)
	}
	html, err := r.Render(context.Background(), "card", nil)
	if err != nil {
		t.Fatal(err)
	}
	if html != DefaultNoResults {
		t.Errorf("expected no results fragment, got %s", html)
	}
	if !strings.Contains(html, `class="no-products-found"`) {
		t.Errorf("unexpected no results class in %s", html)
	}
}

func TestUnknownTemplate(t *testing.T) {
	r, _ := NewTemplateRenderer(nil)
	_, err := r.Render(context.Background(), "missing", []*types.Item{{Id: 1}})
	if !types.IsConfigurationError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestInvalidTemplateKeepsPrevious(t *testing.T) {
	r, _ := NewTemplateRenderer(map[string]string{"card": `{{.Title}}`})
	err := r.SetTemplates(map[string]string{"card": `{{.Title`})
	if !types.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if got := r.Templates(); len(got) != 1 || got[0] != "card" {
		t.Errorf("expected previous templates, got %v", got)
	}
}
