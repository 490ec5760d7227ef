package server

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/index"
	"github.com/matst80/slask-facets/pkg/render"
	"github.com/matst80/slask-facets/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRepository() *index.Repository {
	r := index.NewRepository()
	r.SetSchema([]types.Taxonomy{{Name: "color", Label: "Color", Terms: []types.Term{
		{Id: 1, Slug: "red", Label: "Red"},
		{Id: 2, Slug: "blue", Label: "Blue"},
		{Id: 3, Slug: "green", Label: "Green"},
	}}}, []types.CustomField{{Key: "inStock", Label: "In stock", Type: types.ValueBoolean}})
	id := 1
	add := func(n int, color types.TermId, inStock bool) {
		for range n {
			r.Upsert(&types.Item{
				Id:         types.ItemId(id),
				PostType:   types.DefaultPostType,
				Status:     types.DefaultStatus,
				Title:      fmt.Sprintf("Item %d", id),
				Date:       time.Date(2024, 2, id, 0, 0, 0, 0, time.UTC),
				Terms:      map[string][]types.TermId{"color": {color}},
				Attributes: map[string]types.AttributeValue{"inStock": {fmt.Sprint(inStock)}},
			})
			id++
		}
	}
	add(5, 1, true)
	add(3, 2, true)
	add(2, 3, false)
	return r
}

func makeServer(t *testing.T) (*FilterServer, *index.Repository) {
	t.Helper()
	repo := makeRepository()
	renderer, err := render.NewTemplateRenderer(map[string]string{
		"card": `<article class="card">{{.Title}}</article>`,
	})
	require.NoError(t, err)
	s := NewFilterServer(repo, renderer)
	s.Cache = NewCache("", "", 0)
	return s, repo
}

var filterConfig = []types.DimensionConfig{
	{Key: "color", Kind: types.KindCategorical, DisplayMode: types.DisplayMultiSelect},
	{Key: "inStock", Kind: types.KindCustom, DisplayMode: types.DisplaySingleSelect},
}

func post(t *testing.T, h http.Handler, body any) (*httptest.ResponseRecorder, types.FilterResponse) {
	t.Helper()
	data, err := jsoncompat.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/filter", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := types.FilterResponse{}
	require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &res))
	return rec, res
}

func TestFilterSelection(t *testing.T) {
	s, _ := makeServer(t)
	rec, res := post(t, s.Routes(), types.FilterRequest{
		TemplateRef: "card",
		Filters:     filterConfig,
		Selections:  types.Selections{"color": {"red"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 5, strings.Count(res.Items, `<article class="card">`))
	assert.Equal(t, 5, res.Facets["inStock"]["true"].Count)
	assert.Equal(t, 0, res.Facets["inStock"]["false"].Count)
	assert.Equal(t, 2, res.Facets["color"]["green"].Count)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestFilterPaging(t *testing.T) {
	s, _ := makeServer(t)
	_, res := post(t, s.Routes(), types.FilterRequest{
		TemplateRef: "card",
		PageSize:    4,
		Page:        3,
		Filters:     filterConfig,
	})
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Page)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 2, strings.Count(res.Items, "<article"))
}

func TestFilterNoResults(t *testing.T) {
	s, _ := makeServer(t)
	_, res := post(t, s.Routes(), types.FilterRequest{
		TemplateRef: "card",
		Filters:     filterConfig,
		Selections:  types.Selections{"color": {"green"}, "inStock": {"true"}},
	})
	assert.True(t, res.Success)
	assert.Equal(t, render.DefaultNoResults, res.Items)
	assert.Equal(t, 0, res.TotalPages)
}

func TestFilterErrors(t *testing.T) {
	s, _ := makeServer(t)
	h := s.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/filter", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec, res := post(t, h, types.FilterRequest{Filters: filterConfig})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, res.Success)
	assert.Empty(t, res.Items)

	rec, res = post(t, h, types.FilterRequest{TemplateRef: "card", Filters: []types.DimensionConfig{
		{Key: "size", Kind: types.KindCategorical, DisplayMode: types.DisplayDropdown},
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, res.Message, "size")

	rec, _ = post(t, h, types.FilterRequest{TemplateRef: "missing", Filters: filterConfig})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFilterQueryString(t *testing.T) {
	s, _ := makeServer(t)
	q := url.Values{}
	q.Set("templateRef", "card")
	q.Add("dim", "color:categorical:multiSelect")
	q.Add("dim", "inStock:custom:singleSelect")
	q.Add("sel.color", "red")
	q.Add("sel.color", "blue")
	q.Set("mode", "AND")
	q.Set("base.excludeIds", "1")
	req := httptest.NewRequest(http.MethodGet, "/api/filter?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := types.FilterResponse{}
	require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 7, res.Total)
	assert.Equal(t, 4, res.Facets["color"]["red"].Count)
}

func TestFilterNonce(t *testing.T) {
	s, _ := makeServer(t)
	s.Nonces = NewNonceIssuer("test-secret", time.Minute)
	h := s.Routes()

	rec, res := post(t, h, types.FilterRequest{TemplateRef: "card", WidgetId: "w1", Filters: filterConfig})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, res.Success)

	nrec := httptest.NewRecorder()
	h.ServeHTTP(nrec, httptest.NewRequest(http.MethodGet, "/api/nonce?widget=w1", nil))
	require.Equal(t, http.StatusOK, nrec.Code)
	nonce := NonceResponse{}
	require.NoError(t, jsoncompat.Unmarshal(nrec.Body.Bytes(), &nonce))
	assert.Equal(t, "w1", nonce.WidgetId)

	rec, res = post(t, h, types.FilterRequest{TemplateRef: "card", WidgetId: "w1", Nonce: nonce.Nonce, Filters: filterConfig})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)

	rec, _ = post(t, h, types.FilterRequest{TemplateRef: "card", WidgetId: "w2", Nonce: nonce.Nonce, Filters: filterConfig})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFacetCacheFollowsVersion(t *testing.T) {
	s, repo := makeServer(t)
	h := s.Routes()
	body := types.FilterRequest{TemplateRef: "card", Filters: filterConfig}

	_, first := post(t, h, body)
	assert.Equal(t, 5, first.Facets["color"]["red"].Count)
	assert.Len(t, s.Cache.memCache, 1)

	_, cached := post(t, h, body)
	assert.Equal(t, first.Facets, cached.Facets)
	assert.Len(t, s.Cache.memCache, 1)

	repo.Delete(1)
	_, fresh := post(t, h, body)
	assert.Equal(t, 4, fresh.Facets["color"]["red"].Count)
	assert.Len(t, s.Cache.memCache, 2)
}

func TestConfigAndHealth(t *testing.T) {
	s, _ := makeServer(t)
	h := s.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := ConfigResponse{}
	require.NoError(t, jsoncompat.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Len(t, cfg.Taxonomies, 1)
	assert.Equal(t, "inStock", cfg.Fields[0].Key)
	assert.Equal(t, []string{"card"}, cfg.Templates)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "slaskfacets_nonces_issued_total")
}

type recordingTracker struct {
	events []*types.FilterEvent
}

func (rt *recordingTracker) TrackFilter(event *types.FilterEvent, r *http.Request) {
	rt.events = append(rt.events, event)
}

func (rt *recordingTracker) Close() error {
	return nil
}

func TestFilterTracking(t *testing.T) {
	s, _ := makeServer(t)
	tracker := &recordingTracker{}
	s.Tracking = tracker
	h := s.Routes()

	post(t, h, types.FilterRequest{TemplateRef: "card", WidgetId: "w1", Filters: filterConfig, Selections: types.Selections{"color": {"blue"}}})
	post(t, h, types.FilterRequest{TemplateRef: "missing", WidgetId: "w1", Filters: filterConfig})

	require.Len(t, tracker.events, 1, "failed requests are not tracked")
	ev := tracker.events[0]
	assert.Equal(t, "w1", ev.WidgetId)
	assert.Equal(t, 3, ev.Total)
	assert.Equal(t, types.Selections{"color": {"blue"}}, ev.Selections)
}
