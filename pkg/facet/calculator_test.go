package facet

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/matst80/slask-facets/pkg/index"
	"github.com/matst80/slask-facets/pkg/query"
	"github.com/matst80/slask-facets/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRepository() *index.Repository {
	r := index.NewRepository()
	r.SetSchema([]types.Taxonomy{
		{Name: "color", Label: "Color", Terms: []types.Term{
			{Id: 1, Slug: "red", Label: "Red"},
			{Id: 2, Slug: "blue", Label: "Blue"},
			{Id: 3, Slug: "green", Label: "Green"},
		}},
		{Name: "season", Label: "Season"},
	}, []types.CustomField{
		{Key: "inStock", Label: "In stock", Type: types.ValueBoolean},
		{Key: "name", Label: "Name", Type: types.ValueText},
	})
	add := func(id int, color types.TermId, inStock bool) {
		r.Upsert(&types.Item{
			Id:         types.ItemId(id),
			PostType:   types.DefaultPostType,
			Status:     types.DefaultStatus,
			Title:      fmt.Sprintf("Item %d", id),
			Terms:      map[string][]types.TermId{"color": {color}},
			Attributes: map[string]types.AttributeValue{"inStock": {fmt.Sprint(inStock)}, "name": {fmt.Sprintf("item %d", id)}},
		})
	}
	id := 1
	for range 5 {
		add(id, 1, true)
		id++
	}
	for range 3 {
		add(id, 2, true)
		id++
	}
	for range 2 {
		add(id, 3, false)
		id++
	}
	return r
}

func makeConfig(t *testing.T, schema types.Schema) query.Config {
	t.Helper()
	cfg, err := query.ResolveConfig(schema, []types.DimensionConfig{
		{Key: "color", Kind: types.KindCategorical, DisplayMode: types.DisplayMultiSelect},
		{Key: "inStock", Kind: types.KindCustom, DisplayMode: types.DisplaySingleSelect},
		{Key: "season", Kind: types.KindCategorical, DisplayMode: types.DisplayDropdown},
		{Key: "name", Kind: types.KindCustom, DisplayMode: types.DisplayFreeText},
	})
	require.NoError(t, err)
	return cfg
}

func counts(m map[string]types.FacetCount) map[string]int {
	ret := make(map[string]int, len(m))
	for k, v := range m {
		ret[k] = v.Count
	}
	return ret
}

func TestSelfExcludedCounts(t *testing.T) {
	r := makeRepository()
	cfg := makeConfig(t, r)
	sel := types.Selections{"inStock": {"true"}}
	calc := NewCalculator(r)

	res, errs := calc.ComputeFacets(context.Background(), cfg, types.BaseConstraints{}, sel, types.ModeAnd)
	assert.Empty(t, errs)
	assert.Equal(t, map[string]int{"true": 8, "false": 2}, counts(res["inStock"]))
	assert.Equal(t, map[string]int{"red": 5, "blue": 3, "green": 0}, counts(res["color"]))
	assert.Equal(t, "Red", res["color"]["red"].Label)
}

func TestRedSelection(t *testing.T) {
	r := makeRepository()
	cfg := makeConfig(t, r)
	sel := types.Selections{"color": {"red"}}

	res, errs := NewCalculator(r).ComputeFacets(context.Background(), cfg, types.BaseConstraints{}, sel, types.ModeAnd)
	assert.Empty(t, errs)
	assert.Equal(t, map[string]int{"true": 5, "false": 0}, counts(res["inStock"]))
	assert.Equal(t, map[string]int{"red": 5, "blue": 3, "green": 2}, counts(res["color"]))
}

func TestCountsWithOtherSelection(t *testing.T) {
	r := makeRepository()
	cfg := makeConfig(t, r)
	sel := types.Selections{"color": {"red", "blue"}}

	res, errs := NewCalculator(r).ComputeFacets(context.Background(), cfg, types.BaseConstraints{}, sel, types.ModeAnd)
	assert.Empty(t, errs)
	assert.Equal(t, map[string]int{"true": 8, "false": 0}, counts(res["inStock"]))
	assert.Equal(t, map[string]int{"red": 5, "blue": 3, "green": 2}, counts(res["color"]))
}

func TestCountsRespectBaseConstraints(t *testing.T) {
	r := makeRepository()
	cfg := makeConfig(t, r)
	base := types.BaseConstraints{ExcludeIds: []types.ItemId{1, 2, 9}}

	res, _ := NewCalculator(r).ComputeFacets(context.Background(), cfg, base, types.Selections{"color": {"red"}}, types.ModeOr)
	assert.Equal(t, map[string]int{"red": 3, "blue": 3, "green": 1}, counts(res["color"]))
	assert.Equal(t, map[string]int{"true": 3, "false": 0}, counts(res["inStock"]))
}

func TestDimensionsWithoutUniverse(t *testing.T) {
	r := makeRepository()
	cfg := makeConfig(t, r)
	res, errs := NewCalculator(r).ComputeFacets(context.Background(), cfg, types.BaseConstraints{}, nil, types.ModeAnd)
	assert.Empty(t, errs)
	if _, ok := res["name"]; ok {
		t.Error("free text dimension should not be counted")
	}
	season, ok := res["season"]
	if !ok || len(season) != 0 {
		t.Errorf("expected empty map for empty taxonomy, got %v (%v)", season, ok)
	}
}

func TestSelectionsNotMutated(t *testing.T) {
	r := makeRepository()
	cfg := makeConfig(t, r)
	sel := types.Selections{"color": {"red"}, "inStock": {"true"}}
	before := sel.Clone()
	NewCalculator(r).ComputeFacets(context.Background(), cfg, types.BaseConstraints{}, sel, types.ModeAnd)
	assert.Equal(t, before, sel)
}

type failingSource struct {
	*index.Repository
	fail  string
	calls atomic.Int32
}

func (f *failingSource) MatchIds(ctx context.Context, spec *types.QuerySpec) (*types.ItemList, error) {
	f.calls.Add(1)
	for _, c := range spec.Selection {
		if c.Field == f.fail {
			return nil, errors.New("boom")
		}
	}
	return f.Repository.MatchIds(ctx, spec)
}

func TestPartialFailure(t *testing.T) {
	r := makeRepository()
	cfg, err := query.ResolveConfig(r, []types.DimensionConfig{
		{Key: "color", Kind: types.KindCategorical, DisplayMode: types.DisplayMultiSelect},
		{Key: "inStock", Kind: types.KindCustom, DisplayMode: types.DisplaySingleSelect},
	})
	require.NoError(t, err)
	// the color query keeps the inStock selection, so only color fails
	src := &failingSource{Repository: r, fail: "inStock"}
	calc := &Calculator{Source: src, Concurrency: 1}

	res, errs := calc.ComputeFacets(context.Background(), cfg, types.BaseConstraints{}, types.Selections{"inStock": {"true"}}, types.ModeAnd)
	require.Len(t, errs, 1)
	var dimErr *DimensionError
	require.ErrorAs(t, errs[0], &dimErr)
	assert.Equal(t, "color", dimErr.Key)
	assert.Empty(t, res["color"])
	assert.Equal(t, map[string]int{"true": 8, "false": 2}, counts(res["inStock"]))
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCancelledContext(t *testing.T) {
	r := makeRepository()
	cfg := makeConfig(t, r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, errs := NewCalculator(r).ComputeFacets(ctx, cfg, types.BaseConstraints{}, nil, types.ModeAnd)
	assert.Len(t, errs, 3)
	assert.Len(t, res, 3)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
