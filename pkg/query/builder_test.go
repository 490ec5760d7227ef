package query

import (
	"reflect"
	"testing"

	"github.com/matst80/slask-facets/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSchema struct {
	taxonomies map[string]*types.Taxonomy
	fields     map[string]*types.CustomField
}

func (s *testSchema) Taxonomy(name string) (*types.Taxonomy, bool) {
	t, ok := s.taxonomies[name]
	return t, ok
}

func (s *testSchema) Field(key string) (*types.CustomField, bool) {
	f, ok := s.fields[key]
	return f, ok
}

func makeSchema() *testSchema {
	return &testSchema{
		taxonomies: map[string]*types.Taxonomy{
			"color": {Name: "color", Label: "Color", Terms: []types.Term{
				{Id: 1, Slug: "red", Label: "Red"},
				{Id: 2, Slug: "blue", Label: "Blue"},
				{Id: 3, Slug: "green", Label: "Green"},
			}},
			"size":  {Name: "size", Terms: []types.Term{{Id: 10, Slug: "s", Label: "S"}}},
			"empty": {Name: "empty"},
		},
		fields: map[string]*types.CustomField{
			"inStock":  {Key: "inStock", Label: "In stock", Type: types.ValueBoolean},
			"material": {Key: "material", Type: types.ValueEnum, Choices: []types.Choice{{Value: "wood", Label: "Wood"}, {Value: "steel"}}},
			"name":     {Key: "name", Type: types.ValueText},
			"weight":   {Key: "weight", Type: types.ValueNumber},
		},
	}
}

func makeConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := ResolveConfig(makeSchema(), []types.DimensionConfig{
		{Key: "color", Kind: types.KindCategorical, DisplayMode: types.DisplayMultiSelect},
		{Key: "size", Kind: types.KindCategorical, DisplayMode: types.DisplayDropdown},
		{Key: "inStock", Kind: types.KindCustom, DisplayMode: types.DisplaySingleSelect},
		{Key: "material", Kind: types.KindCustom, DisplayMode: types.DisplayMultiSelect},
		{Key: "name", Kind: types.KindCustom, DisplayMode: types.DisplayFreeText},
		{Key: "weight", Kind: types.KindCustom, DisplayMode: types.DisplayNumeric, Comparator: types.CompareLessEqual},
	})
	require.NoError(t, err)
	return cfg
}

func TestResolveConfig(t *testing.T) {
	cfg := makeConfig(t)
	color, ok := cfg.Get("color")
	if !ok {
		t.Fatal("expected color dimension")
	}
	if len(color.Options) != 3 || color.Options[0].Value != "red" || color.Options[0].Label != "Red" {
		t.Errorf("unexpected color options %v", color.Options)
	}
	stock, _ := cfg.Get("inStock")
	if stock.ValueType != types.ValueBoolean || len(stock.Options) != 2 {
		t.Errorf("unexpected boolean dimension %+v", stock)
	}
	material, _ := cfg.Get("material")
	assert.Equal(t, []types.Option{{Value: "wood", Label: "Wood"}, {Value: "steel", Label: "steel"}}, material.Options)
	name, _ := cfg.Get("name")
	if name.HasUniverse() {
		t.Error("free text dimension should not have a universe")
	}
	weight, _ := cfg.Get("weight")
	if weight.Comparator != types.CompareLessEqual {
		t.Errorf("expected <= comparator, got %s", weight.Comparator)
	}
}

func TestResolveEmptyTaxonomy(t *testing.T) {
	cfg, err := ResolveConfig(makeSchema(), []types.DimensionConfig{
		{Key: "empty", Kind: types.KindCategorical, DisplayMode: types.DisplayDropdown},
	})
	require.NoError(t, err)
	if !cfg[0].HasUniverse() || len(cfg[0].Options) != 0 {
		t.Errorf("expected empty but countable universe, got %v", cfg[0].Options)
	}
}

func TestResolveConfigErrors(t *testing.T) {
	cases := map[string]types.DimensionConfig{
		"unknown kind":      {Key: "color", Kind: "geo", DisplayMode: types.DisplayDropdown},
		"unknown taxonomy":  {Key: "brand", Kind: types.KindCategorical, DisplayMode: types.DisplayDropdown},
		"unknown field":     {Key: "brand", Kind: types.KindCustom, DisplayMode: types.DisplayDropdown},
		"numeric on text":   {Key: "name", Kind: types.KindCustom, DisplayMode: types.DisplayNumeric},
		"numeric on terms":  {Key: "color", Kind: types.KindCategorical, DisplayMode: types.DisplayNumeric},
		"free text on enum": {Key: "material", Kind: types.KindCustom, DisplayMode: types.DisplayFreeText},
		"bad comparator":    {Key: "weight", Kind: types.KindCustom, DisplayMode: types.DisplayNumeric, Comparator: "~"},
		"empty key":         {Kind: types.KindCategorical, DisplayMode: types.DisplayDropdown},
	}
	for name, dc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ResolveConfig(makeSchema(), []types.DimensionConfig{dc})
			if !types.IsConfigurationError(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestBuildQueryIsDeterministic(t *testing.T) {
	cfg := makeConfig(t)
	base := types.BaseConstraints{
		IncludeIds: []types.ItemId{3, 1, 2, 1},
		Status:     []string{"publish", "draft"},
		AttributeFilters: []types.AttributeFilter{
			{Key: "weight", Compare: "<", Value: "10"},
			{Key: "brand", Compare: "in", Value: "b, a"},
		},
	}
	sel := types.Selections{"size": {"s"}, "color": {"blue", "red", "blue"}}
	a := BuildQuery(cfg, base, sel, types.ModeAnd)
	b := BuildQuery(cfg, base, types.Selections{"color": {"red", "blue"}, "size": {"s"}}, types.ModeAnd)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical specs\n%s\n%s", a, b)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("expected identical fingerprints")
	}
	if a.Selection[0].Field != "color" || !reflect.DeepEqual(a.Selection[0].Values, []string{"blue", "red"}) {
		t.Errorf("unexpected first selection constraint %s", a.Selection[0].String())
	}
	if !reflect.DeepEqual(base.IncludeIds, []types.ItemId{3, 1, 2, 1}) {
		t.Errorf("base constraints were modified: %v", base.IncludeIds)
	}
	if !reflect.DeepEqual(sel["color"], []string{"blue", "red", "blue"}) {
		t.Errorf("selections were modified: %v", sel["color"])
	}
}

func TestBuildQueryDefaults(t *testing.T) {
	spec := BuildQuery(nil, types.BaseConstraints{SortKey: "nonsense", SortDir: "ASC"}, nil, "")
	assert.Equal(t, types.SortDate, spec.SortKey)
	assert.Equal(t, types.SortDesc, spec.SortDir)
	assert.Equal(t, types.ModeAnd, spec.Mode)
	assert.Equal(t, types.DefaultPageSize, spec.PageSize)
	assert.Equal(t, 1, spec.Page)
	require.Len(t, spec.Base, 2)
	assert.Equal(t, []string{types.DefaultPostType}, spec.Base[0].Values)
	assert.Equal(t, []string{types.DefaultStatus}, spec.Base[1].Values)
}

func TestSelfExcludedEqualsPlainWithoutSelections(t *testing.T) {
	cfg := makeConfig(t)
	base := types.BaseConstraints{FixedTagIds: []types.TermId{4}}
	plain := BuildQuery(cfg, base, types.Selections{}, types.ModeOr, IdsOnly())
	for _, dim := range cfg {
		excluded := BuildQuery(cfg, base, types.Selections{}, types.ModeOr, IdsOnly(), WithoutDimension(dim.Key))
		if !reflect.DeepEqual(plain, excluded) {
			t.Errorf("expected identical specs for %s", dim.Key)
		}
	}
}

func TestWithoutDimensionKeepsOthers(t *testing.T) {
	cfg := makeConfig(t)
	sel := types.Selections{"color": {"red"}, "inStock": {"1"}}
	spec := BuildQuery(cfg, types.BaseConstraints{}, sel, types.ModeAnd, WithoutDimension("inStock"))
	require.Len(t, spec.Selection, 1)
	assert.Equal(t, "color", spec.Selection[0].Field)

	spec = BuildQuery(cfg, types.BaseConstraints{}, sel, types.ModeAnd, WithoutDimension("color"))
	require.Len(t, spec.Selection, 1)
	assert.Equal(t, "inStock", spec.Selection[0].Field)
	assert.Equal(t, []string{"true"}, spec.Selection[0].Values)
}

func TestUnknownSelectionIgnored(t *testing.T) {
	cfg := makeConfig(t)
	spec := BuildQuery(cfg, types.BaseConstraints{}, types.Selections{"stale": {"x"}}, types.ModeAnd)
	if spec.HasSelection() || len(spec.Rejected) != 0 {
		t.Errorf("expected stale key to be ignored, got %s", spec)
	}
}

func TestNonNumericSelectionRejected(t *testing.T) {
	cfg := makeConfig(t)
	spec := BuildQuery(cfg, types.BaseConstraints{}, types.Selections{"weight": {"heavy"}, "color": {"red"}}, types.ModeAnd)
	assert.Equal(t, []string{"weight"}, spec.Rejected)
	require.Len(t, spec.Selection, 1)
	assert.Equal(t, "color", spec.Selection[0].Field)

	spec = BuildQuery(cfg, types.BaseConstraints{}, types.Selections{"weight": {"NaN"}}, types.ModeAnd)
	assert.Equal(t, []string{"weight"}, spec.Rejected)
}

func TestNumberConstraint(t *testing.T) {
	cfg := makeConfig(t)
	spec := BuildQuery(cfg, types.BaseConstraints{}, types.Selections{"weight": {" 12.5 "}}, types.ModeAnd)
	require.Len(t, spec.Selection, 1)
	c := spec.Selection[0]
	assert.Equal(t, types.OpLessEqual, c.Op)
	assert.Equal(t, []float64{12.5}, c.Numbers)

	between := Config{{Key: "weight", Kind: types.KindCustom, ValueType: types.ValueNumber, DisplayMode: types.DisplayNumeric, Comparator: types.CompareBetween}}
	spec = BuildQuery(between, types.BaseConstraints{}, types.Selections{"weight": {"20..5"}}, types.ModeAnd)
	require.Len(t, spec.Selection, 1)
	assert.Equal(t, []float64{5, 20}, spec.Selection[0].Numbers)
}

func TestTextConstraintLowercases(t *testing.T) {
	cfg := makeConfig(t)
	spec := BuildQuery(cfg, types.BaseConstraints{}, types.Selections{"name": {"Oak Table"}}, types.ModeAnd)
	require.Len(t, spec.Selection, 1)
	assert.Equal(t, types.OpLike, spec.Selection[0].Op)
	assert.Equal(t, []string{"oak table"}, spec.Selection[0].Values)
}

func TestBaseAttributeFilters(t *testing.T) {
	base := types.BaseConstraints{AttributeFilters: []types.AttributeFilter{
		{Key: "", Compare: "=", Value: "x"},
		{Key: "a", Compare: "=", Value: ""},
		{Key: "b", Compare: "EXISTS"},
		{Key: "c", Compare: "between", Value: "1,5"},
		{Key: "d", Compare: "between", Value: "1"},
		{Key: "e", Compare: "unknown", Value: "1"},
	}}
	spec := BuildQuery(nil, base, nil, types.ModeAnd)
	attrs := spec.Base[2:]
	require.Len(t, attrs, 2)
	assert.Equal(t, "b", attrs[0].Field)
	assert.Equal(t, types.OpExists, attrs[0].Op)
	assert.Equal(t, "c", attrs[1].Field)
	assert.Equal(t, []string{"1", "5"}, attrs[1].Values)
}

func TestIdsOnly(t *testing.T) {
	spec := BuildQuery(nil, types.BaseConstraints{PageSize: 3}, nil, types.ModeAnd, IdsOnly(), Page(4))
	if spec.PageSize != 0 || spec.Page != 1 || !spec.IdsOnly {
		t.Errorf("expected unbounded ids only query, got %s", spec)
	}
}
