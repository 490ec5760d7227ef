package query

import (
	"cmp"
	"log"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/matst80/slask-facets/pkg/types"
)

type options struct {
	exclude    string
	hasExclude bool
	idsOnly    bool
	page       int
}

type Option func(*options)

// WithoutDimension lifts the selection of one dimension, used for facet
// counting.
func WithoutDimension(key string) Option {
	return func(o *options) {
		o.exclude = key
		o.hasExclude = true
	}
}

// IdsOnly builds an unbounded query that only needs matching ids.
func IdsOnly() Option {
	return func(o *options) {
		o.idsOnly = true
	}
}

func Page(page int) Option {
	return func(o *options) {
		o.page = page
	}
}

// BuildQuery materializes a QuerySpec from the configuration, the base
// constraints and the current selections. It is pure, none of the inputs are
// modified and identical inputs give identical specs.
func BuildQuery(cfg Config, base types.BaseConstraints, sel types.Selections, mode types.CombinationMode, opts ...Option) *types.QuerySpec {
	o := options{page: 1}
	for _, opt := range opts {
		opt(&o)
	}
	base.Sanitize()
	sortKey, sortDir := types.ParseSort(base.SortKey, base.SortDir)
	spec := &types.QuerySpec{
		Base:     baseConstraints(&base),
		Mode:     types.ParseCombinationMode(string(mode)),
		SortKey:  sortKey,
		SortDir:  sortDir,
		Page:     max(o.page, 1),
		PageSize: base.PageSize,
	}
	if o.idsOnly {
		spec.IdsOnly = true
		spec.Page = 1
		spec.PageSize = 0
	}

	dims := make([]*types.FilterDimension, 0, len(cfg))
	for i := range cfg {
		dims = append(dims, &cfg[i])
	}
	slices.SortFunc(dims, func(a, b *types.FilterDimension) int {
		return cmp.Compare(a.Key, b.Key)
	})
	for _, dim := range dims {
		if o.hasExclude && dim.Key == o.exclude {
			continue
		}
		values := sel.Values(dim.Key)
		if len(values) == 0 {
			continue
		}
		c, ok := selectionConstraint(dim, values)
		if !ok {
			log.Printf("could not build constraint for %s with %v", dim.Key, values)
			spec.Rejected = append(spec.Rejected, dim.Key)
			continue
		}
		spec.Selection = append(spec.Selection, c)
	}
	return spec
}

func sortedUnique[T cmp.Ordered](values []T) []T {
	ret := slices.Clone(values)
	slices.Sort(ret)
	return slices.Compact(ret)
}

func termIds(ids []types.TermId) []uint32 {
	ret := make([]uint32, 0, len(ids))
	for _, id := range ids {
		ret = append(ret, uint32(id))
	}
	return sortedUnique(ret)
}

func baseConstraints(base *types.BaseConstraints) []types.Constraint {
	ret := []types.Constraint{
		{Kind: types.ConstraintPostType, Values: []string{base.PostType}},
		{Kind: types.ConstraintStatus, Values: sortedUnique(base.Status)},
	}
	itemIds := func(ids []types.ItemId) []uint32 {
		r := make([]uint32, 0, len(ids))
		for _, id := range ids {
			r = append(r, uint32(id))
		}
		return sortedUnique(r)
	}
	if len(base.IncludeIds) > 0 {
		ret = append(ret, types.Constraint{Kind: types.ConstraintIncludeIds, Ids: itemIds(base.IncludeIds)})
	}
	if len(base.ExcludeIds) > 0 {
		ret = append(ret, types.Constraint{Kind: types.ConstraintExcludeIds, Ids: itemIds(base.ExcludeIds)})
	}
	if len(base.TermsInclude) > 0 {
		ret = append(ret, types.Constraint{Kind: types.ConstraintTermsIn, Field: types.TaxonomyCategory, Ids: termIds(base.TermsInclude)})
	}
	if len(base.TermsExclude) > 0 {
		ret = append(ret, types.Constraint{Kind: types.ConstraintTermsNotIn, Field: types.TaxonomyCategory, Ids: termIds(base.TermsExclude)})
	}
	if len(base.FixedCategoryIds) > 0 {
		ret = append(ret, types.Constraint{Kind: types.ConstraintTermsIn, Field: types.TaxonomyProductCategory, Ids: termIds(base.FixedCategoryIds)})
	}
	if len(base.FixedTagIds) > 0 {
		ret = append(ret, types.Constraint{Kind: types.ConstraintTermsIn, Field: types.TaxonomyProductTag, Ids: termIds(base.FixedTagIds)})
	}

	attrs := make([]types.Constraint, 0, len(base.AttributeFilters))
	for _, af := range base.AttributeFilters {
		key := strings.TrimSpace(af.Key)
		op, ok := types.ParseCompareOp(af.Compare)
		if key == "" || !ok {
			continue
		}
		value := strings.TrimSpace(af.Value)
		c := types.Constraint{Kind: types.ConstraintAttribute, Field: key, Op: op}
		if op.TakesValue() {
			if value == "" {
				continue
			}
			switch op {
			case types.OpIn, types.OpNotIn, types.OpBetween, types.OpNotBetween:
				c.Values = splitList(value)
			default:
				c.Values = []string{value}
			}
			if op == types.OpIn || op == types.OpNotIn {
				c.Values = sortedUnique(c.Values)
			}
			if (op == types.OpBetween || op == types.OpNotBetween) && len(c.Values) != 2 {
				continue
			}
		}
		attrs = append(attrs, c)
	}
	slices.SortStableFunc(attrs, func(a, b types.Constraint) int {
		return cmp.Compare(a.String(), b.String())
	})
	return append(ret, attrs...)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	ret := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}

func selectionConstraint(dim *types.FilterDimension, values []string) (types.Constraint, bool) {
	switch dim.Kind {
	case types.KindCategorical:
		return types.Constraint{
			Kind:   types.ConstraintTermsIn,
			Field:  dim.Key,
			Values: sortedUnique(values),
		}, true
	case types.KindCustom:
		switch dim.ValueType {
		case types.ValueText:
			lower := make([]string, 0, len(values))
			for _, v := range values {
				lower = append(lower, strings.ToLower(v))
			}
			return types.Constraint{
				Kind:      types.ConstraintAttribute,
				Field:     dim.Key,
				Op:        types.OpLike,
				ValueType: types.ValueText,
				Values:    sortedUnique(lower),
			}, true
		case types.ValueNumber:
			return numberConstraint(dim, values)
		case types.ValueBoolean:
			normalized := make([]string, 0, len(values))
			for _, v := range values {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return types.Constraint{}, false
				}
				normalized = append(normalized, strconv.FormatBool(b))
			}
			return types.Constraint{
				Kind:      types.ConstraintAttribute,
				Field:     dim.Key,
				Op:        types.OpIn,
				ValueType: types.ValueBoolean,
				Values:    sortedUnique(normalized),
			}, true
		case types.ValueEnum:
			return types.Constraint{
				Kind:      types.ConstraintAttribute,
				Field:     dim.Key,
				Op:        types.OpIn,
				ValueType: types.ValueEnum,
				Values:    sortedUnique(values),
			}, true
		case types.ValueNone:
			return types.Constraint{}, false
		}
	}
	return types.Constraint{}, false
}

// ParseRange reads "min..max" as two numbers.
func ParseRange(value string) (float64, float64, bool) {
	lo, hi, found := strings.Cut(value, "..")
	if !found {
		return 0, 0, false
	}
	a, ok := parseNumber(lo)
	if !ok {
		return 0, 0, false
	}
	b, ok := parseNumber(hi)
	if !ok {
		return 0, 0, false
	}
	return min(a, b), max(a, b), true
}

func numberConstraint(dim *types.FilterDimension, values []string) (types.Constraint, bool) {
	c := types.Constraint{
		Kind:      types.ConstraintAttribute,
		Field:     dim.Key,
		ValueType: types.ValueNumber,
	}
	if dim.Comparator == types.CompareBetween {
		c.Op = types.OpBetween
		if len(values) == 1 {
			lo, hi, ok := ParseRange(values[0])
			if !ok {
				return c, false
			}
			c.Numbers = []float64{lo, hi}
			return c, true
		}
		if len(values) != 2 {
			return c, false
		}
		nums, ok := parseNumbers(values)
		if !ok {
			return c, false
		}
		c.Numbers = []float64{min(nums[0], nums[1]), max(nums[0], nums[1])}
		return c, true
	}

	nums, ok := parseNumbers(values)
	if !ok {
		return c, false
	}
	switch dim.Comparator {
	case types.CompareEqual, "":
		c.Op = types.OpEqual
	case types.CompareNotEqual:
		c.Op = types.OpNotEqual
	case types.CompareGreater:
		c.Op = types.OpGreater
	case types.CompareGreaterEqual:
		c.Op = types.OpGreaterEqual
	case types.CompareLess:
		c.Op = types.OpLess
	case types.CompareLessEqual:
		c.Op = types.OpLessEqual
	default:
		return c, false
	}
	if c.Op != types.OpEqual && c.Op != types.OpNotEqual && len(nums) != 1 {
		return c, false
	}
	c.Numbers = sortedUnique(nums)
	return c, true
}

func parseNumbers(values []string) ([]float64, bool) {
	ret := make([]float64, 0, len(values))
	for _, v := range values {
		n, ok := parseNumber(v)
		if !ok {
			return nil, false
		}
		ret = append(ret, n)
	}
	return ret, true
}

// parseNumber rejects NaN and infinities along with anything non numeric.
func parseNumber(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
