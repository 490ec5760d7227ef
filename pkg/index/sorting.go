package index

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/matst80/slask-facets/pkg/types"
)

func compareItems(key types.SortKey, a, b *types.Item) int {
	var c int
	switch key {
	case types.SortModified:
		c = a.Modified.Compare(b.Modified)
	case types.SortTitle:
		c = cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case types.SortId:
		c = 0
	case types.SortMenuOrder:
		c = cmp.Compare(a.MenuOrder, b.MenuOrder)
	case types.SortPrice:
		c = compareNumeric(a, b, types.PriceAttribute)
	case types.SortDate:
		c = a.Date.Compare(b.Date)
	default:
		c = a.Date.Compare(b.Date)
	}
	if c == 0 {
		c = cmp.Compare(a.Id, b.Id)
	}
	return c
}

// compareNumeric orders by the first stored value of an attribute, items
// without a numeric value sort before the rest.
func compareNumeric(a, b *types.Item, key string) int {
	av, aok := numericAttribute(a, key)
	bv, bok := numericAttribute(b, key)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return cmp.Compare(av, bv)
}

func numericAttribute(item *types.Item, key string) (float64, bool) {
	stored, ok := item.Attribute(key)
	if !ok {
		return 0, false
	}
	return parseNumber(stored.First())
}

// SortItems orders items in place, ties are broken by id in the same
// direction so paging is stable.
func SortItems(items []*types.Item, key types.SortKey, dir types.SortDir) {
	slices.SortFunc(items, func(a, b *types.Item) int {
		c := compareItems(key, a, b)
		if dir == types.SortDesc {
			return -c
		}
		return c
	})
}

// Execute matches, sorts and pages the spec. A page past the end returns no
// items but still reports the real page count.
func (r *Repository) Execute(ctx context.Context, spec *types.QuerySpec) (*types.ResultPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids, err := r.matchIds(ctx, spec)
	if err != nil {
		return nil, err
	}
	items := make([]*types.Item, 0, ids.Len())
	for id := range *ids {
		if item, ok := r.items[id]; ok {
			items = append(items, item)
		}
	}
	SortItems(items, spec.SortKey, spec.SortDir)

	total := len(items)
	page := max(spec.Page, 1)
	ret := &types.ResultPage{
		Total:      total,
		Page:       page,
		PageSize:   spec.PageSize,
		TotalPages: types.TotalPages(total, spec.PageSize),
	}
	if spec.PageSize <= 0 {
		ret.Items = items
		return ret, nil
	}
	if page > ret.TotalPages {
		ret.Items = []*types.Item{}
		return ret, nil
	}
	start := (page - 1) * spec.PageSize
	end := min(start+spec.PageSize, total)
	ret.Items = items[start:end]
	return ret, nil
}
