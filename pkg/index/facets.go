package index

import (
	"slices"

	"github.com/matst80/slask-facets/pkg/types"
)

// CountTerms counts, per option slug, how many of ids carry that term.
func (r *Repository) CountTerms(taxonomy string, ids *types.ItemList, options []types.Option) map[string]types.FacetCount {
	ret := types.OptionCounts(options)
	if ids == nil || ids.IsEmpty() {
		return ret
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tax, ok := r.taxonomy(taxonomy)
	if !ok {
		return ret
	}
	byTerm := r.terms[taxonomy]
	for _, o := range options {
		term, ok := tax.TermBySlug(o.Value)
		if !ok {
			continue
		}
		list, ok := byTerm[term.Id]
		if !ok {
			continue
		}
		fc := ret[o.Value]
		fc.Count = ids.IntersectionLen(list)
		ret[o.Value] = fc
	}
	return ret
}

// CountAttribute counts configured choices over the stored values of ids.
// Every distinct stored value of an item adds one to its own option. Text
// choices count the same substring match their selection uses.
func (r *Repository) CountAttribute(dim *types.FilterDimension, ids *types.ItemList) map[string]types.FacetCount {
	ret := types.OptionCounts(dim.Options)
	if ids == nil || ids.IsEmpty() {
		return ret
	}
	if dim.ValueType == types.ValueText {
		r.countText(dim, ids, ret)
		return ret
	}
	canonical := make(map[string]string, len(dim.Options))
	for _, o := range dim.Options {
		if v, ok := NormalizeValue(dim.ValueType, o.Value); ok {
			canonical[v] = o.Value
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, 4)
	for id := range *ids {
		item, ok := r.items[id]
		if !ok {
			continue
		}
		stored, ok := item.Attribute(dim.Key)
		if !ok {
			continue
		}
		clear(seen)
		for _, raw := range stored {
			v, ok := NormalizeValue(dim.ValueType, raw)
			if !ok {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			if option, ok := canonical[v]; ok {
				fc := ret[option]
				fc.Count++
				ret[option] = fc
			}
		}
	}
	return ret
}

func (r *Repository) countText(dim *types.FilterDimension, ids *types.ItemList, ret map[string]types.FacetCount) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range *ids {
		item, ok := r.items[id]
		if !ok {
			continue
		}
		stored, ok := item.Attribute(dim.Key)
		if !ok {
			continue
		}
		for _, o := range dim.Options {
			wanted := []string{o.Value}
			if slices.ContainsFunc(stored, func(v string) bool { return containsFold(v, wanted) }) {
				fc := ret[o.Value]
				fc.Count++
				ret[o.Value] = fc
			}
		}
	}
}
