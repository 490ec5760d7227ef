package index

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/matst80/slask-facets/pkg/types"
)

func (r *Repository) union(lists ...types.ItemList) *types.ItemList {
	ret := types.ItemList{}
	for _, l := range lists {
		ret.Merge(&l)
	}
	return &ret
}

func (r *Repository) termLists(c *types.Constraint) *types.ItemList {
	byTerm := r.terms[c.Field]
	if len(c.Ids) > 0 {
		lists := make([]types.ItemList, 0, len(c.Ids))
		for _, id := range c.Ids {
			if l, ok := byTerm[types.TermId(id)]; ok {
				lists = append(lists, l)
			}
		}
		return r.union(lists...)
	}
	tax, ok := r.taxonomy(c.Field)
	if !ok {
		return &types.ItemList{}
	}
	lists := make([]types.ItemList, 0, len(c.Values))
	for _, slug := range c.Values {
		term, ok := tax.TermBySlug(slug)
		if !ok {
			continue
		}
		if l, ok := byTerm[term.Id]; ok {
			lists = append(lists, l)
		}
	}
	return r.union(lists...)
}

func (r *Repository) attributeList(c *types.Constraint) *types.ItemList {
	ret := types.ItemList{}
	for id, item := range r.items {
		if matchAttribute(item, c) {
			ret.AddId(id)
		}
	}
	return &ret
}

func isExclusion(kind types.ConstraintKind) bool {
	return kind == types.ConstraintExcludeIds || kind == types.ConstraintTermsNotIn
}

// constraintList returns the ids a single constraint selects. Exclusion
// constraints return the ids to remove.
func (r *Repository) constraintList(c *types.Constraint) (*types.ItemList, error) {
	switch c.Kind {
	case types.ConstraintPostType:
		lists := make([]types.ItemList, 0, len(c.Values))
		for _, v := range c.Values {
			lists = append(lists, r.postTypes[v])
		}
		return r.union(lists...), nil
	case types.ConstraintStatus:
		lists := make([]types.ItemList, 0, len(c.Values))
		for _, v := range c.Values {
			lists = append(lists, r.status[v])
		}
		return r.union(lists...), nil
	case types.ConstraintIncludeIds:
		ret := types.ItemList{}
		for _, id := range c.Ids {
			if _, ok := r.items[types.ItemId(id)]; ok {
				ret.AddId(types.ItemId(id))
			}
		}
		return &ret, nil
	case types.ConstraintExcludeIds:
		ret := types.ItemList{}
		for _, id := range c.Ids {
			ret.AddId(types.ItemId(id))
		}
		return &ret, nil
	case types.ConstraintTermsIn, types.ConstraintTermsNotIn:
		return r.termLists(c), nil
	case types.ConstraintAttribute:
		return r.attributeList(c), nil
	}
	return nil, fmt.Errorf("unsupported constraint kind %d", c.Kind)
}

// MatchIds evaluates the spec and returns every matching id, ignoring
// pagination.
func (r *Repository) MatchIds(ctx context.Context, spec *types.QuerySpec) (*types.ItemList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matchIds(ctx, spec)
}

type matchErrors struct {
	mu  sync.Mutex
	err error
}

func (m *matchErrors) set(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = err
	}
}

func (r *Repository) fetch(c *types.Constraint, errs *matchErrors) func(context.Context) *types.ItemList {
	return func(ctx context.Context) *types.ItemList {
		list, err := r.constraintList(c)
		if err != nil {
			errs.set(err)
			return &types.ItemList{}
		}
		return list
	}
}

// matchIds joins base constraints conjunctively with the selection group,
// which itself is joined by the combination mode. Caller holds the read lock.
func (r *Repository) matchIds(ctx context.Context, spec *types.QuerySpec) (*types.ItemList, error) {
	errs := &matchErrors{}
	result := &types.ItemList{}
	qm := types.NewQueryMerger(ctx, result)
	qm.Add(func(ctx context.Context) *types.ItemList {
		return r.all.Clone()
	})

	for i := range spec.Base {
		c := &spec.Base[i]
		if isExclusion(c.Kind) {
			qm.Exclude(r.fetch(c, errs))
		} else {
			qm.Add(r.fetch(c, errs))
		}
	}

	if len(spec.Selection) > 0 {
		selection := &types.ItemList{}
		var sm *types.QueryMerger
		if spec.Mode == types.ModeOr {
			sm = types.NewUnionMerger(ctx, selection)
		} else {
			sm = types.NewQueryMerger(ctx, selection)
		}
		for i := range spec.Selection {
			c := &spec.Selection[i]
			if isExclusion(c.Kind) {
				log.Printf("ignoring exclusion %s in selection group", c.String())
				continue
			}
			sm.Add(r.fetch(c, errs))
		}
		qm.Add(func(ctx context.Context) *types.ItemList {
			sm.Wait()
			return selection
		})
	}
	qm.Wait()
	if errs.err != nil {
		return nil, errs.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
