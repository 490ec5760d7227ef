package types

import (
	"context"
	"sync"
)

// Merger is a custom merging strategy hook.
type Merger = func(ctx context.Context, current *ItemList, next *ItemList, isFirst bool)

// QueryMerger coordinates concurrent set operations over ItemLists.
// Semantics (default constructor):
//
//	First Add with a non-nil result -> seed result with that set.
//	Subsequent Adds -> result = result ∩ next
//	Add returning nil -> no restriction, does not seed.
//	Exclusions are accumulated and applied once in Wait().
type QueryMerger struct {
	ctx     context.Context
	wg      sync.WaitGroup
	isFirst bool
	l       sync.Mutex
	merger  Merger
	result  *ItemList
	exclude *ItemList
}

// NewQueryMerger builds a QueryMerger with seed + intersect semantics.
func NewQueryMerger(ctx context.Context, result *ItemList) *QueryMerger {
	return NewCustomMerger(ctx, result, func(ctx context.Context, current *ItemList, next *ItemList, isFirst bool) {
		if isFirst {
			current.Merge(next)
		} else {
			current.Intersect(*next)
		}
	})
}

// NewUnionMerger collects the union of every added set.
func NewUnionMerger(ctx context.Context, result *ItemList) *QueryMerger {
	return NewCustomMerger(ctx, result, func(ctx context.Context, current *ItemList, next *ItemList, isFirst bool) {
		current.Merge(next)
	})
}

// NewCustomMerger allows providing a custom merge strategy.
func NewCustomMerger(ctx context.Context, result *ItemList, merger Merger) *QueryMerger {
	return &QueryMerger{
		ctx:     ctx,
		isFirst: true,
		result:  result,
		merger:  merger,
		exclude: &ItemList{},
	}
}

func (m *QueryMerger) Add(getResult func(ctx context.Context) *ItemList) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		items := getResult(m.ctx)
		if items == nil {
			return
		}
		m.l.Lock()
		m.merger(m.ctx, m.result, items, m.isFirst)
		m.isFirst = false
		m.l.Unlock()
	}()
}

// Exclude collects items to remove from the final result.
func (m *QueryMerger) Exclude(getResult func(ctx context.Context) *ItemList) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		items := getResult(m.ctx)
		if items == nil {
			return
		}
		m.l.Lock()
		m.exclude.Merge(items)
		m.l.Unlock()
	}()
}

// Wait blocks until all operations complete and then applies exclusions.
// It reports whether any Add contributed a set.
func (m *QueryMerger) Wait() bool {
	m.wg.Wait()
	m.result.Exclude(m.exclude)
	return !m.isFirst
}
