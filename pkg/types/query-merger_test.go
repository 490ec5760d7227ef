package types

import (
	"context"
	"slices"
	"testing"
)

func list(ids ...ItemId) func(context.Context) *ItemList {
	return func(context.Context) *ItemList {
		return ItemListFrom(ids...)
	}
}

func sortedIds(l ItemList) []ItemId {
	ids := l.Ids()
	slices.Sort(ids)
	return ids
}

func TestQueryMergerIntersects(t *testing.T) {
	result := ItemList{}
	merger := NewQueryMerger(context.Background(), &result)
	merger.Add(list(1, 2))
	merger.Add(list(2, 3))
	if !merger.Wait() {
		t.Fatal("expected a contributing set")
	}
	if got := sortedIds(result); !slices.Equal(got, []ItemId{2}) {
		t.Errorf("expected intersection {2}, got %v", got)
	}
}

func TestQueryMergerNilDoesNotSeed(t *testing.T) {
	result := ItemList{}
	merger := NewQueryMerger(context.Background(), &result)
	merger.Add(func(context.Context) *ItemList { return nil })
	if merger.Wait() {
		t.Error("nil results should not count as contributing")
	}
	if result.Len() != 0 {
		t.Errorf("expected empty result, got %v", result.Ids())
	}

	result = ItemList{}
	merger = NewQueryMerger(context.Background(), &result)
	merger.Add(func(context.Context) *ItemList { return nil })
	merger.Add(list(4, 5))
	merger.Wait()
	if got := sortedIds(result); !slices.Equal(got, []ItemId{4, 5}) {
		t.Errorf("expected {4,5}, got %v", got)
	}
}

func TestUnionMergerWithExclusions(t *testing.T) {
	result := ItemList{}
	merger := NewUnionMerger(context.Background(), &result)
	merger.Add(list(1, 2))
	merger.Add(list(2, 3, 4))
	merger.Exclude(list(3))
	merger.Exclude(func(context.Context) *ItemList { return nil })
	merger.Wait()
	if got := sortedIds(result); !slices.Equal(got, []ItemId{1, 2, 4}) {
		t.Errorf("expected {1,2,4}, got %v", got)
	}
}

func TestEmptySetIntersectsToEmpty(t *testing.T) {
	result := ItemList{}
	merger := NewQueryMerger(context.Background(), &result)
	merger.Add(list(1, 2))
	merger.Add(list())
	merger.Wait()
	if result.Len() != 0 {
		t.Errorf("expected empty result, got %v", result.Ids())
	}
}
