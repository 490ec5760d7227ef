package types

import (
	"maps"
	"slices"
)

type ItemList map[ItemId]struct{}

func NewItemList() *ItemList {
	return &ItemList{}
}

func ItemListFrom(ids ...ItemId) *ItemList {
	ret := make(ItemList, len(ids))
	for _, id := range ids {
		ret[id] = struct{}{}
	}
	return &ret
}

func (i ItemList) AddId(id ItemId) {
	i[id] = struct{}{}
}

func (i ItemList) Remove(id ItemId) {
	delete(i, id)
}

func (i ItemList) Contains(id ItemId) bool {
	_, ok := i[id]
	return ok
}

func (i ItemList) Len() int {
	return len(i)
}

func (i ItemList) IsEmpty() bool {
	return len(i) == 0
}

func (i ItemList) Intersect(other ItemList) {
	for id := range i {
		if _, ok := other[id]; !ok {
			delete(i, id)
		}
	}
}

func (i ItemList) Merge(other *ItemList) {
	if other == nil {
		return
	}
	maps.Copy(i, *other)
}

func (i ItemList) Exclude(other *ItemList) {
	if other == nil {
		return
	}
	for id := range *other {
		delete(i, id)
	}
}

// IntersectionLen counts shared ids without allocating.
func (i ItemList) IntersectionLen(other ItemList) int {
	a, b := i, other
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for id := range a {
		if _, ok := b[id]; ok {
			n++
		}
	}
	return n
}

func (i ItemList) Clone() *ItemList {
	ret := maps.Clone(i)
	if ret == nil {
		ret = ItemList{}
	}
	return &ret
}

// Ids returns the ids in ascending order.
func (i ItemList) Ids() []ItemId {
	return slices.Sorted(maps.Keys(i))
}
