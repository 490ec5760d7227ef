package index

import (
	"cmp"
	"iter"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/matst80/slask-facets/pkg/types"
)

// Repository is the in-memory content store the filter engine queries. It is
// safe for concurrent use, reads share a lock and every change bumps Version.
type Repository struct {
	mu         sync.RWMutex
	items      map[types.ItemId]*types.Item
	all        types.ItemList
	taxonomies []*types.Taxonomy
	fields     map[string]*types.CustomField
	terms      map[string]map[types.TermId]types.ItemList
	status     map[string]types.ItemList
	postTypes  map[string]types.ItemList
	version    atomic.Uint64
}

func NewRepository() *Repository {
	return &Repository{
		items:     make(map[types.ItemId]*types.Item),
		all:       types.ItemList{},
		fields:    make(map[string]*types.CustomField),
		terms:     make(map[string]map[types.TermId]types.ItemList),
		status:    make(map[string]types.ItemList),
		postTypes: make(map[string]types.ItemList),
	}
}

// SetSchema replaces the taxonomies and custom field definitions.
func (r *Repository) SetSchema(taxonomies []types.Taxonomy, fields []types.CustomField) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taxonomies = make([]*types.Taxonomy, 0, len(taxonomies))
	for i := range taxonomies {
		t := taxonomies[i]
		t.Terms = slices.Clone(t.Terms)
		r.taxonomies = append(r.taxonomies, &t)
	}
	r.fields = make(map[string]*types.CustomField, len(fields))
	for i := range fields {
		f := fields[i]
		r.fields[f.Key] = &f
	}
	r.version.Add(1)
}

func (r *Repository) Taxonomy(name string) (*types.Taxonomy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.taxonomy(name)
}

func (r *Repository) taxonomy(name string) (*types.Taxonomy, bool) {
	for _, t := range r.taxonomies {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

func (r *Repository) Field(key string) (*types.CustomField, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[key]
	return f, ok
}

func (r *Repository) Taxonomies() []types.Taxonomy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]types.Taxonomy, 0, len(r.taxonomies))
	for _, t := range r.taxonomies {
		ret = append(ret, *t)
	}
	return ret
}

func (r *Repository) Fields() []types.CustomField {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]types.CustomField, 0, len(r.fields))
	for _, f := range r.fields {
		ret = append(ret, *f)
	}
	slices.SortFunc(ret, func(a, b types.CustomField) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return ret
}

// Version changes whenever the content or schema changes.
func (r *Repository) Version() uint64 {
	return r.version.Load()
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Repository) GetItem(id types.ItemId) (*types.Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok
}

// Items iterates a snapshot of all items ordered by id.
func (r *Repository) Items() iter.Seq[*types.Item] {
	r.mu.RLock()
	ids := r.all.Ids()
	snapshot := make([]*types.Item, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, r.items[id])
	}
	r.mu.RUnlock()
	return slices.Values(snapshot)
}

func (r *Repository) Upsert(items ...*types.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item == nil {
			continue
		}
		if existing, ok := r.items[item.Id]; ok {
			r.unlink(existing)
		}
		r.items[item.Id] = item
		r.link(item)
	}
	r.version.Add(1)
}

func (r *Repository) Delete(ids ...types.ItemId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		existing, ok := r.items[id]
		if !ok {
			log.Printf("delete of unknown item %d", id)
			continue
		}
		r.unlink(existing)
		delete(r.items, id)
	}
	r.version.Add(1)
}

func addTo[K comparable](m map[K]types.ItemList, key K, id types.ItemId) {
	list, ok := m[key]
	if !ok {
		list = types.ItemList{}
		m[key] = list
	}
	list.AddId(id)
}

func (r *Repository) link(item *types.Item) {
	r.all.AddId(item.Id)
	addTo(r.status, item.Status, item.Id)
	addTo(r.postTypes, item.PostType, item.Id)
	for taxonomy, ids := range item.Terms {
		byTerm, ok := r.terms[taxonomy]
		if !ok {
			byTerm = make(map[types.TermId]types.ItemList)
			r.terms[taxonomy] = byTerm
		}
		for _, termId := range ids {
			addTo(byTerm, termId, item.Id)
		}
	}
}

func (r *Repository) unlink(item *types.Item) {
	r.all.Remove(item.Id)
	if l, ok := r.status[item.Status]; ok {
		l.Remove(item.Id)
	}
	if l, ok := r.postTypes[item.PostType]; ok {
		l.Remove(item.Id)
	}
	for taxonomy, ids := range item.Terms {
		byTerm := r.terms[taxonomy]
		for _, termId := range ids {
			if l, ok := byTerm[termId]; ok {
				l.Remove(item.Id)
			}
		}
	}
}
