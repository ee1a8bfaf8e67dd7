package graph

import "github.com/noslopforever/assetgraph/internal/model"

type collEntry struct {
	value  any
	target *Object
	id     model.ItemId
}

// Collection is an ordered sequence of items, each addressable by integer
// index and, if the collection is identifiable, by a stable ItemId (§3.1,
// CollectionNode).
type Collection struct {
	Identifiable       bool
	ItemsAreReferences bool

	entries []collEntry
	deleted map[model.ItemId]struct{}

	host Host
}

// NewCollection creates an empty collection.
func NewCollection(identifiable bool, h Host) *Collection {
	if h == nil {
		h = NopHost
	}
	return &Collection{
		Identifiable: identifiable,
		deleted:      make(map[model.ItemId]struct{}),
		host:         h,
	}
}

func (c *Collection) Kind() NodeKind        { return KindCollection }
func (c *Collection) IsIdentifiable() bool  { return c.Identifiable }
func (c *Collection) Len() int              { return len(c.entries) }
func (c *Collection) setHost(h Host)        { c.host = h }

func (c *Collection) hostOrNop() Host {
	if c.host == nil {
		return NopHost
	}
	return c.host
}

func (c *Collection) Indices() []model.Index {
	out := make([]model.Index, len(c.entries))
	for i := range c.entries {
		out[i] = model.NewIntIndex(i)
	}
	return out
}

func (c *Collection) Retrieve(idx model.Index) (any, bool) {
	i, ok := c.boundsCheck(idx)
	if !ok {
		return nil, false
	}
	e := c.entries[i]
	if e.target != nil {
		return e.target, true
	}
	return e.value, true
}

func (c *Collection) IndexedTarget(idx model.Index) (*Object, bool) {
	i, ok := c.boundsCheck(idx)
	if !ok || c.entries[i].target == nil {
		return nil, false
	}
	return c.entries[i].target, true
}

func (c *Collection) ItemIDAt(idx model.Index) (model.ItemId, bool) {
	i, ok := c.boundsCheck(idx)
	if !ok || !c.Identifiable {
		return model.EmptyItemId, false
	}
	return c.entries[i].id, true
}

func (c *Collection) IndexOf(id model.ItemId) (model.Index, bool) {
	if !c.Identifiable || id == model.EmptyItemId {
		return model.Index{}, false
	}
	for i, e := range c.entries {
		if e.id == id {
			return model.NewIntIndex(i), true
		}
	}
	return model.Index{}, false
}

func (c *Collection) boundsCheck(idx model.Index) (int, bool) {
	if idx.Kind != model.IndexInt || idx.Int < 0 || idx.Int >= len(c.entries) {
		return 0, false
	}
	return idx.Int, true
}

func (c *Collection) Update(h Host, idx model.Index, value any, target *Object, origin model.MutationOrigin) error {
	i, ok := c.boundsCheck(idx)
	if !ok {
		return model.NewInvalidArgument("collection update: index %v out of range", idx)
	}
	sink := c.sinkFor(h)
	old, _ := c.Retrieve(idx)
	sink.OnItemChanging(c, model.CollectionUpdate, idx, old)
	c.entries[i].value = value
	c.entries[i].target = target
	newVal, _ := c.Retrieve(idx)
	sink.OnItemChanged(c, model.CollectionUpdate, idx, c.entries[i].id, newVal, origin)
	return nil
}

func (c *Collection) Add(h Host, idx model.Index, value any, target *Object, origin model.MutationOrigin) (model.ItemId, error) {
	pos := len(c.entries)
	if idx.Kind == model.IndexInt && idx.Int >= 0 && idx.Int <= len(c.entries) {
		pos = idx.Int
	}
	id := model.EmptyItemId
	if c.Identifiable {
		id = model.NewItemId()
	}
	return id, c.insert(h, pos, value, target, id, origin)
}

func (c *Collection) Restore(h Host, idx model.Index, value any, target *Object, id model.ItemId, origin model.MutationOrigin) error {
	pos := len(c.entries)
	if idx.Kind == model.IndexInt && idx.Int >= 0 && idx.Int <= len(c.entries) {
		pos = idx.Int
	}
	return c.insert(h, pos, value, target, id, origin)
}

func (c *Collection) insert(h Host, pos int, value any, target *Object, id model.ItemId, origin model.MutationOrigin) error {
	sink := c.sinkFor(h)
	insertIdx := model.NewIntIndex(pos)
	sink.OnItemChanging(c, model.CollectionAdd, insertIdx, nil)

	if target != nil && id != model.EmptyItemId {
		target.ItemID = id
	}
	e := collEntry{value: value, target: target, id: id}
	c.entries = append(c.entries, collEntry{})
	copy(c.entries[pos+1:], c.entries[pos:])
	c.entries[pos] = e

	var newVal any = value
	if target != nil {
		newVal = target
	}
	sink.OnItemChanged(c, model.CollectionAdd, insertIdx, id, newVal, origin)
	return nil
}

func (c *Collection) Remove(h Host, idx model.Index, origin model.MutationOrigin) error {
	i, ok := c.boundsCheck(idx)
	if !ok {
		return model.NewInvalidArgument("collection remove: index %v out of range", idx)
	}
	sink := c.sinkFor(h)
	old, _ := c.Retrieve(idx)
	id := c.entries[i].id
	sink.OnItemChanging(c, model.CollectionRemove, idx, old)
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	sink.OnItemChanged(c, model.CollectionRemove, idx, id, nil, origin)
	return nil
}

func (c *Collection) DeletedItems() map[model.ItemId]struct{} { return c.deleted }
func (c *Collection) MarkDeleted(id model.ItemId) {
	if id == model.EmptyItemId {
		return
	}
	c.deleted[id] = struct{}{}
}
func (c *Collection) UnmarkDeleted(id model.ItemId) { delete(c.deleted, id) }

func (c *Collection) sinkFor(h Host) EventSink {
	if h != nil {
		return h.Sink()
	}
	return c.hostOrNop().Sink()
}
