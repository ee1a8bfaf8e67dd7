package graph

import "github.com/noslopforever/assetgraph/internal/model"

type dictEntry struct {
	key    any
	value  any
	target *Object
	id     model.ItemId
}

// Dictionary is an unordered key→value mapping that nonetheless preserves
// insertion order for deterministic serialization; if identifiable, each
// entry carries an ItemId independent of its key (§3.1, DictionaryNode).
type Dictionary struct {
	Identifiable       bool
	ItemsAreReferences bool

	entries []dictEntry
	deleted map[model.ItemId]struct{}

	host Host
}

// NewDictionary creates an empty dictionary.
func NewDictionary(identifiable bool, h Host) *Dictionary {
	if h == nil {
		h = NopHost
	}
	return &Dictionary{
		Identifiable: identifiable,
		deleted:      make(map[model.ItemId]struct{}),
		host:         h,
	}
}

func (d *Dictionary) Kind() NodeKind       { return KindDictionary }
func (d *Dictionary) IsIdentifiable() bool { return d.Identifiable }
func (d *Dictionary) Len() int             { return len(d.entries) }
func (d *Dictionary) setHost(h Host)       { d.host = h }

func (d *Dictionary) hostOrNop() Host {
	if d.host == nil {
		return NopHost
	}
	return d.host
}

func (d *Dictionary) Indices() []model.Index {
	out := make([]model.Index, len(d.entries))
	for i, e := range d.entries {
		out[i] = model.NewKeyIndex(e.key)
	}
	return out
}

func (d *Dictionary) findKey(key any) int {
	for i, e := range d.entries {
		if e.key == key {
			return i
		}
	}
	return -1
}

func (d *Dictionary) HasKey(key any) bool { return d.findKey(key) >= 0 }

func (d *Dictionary) Retrieve(idx model.Index) (any, bool) {
	i := d.findKey(idx.Key)
	if i < 0 {
		return nil, false
	}
	e := d.entries[i]
	if e.target != nil {
		return e.target, true
	}
	return e.value, true
}

func (d *Dictionary) IndexedTarget(idx model.Index) (*Object, bool) {
	i := d.findKey(idx.Key)
	if i < 0 || d.entries[i].target == nil {
		return nil, false
	}
	return d.entries[i].target, true
}

func (d *Dictionary) ItemIDAt(idx model.Index) (model.ItemId, bool) {
	i := d.findKey(idx.Key)
	if i < 0 || !d.Identifiable {
		return model.EmptyItemId, false
	}
	return d.entries[i].id, true
}

func (d *Dictionary) IndexOf(id model.ItemId) (model.Index, bool) {
	if !d.Identifiable || id == model.EmptyItemId {
		return model.Index{}, false
	}
	for _, e := range d.entries {
		if e.id == id {
			return model.NewKeyIndex(e.key), true
		}
	}
	return model.Index{}, false
}

func (d *Dictionary) Update(h Host, idx model.Index, value any, target *Object, origin model.MutationOrigin) error {
	i := d.findKey(idx.Key)
	if i < 0 {
		return model.NewInvalidArgument("dictionary update: key %v not found", idx.Key)
	}
	sink := d.sinkFor(h)
	old, _ := d.Retrieve(idx)
	sink.OnItemChanging(d, model.CollectionUpdate, idx, old)
	d.entries[i].value = value
	d.entries[i].target = target
	newVal, _ := d.Retrieve(idx)
	sink.OnItemChanged(d, model.CollectionUpdate, idx, d.entries[i].id, newVal, origin)
	return nil
}

func (d *Dictionary) Add(h Host, idx model.Index, value any, target *Object, origin model.MutationOrigin) (model.ItemId, error) {
	if d.findKey(idx.Key) >= 0 {
		return model.EmptyItemId, model.NewInvalidArgument("dictionary add: key %v already present", idx.Key)
	}
	id := model.EmptyItemId
	if d.Identifiable {
		id = model.NewItemId()
	}
	return id, d.insert(h, idx.Key, value, target, id, origin)
}

func (d *Dictionary) Restore(h Host, idx model.Index, value any, target *Object, id model.ItemId, origin model.MutationOrigin) error {
	if d.findKey(idx.Key) >= 0 {
		return model.NewInvalidArgument("dictionary restore: key %v already present", idx.Key)
	}
	return d.insert(h, idx.Key, value, target, id, origin)
}

func (d *Dictionary) insert(h Host, key any, value any, target *Object, id model.ItemId, origin model.MutationOrigin) error {
	sink := d.sinkFor(h)
	insertIdx := model.NewKeyIndex(key)
	sink.OnItemChanging(d, model.CollectionAdd, insertIdx, nil)
	if target != nil && id != model.EmptyItemId {
		target.ItemID = id
	}
	d.entries = append(d.entries, dictEntry{key: key, value: value, target: target, id: id})
	var newVal any = value
	if target != nil {
		newVal = target
	}
	sink.OnItemChanged(d, model.CollectionAdd, insertIdx, id, newVal, origin)
	return nil
}

func (d *Dictionary) Remove(h Host, idx model.Index, origin model.MutationOrigin) error {
	i := d.findKey(idx.Key)
	if i < 0 {
		return model.NewInvalidArgument("dictionary remove: key %v not found", idx.Key)
	}
	sink := d.sinkFor(h)
	old, _ := d.Retrieve(idx)
	id := d.entries[i].id
	sink.OnItemChanging(d, model.CollectionRemove, idx, old)
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	sink.OnItemChanged(d, model.CollectionRemove, idx, id, nil, origin)
	return nil
}

// Move renames the key of the entry stored under oldKey to newKey,
// preserving its ItemId (§4.6.2's dictionary "move").
func (d *Dictionary) Move(h Host, oldKey, newKey any, origin model.MutationOrigin) error {
	i := d.findKey(oldKey)
	if i < 0 {
		return model.NewInvalidArgument("dictionary move: key %v not found", oldKey)
	}
	if d.findKey(newKey) >= 0 {
		return model.NewInvalidArgument("dictionary move: target key %v already present", newKey)
	}
	sink := d.sinkFor(h)
	e := d.entries[i]
	oldIdx := model.NewKeyIndex(oldKey)
	newIdx := model.NewKeyIndex(newKey)
	var val any = e.value
	if e.target != nil {
		val = e.target
	}
	sink.OnItemChanging(d, model.CollectionMove, oldIdx, val)
	d.entries[i].key = newKey
	sink.OnItemChanged(d, model.CollectionMove, newIdx, e.id, val, origin)
	return nil
}

func (d *Dictionary) DeletedItems() map[model.ItemId]struct{} { return d.deleted }
func (d *Dictionary) MarkDeleted(id model.ItemId) {
	if id == model.EmptyItemId {
		return
	}
	d.deleted[id] = struct{}{}
}
func (d *Dictionary) UnmarkDeleted(id model.ItemId) { delete(d.deleted, id) }

func (d *Dictionary) sinkFor(h Host) EventSink {
	if h != nil {
		return h.Sink()
	}
	return d.hostOrNop().Sink()
}
