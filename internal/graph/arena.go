package graph

import (
	"sync"

	"github.com/noslopforever/assetgraph/internal/model"
)

// Arena stores every identifiable Object of one asset graph keyed by its
// stable ItemId. References between objects are id lookups into the arena,
// never owning pointers, so cyclic graphs among identifiable objects (§9)
// are representable without double-free or leak concerns: the arena, not
// any single referencing node, owns the Object.
type Arena struct {
	mu      sync.RWMutex
	objects map[model.ItemId]*Object
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{objects: make(map[model.ItemId]*Object)}
}

// Register assigns obj a fresh ItemId (if it doesn't have one) and stores
// it in the arena, returning the id.
func (a *Arena) Register(obj *Object) model.ItemId {
	a.mu.Lock()
	defer a.mu.Unlock()
	if obj.ItemID == model.EmptyItemId {
		obj.ItemID = model.NewItemId()
	}
	a.objects[obj.ItemID] = obj
	return obj.ItemID
}

// Put stores obj under an explicit, externally chosen id (used when
// restoring a cloned subtree with remapped ids, or replaying restore()).
func (a *Arena) Put(id model.ItemId, obj *Object) {
	a.mu.Lock()
	defer a.mu.Unlock()
	obj.ItemID = id
	a.objects[id] = obj
}

// Lookup resolves an ItemId to its Object, if still registered.
func (a *Arena) Lookup(id model.ItemId) (*Object, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	o, ok := a.objects[id]
	return o, ok
}

// Forget removes an id from the arena (called when an identifiable object
// is structurally removed from the graph and not merely unreferenced).
func (a *Arena) Forget(id model.ItemId) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, id)
}

// Len reports how many identifiable objects the arena currently holds.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}
