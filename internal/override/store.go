// Package override implements the override store (component E): per-node
// content override bits, per-item/per-key override sets, and the
// deleted-items bookkeeping interaction described in §4.4. The Store
// subscribes to a graph's listener.Bus as a graph.EventSink and stamps
// override state in response to the four raw mutation events, the same
// way the teacher's Reconciler.reconcileAsset derives a diff map from a
// before/after comparison and persists it alongside the record.
package override

import (
	"sync"

	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
)

// BaseChecker reports whether a node currently has a linked base
// counterpart — the Store needs this to implement §4.4's "mark the ItemId
// as deleted iff a base exists and we are not reconciling".
type BaseChecker interface {
	HasBase(n graph.Node) bool
}

// Store holds the override state for one AssetPropertyGraph. Keys are
// pointer identities of live nodes, which are stable for the node's
// lifetime regardless of index/key shifts elsewhere in the tree — unlike a
// NodePath, which can shift out from under an item as siblings are
// inserted or removed.
type Store struct {
	mu sync.Mutex

	content map[*graph.Member]model.OverrideType
	pending map[*graph.Member]model.OverrideType

	items map[graph.IndexedObject]map[model.ItemId]bool
	keys  map[graph.IndexedObject]map[model.ItemId]bool

	pendingRemoved map[graph.IndexedObject]model.ItemId

	baseChecker BaseChecker
}

// New creates an empty override store. SetBaseChecker must be called
// before any mutation flows through the store if deleted-item tracking
// (§4.4) is required; an unset checker behaves as "no base", so removals
// are simply dropped rather than recorded as deletions.
func New() *Store {
	return &Store{
		content:        make(map[*graph.Member]model.OverrideType),
		pending:        make(map[*graph.Member]model.OverrideType),
		items:          make(map[graph.IndexedObject]map[model.ItemId]bool),
		keys:           make(map[graph.IndexedObject]map[model.ItemId]bool),
		pendingRemoved: make(map[graph.IndexedObject]model.ItemId),
	}
}

// SetBaseChecker wires the predicate used to decide whether a locally
// removed item should be recorded as an overriding deletion.
func (s *Store) SetBaseChecker(bc BaseChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseChecker = bc
}

// --- graph.EventSink ---

func (s *Store) OnChanging(m *graph.Member, old any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[m] = s.contentLocked(m)
}

func (s *Store) OnChanged(m *graph.Member, old, new any, origin model.MutationOrigin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, m)

	if !m.CanOverride {
		// I1: can_override=false implies content_override stays Base.
		delete(s.content, m)
		return
	}
	if origin.IsReconciling() {
		delete(s.content, m) // Base is the map's zero/absent state
		return
	}
	s.content[m] = model.OverrideNew
}

func (s *Store) OnItemChanging(n graph.IndexedObject, kind model.ChangeKind, idx model.Index, old any) {
	if kind != model.CollectionRemove || !n.IsIdentifiable() {
		return
	}
	id, ok := n.ItemIDAt(idx)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRemoved[n] = id
}

func (s *Store) OnItemChanged(n graph.IndexedObject, kind model.ChangeKind, idx model.Index, id model.ItemId, new any, origin model.MutationOrigin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case model.CollectionAdd, model.CollectionUpdate:
		if !n.IsIdentifiable() || id == model.EmptyItemId {
			return
		}
		if origin.IsReconciling() {
			s.clearItemOverrideLocked(n, id)
			return
		}
		s.setItemOverrideLocked(n, id, true)

	case model.CollectionRemove:
		removedID, had := s.pendingRemoved[n]
		delete(s.pendingRemoved, n)
		if !had {
			return
		}
		s.clearItemOverrideLocked(n, removedID)
		if origin.IsReconciling() {
			return // reconciliation-driven removal is never a deletion
		}
		if s.baseChecker != nil && s.baseChecker.HasBase(n) {
			n.MarkDeleted(removedID)
		}

	case model.CollectionMove:
		if !n.IsIdentifiable() || id == model.EmptyItemId {
			return
		}
		if origin.IsReconciling() {
			s.clearKeyOverrideLocked(n, id)
			return
		}
		s.setKeyOverrideLocked(n, id, true)
	}
}

var _ graph.EventSink = (*Store)(nil)

// --- queries ---

// ContentOverride returns m's current content override (§3.4); absent
// entries default to Base.
func (s *Store) ContentOverride(m *graph.Member) model.OverrideType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentLocked(m)
}

func (s *Store) contentLocked(m *graph.Member) model.OverrideType {
	if v, ok := s.content[m]; ok {
		return v
	}
	return model.OverrideBase
}

// SetContentOverride force-sets m's content override, used by the
// metadata loader (§4.7) and by ResetOverride.
func (s *Store) SetContentOverride(m *graph.Member, v model.OverrideType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == model.OverrideBase || !m.CanOverride {
		delete(s.content, m)
		return
	}
	s.content[m] = v
}

// IsItemOverridden reports whether id's content is locally authored within
// IndexedObject n.
func (s *Store) IsItemOverridden(n graph.IndexedObject, id model.ItemId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[n][id]
}

// SetItemOverride force-sets id's item override bit within n.
func (s *Store) SetItemOverride(n graph.IndexedObject, id model.ItemId, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setItemOverrideLocked(n, id, v)
}

func (s *Store) setItemOverrideLocked(n graph.IndexedObject, id model.ItemId, v bool) {
	if !v {
		s.clearItemOverrideLocked(n, id)
		return
	}
	if s.items[n] == nil {
		s.items[n] = make(map[model.ItemId]bool)
	}
	s.items[n][id] = true
}

func (s *Store) clearItemOverrideLocked(n graph.IndexedObject, id model.ItemId) {
	delete(s.items[n], id)
}

// IsKeyOverridden reports whether id's key is locally authored within
// dictionary n.
func (s *Store) IsKeyOverridden(n graph.IndexedObject, id model.ItemId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[n][id]
}

// SetKeyOverride force-sets id's key override bit within n.
func (s *Store) SetKeyOverride(n graph.IndexedObject, id model.ItemId, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setKeyOverrideLocked(n, id, v)
}

func (s *Store) setKeyOverrideLocked(n graph.IndexedObject, id model.ItemId, v bool) {
	if !v {
		s.clearKeyOverrideLocked(n, id)
		return
	}
	if s.keys[n] == nil {
		s.keys[n] = make(map[model.ItemId]bool)
	}
	s.keys[n][id] = true
}

func (s *Store) clearKeyOverrideLocked(n graph.IndexedObject, id model.ItemId) {
	delete(s.keys[n], id)
}

// ForgetNode drops every item and key override bit held against n (used by
// the graph's ResetOverride to clear a collection or dictionary's items).
func (s *Store) ForgetNode(n graph.IndexedObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, n)
	delete(s.keys, n)
	delete(s.pendingRemoved, n)
}

// ForgetMember drops the content override bit held against m.
func (s *Store) ForgetMember(m *graph.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.content, m)
	delete(s.pending, m)
}

// Snapshot is an opaque, in-process copy of the store's bits, usable only
// against the same live graph it was taken from (clear_all_overrides /
// restore_overrides, §6, I5).
type Snapshot struct {
	content map[*graph.Member]model.OverrideType
	items   map[graph.IndexedObject]map[model.ItemId]bool
	keys    map[graph.IndexedObject]map[model.ItemId]bool
}

// TakeSnapshot copies every override bit currently set.
func (s *Store) TakeSnapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{
		content: make(map[*graph.Member]model.OverrideType, len(s.content)),
		items:   make(map[graph.IndexedObject]map[model.ItemId]bool, len(s.items)),
		keys:    make(map[graph.IndexedObject]map[model.ItemId]bool, len(s.keys)),
	}
	for k, v := range s.content {
		snap.content[k] = v
	}
	for n, ids := range s.items {
		cp := make(map[model.ItemId]bool, len(ids))
		for id, v := range ids {
			cp[id] = v
		}
		snap.items[n] = cp
	}
	for n, ids := range s.keys {
		cp := make(map[model.ItemId]bool, len(ids))
		for id, v := range ids {
			cp[id] = v
		}
		snap.keys[n] = cp
	}
	return snap
}

// ClearAll wipes every override bit (content, item, key), returning the
// snapshot that was in effect beforehand so callers can restore it.
func (s *Store) ClearAll() *Snapshot {
	snap := s.TakeSnapshot()
	s.mu.Lock()
	s.content = make(map[*graph.Member]model.OverrideType)
	s.items = make(map[graph.IndexedObject]map[model.ItemId]bool)
	s.keys = make(map[graph.IndexedObject]map[model.ItemId]bool)
	s.mu.Unlock()
	return snap
}

// Restore reinstates a previously taken snapshot verbatim (§6
// restore_overrides, I5).
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = make(map[*graph.Member]model.OverrideType, len(snap.content))
	for k, v := range snap.content {
		s.content[k] = v
	}
	s.items = make(map[graph.IndexedObject]map[model.ItemId]bool, len(snap.items))
	for n, ids := range snap.items {
		cp := make(map[model.ItemId]bool, len(ids))
		for id, v := range ids {
			cp[id] = v
		}
		s.items[n] = cp
	}
	s.keys = make(map[graph.IndexedObject]map[model.ItemId]bool, len(snap.keys))
	for n, ids := range snap.keys {
		cp := make(map[model.ItemId]bool, len(ids))
		for id, v := range ids {
			cp[id] = v
		}
		s.keys[n] = cp
	}
}
